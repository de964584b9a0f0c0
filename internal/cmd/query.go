package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/mapscope/internal/feature"
	"github.com/MeKo-Tech/mapscope/internal/geo"
	"github.com/MeKo-Tech/mapscope/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the active workspace's fetched features",
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.PersistentFlags().String("workspace", "", "Workspace name (default: active workspace)")

	queryCmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Show workspace and feature counts",
			RunE: func(cmd *cobra.Command, args []string) error {
				api, err := openQueryAPI(cmd)
				if err != nil {
					return err
				}
				info, err := api.Info()
				if err != nil {
					return err
				}
				return printJSON(info)
			},
		},
		&cobra.Command{
			Use:   "tags <feature-id>",
			Short: "Show a feature's tags",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				api, err := openQueryAPI(cmd)
				if err != nil {
					return err
				}
				tags, ok := api.FeatureTags(args[0])
				if !ok {
					return fmt.Errorf("no feature with id %q", args[0])
				}
				return printJSON(tags)
			},
		},
		&cobra.Command{
			Use:   "nearby <lat,lon> <radius-m>",
			Short: "List features within a radius of a point",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				api, err := openQueryAPI(cmd)
				if err != nil {
					return err
				}
				center, radius, err := parsePointRadius(args)
				if err != nil {
					return err
				}
				return printFeatures(api.NearbyPoint(center, radius))
			},
		},
		&cobra.Command{
			Use:   "bbox <lat1,lon1,lat2,lon2>",
			Short: "List features intersecting a bounding box",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				api, err := openQueryAPI(cmd)
				if err != nil {
					return err
				}
				a, b, err := parseCoordPair(args[0])
				if err != nil {
					return err
				}
				return printFeatures(api.InBBox(geo.NewBound(a, b)))
			},
		},
		&cobra.Command{
			Use:   "polygon <lat,lon;lat,lon;...>",
			Short: "List features inside a polygon",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				api, err := openQueryAPI(cmd)
				if err != nil {
					return err
				}
				var ring []geo.Coord
				for _, part := range strings.Split(args[0], ";") {
					c, err := parseCoord(part)
					if err != nil {
						return err
					}
					ring = append(ring, c)
				}
				return printFeatures(api.InPolygon(ring))
			},
		},
		&cobra.Command{
			Use:   "nearest <lat,lon>",
			Short: "Show the feature closest to a point",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				api, err := openQueryAPI(cmd)
				if err != nil {
					return err
				}
				c, err := parseCoord(args[0])
				if err != nil {
					return err
				}
				f, dist, ok := api.Nearest(c)
				if !ok {
					return fmt.Errorf("no rendered features")
				}
				fmt.Printf("%s at %.0f m\n", f.ID, dist)
				return printJSON(f.Properties)
			},
		},
		&cobra.Command{
			Use:   "summarize <lat,lon> <radius-m>",
			Short: "Count features and tag keys around a point",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				api, err := openQueryAPI(cmd)
				if err != nil {
					return err
				}
				center, radius, err := parsePointRadius(args)
				if err != nil {
					return err
				}
				return printJSON(api.Summarize(center, radius))
			},
		},
		&cobra.Command{
			Use:   "distance <lat,lon> <lat,lon>",
			Short: "Great-circle distance between two coordinates",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if logger == nil {
					initLogging()
				}
				a, err := parseCoord(args[0])
				if err != nil {
					return err
				}
				b, err := parseCoord(args[1])
				if err != nil {
					return err
				}
				fmt.Println(geo.DistanceBetween(a, b))
				return nil
			},
		},
	)
}

// openQueryAPI loads the persisted workspaces, renders any unprocessed raw
// data, and wraps the context in the query API.
func openQueryAPI(cmd *cobra.Command) (*query.API, error) {
	ctx, err := openContext()
	if err != nil {
		return nil, err
	}
	name, _ := cmd.Flags().GetString("workspace")
	if err := activateByName(ctx, name); err != nil {
		return nil, err
	}
	ctx.ProcessTick()
	return query.New(ctx), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type featureLine struct {
	ID       string         `json:"id"`
	Centroid geo.Coord      `json:"centroid"`
	Tags     map[string]any `json:"tags,omitempty"`
}

func printFeatures(features []*feature.Feature) error {
	lines := make([]featureLine, 0, len(features))
	for _, f := range features {
		lines = append(lines, featureLine{ID: f.ID, Centroid: f.Centroid(), Tags: f.Properties})
	}
	return printJSON(lines)
}

func parsePointRadius(args []string) (geo.Coord, float64, error) {
	center, err := parseCoord(args[0])
	if err != nil {
		return geo.Coord{}, 0, err
	}
	radius, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return geo.Coord{}, 0, fmt.Errorf("invalid radius %q: %w", args[1], err)
	}
	return center, radius, nil
}
