package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/MeKo-Tech/mapscope/internal/geo"
	"github.com/MeKo-Tech/mapscope/internal/overpass"
	"github.com/MeKo-Tech/mapscope/internal/workspace"
)

// openContext builds the workspace context from config and loads everything
// persisted under the workspace directory.
func openContext() (*workspace.Context, error) {
	if logger == nil {
		initLogging()
	}

	dir := viper.GetString("workspace-dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	client := overpass.NewClient(viper.GetString("overpass-endpoint"), overpass.WithLogger(logger))
	ctx := workspace.NewContext(dir,
		workspace.WithLogger(logger),
		workspace.WithOverpassClient(client),
	)
	if err := ctx.LoadWorkspaces(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// activateByName switches the context to the named workspace; an empty name
// keeps the current active one.
func activateByName(ctx *workspace.Context, name string) error {
	if name == "" {
		if ctx.Active() == nil {
			return fmt.Errorf("no workspaces exist; create one first")
		}
		return nil
	}
	for _, d := range ctx.Workspaces() {
		if d.Name == name {
			return ctx.SetActive(d.ID)
		}
	}
	return fmt.Errorf("unknown workspace %q", name)
}

// parseCoord parses "lat,lon".
func parseCoord(s string) (geo.Coord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Coord{}, fmt.Errorf("invalid coordinate %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Coord{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Coord{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	return geo.NewCoord(lat, lon), nil
}

// parseSelection builds a selection from the mutually exclusive --rect,
// --circle and --poly flag values.
func parseSelection(rect, circle, poly string) (geo.Selection, error) {
	set := 0
	for _, v := range []string{rect, circle, poly} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return geo.Selection{}, fmt.Errorf("exactly one of --rect, --circle, --poly is required")
	}

	switch {
	case rect != "":
		a, b, err := parseCoordPair(rect)
		if err != nil {
			return geo.Selection{}, err
		}
		return geo.NewRectangle(a, b), nil
	case circle != "":
		center, edge, err := parseCoordPair(circle)
		if err != nil {
			return geo.Selection{}, err
		}
		return geo.NewCircle(center, edge), nil
	default:
		var points []geo.Coord
		for _, part := range strings.Split(poly, ";") {
			c, err := parseCoord(part)
			if err != nil {
				return geo.Selection{}, err
			}
			points = append(points, c)
		}
		if len(points) < 3 {
			return geo.Selection{}, fmt.Errorf("polygon needs at least 3 vertices")
		}
		return geo.NewPolygon(points), nil
	}
}

// parseCoordPair parses "lat1,lon1,lat2,lon2".
func parseCoordPair(s string) (geo.Coord, geo.Coord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Coord{}, geo.Coord{}, fmt.Errorf("invalid value %q: want lat1,lon1,lat2,lon2", s)
	}
	a, err := parseCoord(parts[0] + "," + parts[1])
	if err != nil {
		return geo.Coord{}, geo.Coord{}, err
	}
	b, err := parseCoord(parts[2] + "," + parts[3])
	if err != nil {
		return geo.Coord{}, geo.Coord{}, err
	}
	return a, b, nil
}
