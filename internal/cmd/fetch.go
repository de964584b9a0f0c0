package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/mapscope/internal/overpass"
	"github.com/MeKo-Tech/mapscope/internal/workspace"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch OSM data for the active workspace",
	Long: `Build an Overpass query from the workspace selection and the enabled
tag categories, run it, process the response into features, and persist the
request.

  mapscope fetch --enable "Building=house" --enable "Highway=*"
  mapscope fetch --workspace cambridge --enable Amenity`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("workspace", "", "Workspace name (default: active workspace)")
	fetchCmd.Flags().StringArray("enable", nil,
		"Category to fetch, as Category, Category=subkey or Category=* (repeatable)")
	fetchCmd.Flags().Uint32("layer", 0, "Layer the request renders on")
	fetchCmd.Flags().Duration("timeout", 5*time.Minute, "Overall fetch deadline")
}

func runFetch(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("workspace")
	enables, _ := cmd.Flags().GetStringArray("enable")
	layer, _ := cmd.Flags().GetUint32("layer")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, err := openContext()
	if err != nil {
		return err
	}
	if err := activateByName(ctx, name); err != nil {
		return err
	}

	settings := ctx.Settings()
	for _, e := range enables {
		if err := enableSetting(settings, e); err != nil {
			return err
		}
	}

	query, err := overpass.BuildQuery(ctx.Active().Selection, settings)
	if err != nil {
		return err
	}
	logger.Debug("built overpass query", "query", query)

	req := workspace.NewRequest(workspace.NewOverpassKind(query))
	req.Layer = layer
	if err := ctx.QueueRequest(req); err != nil {
		return err
	}

	drainCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if err := ctx.Worker().Drain(drainCtx); err != nil {
		return err
	}
	if ctx.Worker().Failed() > 0 {
		return fmt.Errorf("fetch failed; see log for details")
	}
	ctx.ProcessTick()

	if err := ctx.SaveWorkspace(); err != nil {
		return err
	}
	if err := ctx.SaveRequests(); err != nil {
		return err
	}

	loaded, _ := ctx.LoadedRequest(req.ID)
	fmt.Printf("request %s: %d bytes, %d features\n",
		req.ID, len(loaded.RawData), loaded.FeatureCount())
	return nil
}

// enableSetting applies one --enable value to the settings tree. Category
// names are matched case-insensitively; a bare category enables all subkeys.
func enableSetting(settings overpass.Settings, value string) error {
	category, subkey, hasSub := strings.Cut(value, "=")

	var match string
	for _, name := range settings.CategoryNames() {
		if strings.EqualFold(name, category) {
			match = name
			break
		}
	}
	if match == "" {
		return fmt.Errorf("unknown category %q (see: %s)",
			category, strings.Join(settings.CategoryNames(), ", "))
	}

	if !hasSub {
		settings.SetAll(match)
		return nil
	}
	settings.Enable(match, strings.TrimSpace(subkey))
	return nil
}
