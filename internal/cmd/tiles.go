package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/mapscope/internal/tilecache"
	"github.com/MeKo-Tech/mapscope/internal/worker"
)

// defaultTileOrigin is the OSM raster tile server.
const defaultTileOrigin = "https://tile.openstreetmap.org"

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Manage the map tile cache",
}

var tilesPrefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Warm the tile cache for a workspace region",
	Long: `Fetch all raster tiles covering the workspace selection at the given
zoom levels into the on-disk cache, with bounded concurrency.`,
	RunE: runTilesPrefetch,
}

var tilesExportCmd = &cobra.Command{
	Use:   "export <output.mbtiles>",
	Short: "Export cached tiles into an MBTiles file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTilesExport,
}

func init() {
	rootCmd.AddCommand(tilesCmd)
	tilesCmd.AddCommand(tilesPrefetchCmd)
	tilesCmd.AddCommand(tilesExportCmd)

	tilesCmd.PersistentFlags().String("origin", defaultTileOrigin, "Tile server origin URL")

	tilesPrefetchCmd.Flags().String("workspace", "", "Workspace name (default: active workspace)")
	tilesPrefetchCmd.Flags().Int("zoom-min", 12, "Minimum zoom level")
	tilesPrefetchCmd.Flags().Int("zoom-max", 15, "Maximum zoom level")
	tilesPrefetchCmd.Flags().Int("workers", 3, "Concurrent tile fetches")
}

func runTilesPrefetch(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("workspace")
	zoomMin, _ := cmd.Flags().GetInt("zoom-min")
	zoomMax, _ := cmd.Flags().GetInt("zoom-max")
	workers, _ := cmd.Flags().GetInt("workers")
	origin, _ := cmd.Flags().GetString("origin")

	if zoomMin > zoomMax {
		return fmt.Errorf("zoom-min %d exceeds zoom-max %d", zoomMin, zoomMax)
	}

	ctx, err := openContext()
	if err != nil {
		return err
	}
	if err := activateByName(ctx, name); err != nil {
		return err
	}
	bound := ctx.Active().Bound()

	cache := tilecache.New(viper.GetString("cache-dir"), tilecache.WithLogger(logger))
	prefetcher := tilecache.NewPrefetcher(cache, workers, logger)

	total := 0
	for zoom := zoomMin; zoom <= zoomMax; zoom++ {
		total += tilecache.RangeForBound(bound, zoom).Count()
	}
	progress := worker.NewProgress(total, !viper.GetBool("verbose"))

	for zoom := zoomMin; zoom <= zoomMax; zoom++ {
		if _, err := prefetcher.PrefetchBound(cmd.Context(), origin, bound, zoom); err != nil {
			return err
		}
		progress.Observe(prefetcher.Worker())
	}
	progress.Done()

	if failed := prefetcher.Worker().Failed(); failed > 0 {
		return fmt.Errorf("%d of %d tiles failed to fetch", failed, total)
	}
	fmt.Printf("cached %d tiles for %s\n", total, ctx.Active().Name)
	return nil
}

func runTilesExport(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	origin, _ := cmd.Flags().GetString("origin")

	cache := tilecache.New(viper.GetString("cache-dir"), tilecache.WithLogger(logger))
	n, err := cache.Export(origin, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("exported %d tiles to %s\n", n, args[0])
	return nil
}
