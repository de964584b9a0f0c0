package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mapscope",
	Short: "Geospatial workspace and OSM request tool",
	Long: `Mapscope manages geographic workspaces: select a region, fetch
OpenStreetMap data for it through the Overpass API, and query the resulting
features spatially. Workspaces and their raw responses persist as JSON files
so sessions can be resumed offline.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("workspace-dir", "./workspaces", "Directory holding workspace and request files")
	rootCmd.PersistentFlags().String("cache-dir", "./cache", "Directory holding cached map tiles")
	rootCmd.PersistentFlags().String("overpass-endpoint", "", "Overpass interpreter URL (default: public instance)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	for _, name := range []string{"workspace-dir", "cache-dir", "overpass-endpoint", "verbose"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("MAPSCOPE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
