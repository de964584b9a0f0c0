package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/mapscope/internal/meteo"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <name>",
	Short: "Look up places by name via the Open-Meteo geocoder",
	Args:  cobra.ExactArgs(1),
	RunE:  runGeocode,
}

func init() {
	rootCmd.AddCommand(geocodeCmd)

	geocodeCmd.Flags().Int("count", 10, "Maximum number of results")
	geocodeCmd.Flags().String("language", "en", "Result language")
	geocodeCmd.Flags().String("endpoint", "", "Geocoding API URL (default: Open-Meteo)")
}

func runGeocode(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	count, _ := cmd.Flags().GetInt("count")
	language, _ := cmd.Flags().GetString("language")
	endpoint, _ := cmd.Flags().GetString("endpoint")

	client := meteo.NewClient(endpoint)
	raw, err := client.Search(cmd.Context(), meteo.GeocodingParams{
		Name:     args[0],
		Count:    count,
		Language: language,
	})
	if err != nil {
		return err
	}

	resp, err := meteo.ParseResponse(raw)
	if err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, r := range resp.Results {
		region := r.Admin1
		if region != "" {
			region = ", " + region
		}
		fmt.Printf("%-30s %9.4f %9.4f  %s%s\n", r.Name, r.Latitude, r.Longitude, r.Country, region)
	}
	return nil
}
