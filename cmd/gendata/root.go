// Command gendata writes synthetic city sensor datasets and runs the
// ingestion pipeline over a local file to show what the dashboard would see.
//
// Usage:
//
//	go run ./cmd/gendata generate ankara --rows 500 --out web/data/ankara.csv
//	go run ./cmd/gendata inspect web/data/ankara.csv --city ankara
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/city-sensor-pipeline/internal/config"
	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
)

var citiesFile string

var rootCmd = &cobra.Command{
	Use:   "gendata",
	Short: "Generate and inspect city sensor datasets",
	Long: `gendata produces delimited sensor files in the layout the field devices export
(Turkish headers, optional decimal commas) and replays files through the
ingestion pipeline to report column inference, repairs, and statistics.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&citiesFile, "cities", "", "YAML city table overriding the built-in cities")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// lookupCity resolves key against the built-in table merged with --cities.
func lookupCity(key string) (domain.City, error) {
	cities, err := config.LoadCities(citiesFile)
	if err != nil {
		return domain.City{}, fmt.Errorf("loading cities: %w", err)
	}
	city, ok := cities[key]
	if !ok {
		return domain.City{}, fmt.Errorf("%w: %q (available: %v)", domain.ErrUnknownCity, key, domain.SortedKeys(cities))
	}
	return city, nil
}
