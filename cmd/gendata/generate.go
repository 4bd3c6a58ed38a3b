package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
)

type generateOptions struct {
	rows         int
	seed         uint64
	out          string
	delimiter    string
	decimalComma bool
	canonical    bool
	date         string
	swapped      float64
}

var genOpts generateOptions

var generateCmd = &cobra.Command{
	Use:   "generate [city]",
	Short: "Write a synthetic sensor dataset for a city",
	Long: `Writes rows with device ids, coordinates inside the city box, timestamps on
one day, and one reading per sensor. A fraction of rows can carry swapped
coordinates so the repair path is exercised.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.IntVar(&genOpts.rows, "rows", domain.DemoRecordCount, "number of data rows")
	f.Uint64Var(&genOpts.seed, "seed", 1, "random seed")
	f.StringVar(&genOpts.out, "out", "", "output file (default stdout)")
	f.StringVar(&genOpts.delimiter, "delimiter", ";", "field delimiter")
	f.BoolVar(&genOpts.decimalComma, "decimal-comma", true, "write decimals with a comma (ignored when the delimiter is a comma)")
	f.BoolVar(&genOpts.canonical, "canonical", false, "use canonical English headers instead of Turkish ones")
	f.StringVar(&genOpts.date, "date", "2024-01-15", "day the timestamps fall on (YYYY-MM-DD)")
	f.Float64Var(&genOpts.swapped, "swapped", 0, "fraction of rows written with latitude and longitude swapped")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	city, err := lookupCity(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if genOpts.out != "" {
		f, err := os.Create(genOpts.out)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := writeDataset(w, city, genOpts); err != nil {
		return err
	}
	if genOpts.out != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows for %s to %s\n", genOpts.rows, city.Name, genOpts.out)
	}
	return nil
}

// writeDataset writes opts.rows synthetic rows for city.
func writeDataset(w io.Writer, city domain.City, opts generateOptions) error {
	delim := []rune(opts.delimiter)
	if len(delim) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", opts.delimiter)
	}
	if opts.rows < 0 {
		return fmt.Errorf("rows must not be negative")
	}
	day, err := time.Parse(time.DateOnly, opts.date)
	if err != nil {
		return fmt.Errorf("parsing date: %w", err)
	}
	decimalComma := opts.decimalComma && delim[0] != ','

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	sensors := demoColumns(opts.canonical)

	cw := csv.NewWriter(w)
	cw.Comma = delim[0]

	header := []string{"IKA_ID", "Enlem", "Boylam", "ZamanDamgasi"}
	if opts.canonical {
		header = []string{"device_id", "latitude", "longitude", "timestamp"}
	}
	for _, s := range sensors {
		header = append(header, s.header)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	num := func(v float64, prec int) string {
		s := strconv.FormatFloat(v, 'f', prec, 64)
		if decimalComma {
			s = strings.Replace(s, ".", ",", 1)
		}
		return s
	}

	remaining := opts.rows
	for remaining > 0 {
		for _, rec := range domain.GenerateDemo(city, rng) {
			if remaining == 0 {
				break
			}
			idx := opts.rows - remaining
			remaining--

			lat, lng := rec.Latitude, rec.Longitude
			if rng.Float64() < opts.swapped {
				lat, lng = lng, lat
			}
			ts := day.Add(time.Duration(rec.Hour)*time.Hour + time.Duration(rng.IntN(60))*time.Minute)

			row := []string{
				fmt.Sprintf("IKA_%03d", idx%50+1),
				num(lat, 6),
				num(lng, 6),
				ts.Format(time.DateTime),
			}
			for _, s := range sensors {
				row = append(row, num(rec.Values[s.key], 2))
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing row %d: %w", idx, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

type demoColumn struct {
	key    string
	header string
}

// demoColumns lists the sensors GenerateDemo fills, with the header each is
// written under.
func demoColumns(canonical bool) []demoColumn {
	reg := domain.DefaultRegistry()
	keys := domain.DemoSensors()
	cols := make([]demoColumn, 0, len(keys))
	for _, key := range keys {
		header := key
		if info, ok := reg.Lookup(key); ok && !canonical && len(info.Aliases) > 0 {
			header = info.Aliases[0]
		}
		cols = append(cols, demoColumn{key: key, header: header})
	}
	return cols
}
