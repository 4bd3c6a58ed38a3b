package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/city-sensor-pipeline/internal/adapter/dataset"
	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
	"github.com/couchcryptid/city-sensor-pipeline/internal/observability"
	"github.com/couchcryptid/city-sensor-pipeline/internal/pipeline"
)

var (
	inspectCity    string
	inspectVerbose bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Run the ingestion pipeline over a local file",
	Long: `Loads the file as the chosen city's dataset and prints the inferred columns,
the normalization report, and per-sensor statistics as JSON. Files that would
fall back to demo data report the reason.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectCity, "city", "ankara", "city whose bounding box applies")
	inspectCmd.Flags().BoolVar(&inspectVerbose, "verbose", false, "log pipeline steps to stderr")
	rootCmd.AddCommand(inspectCmd)
}

type inspectReport struct {
	City          string                  `json:"city"`
	File          string                  `json:"file"`
	UsingDemoData bool                    `json:"using_demo_data"`
	Error         string                  `json:"error,omitempty"`
	Columns       *domain.ColumnMap       `json:"columns,omitempty"`
	Report        domain.NormalizeReport  `json:"report"`
	Statistics    map[string]domain.Stat  `json:"statistics"`
	Alerts        map[string]alertSummary `json:"alerts"`
}

type alertSummary struct {
	Warning int `json:"warning"`
	Danger  int `json:"danger"`
	Anomaly int `json:"anomaly"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	city, err := lookupCity(inspectCity)
	if err != nil {
		return err
	}

	level := "error"
	if inspectVerbose {
		level = "debug"
	}
	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), level, "text")

	report, err := inspectFile(cmd.Context(), args[0], city, logger)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), report)
}

// inspectFile loads path as city's only dataset. A file the pipeline cannot
// use still yields a report, flagged as demo data with the cause.
func inspectFile(ctx context.Context, path string, city domain.City, logger *slog.Logger) (inspectReport, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return inspectReport{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	city.DatasetPath = "/" + filepath.Base(abs)
	city.FallbackDatasetPath = ""

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(dataset.NewFileSource(filepath.Dir(abs), metrics), pipeline.Config{
		Cities:      map[string]domain.City{city.Key: city},
		DefaultCity: city.Key,
	}, logger, metrics)

	snap, err := p.Load(ctx, city.Key)
	if snap == nil {
		return inspectReport{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return summarize(abs, snap), nil
}

func summarize(file string, snap *pipeline.Snapshot) inspectReport {
	r := inspectReport{
		City:          snap.City.Key,
		File:          file,
		UsingDemoData: snap.UsingDemoData,
		Error:         snap.Error,
		Columns:       snap.Columns,
		Report:        snap.Report,
		Statistics:    make(map[string]domain.Stat),
		Alerts:        make(map[string]alertSummary),
	}
	keys := snap.SensorKeys()
	for key, entry := range snap.Statistics.Canonical() {
		r.Statistics[key] = entry.Overall
	}
	for _, rec := range snap.Records {
		for _, key := range keys {
			v, ok := rec.Value(snap.Registry, key)
			if !ok {
				continue
			}
			s := r.Alerts[key]
			switch snap.Classifier.CheckAlertLevelAt(key, v, rec.Hour) {
			case domain.AlertWarning:
				s.Warning++
			case domain.AlertDanger:
				s.Danger++
			}
			if snap.Classifier.IsAnomaly(key, v, rec.Hour) {
				s.Anomaly++
			}
			r.Alerts[key] = s
		}
	}
	return r
}

func writeReport(w io.Writer, r inspectReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
