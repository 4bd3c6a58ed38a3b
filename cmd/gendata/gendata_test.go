package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-sensor-pipeline/internal/adapter/dataset"
	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
)

func testOptions() generateOptions {
	return generateOptions{
		rows:         60,
		seed:         7,
		delimiter:    ";",
		decimalComma: true,
		date:         "2024-01-15",
	}
}

func TestWriteDataset_TurkishLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDataset(&buf, domain.DefaultCities()["ankara"], testOptions()))

	table, err := dataset.Parse(buf.String())
	require.NoError(t, err)
	assert.Equal(t, ';', table.Delimiter)
	assert.Len(t, table.Rows, 60)
	assert.Equal(t, []string{"IKA_ID", "Enlem", "Boylam", "ZamanDamgasi"}, table.Headers[:4])
	assert.Contains(t, table.Rows[0]["Enlem"], ",")
}

func TestWriteDataset_Deterministic(t *testing.T) {
	city := domain.DefaultCities()["istanbul"]
	var a, b bytes.Buffer
	require.NoError(t, writeDataset(&a, city, testOptions()))
	require.NoError(t, writeDataset(&b, city, testOptions()))
	assert.Equal(t, a.String(), b.String())
}

func TestWriteDataset_CommaDelimiterDisablesDecimalComma(t *testing.T) {
	opts := testOptions()
	opts.delimiter = ","
	opts.canonical = true

	var buf bytes.Buffer
	require.NoError(t, writeDataset(&buf, domain.DefaultCities()["ankara"], opts))

	table, err := dataset.Parse(buf.String())
	require.NoError(t, err)
	assert.Equal(t, ',', table.Delimiter)
	assert.Equal(t, []string{"device_id", "latitude", "longitude", "timestamp"}, table.Headers[:4])
	assert.NotContains(t, table.Rows[0]["latitude"], ",")
}

func TestWriteDataset_InvalidOptions(t *testing.T) {
	city := domain.DefaultCities()["ankara"]
	tests := []struct {
		name   string
		mutate func(*generateOptions)
	}{
		{"multi-char delimiter", func(o *generateOptions) { o.delimiter = ";;" }},
		{"negative rows", func(o *generateOptions) { o.rows = -1 }},
		{"bad date", func(o *generateOptions) { o.date = "15/01/2024" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.mutate(&opts)
			assert.Error(t, writeDataset(io.Discard, city, opts))
		})
	}
}

func TestInspectFile_GeneratedDataset(t *testing.T) {
	city := domain.DefaultCities()["ankara"]
	opts := testOptions()
	opts.swapped = 1

	path := filepath.Join(t.TempDir(), "ankara.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, writeDataset(f, city, opts))
	require.NoError(t, f.Close())

	report, err := inspectFile(context.Background(), path, city, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.False(t, report.UsingDemoData, report.Error)
	require.NotNil(t, report.Columns)
	assert.Equal(t, "Enlem", report.Columns.Latitude)
	assert.Equal(t, "Boylam", report.Columns.Longitude)
	assert.Equal(t, 60, report.Report.Valid)
	// Swapped Ankara pairs still fit the latitude range, so they land outside
	// the box and are jittered back in.
	assert.Equal(t, 60, report.Report.Repaired)
	assert.Equal(t, 60, report.Report.Jittered)
	assert.NotEmpty(t, report.Statistics)
	for key, st := range report.Statistics {
		assert.Equal(t, 60, st.Count, key)
	}
}

func TestInspectFile_UnusableFileReportsDemo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	report, err := inspectFile(context.Background(), path, domain.DefaultCities()["ankara"], slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.True(t, report.UsingDemoData)
	assert.NotEmpty(t, report.Error)
	assert.Nil(t, report.Columns)
}
