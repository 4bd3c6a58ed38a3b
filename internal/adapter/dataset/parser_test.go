package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
)

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want rune
	}{
		{"comma", "a,b,c\n1,2,3\n4,5,6\n", ','},
		{"semicolon", "a;b;c\n1,5;2;3\n4;5;6\n", ';'},
		{"tab", "a\tb\tc\n1\t2\t3\n", '\t'},
		{"pipe", "a|b\n1|2\n", '|'},
		{"space", "a b c\n1 2 3\n", ' '},
		{"quoted commas stay in field", "a;b\n\"1,2\";3\n", ';'},
		{"inconsistent picks widest header", "a;b;c\n1;2\n", ';'},
		{"single column", "value\n1\n2\n", ','},
		{"empty", "", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, string(tt.want), string(SniffDelimiter(tt.text)))
		})
	}
}

func TestParse_TurkishSemicolon(t *testing.T) {
	text := "\ufeffIKA_ID;Enlem;Boylam;ZamanDamgasi;PM2.5_ug_m3\r\n" +
		"IKA_001; 39,9 ;32,8;2024-01-15 14:30:00;12,4\r\n" +
		"\r\n" +
		"IKA_002;39,95;32,85;2024-01-15 15:00:00;\r\n"

	table, err := Parse(text)
	require.NoError(t, err)

	assert.Equal(t, ';', table.Delimiter)
	assert.Equal(t, []string{"IKA_ID", "Enlem", "Boylam", "ZamanDamgasi", "PM2.5_ug_m3"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "39,9", table.Rows[0]["Enlem"])
	assert.Equal(t, "12,4", table.Rows[0]["PM2.5_ug_m3"])
	assert.Empty(t, table.Rows[1]["PM2.5_ug_m3"])
}

func TestParse_HeaderFixups(t *testing.T) {
	table, err := Parse("lat,,lng,lat\n1,2,3,4\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "Column_2", "lng", "lat_2"}, table.Headers)
	assert.Equal(t, "4", table.Rows[0]["lat_2"])
}

func TestParse_TrailingDelimiterColumnStaysAdHoc(t *testing.T) {
	table, err := Parse("Enlem;Boylam;Ses_Seviyesi_dB;\n39,9;32,8;42;7\n")
	require.NoError(t, err)
	assert.Equal(t, "Column_4", table.Headers[3])

	cols, err := domain.InferColumns(table.Headers, table.Sample(20), domain.DefaultRegistry())
	require.NoError(t, err)
	assert.NotContains(t, cols.SensorColumns, domain.SensorCO)
	assert.Equal(t, []string{"Column_4"}, cols.AdHoc)
}

func TestParse_ShortAndLongRows(t *testing.T) {
	table, err := Parse("a,b,c\n1,2\n1,2,3,4\n")
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	v, ok := table.Rows[0]["c"]
	assert.False(t, ok, "missing trailing cell is absent")
	assert.Empty(t, v)
	assert.Len(t, table.Rows[1], 3, "extra cells are dropped")
}

func TestParse_Errors(t *testing.T) {
	for _, text := range []string{"", "   \n\n", "a,b,c\n", "a,b\n,\n"} {
		_, err := Parse(text)
		require.ErrorIs(t, err, domain.ErrParse, "input %q", text)
	}
}

func TestTable_Sample(t *testing.T) {
	table, err := Parse("a\n1\n2\n3\n")
	require.NoError(t, err)
	assert.Len(t, table.Sample(2), 2)
	assert.Len(t, table.Sample(20), 3)
}
