package reporter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestVariation(t *testing.T) {
	tests := []struct {
		name    string
		v2, v3  string
		want    any
		pct     float64
		numeric bool
	}{
		{name: "percent of v2 not ratio: 100 to 110 is 10", v2: "100", v3: "110", want: 10.0, pct: 10, numeric: true},
		{name: "percent of v2 not ratio: 100 to 105 is 5", v2: "100", v3: "105", want: 5.0, pct: 5, numeric: true},
		{name: "decrease", v2: "200", v3: "150", want: -25.0, pct: -25, numeric: true},
		{name: "rounded", v2: "3", v3: "4", want: 33.33, pct: 33.33, numeric: true},
		{name: "zero base", v2: "0", v3: "7", want: 0.0, pct: 0, numeric: true},
		{name: "blank v3", v2: "10", v3: "", want: -100.0, pct: -100, numeric: true},
		{name: "breakdown", v2: "JEE:59803, SQL:0", v3: "JEE:50000, SQL:10", want: "JEE:9803, SQL:-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, pct, numeric := Variation(tt.v2, tt.v3)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.pct, pct)
			assert.Equal(t, tt.numeric, numeric)
		})
	}
}

func TestBreakdownDeltaMissingTech(t *testing.T) {
	assert.Equal(t, "JEE:5, Cobol:2", BreakdownDelta("JEE:10, Cobol:2", "JEE:5"))
	assert.Equal(t, "", BreakdownDelta("", "JEE:5"))
}

func newVariationReport(t *testing.T, withVariationHeader bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.xlsx")
	f := excelize.NewFile()
	defer f.Close()

	header := []any{HeaderApplication, HeaderParameter, HeaderV2, HeaderV3}
	if withVariationHeader {
		header = append(header, HeaderVariation)
	}
	rows := [][]any{
		header,
		{"App1", "Loc", 100, 105},
		{"", "Lines", 100, 120},
		{"", "Loc Per Tech", "JEE:59803, SQL:0", "JEE:50000, SQL:10"},
		{"", "Dlms", 0, 7},
		{},
		{"App2", "Loc", 50, 40},
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", ref, &row))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestComputeVariation(t *testing.T) {
	for _, withHeader := range []bool{false, true} {
		path := newVariationReport(t, withHeader)

		for run := 0; run < 2; run++ {
			summary, err := ComputeVariation(path, 5, testLogger())
			require.NoError(t, err)
			require.Len(t, summary.Sheets, 1)
			assert.Equal(t, 5, summary.Sheets[0].Rows)
			require.Equal(t, 2, summary.FlaggedCount())
			assert.Equal(t, "App1", summary.Sheets[0].Flagged[0].Application)
			assert.Equal(t, "Lines", summary.Sheets[0].Flagged[0].Parameter)
			assert.Equal(t, 20.0, summary.Sheets[0].Flagged[0].Variation)
			assert.Equal(t, "App2", summary.Sheets[0].Flagged[1].Application)
			assert.Equal(t, -20.0, summary.Sheets[0].Flagged[1].Variation)

			f, err := excelize.OpenFile(path)
			require.NoError(t, err)

			rows, err := readRows(f, "Sheet1")
			require.NoError(t, err)
			assert.Equal(t, HeaderVariation, cell(rows[0], colVariation))
			assert.Equal(t, "", cell(rows[0], colVariation+1))
			assert.Equal(t, "5", cell(rows[1], colVariation))
			assert.Equal(t, "20", cell(rows[2], colVariation))
			assert.Equal(t, "JEE:9803, SQL:-10", cell(rows[3], colVariation))
			assert.Equal(t, "0", cell(rows[4], colVariation))
			assert.Equal(t, "", cell(rows[5], colVariation))

			plain, err := f.GetCellStyle("Sheet1", "A2")
			require.NoError(t, err)
			assert.Equal(t, 0, plain)
			flagged, err := f.GetCellStyle("Sheet1", "E3")
			require.NoError(t, err)
			assert.NotZero(t, flagged)
			rowStart, err := f.GetCellStyle("Sheet1", "A3")
			require.NoError(t, err)
			assert.Equal(t, flagged, rowStart)
			require.NoError(t, f.Close())
		}
	}
}

func TestComputeVariationThresholdIsStrict(t *testing.T) {
	path := newVariationReport(t, true)
	summary, err := ComputeVariation(path, 20, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.FlaggedCount())
}

func TestComputeVariationMissingFile(t *testing.T) {
	_, err := ComputeVariation(filepath.Join(t.TempDir(), "absent.xlsx"), 5, testLogger())
	require.Error(t, err)
}
