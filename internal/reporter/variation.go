package reporter

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// flagFill is the highlight applied to rows above the variation threshold.
const flagFill = "FFFF00"

// Variation compares a V2 and a V3 cell. Technology breakdowns
// ("JEE:59803, SQL:0") yield a per-technology V2-V3 breakdown string;
// anything else is treated as a number and yields the percentage change
// from V2 to V3 rounded to 2 decimals. The bool reports a numeric result.
func Variation(v2, v3 string) (any, float64, bool) {
	if strings.Contains(v2, ":") {
		return BreakdownDelta(v2, v3), 0, false
	}

	base := parseNumber(v2)
	target := parseNumber(v3)
	if base == 0 {
		return 0.0, 0, true
	}
	pct := math.Round((target-base)/base*100*100) / 100
	return pct, pct, true
}

// BreakdownDelta subtracts V3 from V2 for every technology present in V2.
// Technologies missing from V3 count as 0.
func BreakdownDelta(v2, v3 string) string {
	current := map[string]float64{}
	for _, p := range parseBreakdown(v3) {
		current[p.tech] = p.value
	}

	base := parseBreakdown(v2)
	parts := make([]string, 0, len(base))
	for _, p := range base {
		parts = append(parts, p.tech+":"+formatNumber(p.value-current[p.tech]))
	}
	return strings.Join(parts, ", ")
}

type techValue struct {
	tech  string
	value float64
}

func parseBreakdown(s string) []techValue {
	var out []techValue
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		sep := strings.LastIndex(item, ":")
		if sep <= 0 {
			continue
		}
		out = append(out, techValue{
			tech:  strings.TrimSpace(item[:sep]),
			value: parseNumber(item[sep+1:]),
		})
	}
	return out
}

// parseNumber reads a cell as a number; blank or non-numeric is 0.
func parseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ComputeVariation fills the Variation column of every sheet in the report
// and highlights rows whose numeric variation exceeds threshold. Previous
// values and highlights are overwritten, so running it twice is harmless.
func ComputeVariation(path string, threshold float64, logger *slog.Logger) (*Summary, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer f.Close()

	flagStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{flagFill}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create highlight style: %w", err)
	}

	summary := &Summary{Threshold: threshold}
	for _, sheet := range f.GetSheetList() {
		sheetSummary, err := variationSheet(f, sheet, threshold, flagStyle, logger.With(slog.String("sheet", sheet)))
		if err != nil {
			return nil, err
		}
		if sheetSummary != nil {
			summary.Sheets = append(summary.Sheets, *sheetSummary)
		}
	}

	if err := f.Save(); err != nil {
		return nil, fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return summary, nil
}

func variationSheet(f *excelize.File, sheet string, threshold float64, flagStyle int, logger *slog.Logger) (*SheetSummary, error) {
	rows, err := readRows(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	v2Col, v3Col, varCol := indexOf(header, HeaderV2), indexOf(header, HeaderV3), indexOf(header, HeaderVariation)
	if v2Col < 0 || v3Col < 0 {
		logger.Warn("sheet has no V2/V3 columns, skipping")
		return nil, nil
	}
	if varCol < 0 {
		varCol = len(header)
		ref, _ := excelize.CoordinatesToCellName(varCol+1, 1)
		if err := f.SetCellValue(sheet, ref, HeaderVariation); err != nil {
			return nil, err
		}
	}

	lastCol := varCol + 1
	if len(header) > lastCol {
		lastCol = len(header)
	}
	lastColName, err := excelize.ColumnNumberToName(lastCol)
	if err != nil {
		return nil, err
	}

	owners := ownerColumn(rows)
	result := &SheetSummary{Sheet: sheet}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		rowNum := i + 1
		v2, v3 := cell(row, v2Col), cell(row, v3Col)

		value, pct, numeric := Variation(v2, v3)
		ref, _ := excelize.CoordinatesToCellName(varCol+1, rowNum)
		if err := f.SetCellValue(sheet, ref, value); err != nil {
			return nil, fmt.Errorf("failed to write variation on sheet %s row %d: %w", sheet, rowNum, err)
		}

		style := 0
		if numeric && math.Abs(pct) > threshold {
			style = flagStyle
			result.Flagged = append(result.Flagged, FlaggedRow{
				Application: owners[i],
				Parameter:   cell(row, colParameter),
				V2:          v2,
				V3:          v3,
				Variation:   pct,
			})
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("%s%d", lastColName, rowNum), style); err != nil {
			return nil, fmt.Errorf("failed to style sheet %s row %d: %w", sheet, rowNum, err)
		}
		result.Rows++
	}

	logger.Info("variation computed", slog.Int("rows", result.Rows), slog.Int("flagged", len(result.Flagged)))
	return result, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
