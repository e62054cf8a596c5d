package reporter

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/upgradespectre/internal/models"
)

// Block is one application's freshly collected values, in parameter order.
type Block struct {
	Application string
	Values      []any
}

// ReconcileStats summarizes a reconciliation pass.
type ReconcileStats struct {
	Sheets       int
	Updated      int
	Skipped      int
	Mismatched   int
	MissingSheet int
}

// Reconcile writes V3 values into an existing report. For every sheet the
// application blocks are located by forward-filling the application name
// column, aligned by position, and the V3 column is overwritten. The whole
// sheet table is then rewritten in place. Applications absent from the
// report are skipped; no rows are inserted.
func Reconcile(path string, blocks map[string][]Block, logger *slog.Logger) (*ReconcileStats, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer f.Close()

	blocks = mergeSheets(blocks)
	sheets := make([]string, 0, len(blocks))
	for sheet := range blocks {
		sheets = append(sheets, sheet)
	}
	sort.Strings(sheets)

	stats := &ReconcileStats{}
	for _, sheet := range sheets {
		sheetLogger := logger.With(slog.String("sheet", sheet))
		if !hasSheet(f, sheet) {
			stats.MissingSheet++
			stats.Skipped += len(blocks[sheet])
			sheetLogger.Warn("sheet not found in report, skipping its applications",
				slog.Int("applications", len(blocks[sheet])))
			continue
		}

		if err := reconcileSheet(f, sheet, blocks[sheet], stats, sheetLogger); err != nil {
			return nil, err
		}
		stats.Sheets++
	}

	if err := f.Save(); err != nil {
		return nil, fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return stats, nil
}

func reconcileSheet(f *excelize.File, sheet string, blocks []Block, stats *ReconcileStats, logger *slog.Logger) error {
	rows, err := readRows(f, sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	table := make([][]any, len(rows))
	for i, row := range rows {
		width := len(Header)
		if len(row) > width {
			width = len(row)
		}
		table[i] = make([]any, width)
		for j := range table[i] {
			raw := cell(row, j)
			if j == colApplication || j == colParameter || i == 0 {
				table[i][j] = raw
				continue
			}
			table[i][j] = cellValue(raw)
		}
	}

	index := blockIndex(ownerColumn(rows))
	for _, block := range blocks {
		positions, ok := index[block.Application]
		if !ok {
			stats.Skipped++
			logger.Warn("application not found in report, skipping", slog.String("app", block.Application))
			continue
		}

		if len(block.Values) != len(positions) {
			stats.Mismatched++
			logger.Warn("row count mismatch",
				slog.String("app", block.Application),
				slog.Int("report_rows", len(positions)),
				slog.Int("collected_rows", len(block.Values)),
			)
		}

		for i, value := range align(block.Values, len(positions)) {
			table[positions[i]][colV3] = value
		}
		stats.Updated++
	}

	for i, row := range table {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, ref, &row); err != nil {
			return fmt.Errorf("failed to rewrite row %d on sheet %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

// mergeSheets folds sheet names that differ only in case into one entry,
// since they address the same worksheet. Blocks keep their input order
// within each spelling, and spellings are merged in sorted order.
func mergeSheets(blocks map[string][]Block) map[string][]Block {
	names := make([]string, 0, len(blocks))
	for sheet := range blocks {
		names = append(names, sheet)
	}
	sort.Strings(names)

	merged := make(map[string][]Block, len(blocks))
	canonical := map[string]string{}
	for _, sheet := range names {
		key := models.SheetKey(sheet)
		name, ok := canonical[key]
		if !ok {
			name = sheet
			canonical[key] = sheet
		}
		merged[name] = append(merged[name], blocks[sheet]...)
	}
	return merged
}

// blockIndex maps each application to the row positions of its first
// contiguous block.
func blockIndex(owners []string) map[string][]int {
	index := map[string][]int{}
	closed := map[string]bool{}
	prev := ""
	for i := 1; i < len(owners); i++ {
		owner := owners[i]
		if owner != prev && prev != "" {
			closed[prev] = true
		}
		prev = owner
		if owner == "" || closed[owner] {
			continue
		}
		index[owner] = append(index[owner], i)
	}
	return index
}

// align fits values to n positions: a short list is padded by repeating its
// last value, a long one is truncated.
func align(values []any, n int) []any {
	out := make([]any, n)
	var last any = ""
	for i := 0; i < n; i++ {
		if i < len(values) {
			last = values[i]
		}
		out[i] = last
	}
	return out
}
