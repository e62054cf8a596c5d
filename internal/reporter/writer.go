package reporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/upgradespectre/internal/models"
)

// Writer appends application blocks to per-domain sheets of a new
// workbook. The file is written once, on Close.
type Writer struct {
	file  *excelize.File
	path  string
	next  map[string]int    // sheet key -> rows already written
	names map[string]string // sheet key -> name the sheet was created with
	order []string
}

// NewWriter starts a new workbook that will be saved to path.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return &Writer{
		file:  excelize.NewFile(),
		path:  path,
		next:  map[string]int{},
		names: map[string]string{},
	}, nil
}

// Append writes one application block below the sheet's existing rows.
// The sheet is created, with its header, on first use. Sheet names are
// matched case-insensitively; the first spelling seen names the sheet.
func (w *Writer) Append(sheet string, rows []models.ReportRow) error {
	key := models.SheetKey(sheet)
	offset, err := w.offset(sheet)
	if err != nil {
		return err
	}

	sheet = w.names[key]

	if offset == 0 {
		header := make([]any, len(Header))
		for i, h := range Header {
			header[i] = h
		}
		if err := w.file.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("failed to write header on sheet %s: %w", sheet, err)
		}
		offset = 1
	}

	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, offset+i+1)
		if err != nil {
			return err
		}
		values := []any{row.Application, row.Parameter, row.V2, row.V3, row.Variation}
		if err := w.file.SetSheetRow(sheet, ref, &values); err != nil {
			return fmt.Errorf("failed to write row %d on sheet %s: %w", offset+i+1, sheet, err)
		}
	}

	w.next[key] = offset + len(rows)
	return nil
}

// Rows returns how many rows, header included, a sheet holds.
func (w *Writer) Rows(sheet string) int {
	return w.next[models.SheetKey(sheet)]
}

func (w *Writer) offset(sheet string) (int, error) {
	key := models.SheetKey(sheet)
	if n, ok := w.next[key]; ok {
		return n, nil
	}

	if !hasSheet(w.file, sheet) {
		if _, err := w.file.NewSheet(sheet); err != nil {
			return 0, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}
	existing, err := readRows(w.file, sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	w.next[key] = len(existing)
	w.names[key] = sheet
	w.order = append(w.order, sheet)
	return len(existing), nil
}

// Discard releases the workbook without writing it, leaving any existing
// file at the output path untouched.
func (w *Writer) Discard() error {
	return w.file.Close()
}

// Close saves the workbook, dropping the unused placeholder sheet.
func (w *Writer) Close() error {
	defer w.file.Close()

	if _, used := w.next[models.SheetKey(placeholderSheet)]; !used && len(w.order) > 0 {
		if err := w.file.DeleteSheet(placeholderSheet); err != nil {
			return fmt.Errorf("failed to drop placeholder sheet: %w", err)
		}
	}
	if len(w.order) > 0 {
		if idx, err := w.file.GetSheetIndex(w.order[0]); err == nil && idx >= 0 {
			w.file.SetActiveSheet(idx)
		}
	}

	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save %s: %w", w.path, err)
	}
	return nil
}
