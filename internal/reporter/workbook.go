package reporter

import (
	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/upgradespectre/internal/projector"
)

// Column headers of every report sheet.
const (
	HeaderApplication = "Application Name"
	HeaderParameter   = "Parameter"
	HeaderV2          = "V2"
	HeaderV3          = "V3"
	HeaderVariation   = "Variation"
)

// Header is the header row written on a sheet's first write.
var Header = []string{HeaderApplication, HeaderParameter, HeaderV2, HeaderV3, HeaderVariation}

// Zero-based column positions in Header.
const (
	colApplication = iota
	colParameter
	colV2
	colV3
	colVariation
)

const placeholderSheet = "Sheet1"

// readRows returns a sheet's rows as raw cell values.
func readRows(f *excelize.File, sheet string) ([][]string, error) {
	return f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

// cell returns row[i], or "" past the end of a short row.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// cellValue converts a raw cell back to a typed value so numbers stay
// numeric when a sheet is rewritten.
func cellValue(raw string) any {
	if raw == "" {
		return ""
	}
	return projector.Normalize(raw)
}

func hasSheet(f *excelize.File, sheet string) bool {
	idx, err := f.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

// ownerColumn forward-fills application names so every data row is
// attributable to an application. Index 0 (the header) stays empty.
func ownerColumn(rows [][]string) []string {
	owners := make([]string, len(rows))
	current := ""
	for i := 1; i < len(rows); i++ {
		if name := cell(rows[i], colApplication); name != "" {
			current = name
		}
		owners[i] = current
	}
	return owners
}
