package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	textANSIReset = "\x1b[0m"
	textANSIBold  = "\x1b[1m"
)

// FlaggedRow is a row whose variation exceeded the threshold.
type FlaggedRow struct {
	Application string
	Parameter   string
	V2          string
	V3          string
	Variation   float64
}

// SheetSummary describes the variation pass over one sheet.
type SheetSummary struct {
	Sheet   string
	Rows    int
	Flagged []FlaggedRow
}

// Summary describes a whole variation pass.
type Summary struct {
	Threshold float64
	Sheets    []SheetSummary
}

// FlaggedCount returns the number of flagged rows across all sheets.
func (s *Summary) FlaggedCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, sheet := range s.Sheets {
		n += len(sheet.Flagged)
	}
	return n
}

// WriteText renders a human-readable variation summary to out.
func WriteText(summary *Summary, out io.Writer) error {
	if summary == nil {
		return fmt.Errorf("summary is nil")
	}
	if out == nil {
		return fmt.Errorf("writer is nil")
	}

	if _, err := io.WriteString(out, renderTextSummary(summary, supportsANSI(out))); err != nil {
		return fmt.Errorf("failed to write variation summary: %w", err)
	}
	return nil
}

func renderTextSummary(summary *Summary, useANSI bool) string {
	var b strings.Builder

	writeTextSectionHeader(&b, "Variation Summary", useANSI)
	fmt.Fprintf(&b, "Threshold: %s%%\n", formatNumber(summary.Threshold))
	fmt.Fprintf(&b, "Sheets: %d\n", len(summary.Sheets))
	fmt.Fprintf(&b, "Flagged rows: %d\n", summary.FlaggedCount())
	b.WriteString("\n")

	writeTextSectionHeader(&b, "Sheets", useANSI)
	if len(summary.Sheets) == 0 {
		b.WriteString("No report sheets found.\n")
		return b.String()
	}
	b.WriteString("SHEET                            ROWS  FLAGGED\n")
	b.WriteString("-----------------------------------------------\n")
	for _, sheet := range summary.Sheets {
		fmt.Fprintf(&b, "%-32s %5d  %7d\n", truncateTextValue(sheet.Sheet, 32), sheet.Rows, len(sheet.Flagged))
	}

	if summary.FlaggedCount() == 0 {
		return b.String()
	}

	b.WriteString("\n")
	writeTextSectionHeader(&b, "Flagged Rows", useANSI)
	for _, sheet := range summary.Sheets {
		for _, row := range sheet.Flagged {
			fmt.Fprintf(&b, "%s | %s | %s | V2=%s V3=%s variation=%.2f%%\n",
				sheet.Sheet,
				textValue(row.Application),
				textValue(row.Parameter),
				textValue(row.V2),
				textValue(row.V3),
				row.Variation,
			)
		}
	}

	return b.String()
}

func writeTextSectionHeader(b *strings.Builder, title string, useANSI bool) {
	header := title
	if useANSI {
		header = textANSIBold + title + textANSIReset
	}
	fmt.Fprintf(b, "%s\n", header)
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", len(title)))
}

func supportsANSI(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}

	info, err := file.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

func textValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func truncateTextValue(value string, width int) string {
	if width <= 0 || len(value) <= width {
		return value
	}
	if width <= 3 {
		return value[:width]
	}
	return value[:width-3] + "..."
}
