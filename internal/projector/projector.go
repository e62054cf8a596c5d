// Package projector turns a collected MetricRecord into report rows.
package projector

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/upgradespectre/internal/catalog"
	"github.com/ppiankov/upgradespectre/internal/models"
	"github.com/ppiankov/upgradespectre/pkg/config"
)

// Projector applies per-metric extraction rules in catalog order.
type Projector struct {
	catalog         *catalog.Catalog
	missingCodeRule string
}

// New creates a projector. missingCodeRule is config.MissingCodeValue or
// config.MissingCodeRows.
func New(cat *catalog.Catalog, missingCodeRule string) *Projector {
	if missingCodeRule == "" {
		missingCodeRule = config.MissingCodeValue
	}
	return &Projector{catalog: cat, missingCodeRule: missingCodeRule}
}

// Rows projects one application's record into its block of report rows.
// Only the first row carries the application name.
func (p *Projector) Rows(rec *models.MetricRecord) []models.ReportRow {
	metrics := p.catalog.Metrics()
	rows := make([]models.ReportRow, 0, len(metrics))
	for i, m := range metrics {
		row := models.ReportRow{
			Parameter: m.Label(),
			V2:        p.Extract(m, rec.Value(m.Key)),
			V3:        "",
			Variation: "",
		}
		if i == 0 {
			row.Application = rec.Application.Name
		}
		rows = append(rows, row)
	}
	return rows
}

// Values returns the display values of a record in catalog order.
func (p *Projector) Values(rec *models.MetricRecord) []any {
	rows := p.Rows(rec)
	values := make([]any, len(rows))
	for i, row := range rows {
		values[i] = row.V2
	}
	return values
}

// Extract reduces a raw query result to a single display value.
func (p *Projector) Extract(m catalog.Metric, value models.Table) any {
	if len(value) == 0 {
		return int64(0)
	}

	switch m.Family {
	case catalog.FamilyScalar, catalog.FamilyLines:
		return firstValue(value)
	case catalog.FamilyBreakdown:
		return Breakdown(value)
	case catalog.FamilyMissingCode:
		if p.missingCodeRule == config.MissingCodeRows {
			return int64(len(value))
		}
		return firstValue(value)
	case catalog.FamilyCritical:
		first := value[0]
		if m.Column < 0 || m.Column >= len(first) {
			return int64(0)
		}
		return Normalize(first[m.Column])
	default:
		return int64(0)
	}
}

// Breakdown renders (technology, value) rows as "JEE:59803, SQL:0".
// Values are truncated to integers.
func Breakdown(value models.Table) any {
	if len(value) == 0 {
		return int64(0)
	}
	parts := make([]string, 0, len(value))
	for _, row := range value {
		if len(row) < 2 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d", text(row[0]), ToInt64(row[1])))
	}
	return strings.Join(parts, ", ")
}

func firstValue(value models.Table) any {
	if len(value[0]) == 0 {
		return int64(0)
	}
	return Normalize(value[0][0])
}

// Normalize converts driver values to int64, float64 or string. Whole
// floats become int64 and NULL becomes 0.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return int64(0)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint64:
		return int64(x)
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	case []byte:
		return normalizeString(string(x))
	case string:
		return normalizeString(x)
	default:
		return fmt.Sprint(x)
	}
}

// ToInt64 truncates a numeric-looking value toward zero; anything else is 0.
func ToInt64(v any) int64 {
	switch x := Normalize(v).(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	default:
		return 0
	}
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
		return int64(f)
	}
	return f
}

func normalizeString(s string) any {
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return normalizeFloat(f)
	}
	return s
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
