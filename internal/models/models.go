package models

import (
	"strings"
	"unicode/utf8"
)

// DefaultSheet groups applications that belong to no domain.
const DefaultSheet = "default"

// maxSheetNameLen is the Excel limit on worksheet names.
const maxSheetNameLen = 31

// Domain is an organizational grouping of applications in the catalog
type Domain struct {
	GUID string
	Name string
}

// Application is one analyzed application and where its schemas live
type Application struct {
	Name         string
	SchemaPrefix string
	DomainGUID   *string // nil for applications outside any domain
}

// InDomain reports whether the application is attached to a domain.
func (a Application) InDomain() bool {
	return a.DomainGUID != nil && *a.DomainGUID != ""
}

// Row is one tuple returned by a catalog query.
type Row []any

// Table is an ordered query result.
type Table []Row

// MetricRecord is the normalized data collected for one application.
type MetricRecord struct {
	Application Application
	Sheet       string
	Schema      string
	Values      map[string]Table
}

// Value returns the raw result for a metric key, nil when absent.
func (r *MetricRecord) Value(key string) Table {
	if r == nil || r.Values == nil {
		return nil
	}
	return r.Values[key]
}

// ReportRow is one line of an application block in the spreadsheet
type ReportRow struct {
	Application string // set on the first row of a block only
	Parameter   string
	V2          any
	V3          any
	Variation   any
}

// ObjectCounts maps application name to its live object count, summed
// across every tenant database.
type ObjectCounts map[string]int64

// Add accumulates count for the named application.
func (c ObjectCounts) Add(app string, count int64) {
	c[app] += count
}

// SheetName maps a domain name to a valid, stable worksheet name. Excel
// rejects []:*?/\ and names longer than 31 characters.
func SheetName(domain string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(domain))
	name = strings.Trim(name, "'")

	if name == "" {
		return DefaultSheet
	}
	for utf8.RuneCountInString(name) > maxSheetNameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// SheetKey identifies a worksheet the way Excel does: names differing only
// in case refer to the same sheet.
func SheetKey(name string) string {
	return strings.ToLower(name)
}

// SheetFor returns the sheet an application is reported on.
func SheetFor(app Application, domainName string) string {
	if !app.InDomain() {
		return DefaultSheet
	}
	return SheetName(domainName)
}
