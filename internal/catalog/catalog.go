// Package catalog defines the fixed, ordered set of metrics collected for
// every application and the SQL behind each of them.
package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ppiankov/upgradespectre/pkg/config"
)

// Namespace is one of the per-application sub-schemas.
type Namespace string

const (
	Central    Namespace = "central"
	Local      Namespace = "local"
	Management Namespace = "mngt"
)

// Namespaces lists the sub-schemas in execution order.
var Namespaces = []Namespace{Central, Local, Management}

// Schema returns the concrete schema name for an application prefix.
func (n Namespace) Schema(prefix string) string {
	return prefix + "_" + string(n)
}

// Family selects how a raw result is turned into one display value.
type Family int

// FamilyScalar and FamilyLines read the first column of the first row,
// FamilyBreakdown joins "tech:value" pairs, FamilyMissingCode follows the
// deployment's missing-code rule and FamilyCritical reads Metric.Column.
const (
	FamilyUnknown Family = iota
	FamilyScalar
	FamilyLines
	FamilyBreakdown
	FamilyMissingCode
	FamilyCritical
)

// Metric keys, in report order.
const (
	KeyLOC                = "loc"
	KeyLOCPerTech         = "loc_per_tech"
	KeyExtensionCount     = "extension_count"
	KeyDLMs               = "dlms"
	KeyMissingCodeDB      = "missing_code_db"
	KeyAnalyzedFiles      = "analyzed_files"
	KeyMissingCode        = "missing_code"
	KeyCriticalViolations = "critical_violations"
	KeyTotalObjectCount   = "total_object_count"
	KeyCustomizedJobs     = "customized_jobs"
)

// Metric is one catalog entry.
type Metric struct {
	Key       string
	Namespace Namespace // empty for graph-derived metrics
	Family    Family
	SQL       string
	// NullDomainSQL replaces SQL for applications outside any domain.
	NullDomainSQL string
	// Column is the value index for FamilyCritical.
	Column int
	// ByApplication marks queries parameterized by (domain guid, app name).
	ByApplication bool
}

// Relational reports whether the metric is answered by the relational store.
func (m Metric) Relational() bool {
	return m.Namespace != ""
}

// Label is the human-readable parameter name shown in the report.
func (m Metric) Label() string {
	return Label(m.Key)
}

// QueryFor returns the SQL and arguments for an application.
func (m Metric) QueryFor(appName string, domainGUID *string) (string, []any) {
	if !m.ByApplication {
		return m.SQL, nil
	}
	if domainGUID == nil || *domainGUID == "" {
		return m.NullDomainSQL, []any{appName}
	}
	return m.SQL, []any{*domainGUID, appName}
}

// Catalog is the ordered metric set for one deployment.
type Catalog struct {
	metrics []Metric
}

// New builds the catalog for the given critical-violations variant. The
// extraction column travels with the query shape it belongs to.
func New(criticalVariant string) (*Catalog, error) {
	critical := Metric{Key: KeyCriticalViolations, Namespace: Central, Family: FamilyCritical}
	switch criticalVariant {
	case config.CriticalThreshold:
		critical.SQL, critical.Column = criticalThresholdSQL, 2
	case config.CriticalDelta:
		critical.SQL, critical.Column = criticalDeltaSQL, 3
	default:
		return nil, fmt.Errorf("invalid critical violations variant %q", criticalVariant)
	}

	return &Catalog{metrics: []Metric{
		{Key: KeyLOC, Namespace: Central, Family: FamilyLines, SQL: locSQL, NullDomainSQL: locNullDomainSQL, ByApplication: true},
		{Key: KeyLOCPerTech, Namespace: Central, Family: FamilyBreakdown, SQL: locPerTechSQL},
		{Key: KeyExtensionCount, Namespace: Central, Family: FamilyScalar, SQL: extensionCountSQL},
		{Key: KeyDLMs, Namespace: Local, Family: FamilyScalar, SQL: dlmsSQL},
		{Key: KeyMissingCodeDB, Namespace: Local, Family: FamilyMissingCode, SQL: missingCodeDBSQL},
		{Key: KeyAnalyzedFiles, Namespace: Local, Family: FamilyScalar, SQL: analyzedFilesSQL},
		{Key: KeyMissingCode, Namespace: Local, Family: FamilyMissingCode, SQL: missingCodeSQL},
		critical,
		{Key: KeyTotalObjectCount, Family: FamilyScalar},
		{Key: KeyCustomizedJobs, Namespace: Management, Family: FamilyScalar, SQL: customizedJobsSQL},
	}}, nil
}

// Metrics returns the metrics in report order.
func (c *Catalog) Metrics() []Metric {
	return append([]Metric(nil), c.metrics...)
}

// Lookup finds a metric by key.
func (c *Catalog) Lookup(key string) (Metric, bool) {
	for _, m := range c.metrics {
		if m.Key == key {
			return m, true
		}
	}
	return Metric{}, false
}

// Execution returns the relational metrics grouped by namespace
// (central, local, mngt), keeping report order inside each group.
func (c *Catalog) Execution() []Metric {
	out := make([]Metric, 0, len(c.metrics))
	for _, ns := range Namespaces {
		for _, m := range c.metrics {
			if m.Namespace == ns {
				out = append(out, m)
			}
		}
	}
	return out
}

// Label derives a parameter label from a metric key: separators become
// spaces and every word is title-cased.
func Label(key string) string {
	spaced := strings.NewReplacer("_", " ", "-", " ").Replace(key)
	return cases.Title(language.Und).String(strings.Join(strings.Fields(spaced), " "))
}
