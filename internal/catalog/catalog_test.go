package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/upgradespectre/pkg/config"
)

func TestCatalogReportOrder(t *testing.T) {
	c, err := New(config.CriticalDelta)
	require.NoError(t, err)

	var keys []string
	for _, m := range c.Metrics() {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{
		KeyLOC, KeyLOCPerTech, KeyExtensionCount, KeyDLMs, KeyMissingCodeDB,
		KeyAnalyzedFiles, KeyMissingCode, KeyCriticalViolations,
		KeyTotalObjectCount, KeyCustomizedJobs,
	}, keys)
}

func TestCatalogExecutionGroupsByNamespace(t *testing.T) {
	c, err := New(config.CriticalThreshold)
	require.NoError(t, err)

	exec := c.Execution()
	require.Len(t, exec, 9)

	var namespaces []Namespace
	for _, m := range exec {
		namespaces = append(namespaces, m.Namespace)
	}
	assert.Equal(t, []Namespace{
		Central, Central, Central, Central,
		Local, Local, Local, Local,
		Management,
	}, namespaces)

	for _, m := range exec {
		assert.True(t, m.Relational(), m.Key)
		assert.NotEmpty(t, m.SQL, m.Key)
	}
}

func TestCriticalVariantColumns(t *testing.T) {
	cases := []struct {
		variant string
		column  int
		sql     string
	}{
		{variant: config.CriticalThreshold, column: 2, sql: criticalThresholdSQL},
		{variant: config.CriticalDelta, column: 3, sql: criticalDeltaSQL},
	}

	for _, tc := range cases {
		t.Run(tc.variant, func(t *testing.T) {
			c, err := New(tc.variant)
			require.NoError(t, err)

			m, ok := c.Lookup(KeyCriticalViolations)
			require.True(t, ok)
			assert.Equal(t, tc.column, m.Column)
			assert.Equal(t, tc.sql, m.SQL)
		})
	}

	_, err := New("average")
	assert.Error(t, err)
}

func TestQueryForSelectsDomainVariant(t *testing.T) {
	c, err := New(config.CriticalDelta)
	require.NoError(t, err)
	loc, ok := c.Lookup(KeyLOC)
	require.True(t, ok)

	guid := "dom-1"
	sql, args := loc.QueryFor("billing", &guid)
	assert.Equal(t, locSQL, sql)
	assert.Equal(t, []any{"dom-1", "billing"}, args)

	sql, args = loc.QueryFor("billing", nil)
	assert.Equal(t, locNullDomainSQL, sql)
	assert.Equal(t, []any{"billing"}, args)

	dlm, _ := c.Lookup(KeyDLMs)
	sql, args = dlm.QueryFor("billing", &guid)
	assert.Equal(t, dlmsSQL, sql)
	assert.Nil(t, args)
}

func TestGraphMetricIsNotRelational(t *testing.T) {
	c, err := New(config.CriticalDelta)
	require.NoError(t, err)

	m, ok := c.Lookup(KeyTotalObjectCount)
	require.True(t, ok)
	assert.False(t, m.Relational())
	assert.Equal(t, FamilyScalar, m.Family)
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"loc":                 "Loc",
		"loc_per_tech":        "Loc Per Tech",
		"missing_code_db":     "Missing Code Db",
		"total_object_count":  "Total Object Count",
		"critical-violations": "Critical Violations",
		"DLMS":                "Dlms",
	}
	for key, want := range cases {
		assert.Equal(t, want, Label(key), key)
	}
}

func TestNamespaceSchema(t *testing.T) {
	assert.Equal(t, "app1_central", Central.Schema("app1"))
	assert.Equal(t, "app1_local", Local.Schema("app1"))
	assert.Equal(t, "app1_mngt", Management.Schema("app1"))
}
