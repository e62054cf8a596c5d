package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Missing-code extraction rules.
const (
	MissingCodeValue = "value" // first column of the first row
	MissingCodeRows  = "rows"  // number of rows returned
)

// Critical-violations query variants.
const (
	CriticalThreshold = "threshold"
	CriticalDelta     = "delta"
)

// PostgresConfig holds relational store connection settings
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// DSN renders a lib/pq keyword/value connection string.
func (p PostgresConfig) DSN(connectTimeout time.Duration) string {
	parts := []string{
		"host=" + quoteDSNValue(p.Host),
		"port=" + strconv.Itoa(p.Port),
		"dbname=" + quoteDSNValue(p.Database),
		"user=" + quoteDSNValue(p.Username),
	}
	if p.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(p.Password))
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts = append(parts, "sslmode="+sslMode)
	if secs := int(connectTimeout / time.Second); secs > 0 {
		parts = append(parts, "connect_timeout="+strconv.Itoa(secs))
	}
	return strings.Join(parts, " ")
}

// Neo4jConfig holds graph store connection settings
type Neo4jConfig struct {
	URL       string
	Username  string
	Password  string
	Databases []string
}

// Deployment is one platform version's pair of data sources.
type Deployment struct {
	Name     string
	Postgres PostgresConfig
	Neo4j    Neo4jConfig
}

// Config holds all runtime configuration
type Config struct {
	// Data sources
	V2 Deployment
	V3 Deployment

	ConnectTimeout time.Duration
	GraphRateLimit int

	// Output settings
	OutputPath string
	LogFile    string

	// Extraction rules
	MissingCodeRule         string
	CriticalViolationsQuery string
	DefaultSchemaPrefix     string
	VariationThreshold      float64

	// Operational flags
	Verbose bool
	DryRun  bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		V2: Deployment{
			Name:     "v2",
			Postgres: PostgresConfig{Port: 2284, Database: "postgres", SSLMode: "disable"},
		},
		V3: Deployment{
			Name:     "v3",
			Postgres: PostgresConfig{Port: 2284, Database: "postgres", SSLMode: "disable"},
		},
		ConnectTimeout:          30 * time.Second,
		GraphRateLimit:          50,
		OutputPath:              "V3_Upgrade_Apps_Validation.xlsx",
		LogFile:                 "V3_Upgrade_Validation.log",
		MissingCodeRule:         MissingCodeValue,
		CriticalViolationsQuery: CriticalDelta,
		VariationThreshold:      5,
	}
}

// Deployment returns the settings for the named version ("v2" or "v3").
func (c *Config) Deployment(name string) (Deployment, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "v2":
		return c.V2, nil
	case "v3":
		return c.V3, nil
	default:
		return Deployment{}, fmt.Errorf("invalid deployment %q: must be v2 or v3", name)
	}
}

// Validate checks settings shared by every pass.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputPath) == "" {
		return fmt.Errorf("output path is required")
	}
	switch c.MissingCodeRule {
	case MissingCodeValue, MissingCodeRows:
	default:
		return fmt.Errorf("invalid missing_code_rule %q: must be %q or %q",
			c.MissingCodeRule, MissingCodeValue, MissingCodeRows)
	}
	switch c.CriticalViolationsQuery {
	case CriticalThreshold, CriticalDelta:
	default:
		return fmt.Errorf("invalid critical_violations_query %q: must be %q or %q",
			c.CriticalViolationsQuery, CriticalThreshold, CriticalDelta)
	}
	if c.VariationThreshold < 0 {
		return fmt.Errorf("invalid variation_threshold %v: must be >= 0", c.VariationThreshold)
	}
	if c.GraphRateLimit < 0 {
		return fmt.Errorf("invalid graph_rate_limit %d: must be >= 0", c.GraphRateLimit)
	}
	return nil
}

// Validate checks that both data sources of a deployment are addressable.
func (d Deployment) Validate() error {
	if strings.TrimSpace(d.Postgres.Host) == "" {
		return fmt.Errorf("%s postgres host is required", d.Name)
	}
	if d.Postgres.Port <= 0 {
		return fmt.Errorf("invalid %s postgres port %d", d.Name, d.Postgres.Port)
	}
	if strings.TrimSpace(d.Neo4j.URL) == "" {
		return fmt.Errorf("%s neo4j url is required", d.Name)
	}
	if _, err := url.Parse(d.Neo4j.URL); err != nil {
		return fmt.Errorf("invalid %s neo4j url: %w", d.Name, err)
	}
	if len(d.Neo4j.Databases) == 0 {
		return fmt.Errorf("%s neo4j databases are required", d.Name)
	}
	return nil
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
