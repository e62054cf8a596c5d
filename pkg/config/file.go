package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFileYAML is the canonical config filename.
	DefaultConfigFileYAML = ".upgradespectre.yaml"
	// DefaultConfigFileYML is a compatible alternate config filename.
	DefaultConfigFileYML = ".upgradespectre.yml"
)

// FileConfig represents values loaded from a .upgradespectre.yaml file.
type FileConfig struct {
	Output                  string          `yaml:"output"`
	LogFile                 string          `yaml:"log_file"`
	MissingCodeRule         string          `yaml:"missing_code_rule"`
	CriticalViolationsQuery string          `yaml:"critical_violations_query"`
	VariationThreshold      *float64        `yaml:"variation_threshold"`
	DefaultSchemaPrefix     string          `yaml:"default_schema_prefix"`
	ConnectTimeout          string          `yaml:"connect_timeout"`
	GraphRateLimit          *int            `yaml:"graph_rate_limit"`
	V2                      *DeploymentFile `yaml:"v2"`
	V3                      *DeploymentFile `yaml:"v3"`
}

// DeploymentFile is the on-disk shape of one deployment.
type DeploymentFile struct {
	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"postgres"`
	Neo4j struct {
		URL       string     `yaml:"url"`
		Username  string     `yaml:"username"`
		Password  string     `yaml:"password"`
		Databases TenantList `yaml:"databases"`
	} `yaml:"neo4j"`
}

// TenantList accepts either a YAML sequence or a comma-separated string.
type TenantList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TenantList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*t = normalizeList(strings.Split(node.Value, ","))
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		*t = normalizeList(values)
		return nil
	default:
		return fmt.Errorf("invalid neo4j databases at line %d: expected list or comma-separated string", node.Line)
	}
}

// Apply overlays file values on top of cfg. Zero values leave cfg untouched.
func (fc *FileConfig) Apply(cfg *Config) error {
	if fc == nil || cfg == nil {
		return nil
	}
	if fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.MissingCodeRule != "" {
		cfg.MissingCodeRule = strings.ToLower(fc.MissingCodeRule)
	}
	if fc.CriticalViolationsQuery != "" {
		cfg.CriticalViolationsQuery = strings.ToLower(fc.CriticalViolationsQuery)
	}
	if fc.VariationThreshold != nil {
		cfg.VariationThreshold = *fc.VariationThreshold
	}
	if fc.DefaultSchemaPrefix != "" {
		cfg.DefaultSchemaPrefix = fc.DefaultSchemaPrefix
	}
	if fc.GraphRateLimit != nil {
		cfg.GraphRateLimit = *fc.GraphRateLimit
	}
	if fc.ConnectTimeout != "" {
		d, err := ParseDuration(fc.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("invalid connect_timeout %q: %w", fc.ConnectTimeout, err)
		}
		cfg.ConnectTimeout = d
	}
	fc.V2.apply(&cfg.V2)
	fc.V3.apply(&cfg.V3)
	return nil
}

func (df *DeploymentFile) apply(d *Deployment) {
	if df == nil {
		return
	}
	pg := df.Postgres
	if pg.Host != "" {
		d.Postgres.Host = pg.Host
	}
	if pg.Port != 0 {
		d.Postgres.Port = pg.Port
	}
	if pg.Database != "" {
		d.Postgres.Database = pg.Database
	}
	if pg.Username != "" {
		d.Postgres.Username = pg.Username
	}
	if pg.Password != "" {
		d.Postgres.Password = pg.Password
	}
	if pg.SSLMode != "" {
		d.Postgres.SSLMode = pg.SSLMode
	}

	graph := df.Neo4j
	if graph.URL != "" {
		d.Neo4j.URL = graph.URL
	}
	if graph.Username != "" {
		d.Neo4j.Username = graph.Username
	}
	if graph.Password != "" {
		d.Neo4j.Password = graph.Password
	}
	if len(graph.Databases) > 0 {
		d.Neo4j.Databases = append([]string(nil), graph.Databases...)
	}
}

// Normalize trims string fields.
func (fc *FileConfig) Normalize() {
	if fc == nil {
		return
	}
	fc.Output = strings.TrimSpace(fc.Output)
	fc.LogFile = strings.TrimSpace(fc.LogFile)
	fc.MissingCodeRule = strings.TrimSpace(fc.MissingCodeRule)
	fc.CriticalViolationsQuery = strings.TrimSpace(fc.CriticalViolationsQuery)
	fc.DefaultSchemaPrefix = strings.TrimSpace(fc.DefaultSchemaPrefix)
	fc.ConnectTimeout = strings.TrimSpace(fc.ConnectTimeout)
	for _, df := range []*DeploymentFile{fc.V2, fc.V3} {
		if df == nil {
			continue
		}
		df.Postgres.Host = strings.TrimSpace(df.Postgres.Host)
		df.Postgres.Database = strings.TrimSpace(df.Postgres.Database)
		df.Postgres.Username = strings.TrimSpace(df.Postgres.Username)
		df.Postgres.SSLMode = strings.TrimSpace(df.Postgres.SSLMode)
		df.Neo4j.URL = strings.TrimSpace(df.Neo4j.URL)
		df.Neo4j.Username = strings.TrimSpace(df.Neo4j.Username)
	}
}

// AutoLoadFile discovers and loads the first available config file.
func AutoLoadFile() (*FileConfig, string, error) {
	candidates := []string{
		DefaultConfigFileYAML,
		DefaultConfigFileYML,
	}

	if homeDir, err := os.UserHomeDir(); err == nil && strings.TrimSpace(homeDir) != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, DefaultConfigFileYAML),
			filepath.Join(homeDir, DefaultConfigFileYML),
		)
	}

	return LoadFirstExistingFile(candidates)
}

// LoadFirstExistingFile loads the first config file that exists in paths.
func LoadFirstExistingFile(paths []string) (*FileConfig, string, error) {
	for _, path := range paths {
		candidate := strings.TrimSpace(path)
		if candidate == "" {
			continue
		}

		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to access config file %q: %w", candidate, err)
		}
		if info.IsDir() {
			return nil, "", fmt.Errorf("config path %q is a directory, expected a file", candidate)
		}

		cfg, err := LoadFile(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}

	return nil, "", nil
}

// LoadFile loads config values from a specific YAML file path. ${VAR}
// references are expanded from the environment before parsing.
func LoadFile(path string) (*FileConfig, error) {
	filename := strings.TrimSpace(path)
	if filename == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filename, err)
	}

	cfg := &FileConfig{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", filename, err)
	}

	cfg.Normalize()
	return cfg, nil
}

// Load builds the runtime configuration from defaults plus the file at path,
// or the auto-discovered file when path is empty.
func Load(path string) (*Config, string, error) {
	var (
		fc     *FileConfig
		source string
		err    error
	)
	if strings.TrimSpace(path) != "" {
		fc, err = LoadFile(path)
		source = path
	} else {
		fc, source, err = AutoLoadFile()
	}
	if err != nil {
		return nil, "", err
	}

	cfg := DefaultConfig()
	if err := fc.Apply(cfg); err != nil {
		return nil, "", err
	}
	return cfg, source, nil
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
