// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dohyunlee/proplens/internal/filter"
	"github.com/dohyunlee/proplens/internal/pipeline"
	"github.com/dohyunlee/proplens/internal/risk"
	score "github.com/dohyunlee/proplens/pkg/scorer"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig       `yaml:"server"`
	Database  DatabaseConfig     `yaml:"database"`
	Naver     NaverConfig        `yaml:"naver"`
	Molit     MolitConfig        `yaml:"molit"`
	ODsay     ODsayConfig        `yaml:"odsay"`
	LLM       LLMConfig          `yaml:"llm"`
	Scoring   ScoringConfig      `yaml:"scoring"`
	Risk      RiskConfig         `yaml:"risk"`
	Pipeline  PipelineConfig     `yaml:"pipeline"`
	Profiles  []pipeline.Profile `yaml:"profiles"`
	Telemetry TelemetryConfig    `yaml:"telemetry"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings. Optional: the
// analyze command runs without persistence; serve mode requires a host.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// Enabled reports whether a database target is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// NaverConfig defines the 네이버부동산 client settings.
type NaverConfig struct {
	BaseURL   string        `yaml:"base_url"`
	PerSecond float64       `yaml:"per_second"`
	Burst     int           `yaml:"burst"`
	MaxItems  int           `yaml:"max_items"`
	CacheDir  string        `yaml:"cache_dir"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// MolitConfig defines the 국토부 실거래가 client settings. Price enrichment
// is skipped without an API key.
type MolitConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Months  int    `yaml:"months"`
}

// ODsayConfig defines the ODsay transit client settings. Commute evaluation
// is skipped without an API key.
type ODsayConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LLMConfig defines the optional report-polishing backend.
type LLMConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ScoringConfig carries the category weights.
type ScoringConfig struct {
	Weights score.Weights `yaml:"weights"`
}

// RiskConfig carries the pattern rule table and structural thresholds.
// Empty patterns fall back to the built-in rule set.
type RiskConfig struct {
	Patterns   []risk.PatternRule `yaml:"patterns"`
	Thresholds risk.Thresholds    `yaml:"thresholds"`
}

// PipelineConfig tunes the orchestrator.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

// TelemetryConfig defines the OTLP trace exporter target.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyNaverDefaults(&cfg.Naver)
	applyMolitDefaults(&cfg.Molit)
	applyODsayDefaults(&cfg.ODsay)
	applyLLMDefaults(&cfg.LLM)
	applyScoringDefaults(&cfg.Scoring)
	applyRiskDefaults(&cfg.Risk)
	applyPipelineDefaults(&cfg.Pipeline)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 60 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyNaverDefaults(n *NaverConfig) {
	if n.PerSecond == 0 {
		n.PerSecond = 0.5
	}
	if n.Burst == 0 {
		n.Burst = 1
	}
	if n.MaxItems == 0 {
		n.MaxItems = 50
	}
	if n.CacheDir == "" {
		n.CacheDir = ".cache/naver"
	}
	if n.CacheTTL == 0 {
		n.CacheTTL = 24 * time.Hour
	}
}

func applyMolitDefaults(m *MolitConfig) {
	if m.Months == 0 {
		m.Months = 6
	}
}

func applyODsayDefaults(o *ODsayConfig) {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.odsay.com/v1/api"
	}
}

func applyLLMDefaults(l *LLMConfig) {
	if l.Endpoint == "" {
		l.Endpoint = "http://localhost:11434"
	}
	if l.Model == "" {
		l.Model = "llama3.1"
	}
	if l.Timeout == 0 {
		l.Timeout = 30 * time.Second
	}
}

func applyScoringDefaults(s *ScoringConfig) {
	if s.Weights == (score.Weights{}) {
		s.Weights = score.DefaultWeights()
	}
}

func applyRiskDefaults(r *RiskConfig) {
	if len(r.Patterns) == 0 {
		r.Patterns = risk.DefaultPatterns()
	}
	// Per-field defaults: a config that sets only one threshold must not
	// zero out the others.
	def := risk.DefaultThresholds()
	if r.Thresholds.MinHouseholds == 0 {
		r.Thresholds.MinHouseholds = def.MinHouseholds
	}
	if r.Thresholds.MaxBuildingAge == 0 {
		r.Thresholds.MaxBuildingAge = def.MaxBuildingAge
	}
	if r.Thresholds.MinParkingRatio == 0 {
		r.Thresholds.MinParkingRatio = def.MinParkingRatio
	}
}

func applyPipelineDefaults(p *PipelineConfig) {
	if p.Workers == 0 {
		p.Workers = 8
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if err := cfg.Scoring.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring.weights: %w", err))
	}

	for i, rule := range cfg.Risk.Patterns {
		if rule.Expr == "" {
			errs = append(errs, fmt.Errorf("risk.patterns[%d]: empty pattern", i))
			continue
		}
		if _, err := regexp.Compile("(?i)" + rule.Expr); err != nil {
			errs = append(errs, fmt.Errorf("risk.patterns[%d] %q: %w", i, rule.Expr, err))
		}
	}

	engine := filter.NewEngine()
	seen := map[string]bool{}
	for i, profile := range cfg.Profiles {
		if profile.Name == "" {
			errs = append(errs, fmt.Errorf("profiles[%d]: name is required", i))
		} else if seen[profile.Name] {
			errs = append(errs, fmt.Errorf("profiles[%d]: duplicate name %q", i, profile.Name))
		}
		seen[profile.Name] = true

		if profile.Schedule == "" {
			errs = append(errs, fmt.Errorf("profiles[%d] %q: schedule is required", i, profile.Name))
		}
		if err := engine.ValidateCriteria(&cfg.Profiles[i].Criteria); err != nil {
			errs = append(errs, fmt.Errorf("profiles[%d] %q: %w", i, profile.Name, err))
		}
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required"))
		}
	}

	return errors.Join(errs...)
}
