// Package config loads the service configuration from a YAML file and
// environment variables. Environment variables override file values, so a
// deployment can run from env alone.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root service configuration.
type Config struct {
	Env        string          `yaml:"env" env:"APP_ENV" env-default:"local"`
	HealthAddr string          `yaml:"health_addr" env:"HEALTH_ADDR" env-default:"0.0.0.0:8081"`
	Postgres   PostgresConfig  `yaml:"postgres"`
	Redis      RedisConfig     `yaml:"redis"`
	Catalog    CatalogConfig   `yaml:"catalog"`
	Rules      RulesConfig     `yaml:"rules"`
	Search     SearchConfig    `yaml:"search"`
	Scheduler  SchedulerConfig `yaml:"scheduler"`
}

// PostgresConfig configures the session and availability store.
type PostgresConfig struct {
	// URL takes precedence over the discrete fields when set.
	URL      string `yaml:"url" env:"POSTGRES_URL"`
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Database string `yaml:"database" env:"POSTGRES_DB" env-default:"tutorhub"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"POSTGRES_SSL_MODE" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env:"POSTGRES_MAX_CONNS" env-default:"10"`
	MinConns int32  `yaml:"min_conns" env:"POSTGRES_MIN_CONNS" env-default:"2"`
}

// RedisConfig configures the scheduling lock, search cache, and event channel.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// CatalogConfig configures the course catalog client.
type CatalogConfig struct {
	BaseURL       string        `yaml:"base_url" env:"CATALOG_BASE_URL" env-required:"true"`
	APIKey        string        `yaml:"api_key" env:"CATALOG_API_KEY"`
	Timeout       time.Duration `yaml:"timeout" env:"CATALOG_TIMEOUT" env-default:"10s"`
	RetryAttempts uint          `yaml:"retry_attempts" env:"CATALOG_RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"CATALOG_RETRY_DELAY" env-default:"200ms"`
}

// RulesConfig overrides the scheduling business rules. Zero values fall back
// to the production defaults.
type RulesConfig struct {
	SessionMinDuration    int  `yaml:"session_min_duration" env:"RULES_SESSION_MIN_DURATION" env-default:"15"`
	SessionMaxDuration    int  `yaml:"session_max_duration" env:"RULES_SESSION_MAX_DURATION" env-default:"240"`
	SlotMinDuration       int  `yaml:"slot_min_duration" env:"RULES_SLOT_MIN_DURATION" env-default:"30"`
	SlotMaxDuration       int  `yaml:"slot_max_duration" env:"RULES_SLOT_MAX_DURATION" env-default:"480"`
	MinAdvanceHours       int  `yaml:"min_advance_hours" env:"RULES_MIN_ADVANCE_HOURS" env-default:"2"`
	MaxAdvanceMonths      int  `yaml:"max_advance_months" env:"RULES_MAX_ADVANCE_MONTHS" env-default:"3"`
	CandidateStepMinutes  int  `yaml:"candidate_step_minutes" env:"RULES_CANDIDATE_STEP_MINUTES" env-default:"15"`
	AllowStudentConflicts bool `yaml:"allow_student_conflicts" env:"RULES_ALLOW_STUDENT_CONFLICTS" env-default:"false"`
}

// SearchConfig tunes the availability search.
type SearchConfig struct {
	Timeout     time.Duration `yaml:"timeout" env:"SEARCH_TIMEOUT" env-default:"10s"`
	Parallelism int           `yaml:"parallelism" env:"SEARCH_PARALLELISM" env-default:"8"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"SEARCH_CACHE_TTL" env-default:"30s"`
}

// SchedulerConfig tunes the scheduling orchestrator.
type SchedulerConfig struct {
	LockTTL     time.Duration `yaml:"lock_ttl" env:"SCHEDULER_LOCK_TTL" env-default:"10s"`
	LockMaxWait time.Duration `yaml:"lock_max_wait" env:"SCHEDULER_LOCK_MAX_WAIT" env-default:"3s"`
}

// Load reads configuration from the given path (optional) and the
// environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate cross-checks the loaded values.
func (c *Config) Validate() error {
	if c.Rules.SessionMinDuration <= 0 || c.Rules.SessionMaxDuration < c.Rules.SessionMinDuration {
		return fmt.Errorf("config: invalid session duration bounds %d..%d",
			c.Rules.SessionMinDuration, c.Rules.SessionMaxDuration)
	}
	if c.Rules.SlotMinDuration <= 0 || c.Rules.SlotMaxDuration < c.Rules.SlotMinDuration {
		return fmt.Errorf("config: invalid slot duration bounds %d..%d",
			c.Rules.SlotMinDuration, c.Rules.SlotMaxDuration)
	}
	if c.Rules.CandidateStepMinutes <= 0 {
		return fmt.Errorf("config: candidate step must be positive, got %d",
			c.Rules.CandidateStepMinutes)
	}
	if c.Search.Parallelism <= 0 {
		return fmt.Errorf("config: search parallelism must be positive, got %d",
			c.Search.Parallelism)
	}
	return nil
}
