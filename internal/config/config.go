package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Store        StoreConfig        `yaml:"store"`
	Cache        CacheConfig        `yaml:"cache"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Log          LogConfig          `yaml:"log"`
	Web          WebConfig          `yaml:"web"`
}

type LLMConfig struct {
	API       string      `yaml:"api"`
	BaseURL   string      `yaml:"base_url"`
	APIKey    string      `yaml:"api_key"`
	Model     string      `yaml:"model"`
	MaxTokens int         `yaml:"max_tokens"`
	Retry     RetryConfig `yaml:"retry"`
	// Fallbacks are tried in order when Model keeps failing.
	Fallbacks []string `yaml:"fallback_models"`
}

type RetryConfig struct {
	MaxAttempts    int    `yaml:"max_attempts"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
}

type OrchestratorConfig struct {
	MaxHistoryTurns int      `yaml:"max_history_turns"`
	Threshold       float64  `yaml:"threshold"`
	Rules           []string `yaml:"rules"`
	PreparerScript  string   `yaml:"preparer_script"`
}

type StoreConfig struct {
	Driver  string `yaml:"driver"`
	DataDir string `yaml:"data_dir"`
	DSN     string `yaml:"dsn"`
}

type CacheConfig struct {
	Backend       string `yaml:"backend"`
	Size          int    `yaml:"size"`
	TTL           string `yaml:"ttl"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Prefix        string `yaml:"prefix"`
}

type SchedulerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SessionMaxAge string `yaml:"session_max_age"`
	PruneSchedule string `yaml:"prune_schedule"`
	PurgeSchedule string `yaml:"purge_schedule"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type WebConfig struct {
	SearchURL string `yaml:"search_url"`
	Timeout   string `yaml:"timeout"`
}

// envOverrides are read from ARCHDESK_* variables and win over the file.
type envOverrides struct {
	API         string `envconfig:"LLM_API"`
	BaseURL     string `envconfig:"LLM_BASE_URL"`
	APIKey      string `envconfig:"API_KEY"`
	Model       string `envconfig:"MODEL"`
	StoreDriver string `envconfig:"STORE_DRIVER"`
	StoreDSN    string `envconfig:"STORE_DSN"`
	DataDir     string `envconfig:"DATA_DIR"`
	CacheBack   string `envconfig:"CACHE_BACKEND"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
}

const envPrefix = "archdesk"

var envPattern = regexp.MustCompile(`\$\{([^}]+)}`)

func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func expandEnvInSecrets(cfg *Config) {
	cfg.LLM.BaseURL = expandEnv(cfg.LLM.BaseURL)
	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.Store.DSN = expandEnv(cfg.Store.DSN)
	cfg.Store.DataDir = expandEnv(cfg.Store.DataDir)
	cfg.Cache.RedisAddr = expandEnv(cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = expandEnv(cfg.Cache.RedisPassword)
	cfg.Orchestrator.PreparerScript = expandEnv(cfg.Orchestrator.PreparerScript)

	// An unset ${VAR} stays literal; a key like that is never valid.
	if envPattern.MatchString(cfg.LLM.APIKey) {
		cfg.LLM.APIKey = ""
	}
}

// LoadDotEnv loads variables from the given .env files. Missing files are
// skipped; variables already set in the environment are kept.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the YAML file at path. An empty path yields the defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	expandEnvInSecrets(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var ov envOverrides
	if err := envconfig.Process(envPrefix, &ov); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.LLM.API, ov.API)
	set(&cfg.LLM.BaseURL, ov.BaseURL)
	set(&cfg.LLM.APIKey, ov.APIKey)
	set(&cfg.LLM.Model, ov.Model)
	set(&cfg.Store.Driver, ov.StoreDriver)
	set(&cfg.Store.DSN, ov.StoreDSN)
	set(&cfg.Store.DataDir, ov.DataDir)
	set(&cfg.Cache.Backend, ov.CacheBack)
	set(&cfg.Cache.RedisAddr, ov.RedisAddr)
	set(&cfg.Metrics.Addr, ov.MetricsAddr)
	set(&cfg.Log.Level, ov.LogLevel)
	return nil
}

func (c *Config) applyDefaults() {
	def := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	def(&c.LLM.API, "anthropic-messages")
	def(&c.LLM.Model, "claude-sonnet-4-5")
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.Retry.MaxAttempts <= 0 {
		c.LLM.Retry.MaxAttempts = 3
	}
	def(&c.LLM.Retry.InitialBackoff, "500ms")
	def(&c.LLM.Retry.MaxBackoff, "8s")

	if c.Orchestrator.MaxHistoryTurns <= 0 {
		c.Orchestrator.MaxHistoryTurns = 40
	}
	if c.Orchestrator.Threshold <= 0 {
		c.Orchestrator.Threshold = 0.4
	}

	def(&c.Store.Driver, "sqlite")
	def(&c.Store.DataDir, "data")

	def(&c.Cache.Backend, "memory")
	if c.Cache.Size <= 0 {
		c.Cache.Size = 1024
	}
	def(&c.Cache.TTL, "1h")
	def(&c.Cache.Prefix, "archdesk:intent:")

	def(&c.Scheduler.SessionMaxAge, "720h")
	def(&c.Scheduler.PruneSchedule, "@every 1h")
	def(&c.Scheduler.PurgeSchedule, "@every 10m")

	def(&c.Log.Level, "info")
	def(&c.Web.Timeout, "20s")
}

func (c *Config) Validate() error {
	switch c.LLM.API {
	case "anthropic-messages", "openai-completions":
	default:
		return fmt.Errorf("llm.api: unsupported value %q", c.LLM.API)
	}
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver: unsupported value %q", c.Store.Driver)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend: unsupported value %q", c.Cache.Backend)
	}
	if c.Orchestrator.Threshold > 1 {
		return fmt.Errorf("orchestrator.threshold must be within [0,1], got %g", c.Orchestrator.Threshold)
	}
	for name, v := range map[string]string{
		"llm.retry.initial_backoff": c.LLM.Retry.InitialBackoff,
		"llm.retry.max_backoff":     c.LLM.Retry.MaxBackoff,
		"cache.ttl":                 c.Cache.TTL,
		"scheduler.session_max_age": c.Scheduler.SessionMaxAge,
		"web.timeout":               c.Web.Timeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Duration parses a field already checked by Validate.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
