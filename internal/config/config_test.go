package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testYAML = `
llm:
  api: openai-completions
  base_url: "${TEST_LLM_URL}"
  api_key: "${TEST_LLM_KEY}"
  model: gpt-test
  max_tokens: 2048
  fallback_models: [gpt-backup]
  retry:
    max_attempts: 5
    initial_backoff: 250ms

orchestrator:
  max_history_turns: 12
  threshold: 0.6
  rules:
    - Always answer in English.
  preparer_script: scripts/prepare.lua

store:
  driver: sqlite
  data_dir: /var/lib/archdesk

cache:
  backend: redis
  redis_addr: "${TEST_REDIS_ADDR}"
  ttl: 30m

scheduler:
  enabled: true
  session_max_age: 48h

metrics:
  addr: ":9090"

log:
  level: debug
  development: true
`

func TestParseFull(t *testing.T) {
	t.Setenv("TEST_LLM_URL", "http://localhost:11434/v1")
	t.Setenv("TEST_LLM_KEY", "sk-test")
	t.Setenv("TEST_REDIS_ADDR", "localhost:6379")

	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.API != "openai-completions" || cfg.LLM.Model != "gpt-test" || cfg.LLM.MaxTokens != 2048 {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434/v1" || cfg.LLM.APIKey != "sk-test" {
		t.Errorf("env expansion failed: %q %q", cfg.LLM.BaseURL, cfg.LLM.APIKey)
	}
	if len(cfg.LLM.Fallbacks) != 1 || cfg.LLM.Fallbacks[0] != "gpt-backup" {
		t.Errorf("fallbacks = %v", cfg.LLM.Fallbacks)
	}
	if cfg.LLM.Retry.MaxAttempts != 5 || cfg.LLM.Retry.InitialBackoff != "250ms" || cfg.LLM.Retry.MaxBackoff != "8s" {
		t.Errorf("retry = %+v", cfg.LLM.Retry)
	}
	if cfg.Orchestrator.MaxHistoryTurns != 12 || cfg.Orchestrator.Threshold != 0.6 {
		t.Errorf("orchestrator = %+v", cfg.Orchestrator)
	}
	if len(cfg.Orchestrator.Rules) != 1 || cfg.Orchestrator.PreparerScript != "scripts/prepare.lua" {
		t.Errorf("orchestrator = %+v", cfg.Orchestrator)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "localhost:6379" || Duration(cfg.Cache.TTL) != 30*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if !cfg.Scheduler.Enabled || Duration(cfg.Scheduler.SessionMaxAge) != 48*time.Hour {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Metrics.Addr != ":9090" || cfg.Log.Level != "debug" || !cfg.Log.Development {
		t.Errorf("metrics/log = %+v %+v", cfg.Metrics, cfg.Log)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.API != "anthropic-messages" || cfg.LLM.MaxTokens != 4096 || cfg.LLM.Retry.MaxAttempts != 3 {
		t.Errorf("llm defaults = %+v", cfg.LLM)
	}
	if cfg.Orchestrator.Threshold != 0.4 || cfg.Orchestrator.MaxHistoryTurns != 40 {
		t.Errorf("orchestrator defaults = %+v", cfg.Orchestrator)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DataDir != "data" {
		t.Errorf("store defaults = %+v", cfg.Store)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.Size != 1024 || cfg.Cache.Prefix != "archdesk:intent:" {
		t.Errorf("cache defaults = %+v", cfg.Cache)
	}
	if cfg.Scheduler.PruneSchedule != "@every 1h" || cfg.Scheduler.PurgeSchedule != "@every 10m" {
		t.Errorf("scheduler defaults = %+v", cfg.Scheduler)
	}
	if cfg.Web.Timeout != "20s" || cfg.Log.Level != "info" {
		t.Errorf("web/log defaults = %+v %+v", cfg.Web, cfg.Log)
	}
}

func TestUnsetKeyVariableMeansNoKey(t *testing.T) {
	os.Unsetenv("ARCHDESK_UNSET_KEY_FOR_TEST")
	cfg, err := Parse([]byte(`llm: {api_key: "${ARCHDESK_UNSET_KEY_FOR_TEST}"}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("api key = %q, want empty", cfg.LLM.APIKey)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("ARCHDESK_API_KEY", "from-env")
	t.Setenv("ARCHDESK_MODEL", "env-model")
	t.Setenv("ARCHDESK_STORE_DRIVER", "postgres")
	t.Setenv("ARCHDESK_STORE_DSN", "postgres://localhost/archdesk")
	t.Setenv("ARCHDESK_LOG_LEVEL", "warn")

	cfg, err := Parse([]byte("llm:\n  api_key: from-file\n  model: file-model\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "from-env" || cfg.LLM.Model != "env-model" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Store.Driver != "postgres" || cfg.Store.DSN != "postgres://localhost/archdesk" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad api", "llm: {api: grpc}", "llm.api"},
		{"bad driver", "store: {driver: mysql}", "store.driver"},
		{"postgres without dsn", "store: {driver: postgres}", "store.dsn"},
		{"redis without addr", "cache: {backend: redis}", "cache.redis_addr"},
		{"bad backend", "cache: {backend: memcached}", "cache.backend"},
		{"threshold above one", "orchestrator: {threshold: 1.5}", "threshold"},
		{"bad duration", "cache: {ttl: soon}", "cache.ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("llm: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archdesk.yaml")
	if err := os.WriteFile(path, []byte("llm: {model: from-file}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Model != "from-file" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("ARCHDESK_DOTENV_TEST=loaded\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ARCHDESK_DOTENV_TEST") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("ARCHDESK_DOTENV_TEST"); got != "loaded" {
		t.Errorf("env = %q", got)
	}
}
