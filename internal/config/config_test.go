package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/pdfqa/internal/answer"
	"github.com/dgallion1/pdfqa/internal/credentials"
)

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "PDFQA_API_KEY", "CORS_ORIGINS", "LLM_PROVIDER", "LLM_BASE_URL", "LLM_API_KEY",
		"LLM_API_KEY_FILE", "LLM_MODEL", "LLM_MAX_TOKENS", "LLM_TEMPERATURE", "LLM_TIMEOUT",
		"LLM_MAX_RETRIES", "LLM_RETRY_DELAY", "LLM_MAX_RETRY_DELAY", "LLM_RATE_LIMIT_RETRIES",
		"LLM_RATE_LIMIT_DELAY", "CONTEXT_STRATEGY", "CONTEXT_TOKENS", "CHUNK_SIZE", "CHUNK_OVERLAP",
		"CONCURRENCY", "WORKER_COUNT", "MAX_QUEUE_SIZE", "MAX_UPLOAD_BYTES", "RUN_TTL",
		"RUN_CACHE_SIZE", "PDF_FALLBACK_PDFTOTEXT", "PDF_REPAIR", "PDF_PASSWORD",
		"PDF_MIN_TEXT_CHARS", "PDF_TABLES", "QUESTIONS_FILE", "CACHE_DB_PATH", "PDFQA_ENV_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.Port != "8090" {
		t.Errorf("Port = %q, want 8090", cfg.Port)
	}
	if cfg.LLMProvider != "openai" || cfg.LLMModel != "gpt-4o-mini" {
		t.Errorf("provider/model = %q/%q", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.MaxRetries != answer.MaxRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.MaxRetries, answer.MaxRetries)
	}
	if cfg.ChunkSize != 6000 || cfg.ChunkOverlap != 200 {
		t.Errorf("chunking = %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", cfg.Concurrency)
	}
	if cfg.RunTTL != time.Hour {
		t.Errorf("RunTTL = %v", cfg.RunTTL)
	}
	if !cfg.PDFFallbackPdftotext || !cfg.PDFRepair {
		t.Error("PDF fallbacks should default on")
	}
	if !cfg.PDFTables || !cfg.ExtractorOptions().Tables {
		t.Error("PDF tables should default on")
	}
	if cfg.CacheDBPath != "pdfqa.db" {
		t.Errorf("CacheDBPath = %q", cfg.CacheDBPath)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("LLM_MAX_RETRIES", "0")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_RETRY_DELAY", "250ms")
	t.Setenv("CONTEXT_STRATEGY", "sequential")
	t.Setenv("CONCURRENCY", "4")
	t.Setenv("PDF_REPAIR", "false")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	if cfg.LLMProvider != "anthropic" {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.LLMModel != "claude-sonnet-4-5-20250929" {
		t.Errorf("LLMModel = %q", cfg.LLMModel)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
	}
	if cfg.LLMTemperature != 0.2 {
		t.Errorf("LLMTemperature = %v", cfg.LLMTemperature)
	}
	if cfg.PDFRepair {
		t.Error("PDFRepair should be false")
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %q", cfg.CORSOrigins)
	}

	ac := cfg.AnswerConfig()
	if ac.Strategy != answer.StrategySequential || ac.RetryDelay != 250*time.Millisecond {
		t.Errorf("AnswerConfig = %+v", ac)
	}
	if pc := cfg.PipelineConfig(); pc.Concurrency != 4 || pc.CacheKey == "" {
		t.Errorf("PipelineConfig = %+v", pc)
	}
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_SIZE", "lots")
	t.Setenv("LLM_TIMEOUT", "soon")
	t.Setenv("WORKER_COUNT", "-3")

	cfg := Load()
	if cfg.ChunkSize != 6000 {
		t.Errorf("ChunkSize = %d", cfg.ChunkSize)
	}
	if cfg.LLMTimeout != 120*time.Second {
		t.Errorf("LLMTimeout = %v", cfg.LLMTimeout)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount = %d", cfg.WorkerCount)
	}
}

func TestPipelineConfig_CacheKeyTracksAnswerSettings(t *testing.T) {
	clearEnv(t)
	base := Load().PipelineConfig().CacheKey

	for key, value := range map[string]string{
		"CONTEXT_TOKENS":  "8000",
		"LLM_MAX_TOKENS":  "1024",
		"LLM_TEMPERATURE": "0.7",
		"LLM_MODEL":       "gpt-4o",
		"CHUNK_SIZE":      "3000",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if got := Load().PipelineConfig().CacheKey; got == base {
				t.Errorf("CacheKey unchanged after %s=%s: %q", key, value, got)
			}
		})
	}

	if again := Load().PipelineConfig().CacheKey; again != base {
		t.Errorf("CacheKey not stable: %q vs %q", again, base)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		clearEnv(t)
		t.Setenv("LLM_API_KEY", "sk-test")
		return Load()
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown provider", func(c *Config) { c.LLMProvider = "bard" }, true},
		{"bad strategy", func(c *Config) { c.ContextStrategy = "random" }, true},
		{"overlap too large", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, true},
		{"no key", func(c *Config) { c.LLMAPIKey = "" }, true},
		{"no key behind proxy", func(c *Config) { c.LLMAPIKey = ""; c.LLMBaseURL = "http://proxy:8080/v1" }, false},
		{"key file", func(c *Config) { c.LLMAPIKey = ""; c.LLMAPIKeyFile = "/run/secrets/llm.env" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateServer_RequiresAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "sk-test")
	cfg := Load()
	if err := cfg.ValidateServer(); err == nil {
		t.Fatal("expected error without PDFQA_API_KEY")
	}
	cfg.APIKey = "secret"
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("ValidateServer: %v", err)
	}
}

func TestCredentials(t *testing.T) {
	clearEnv(t)
	ctx := context.Background()

	cfg := Load()
	if _, ok := cfg.Credentials().(credentials.None); !ok {
		t.Errorf("no key configured: got %T, want credentials.None", cfg.Credentials())
	}

	path := filepath.Join(t.TempDir(), "llm.env")
	if err := os.WriteFile(path, []byte("LLM_API_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.LLMAPIKeyFile = path
	key, err := cfg.Credentials().APIKey(ctx)
	if err != nil || key != "from-file" {
		t.Errorf("file key = %q, %v", key, err)
	}

	cfg.LLMAPIKey = "from-env"
	key, err = cfg.Credentials().APIKey(ctx)
	if err != nil || key != "from-env" {
		t.Errorf("env key = %q, %v", key, err)
	}
}

func TestLoadDotenv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "local.env")
	if err := os.WriteFile(path, []byte("CHUNK_SIZE=3000\nPORT=9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PDFQA_ENV_FILE", path)
	t.Setenv("PORT", "7000")
	// godotenv only fills unset keys; t.Setenv("X", "") leaves them set.
	os.Unsetenv("CHUNK_SIZE")
	t.Cleanup(func() { os.Unsetenv("CHUNK_SIZE") })

	if err := LoadDotenv(); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	cfg := Load()
	if cfg.ChunkSize != 3000 {
		t.Errorf("ChunkSize = %d, want 3000 from file", cfg.ChunkSize)
	}
	if cfg.Port != "7000" {
		t.Errorf("Port = %q, existing env should win", cfg.Port)
	}
}

func TestLoadDotenv_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PDFQA_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	if err := LoadDotenv(); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}
