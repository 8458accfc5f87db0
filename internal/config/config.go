package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/pdfqa/internal/answer"
	"github.com/dgallion1/pdfqa/internal/chunker"
	"github.com/dgallion1/pdfqa/internal/credentials"
	"github.com/dgallion1/pdfqa/internal/llm"
	"github.com/dgallion1/pdfqa/internal/pdftext"
	"github.com/dgallion1/pdfqa/internal/pipeline"
)

type Config struct {
	Port string

	// Auth for the HTTP API
	APIKey string
	// Browser origins allowed to call the API; empty allows any.
	CORSOrigins []string

	// Model endpoint
	LLMProvider    string
	LLMBaseURL     string
	LLMAPIKey      string
	LLMAPIKeyFile  string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration

	// Retries
	MaxRetries       int
	RetryDelay       time.Duration
	MaxRetryDelay    time.Duration
	RateLimitRetries int
	RateLimitDelay   time.Duration

	// Context selection and chunking
	ContextStrategy string
	ContextTokens   int
	ChunkSize       int
	ChunkOverlap    int

	// Worker pool
	Concurrency  int
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Run state
	RunTTL       time.Duration
	RunCacheSize int

	// PDF
	PDFFallbackPdftotext bool
	PDFRepair            bool
	PDFPassword          string
	PDFMinTextChars      int
	PDFTables            bool

	// Files
	QuestionsFile string
	CacheDBPath   string
}

// LoadDotenv reads the local, unversioned env file (PDFQA_ENV_FILE, default
// .env) into the environment. Variables already set win. A missing file is
// not an error.
func LoadDotenv() error {
	path := envOr("PDFQA_ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey:      os.Getenv("PDFQA_API_KEY"),
		CORSOrigins: envList("CORS_ORIGINS"),

		LLMProvider:    strings.ToLower(envOr("LLM_PROVIDER", "openai")),
		LLMBaseURL:     os.Getenv("LLM_BASE_URL"),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMAPIKeyFile:  os.Getenv("LLM_API_KEY_FILE"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		LLMMaxTokens:   envInt("LLM_MAX_TOKENS", 512),
		LLMTemperature: envFloat("LLM_TEMPERATURE", 0),
		LLMTimeout:     envDuration("LLM_TIMEOUT", 120*time.Second),

		MaxRetries:       envInt("LLM_MAX_RETRIES", answer.MaxRetries),
		RetryDelay:       envDuration("LLM_RETRY_DELAY", 1*time.Second),
		MaxRetryDelay:    envDuration("LLM_MAX_RETRY_DELAY", 30*time.Second),
		RateLimitRetries: envInt("LLM_RATE_LIMIT_RETRIES", 5),
		RateLimitDelay:   envDuration("LLM_RATE_LIMIT_DELAY", 20*time.Second),

		ContextStrategy: envOr("CONTEXT_STRATEGY", string(answer.StrategyAuto)),
		ContextTokens:   envInt("CONTEXT_TOKENS", 24000),
		ChunkSize:       envInt("CHUNK_SIZE", 6000),
		ChunkOverlap:    envInt("CHUNK_OVERLAP", 200),

		Concurrency:  envInt("CONCURRENCY", 1),
		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 20),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		RunTTL:       envDuration("RUN_TTL", 1*time.Hour),
		RunCacheSize: envInt("RUN_CACHE_SIZE", 256),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		PDFRepair:            envBool("PDF_REPAIR", true),
		PDFPassword:          os.Getenv("PDF_PASSWORD"),
		PDFMinTextChars:      envInt("PDF_MIN_TEXT_CHARS", 50),
		PDFTables:            envBool("PDF_TABLES", true),

		QuestionsFile: os.Getenv("QUESTIONS_FILE"),
		CacheDBPath:   envOr("CACHE_DB_PATH", "pdfqa.db"),
	}

	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel(cfg.LLMProvider)
	}
	if cfg.LLMMaxTokens <= 0 {
		cfg.LLMMaxTokens = 512
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = answer.MaxRetries
	}
	if cfg.ContextTokens <= 0 {
		cfg.ContextTokens = 24000
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 6000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 1 * time.Hour
	}
	if cfg.RunCacheSize <= 0 {
		cfg.RunCacheSize = 256
	}
	if cfg.PDFMinTextChars <= 0 {
		cfg.PDFMinTextChars = 50
	}

	return cfg
}

func defaultModel(provider string) string {
	if provider == "anthropic" || provider == "claude" {
		return "claude-sonnet-4-5-20250929"
	}
	return "gpt-4o-mini"
}

// Validate checks the settings shared by the CLI and the server.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "openai", "anthropic", "claude":
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai or anthropic, got %q", c.LLMProvider)
	}
	if _, err := answer.ParseStrategy(c.ContextStrategy); err != nil {
		return fmt.Errorf("CONTEXT_STRATEGY: %w", err)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.LLMAPIKey == "" && c.LLMAPIKeyFile == "" && c.LLMBaseURL == "" {
		return fmt.Errorf("LLM_API_KEY or LLM_API_KEY_FILE is required unless LLM_BASE_URL points at a proxy")
	}
	return nil
}

// ValidateServer adds the checks that only apply to the HTTP service.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("PDFQA_API_KEY is required")
	}
	return nil
}

// Credentials returns the provider for the model API key. With no key
// configured the endpoint is assumed to sit behind a proxy that adds one.
func (c Config) Credentials() credentials.Provider {
	var chain credentials.Chain
	if c.LLMAPIKey != "" {
		chain = append(chain, credentials.Static(c.LLMAPIKey))
	}
	if c.LLMAPIKeyFile != "" {
		chain = append(chain, credentials.DotenvFile{Path: c.LLMAPIKeyFile, Key: "LLM_API_KEY"})
	}
	if len(chain) == 0 {
		return credentials.None{}
	}
	return chain
}

func (c Config) LLMOptions() llm.Options {
	return llm.Options{
		BaseURL:     c.LLMBaseURL,
		Model:       c.LLMModel,
		MaxTokens:   c.LLMMaxTokens,
		Temperature: c.LLMTemperature,
		Timeout:     c.LLMTimeout,
	}
}

func (c Config) AnswerConfig() answer.Config {
	strategy, _ := answer.ParseStrategy(c.ContextStrategy)
	return answer.Config{
		Strategy:         strategy,
		ContextTokens:    c.ContextTokens,
		MaxTokens:        c.LLMMaxTokens,
		MaxRetries:       c.MaxRetries,
		RetryDelay:       c.RetryDelay,
		MaxRetryDelay:    c.MaxRetryDelay,
		RateLimitRetries: c.RateLimitRetries,
		RateLimitDelay:   c.RateLimitDelay,
	}
}

func (c Config) ChunkConfig() chunker.Config {
	return chunker.Config{MaxSize: c.ChunkSize, Overlap: c.ChunkOverlap}
}

func (c Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Chunk:       c.ChunkConfig(),
		Concurrency: c.Concurrency,
		CacheKey:    c.cacheKey(),
	}
}

// cacheKey covers every setting that changes what the model sees or how it
// may reply.
func (c Config) cacheKey() string {
	return fmt.Sprintf("%s/%s/%d/%d/ctx%d/max%d/t%s",
		c.LLMProvider, c.LLMModel, c.ChunkSize, c.ChunkOverlap,
		c.ContextTokens, c.LLMMaxTokens, strconv.FormatFloat(c.LLMTemperature, 'g', -1, 64))
}

func (c Config) OrchestratorConfig() pipeline.OrchestratorConfig {
	return pipeline.OrchestratorConfig{
		WorkerCount:  c.WorkerCount,
		MaxQueueSize: c.MaxQueueSize,
	}
}

func (c Config) ExtractorOptions() pdftext.Options {
	return pdftext.Options{
		Password:     c.PDFPassword,
		MinTextChars: c.PDFMinTextChars,
		Repair:       c.PDFRepair,
		Pdftotext:    c.PDFFallbackPdftotext,
		Tables:       c.PDFTables,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
