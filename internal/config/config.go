// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, database paths, rate limiting, observability, and the RAG pipeline
// settings (chunking, retrieval, and generative-model access).
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// GeminiConfig holds access settings for the Gemini API, which provides both
// the embedding and the text-generation capabilities.
type GeminiConfig struct {
	APIKey        string // GEMINI_API_KEY
	EmbedModel    string // GEMINI_EMBED_MODEL (e.g. "embedding-001")
	ChatModel     string // GEMINI_CHAT_MODEL (e.g. "gemini-2.5-pro")
	AnalysisModel string // GEMINI_ANALYSIS_MODEL
	Timeout       time.Duration
}

// RAGConfig tunes the retrieval-augmented generation pipeline.
type RAGConfig struct {
	ChunkSize       int     // target chunk size in characters
	ChunkOverlap    int     // characters shared between consecutive chunks
	EmbedDimension  int     // fixed embedding dimensionality
	TopK            int     // retrieval candidates per query
	MinSimilarity   float64 // results below this cosine score are dropped
	Rerank          bool    // model-scored second ranking pass over results
	MaxContextTurns int     // prior conversation turns included in a prompt
	MaxExcerpts     int     // document excerpts included in a prompt
	MinDocumentLen  int     // extracted texts shorter than this are rejected
	AnalysisInput   int     // chars of source text handed to generation
	AnalysisExcerpt int     // chars of source text shown back to the user
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool
	APIBasePath string

	// App
	DBPath        string // SQLite path
	MaxUploadSize int64  // bytes, multipart document uploads

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration

	// Observability
	OTEL OTELConfig

	// RAG pipeline
	Gemini GeminiConfig
	RAG    RAGConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:        getenv("DB_PATH", "app.db"),
		MaxUploadSize: int64(getint("MAX_UPLOAD_BYTES", 10<<20)),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-legal-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},

		// Gemini
		Gemini: GeminiConfig{
			APIKey:        getenv("GEMINI_API_KEY", ""),
			EmbedModel:    getenv("GEMINI_EMBED_MODEL", "embedding-001"),
			ChatModel:     getenv("GEMINI_CHAT_MODEL", "gemini-2.5-pro"),
			AnalysisModel: getenv("GEMINI_ANALYSIS_MODEL", "gemini-2.5-pro"),
			Timeout:       getdur("GEMINI_TIMEOUT", 60*time.Second),
		},

		// RAG pipeline
		RAG: RAGConfig{
			ChunkSize:       getint("RAG_CHUNK_SIZE", 500),
			ChunkOverlap:    getint("RAG_CHUNK_OVERLAP", 100),
			EmbedDimension:  getint("RAG_EMBED_DIMENSION", 768),
			TopK:            getint("RAG_TOP_K", 3),
			MinSimilarity:   getfloat("RAG_MIN_SIMILARITY", 0.25),
			Rerank:          getbool("RAG_RERANK", false),
			MaxContextTurns: getint("RAG_MAX_CONTEXT_TURNS", 5),
			MaxExcerpts:     getint("RAG_MAX_EXCERPTS", 3),
			MinDocumentLen:  getint("RAG_MIN_DOCUMENT_CHARS", 50),
			AnalysisInput:   getint("RAG_ANALYSIS_INPUT_CHARS", 8000),
			AnalysisExcerpt: getint("RAG_ANALYSIS_EXCERPT_CHARS", 500),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.MaxUploadSize <= 0 {
		return cfg, errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if cfg.RAG.ChunkSize <= 0 {
		return cfg, errors.New("RAG_CHUNK_SIZE must be > 0")
	}
	if cfg.RAG.ChunkOverlap < 0 || cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		return cfg, errors.New("RAG_CHUNK_OVERLAP must be in [0, RAG_CHUNK_SIZE)")
	}
	if cfg.RAG.EmbedDimension <= 0 {
		return cfg, errors.New("RAG_EMBED_DIMENSION must be > 0")
	}
	if cfg.RAG.TopK < 1 {
		return cfg, errors.New("RAG_TOP_K must be >= 1")
	}
	if cfg.RAG.MinSimilarity < 0 || cfg.RAG.MinSimilarity > 1 {
		return cfg, errors.New("RAG_MIN_SIMILARITY must be in [0,1]")
	}
	if cfg.RAG.MaxContextTurns < 0 {
		return cfg, errors.New("RAG_MAX_CONTEXT_TURNS must be >= 0")
	}
	if cfg.RAG.MinDocumentLen < 1 {
		return cfg, errors.New("RAG_MIN_DOCUMENT_CHARS must be >= 1")
	}
	if cfg.RAG.AnalysisInput < cfg.RAG.MinDocumentLen {
		return cfg, errors.New("RAG_ANALYSIS_INPUT_CHARS must be >= RAG_MIN_DOCUMENT_CHARS")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
