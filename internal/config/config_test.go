package config

import (
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // normalizes to "release"

	t.Setenv("LOG_LEVEL", "warning") // normalizes to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	t.Setenv("DB_PATH", "legal.db")
	t.Setenv("MAX_UPLOAD_BYTES", "2097152")

	// Invalid numerics fall back to defaults.
	t.Setenv("RATE_RPS", "x")
	t.Setenv("RATE_BURST", "nope")

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example ")

	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_EMBED_MODEL", "embedding-001")
	t.Setenv("GEMINI_CHAT_MODEL", "gemini-2.5-pro")
	t.Setenv("GEMINI_TIMEOUT", "30s")

	t.Setenv("RAG_CHUNK_SIZE", "400")
	t.Setenv("RAG_CHUNK_OVERLAP", "80")
	t.Setenv("RAG_TOP_K", "5")
	t.Setenv("RAG_MIN_SIMILARITY", "0.3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.MaxHeaderBytes != 8192 {
		t.Fatalf("server config mismatch: %+v", cfg)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("GinMode = %q", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty {
		t.Fatalf("logging config mismatch: %q pretty=%v", cfg.LogLevel, cfg.LogPretty)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.DBPath != "legal.db" || cfg.MaxUploadSize != 2097152 {
		t.Fatalf("app config mismatch: %q %d", cfg.DBPath, cfg.MaxUploadSize)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate defaults mismatch: %v %d", cfg.RateRPS, cfg.RateBurst)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[0] != "https://a.example" {
		t.Fatalf("CORS origins = %#v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Gemini.APIKey != "test-key" || cfg.Gemini.Timeout != 30*time.Second {
		t.Fatalf("gemini config mismatch: %+v", cfg.Gemini)
	}
	if cfg.RAG.ChunkSize != 400 || cfg.RAG.ChunkOverlap != 80 || cfg.RAG.TopK != 5 || cfg.RAG.MinSimilarity != 0.3 {
		t.Fatalf("rag config mismatch: %+v", cfg.RAG)
	}
	// Untouched RAG knobs keep defaults.
	if cfg.RAG.EmbedDimension != 768 || cfg.RAG.MaxContextTurns != 5 || cfg.RAG.MinDocumentLen != 50 {
		t.Fatalf("rag defaults mismatch: %+v", cfg.RAG)
	}
}

// --- Validation failures ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad log level", "LOG_LEVEL", "chatty", "LOG_LEVEL"},
		{"zero timeout", "READ_TIMEOUT", "0s", "timeouts"},
		{"zero header bytes", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"zero upload", "MAX_UPLOAD_BYTES", "0", "MAX_UPLOAD_BYTES"},
		{"negative rps", "RATE_RPS", "-1", "RATE_RPS"},
		{"zero burst", "RATE_BURST", "0", "RATE_BURST"},
		{"bad sampler", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
		{"zero chunk size", "RAG_CHUNK_SIZE", "0", "RAG_CHUNK_SIZE"},
		{"overlap too large", "RAG_CHUNK_OVERLAP", "500", "RAG_CHUNK_OVERLAP"},
		{"zero dimension", "RAG_EMBED_DIMENSION", "0", "RAG_EMBED_DIMENSION"},
		{"zero topk", "RAG_TOP_K", "0", "RAG_TOP_K"},
		{"similarity over 1", "RAG_MIN_SIMILARITY", "1.5", "RAG_MIN_SIMILARITY"},
		{"analysis below minimum", "RAG_ANALYSIS_INPUT_CHARS", "10", "RAG_ANALYSIS_INPUT_CHARS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.val)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

// --- helpers ---

func Test_normalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"api":      "/api",
		"/api/":    "/api",
		"/api/v2/": "/api/v2",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func Test_getbool_Values(t *testing.T) {
	t.Setenv("B1", "on")
	t.Setenv("B2", "OFF")
	t.Setenv("B3", "maybe")
	if !getbool("B1", false) {
		t.Fatalf("on should be true")
	}
	if getbool("B2", true) {
		t.Fatalf("OFF should be false")
	}
	if !getbool("B3", true) {
		t.Fatalf("unparseable keeps default")
	}
}
