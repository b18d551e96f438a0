// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID -> logging -> recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/pleader-ai/go-legal-backend/internal/ai"
	"github.com/pleader-ai/go-legal-backend/internal/chunker"
	"github.com/pleader-ai/go-legal-backend/internal/config"
	"github.com/pleader-ai/go-legal-backend/internal/domain"
	"github.com/pleader-ai/go-legal-backend/internal/http/handlers"
	"github.com/pleader-ai/go-legal-backend/internal/http/middleware"
	"github.com/pleader-ai/go-legal-backend/internal/rag"
	"github.com/pleader-ai/go-legal-backend/internal/repo"
	"github.com/pleader-ai/go-legal-backend/internal/search"
	"github.com/pleader-ai/go-legal-backend/internal/services"
)

// Deps carries the externally constructed dependencies injected into the
// HTTP layer. The AI clients are built in main so their configuration and
// lifecycle stay out of transport code.
type Deps struct {
	DB       *gorm.DB
	Index    search.VectorIndex
	Embedder ai.Embedder
	// ChatGen produces conversational replies.
	ChatGen services.ReplyGenerator
	// AnalysisGen produces document analyses. May equal ChatGen.
	AnalysisGen services.ReplyGenerator
	// AnalysisModel names the generation model recorded on analysis results.
	AnalysisModel string
}

// chatRepoShim adapts the repository free functions to the services.ChatRepo
// interface expected by the ChatService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type chatRepoShim struct{}

func (chatRepoShim) CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error) {
	return repo.CreateChat(ctx, db, userID, title)
}

func (chatRepoShim) ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	return repo.ListChats(ctx, db, userID)
}

func (chatRepoShim) GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	return repo.GetChat(ctx, db, id, userID)
}

func (chatRepoShim) UpdateChatTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	return repo.UpdateChatTitle(ctx, db, id, userID, title)
}

func (chatRepoShim) DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteChat(ctx, db, id, userID)
}

func (chatRepoShim) CountChats(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountChats(ctx, db, userID)
}

func (chatRepoShim) ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	return repo.ListChatsPage(ctx, db, userID, offset, limit)
}

// chunkSourceShim adapts repo.ChunkContent to the rag.ChunkSource interface
// consumed by the retriever.
type chunkSourceShim struct{ db *gorm.DB }

func (s chunkSourceShim) ChunkContent(ctx context.Context, chunkIDs []string) (map[string]rag.ChunkInfo, error) {
	rows, err := repo.ChunkContent(ctx, s.db, chunkIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]rag.ChunkInfo, len(rows))
	for id, r := range rows {
		out[id] = rag.ChunkInfo{Content: r.Content, Filename: r.Filename}
	}
	return out, nil
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter (larger cap for document uploads)
//  6. Gzip compression
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) error {
	r.HandleMethodNotAllowed = true
	db := deps.DB

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limit: 1 MiB for JSON endpoints, the configured upload cap
	// for multipart document analysis.
	r.Use(limitBody(1<<20, cfg.MaxUploadSize))

	// 6) Response compression (analysis payloads compress well)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, chatID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, chatID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests
		// and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services <- repo/db/index/AI clients
	ch, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return err
	}

	retriever := rag.NewRetriever(deps.Embedder, deps.Index, chunkSourceShim{db: db},
		cfg.RAG.TopK, cfg.RAG.MinSimilarity)
	if cfg.RAG.Rerank {
		retriever.UseReranker(deps.ChatGen)
	}
	prompts := rag.NewPromptBuilder(cfg.RAG.MaxContextTurns, cfg.RAG.MaxExcerpts)
	analysis := rag.NewAnalysisBuilder(cfg.RAG.MinDocumentLen, cfg.RAG.AnalysisInput, cfg.RAG.AnalysisExcerpt)

	chatSvc := services.NewChatService(db, chatRepoShim{})
	msgSvc := services.NewMessageService(db, retriever, prompts, deps.ChatGen, cfg.RAG.MaxContextTurns)
	msgSvc.MaxPromptRunes = 2000
	msgSvc.MaxReplyRunes = 8000
	msgSvc.TitleLocale = language.English

	docSvc := services.NewDocumentService(db, ch, deps.Embedder, deps.AnalysisGen,
		analysis, deps.Index, deps.AnalysisModel)

	h := handlers.New(chatSvc, msgSvc, docSvc)
	h.ExportSvc = services.NewExportService(db)
	h.MaxUploadBytes = cfg.MaxUploadSize

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Chats
		api.POST("/chats", h.CreateChat)
		api.GET("/chats", h.ListChats)
		api.GET("/chats/:id", h.GetChat)
		api.PUT("/chats/:id/title", h.UpdateChatTitle)
		api.DELETE("/chats/:id", h.DeleteChat)

		// Messages
		api.GET("/chats/:id/messages", h.ListMessages)
		api.POST("/chats/:id/messages", h.PostMessage)

		// Documents
		api.POST("/documents/analyze", h.AnalyzeDocument)
		api.GET("/documents", h.ListDocuments)
		api.DELETE("/documents/:id", h.DeleteDocument)

		// Exports
		api.GET("/chats/:id/export", h.ExportChat)
		api.GET("/documents/:id/export", h.ExportDocument)
	}

	return nil
}

// limitBody returns a Gin middleware that caps request body sizes using
// http.MaxBytesReader. Document uploads get uploadMax; everything else gets
// defaultMax. Requests exceeding the cap cause downstream body reads to error.
func limitBody(defaultMax, uploadMax int64) gin.HandlerFunc {
	if uploadMax < defaultMax {
		uploadMax = defaultMax
	}
	return func(c *gin.Context) {
		max := defaultMax
		if c.Request.Method == http.MethodPost && strings.HasSuffix(c.Request.URL.Path, "/documents/analyze") {
			max = uploadMax
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
