// Command server runs the legal-assistant chat backend.
//
// Startup order:
//  1. Load .env (best effort) and configuration from the environment.
//  2. Configure zerolog (level, optional pretty console output).
//  3. Install the OpenTelemetry tracer provider (OTLP/gRPC, optional).
//  4. Open SQLite, attach the GORM tracing plugin, run migrations.
//  5. Build the Gemini clients, the vector index, and warm the index
//     from previously stored chunk embeddings.
//  6. Register routes and serve with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/pleader-ai/go-legal-backend/internal/ai"
	"github.com/pleader-ai/go-legal-backend/internal/config"
	httpapi "github.com/pleader-ai/go-legal-backend/internal/http"
	"github.com/pleader-ai/go-legal-backend/internal/observability"
	"github.com/pleader-ai/go-legal-backend/internal/repo"
	"github.com/pleader-ai/go-legal-backend/internal/search"
	"github.com/pleader-ai/go-legal-backend/internal/services"
	"github.com/pleader-ai/go-legal-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments configure via the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Logging.
	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing.
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Storage.
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		log.Warn().Err(err).Msg("gorm tracing plugin not installed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Gemini clients.
	client, err := ai.NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("gemini client setup failed")
	}
	embedder := ai.NewGeminiEmbedder(client, cfg.Gemini.EmbedModel, cfg.RAG.EmbedDimension)
	chatGen := ai.NewGeminiGenerator(client, cfg.Gemini.ChatModel)
	analysisGen := ai.NewGeminiGenerator(client, cfg.Gemini.AnalysisModel)

	// Vector index, warmed from stored chunk embeddings.
	idx, err := search.NewMemoryIndex(cfg.RAG.EmbedDimension)
	if err != nil {
		log.Fatal().Err(err).Msg("vector index setup failed")
	}
	warmSvc := &services.DocumentService{DB: db, Index: idx}
	if n, err := warmSvc.WarmIndex(ctx); err != nil {
		log.Warn().Err(err).Msg("index warm start incomplete")
	} else {
		log.Info().Int("chunks", n).Msg("vector index warmed")
	}

	// HTTP.
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	if err := httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:            db,
		Index:         idx,
		Embedder:      embedder,
		ChatGen:       chatGen,
		AnalysisGen:   analysisGen,
		AnalysisModel: cfg.Gemini.AnalysisModel,
	}, cfg); err != nil {
		log.Fatal().Err(err).Msg("route registration failed")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
