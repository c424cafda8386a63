package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"golang.org/x/time/rate"

	"github.com/pmsignal/hub/internal/api/handlers"
	"github.com/pmsignal/hub/internal/api/middleware"
	"github.com/pmsignal/hub/internal/clustering"
	"github.com/pmsignal/hub/internal/config"
	"github.com/pmsignal/hub/internal/googleai"
	"github.com/pmsignal/hub/internal/groq"
	"github.com/pmsignal/hub/internal/keypool"
	"github.com/pmsignal/hub/internal/naming"
	"github.com/pmsignal/hub/internal/observability"
	"github.com/pmsignal/hub/internal/repository"
	"github.com/pmsignal/hub/internal/service"
	"github.com/pmsignal/hub/pkg/cache"
	"github.com/pmsignal/hub/pkg/database"
)

const (
	queryEmbeddingCacheSize = 256

	// maxRequestBodyBytes bounds one request body (a multipart upload may
	// carry several files, each capped separately by the ingest service).
	maxRequestBodyBytes = 64 << 20
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Configure slog with the log level from config
	setupLogging(cfg.LogLevel)

	// Metrics: Prometheus exporter, scraped from /metrics on the public mux
	meterProvider, metricsHandler, metrics, err := observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
	if err != nil {
		slog.Error("Failed to create meter provider", "error", err)
		os.Exit(1)
	}

	// Initialize database connection; halfvec columns need pgvector types on every connection
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithMaxConns(int32(cfg.DatabaseMaxConns)),
		database.WithAfterConnect(func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Credential pools for both providers
	pool := keypool.New()
	pool.Register("groq", cfg.GroqKeys)
	pool.Register("gemini", cfg.GeminiKeys)
	slog.Info("Credential pools registered",
		"groq_keys", len(cfg.GroqKeys),
		"gemini_keys", len(cfg.GeminiKeys),
	)

	// Provider clients
	groqClient := groq.NewClient()
	geminiClient := googleai.NewClient()

	// Repositories and services
	recordsRepo := repository.NewFeedbackRecordsRepository(db)

	embeddingLimiter := rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1)
	embeddingService := service.NewEmbeddingService(pool, geminiClient, "gemini", embeddingLimiter, metrics)

	ingestService := service.NewIngestService(recordsRepo, embeddingService)

	engine := clustering.NewEngine(recordsRepo, clustering.DefaultOptions())
	namer := naming.NewNamer(pool, groqClient, "groq")
	insightsService := service.NewInsightsService(engine, namer)

	queryCache, err := cache.NewLoaderCache[string, []float32](queryEmbeddingCacheSize, func(q string) string { return q })
	if err != nil {
		slog.Error("Failed to create query embedding cache", "error", err)
		os.Exit(1)
	}

	answerService := service.NewAnswerService(service.AnswerServiceParams{
		Repo:       recordsRepo,
		Embedder:   embeddingService,
		Pool:       pool,
		Generator:  groqClient,
		Provider:   "groq",
		QueryCache: queryCache,
		QueryCap:   cfg.QueryCap,
	})

	// Handlers
	healthHandler := handlers.NewHealthHandler(pool)
	ingestHandler := handlers.NewIngestHandler(ingestService)
	queryHandler := handlers.NewQueryHandler(answerService)
	insightsHandler := handlers.NewInsightsHandler(insightsService)
	sessionsHandler := handlers.NewSessionsHandler(recordsRepo, answerService)

	// Set up public endpoints (no authentication required)
	publicMux := http.NewServeMux()
	publicMux.HandleFunc("GET /health", healthHandler.Check)
	publicMux.Handle("GET /metrics", metricsHandler)

	// Set up protected endpoints (authentication required)
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /v1/ingest", ingestHandler.Ingest)
	protectedMux.HandleFunc("POST /v1/query", queryHandler.Query)
	protectedMux.HandleFunc("POST /v1/insights", insightsHandler.Insights)
	protectedMux.HandleFunc("DELETE /v1/sessions/{id}", sessionsHandler.Delete)

	// Apply middleware to protected endpoints
	// Order matters: CORS must wrap Auth so OPTIONS preflight requests bypass authentication
	var protectedHandler http.Handler = protectedMux
	protectedHandler = middleware.Auth(cfg.APIKey)(protectedHandler)
	// The per-file cap lives in the ingest service; this bounds the whole
	// multipart body so one request cannot buffer unbounded data.
	protectedHandler = middleware.MaxBody(maxRequestBodyBytes)(protectedHandler)
	protectedHandler = middleware.CORS(protectedHandler)

	// Combine both handlers
	mainMux := http.NewServeMux()
	mainMux.Handle("/v1/", protectedHandler)
	mainMux.Handle("/", publicMux) // Catch-all for public routes (/health, etc.)

	// Apply request ID, logging, and metrics to all requests. Metrics sits
	// outermost so the recorded duration covers the full request.
	handler := middleware.Metrics(metrics)(middleware.RequestID(middleware.Logging(mainMux)))

	// Create HTTP server. Write timeout is generous: ingest embeds every chunk
	// and insights runs a full clustering-and-naming pass before responding.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		slog.Error("Meter provider shutdown failed", "error", err)
	}

	slog.Info("Server exited")
}

// setupLogging configures slog with the specified log level
func setupLogging(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
