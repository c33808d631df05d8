// Command dsearchd runs the local desktop search daemon: it registers
// directories, ingests their files into a hybrid lexical/semantic index,
// and answers search queries over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dsearch/dsearchd/internal/api"
	"github.com/dsearch/dsearchd/internal/auth"
	"github.com/dsearch/dsearchd/internal/chunker"
	"github.com/dsearch/dsearchd/internal/chunkstore"
	"github.com/dsearch/dsearchd/internal/config"
	"github.com/dsearch/dsearchd/internal/embedding"
	"github.com/dsearch/dsearchd/internal/extractor"
	"github.com/dsearch/dsearchd/internal/ingest"
	"github.com/dsearch/dsearchd/internal/ledger"
	"github.com/dsearch/dsearchd/internal/lexindex"
	"github.com/dsearch/dsearchd/internal/middleware"
	"github.com/dsearch/dsearchd/internal/observability"
	"github.com/dsearch/dsearchd/internal/observability/audit"
	"github.com/dsearch/dsearchd/internal/ratelimit"
	"github.com/dsearch/dsearchd/internal/registry"
	secauth "github.com/dsearch/dsearchd/internal/security/auth"
	"github.com/dsearch/dsearchd/internal/scheduler"
	"github.com/dsearch/dsearchd/internal/search"
	"github.com/dsearch/dsearchd/internal/walker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		Output:        os.Stdout,
		AddSource:     true,
		SentryEnabled: cfg.Observability.Sentry.Enabled,
	})

	logger.Info("dsearchd starting",
		"version", api.Version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"metrics_enabled", cfg.Observability.Metrics.Enabled,
		"tracing_enabled", cfg.Observability.Tracing.Enabled,
	)

	var metrics *observability.MetricsCollector
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.NewMetricsCollector("dsearchd")
		go startMetricsServer(cfg.Observability.Metrics, logger)
	}

	if cfg.Observability.Tracing.Enabled {
		tracerProvider, err := observability.NewTracerProvider(observability.TracerConfig{
			ServiceName:    "dsearchd",
			ServiceVersion: api.Version,
			Environment:    "development",
			OTLPEndpoint:   cfg.Observability.Tracing.Endpoint,
			SamplingRate:   cfg.Observability.Tracing.SampleRate,
			Enabled:        true,
		})
		if err != nil {
			logger.Error("failed to initialize tracing provider", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shut down tracer provider", "error", err)
			}
		}()
	}

	if cfg.Observability.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Observability.Sentry.DSN,
			Environment:      cfg.Observability.Sentry.Environment,
			Release:          cfg.Observability.Sentry.Release,
			TracesSampleRate: cfg.Observability.Sentry.SampleRate,
			EnableTracing:    true,
		}); err != nil {
			logger.Error("failed to initialize sentry", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	chunks, err := chunkstore.Open(ctx, cfg.Database.ChunkStorePath)
	if err != nil {
		logger.Error("failed to open chunk store", "error", err)
		os.Exit(1)
	}
	defer chunks.Close()

	led, err := ledger.Open(ctx, cfg.Database.LedgerPath)
	if err != nil {
		logger.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}
	defer led.Close()

	reg, err := registry.Open(ctx, cfg.Database.RegistryPath)
	if err != nil {
		logger.Error("failed to open directory registry", "error", err)
		os.Exit(1)
	}
	defer reg.Close()

	authStore, err := auth.Open(ctx, cfg.Database.AuthPath)
	if err != nil {
		logger.Error("failed to open auth store", "error", err)
		os.Exit(1)
	}
	defer authStore.Close()

	lex, err := lexindex.Load(ctx, cfg.Database.LexIndexPath)
	if err != nil {
		logger.Warn("no lexical index snapshot to load, starting empty", "path", cfg.Database.LexIndexPath, "error", err)
		lex = lexindex.New()
	}

	provider, err := embedding.Get(cfg.Embedding.Provider)
	if err != nil {
		logger.Error("failed to resolve embedding provider", "provider", cfg.Embedding.Provider, "error", err)
		os.Exit(1)
	}
	providerConfig := make(map[string]interface{}, len(cfg.Embedding.Config)+2)
	for k, v := range cfg.Embedding.Config {
		providerConfig[k] = v
	}
	providerConfig["model"] = cfg.Embedding.Model
	providerConfig["dimensions"] = cfg.Embedding.Dimensions
	embedder, err := provider.Create(providerConfig)
	if err != nil {
		logger.Error("failed to create embedder", "provider", cfg.Embedding.Provider, "error", err)
		os.Exit(1)
	}
	logger.Info("embedder initialized", "provider", cfg.Embedding.Provider, "model", embedder.Model(), "dimensions", embedder.Dimensions())

	auditLogger, err := audit.NewLogger(audit.Config{
		Enabled: cfg.Observability.Audit.Enabled,
		Outputs: []audit.OutputConfig{
			{Type: audit.OutputTypeFile, FilePath: cfg.Observability.Audit.FilePath, Format: "json"},
		},
		ServiceName:    "dsearchd",
		ServiceVersion: api.Version,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize audit logger", "error", err)
		os.Exit(1)
	}
	defer auditLogger.Close()

	var jwt *secauth.JWTManager
	if cfg.Auth.JWTEnabled {
		jwt, err = secauth.NewJWTManager(cfg.Auth.PrivateKey, cfg.Auth.PublicKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenExpiry)
		if err != nil {
			logger.Error("failed to initialize jwt manager", "error", err)
			os.Exit(1)
		}
		logger.Info("jwt token exchange enabled", "issuer", cfg.Auth.Issuer, "audience", cfg.Auth.Audience)
	}

	pipeline := &ingest.Pipeline{
		Walker:       walker.New(cfg.Ingest.MaxFileSize),
		Extractors:   extractor.NewDefaultRegistry(cfg.Ingest.MaxFileSize, extractor.DefaultDenyList()),
		Chunker:      chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		Embedder:     embedder,
		Chunks:       chunks,
		Lex:          lex,
		Ledger:       led,
		Logger:       logger,
		SkipPatterns: cfg.Ingest.SkipPatterns,
		EmbedTimeout: time.Duration(cfg.Ingest.EmbedTimeoutSeconds) * time.Second,
		DegradedMode: cfg.Ingest.DegradedMode,
	}

	concurrency := cfg.Ingest.Concurrency
	if concurrency < 1 {
		concurrency = scheduler.DefaultConcurrency
	}
	sched := scheduler.New(concurrency, pipeline.Run)

	engine := search.New(chunks, lex, embedder)

	srv := api.New(cfg, time.Now())
	srv.Registry = reg
	srv.Scheduler = sched
	srv.Search = engine
	srv.AuthStore = authStore
	srv.JWT = jwt
	srv.Chunks = chunks
	srv.Ledger = led
	srv.Lex = lex
	srv.Embedder = embedder
	srv.Logger = logger
	srv.Metrics = metrics
	srv.Audit = auditLogger

	rateLimitRules := ratelimit.Config{
		Enabled:   cfg.RateLimit.Enabled,
		Algorithm: ratelimit.Algorithm(cfg.RateLimit.Algorithm),
		Redis: ratelimit.RedisConfig{
			Enabled:   cfg.RateLimit.Redis.Enabled,
			Addr:      cfg.RateLimit.Redis.Addr,
			Password:  cfg.RateLimit.Redis.Password,
			DB:        cfg.RateLimit.Redis.DB,
			KeyPrefix: cfg.RateLimit.Redis.KeyPrefix,
		},
		Global:          ratelimit.LimitConfig(cfg.RateLimit.Global),
		Search:          ratelimit.LimitConfig(cfg.RateLimit.Search),
		Index:           ratelimit.LimitConfig(cfg.RateLimit.Index),
		BurstMultiplier: cfg.RateLimit.BurstMultiplier,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
	}
	rateLimiter, err := ratelimit.New(rateLimitRules)
	if err != nil {
		logger.Error("failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}

	var handler http.Handler = srv.Routes()
	if cfg.RateLimit.Enabled {
		rlm := middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Limiter:          rateLimiter,
			Rules:            rateLimitRules,
			MetricsCollector: metrics,
			SkipPaths:        cfg.RateLimit.SkipPaths,
			TrustedProxies:   cfg.RateLimit.TrustedProxies,
		}, logger)
		handler = rlm.Middleware(handler)
	}
	handler = middleware.NewCORSMiddleware(middleware.CORSConfig(cfg.CORS), logger).Middleware(handler)
	handler = middleware.NewSecurityMiddleware(middleware.SecurityConfig{
		CSP:                 middleware.CSPConfig(cfg.Security.CSP),
		HSTS:                middleware.HSTSConfig(cfg.Security.HSTS),
		XFrameOptions:       cfg.Security.XFrameOptions,
		XContentTypeOptions: cfg.Security.XContentTypeOptions,
		ReferrerPolicy:      cfg.Security.ReferrerPolicy,
	}, logger).Middleware(handler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server forced to shut down", "error", err)
	}

	if err := lex.Save(shutdownCtx, cfg.Database.LexIndexPath); err != nil {
		logger.Error("failed to save lexical index snapshot", "error", err)
	}
}

// startMetricsServer runs the Prometheus metrics endpoint on its own port,
// separate from the main API server.
func startMetricsServer(cfg config.MetricsConfig, logger *observability.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"healthy","component":"metrics"}`)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}
	logger.Info("metrics server starting", "addr", addr, "path", cfg.Path)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "error", err)
	}
}
