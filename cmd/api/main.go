// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/coachwell-ai/coaching-engine/internal/config"
	"github.com/coachwell-ai/coaching-engine/internal/engine"
	"github.com/coachwell-ai/coaching-engine/internal/escalation"
	"github.com/coachwell-ai/coaching-engine/internal/handler"
	"github.com/coachwell-ai/coaching-engine/internal/middleware"
	natsclient "github.com/coachwell-ai/coaching-engine/internal/nats"
	"github.com/coachwell-ai/coaching-engine/internal/prompt"
	"github.com/coachwell-ai/coaching-engine/internal/provider"
	"github.com/coachwell-ai/coaching-engine/internal/retrieval"
	"github.com/coachwell-ai/coaching-engine/internal/risk"
	"github.com/coachwell-ai/coaching-engine/internal/store"
	"github.com/coachwell-ai/coaching-engine/pkg/logger"
	"github.com/coachwell-ai/coaching-engine/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting coaching engine")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "coaching-engine", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Load the risk policy
	policy := config.DefaultRiskPolicy()
	if cfg.RiskPolicyFile != "" {
		policy, err = config.LoadRiskPolicy(cfg.RiskPolicyFile)
		if err != nil {
			log.Error("failed to load risk policy", zap.String("path", cfg.RiskPolicyFile), zap.Error(err))
			os.Exit(1)
		}
	}

	// Connect to NATS. The escalation hand-off has no acceptable
	// degradation, so a missing broker is fatal.
	nc, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer nc.Close()

	streamManager := natsclient.NewStreamManager(nc)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure escalation stream", zap.Error(err))
		os.Exit(1)
	}

	go reportStreamMetrics(ctx, streamManager, log)

	// Curriculum search, optionally cached in Redis
	var searcher retrieval.Searcher = retrieval.NewHTTPSearcher(cfg.CurriculumURL, cfg.CurriculumTimeout)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", zap.Error(err))
			os.Exit(1)
		}
		searcher = retrieval.NewCachedSearcher(searcher, redis.NewClient(opts), cfg.RedisCacheTTL)
	}

	// Vendor clients and router
	keys := provider.Keys{Anthropic: cfg.AnthropicAPIKey, OpenAI: cfg.OpenAIAPIKey}
	clients := make(map[string]provider.Client, len(cfg.ProviderOrder))
	specs := make([]provider.Spec, 0, len(cfg.ProviderOrder))
	for _, name := range cfg.ProviderOrder {
		client, err := provider.NewClient(name, "", keys)
		if err != nil {
			log.Error("failed to create provider client", zap.String("provider", name), zap.Error(err))
			os.Exit(1)
		}
		clients[name] = client
		specs = append(specs, provider.Spec{
			Name:       name,
			Timeout:    cfg.ProviderTimeout,
			MaxRetries: cfg.ProviderRetries,
			Backoff:    cfg.ProviderBackoff,
		})
	}

	router, err := provider.NewRouter(provider.Config{Providers: specs}, clients, log)
	if err != nil {
		log.Error("failed to build provider router", zap.Error(err))
		os.Exit(1)
	}
	log.Info("provider router ready",
		zap.Strings("order", cfg.ProviderOrder),
		zap.Duration("max_latency", router.MaxLatency()),
	)

	// Core components
	sessionStore := store.NewMemory(store.Limits{
		SummarizeMessages: cfg.SummarizeMessages,
		SummarizeTokens:   cfg.SummarizeTokens,
		KeepWindow:        cfg.HistoryWindow,
	})

	queue := escalation.NewQueue(streamManager, escalation.NewResourceDirectory(), policy.Thresholds.Urgent, log)

	eng := engine.New(engine.Options{
		Store:           sessionStore,
		Assessor:        risk.NewAssessor(policy),
		Assembler:       prompt.NewAssembler(retrieval.New(searcher), cfg.HistoryWindow, cfg.RetrievalLimit),
		Router:          router,
		Queue:           queue,
		Logger:          log,
		HistoryWindow:   cfg.HistoryWindow,
		MaxMessageBytes: cfg.MaxMessageBytes,
		Constraints:     provider.Constraints{MaxTokens: 1024, Temperature: 0.7},
	})

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(nc)
	chatHandler := handler.NewChatHandler(eng, log)
	sessionHandler := handler.NewSessionHandler(eng, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat", chatHandler.Chat)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/current", sessionHandler.Current)
			r.Post("/close", sessionHandler.Close)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// reportStreamMetrics refreshes escalation stream gauges once a minute.
func reportStreamMetrics(ctx context.Context, sm *natsclient.StreamManager, log *logger.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sm.ReportStreamMetrics(ctx); err != nil {
				log.Warn("failed to refresh stream metrics", zap.Error(err))
			}
		}
	}
}
