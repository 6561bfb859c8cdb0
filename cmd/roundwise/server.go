package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/roundwise/roundwise/api/handlers"
	"github.com/roundwise/roundwise/config"
	"github.com/roundwise/roundwise/internal/metrics"
	"github.com/roundwise/roundwise/internal/progress"
	"github.com/roundwise/roundwise/internal/server"
	"github.com/roundwise/roundwise/internal/telemetry"
	"github.com/roundwise/roundwise/llm"
	"github.com/roundwise/roundwise/pipeline"
	"github.com/roundwise/roundwise/providers/openrouter"
	"github.com/roundwise/roundwise/store"
)

// Server assembles the deliberation pipeline behind an HTTP surface and
// manages the lifecycle of both the API and metrics listeners.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	otelProviders *telemetry.Providers
	collector     *metrics.Collector

	conversations store.Store
	tracker       progress.Tracker
	provider      *openrouter.Provider

	conversationHandler *handlers.ConversationHandler
	modelsHandler       *handlers.ModelsHandler
	healthHandler       *handlers.HealthHandler

	rateLimiterCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewServer creates an unstarted server around the given configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// Start wires all components and brings up the API and metrics listeners.
func (s *Server) Start() error {
	otelProviders, err := telemetry.Init(s.cfg.Telemetry, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	s.otelProviders = otelProviders

	s.collector = metrics.NewCollector("roundwise", prometheus.DefaultRegisterer, s.logger)

	if err := s.initPipeline(); err != nil {
		return fmt.Errorf("failed to init pipeline: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)

	return nil
}

// initPipeline builds the provider, gateway, stage functions, storage,
// progress tracker and coordinator, then the handlers on top of them.
func (s *Server) initPipeline() error {
	s.provider = openrouter.New(openrouter.Config{
		APIKey:  s.cfg.LLM.APIKey,
		BaseURL: s.cfg.LLM.BaseURL,
		Timeout: s.cfg.LLM.Timeout,
		Referer: s.cfg.LLM.Referer,
		Title:   s.cfg.LLM.Title,
	}, s.logger)

	gateway := llm.NewGateway(s.provider, llm.GatewayConfig{
		Timeout:        s.cfg.LLM.Timeout,
		MaxConcurrent:  s.cfg.LLM.MaxConcurrent,
		RequestsPerSec: s.cfg.LLM.RequestsPerSec,
		Burst:          s.cfg.LLM.Burst,
	}, s.collector, s.logger)

	stages := pipeline.NewStages(gateway, pipeline.StageConfig{
		GatekeeperModel:    s.cfg.Models.Gatekeeper,
		NotaryModel:        s.cfg.Models.Notary,
		DefaultExpertModel: s.cfg.Models.ExpertDefault,
		Temperature:        s.cfg.Models.Temperature,
		ScoringTemperature: s.cfg.Models.ScoringTemperature,
	}, s.collector, s.logger)

	conversations, err := s.openStore()
	if err != nil {
		return err
	}
	s.conversations = conversations

	tracker, err := s.openTracker()
	if err != nil {
		return err
	}
	s.tracker = tracker

	coordinator := pipeline.NewCoordinator(conversations, stages, tracker, s.logger)

	s.conversationHandler = handlers.NewConversationHandler(coordinator, conversations, tracker, s.logger)
	s.modelsHandler = handlers.NewModelsHandler(s.cfg.Models, s.logger)
	s.healthHandler = handlers.NewHealthHandler(s.provider, s.logger)

	return nil
}

// openStore picks the conversation store backend per configuration.
func (s *Server) openStore() (store.Store, error) {
	switch s.cfg.Store.Driver {
	case "memory":
		s.logger.Info("Using in-memory conversation store")
		return store.NewMemory(), nil
	case "sqlite", "":
		st, err := store.NewSQLite(s.cfg.Store.Path, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		s.logger.Info("Using sqlite conversation store", zap.String("path", s.cfg.Store.Path))
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", s.cfg.Store.Driver)
	}
}

// openTracker picks the progress tracker backend per configuration.
func (s *Server) openTracker() (progress.Tracker, error) {
	switch s.cfg.Progress.Backend {
	case "redis":
		tracker, err := progress.NewRedis(progress.RedisConfig{
			Addr:     s.cfg.Progress.Redis.Addr,
			Password: s.cfg.Progress.Redis.Password,
			DB:       s.cfg.Progress.Redis.DB,
			TTL:      s.cfg.Progress.Redis.TTL,
		}, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis tracker: %w", err)
		}
		s.logger.Info("Using redis progress tracker", zap.String("addr", s.cfg.Progress.Redis.Addr))
		return tracker, nil
	case "memory", "":
		s.logger.Info("Using in-memory progress tracker")
		return progress.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported progress backend: %s", s.cfg.Progress.Backend)
	}
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/api/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/version", handleVersion)

	s.conversationHandler.Register(mux)
	mux.HandleFunc("/api/config/models", s.modelsHandler.HandleModels)

	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		OTelTracing(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitPerSec, s.cfg.Server.RateLimitBurst, s.logger),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// handleVersion reports build metadata without the response envelope so
// that probes can match on plain text fields.
func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"version":%q,"build_time":%q,"git_commit":%q}`, Version, BuildTime, GitCommit)
}

// WaitForShutdown blocks until a termination signal arrives, then shuts
// everything down in order.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown closes the listeners and releases pipeline resources.
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	if closer, ok := s.conversations.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("Store close error", zap.Error(err))
		}
	}
	if closer, ok := s.tracker.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("Tracker close error", zap.Error(err))
		}
	}

	if s.otelProviders != nil {
		if err := s.otelProviders.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
