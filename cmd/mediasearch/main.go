package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/config"
	dbRedis "github.com/kailas-cloud/mediasearch/internal/db/redis"
	"github.com/kailas-cloud/mediasearch/internal/domain/access"
	"github.com/kailas-cloud/mediasearch/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/mediasearch/internal/logger"
	"github.com/kailas-cloud/mediasearch/internal/metrics"
	"github.com/kailas-cloud/mediasearch/internal/repository/eventlog"
	vocabrepo "github.com/kailas-cloud/mediasearch/internal/repository/vocabulary"
	"github.com/kailas-cloud/mediasearch/internal/task"
	chiTransport "github.com/kailas-cloud/mediasearch/internal/transport/chi"
	analyticsuc "github.com/kailas-cloud/mediasearch/internal/usecase/analytics"
	healthuc "github.com/kailas-cloud/mediasearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/mediasearch/internal/usecase/search"
	"github.com/kailas-cloud/mediasearch/internal/usecase/session"
	suggestuc "github.com/kailas-cloud/mediasearch/internal/usecase/suggest"
	"github.com/kailas-cloud/mediasearch/internal/version"
)

//nolint:gocyclo,funlen // composition root
func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mediasearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	ctx := context.Background()

	docs, err := loadSeed(cfg.Catalog.SeedFile)
	if err != nil {
		logger.Fatal("Failed to load catalog seed", zap.Error(err))
	}

	// Redis and Valkey share the rueidis store
	var store *dbRedis.Store
	if cfg.Database.UsesRedis() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		if err := store.CheckSearchModule(ctx); err != nil {
			logger.Fatal("Database has no search module", zap.Error(err))
		}
		logger.Info("Connected to database")
	}

	cat, closeCatalog, err := buildCatalog(ctx, cfg, store, docs, logger)
	if err != nil {
		logger.Fatal("Failed to build catalog", zap.Error(err))
	}
	defer closeCatalog()
	logger.Info("Catalog ready", zap.Int("seed_documents", len(docs)))

	// Vocabulary: counters persist in Redis when available, otherwise the event log is replayed below.
	vocab := suggestuc.NewVocabulary(logger)
	if store != nil {
		vocab.WithStore(ctx, vocabrepo.New(store, cfg.Catalog.KeyPrefix))
	}
	bootstrapped, err := vocab.Bootstrap(ctx, cat)
	if err != nil {
		logger.Fatal("Failed to bootstrap vocabulary", zap.Error(err))
	}
	logger.Info("Vocabulary bootstrapped",
		zap.Int("documents", bootstrapped),
		zap.Int("entries", vocab.Len()),
	)

	eventLog, err := eventlog.Open(cfg.Analytics.EventLogPath, logger)
	if err != nil {
		logger.Fatal("Failed to open event log", zap.Error(err))
	}
	defer func() { _ = eventLog.Close() }()

	recorder, err := analyticsuc.New(eventLog, vocab, analyticsuc.Config{
		Workers:      cfg.Analytics.Workers,
		WriteTimeout: cfg.Analytics.WriteTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create analytics recorder", zap.Error(err))
	}

	if store == nil {
		replayed, err := recorder.Replay(ctx, eventLog)
		if err != nil {
			logger.Fatal("Failed to replay event log", zap.Error(err))
		}
		logger.Info("Event log replayed", zap.Int("records", replayed))
	}

	limits := request.Limits{
		DefaultLimit: cfg.Search.DefaultPageSize,
		MaxLimit:     cfg.Search.MaxPageSize,
	}

	// Create use case services
	engine := suggestuc.NewEngine(vocab, suggestuc.Config{
		SimilarityWeight: cfg.Suggest.SimilarityWeight,
		UsageWeight:      cfg.Suggest.UsageWeight,
		RecencyWeight:    cfg.Suggest.RecencyWeight,
		HalfLife:         cfg.Suggest.HalfLife,
		DefaultLimit:     cfg.Suggest.DefaultLimit,
		MaxLimit:         cfg.Suggest.MaxLimit,
	})

	w := cfg.Search.Weights
	searchSvc := searchuc.New(cat, searchuc.Config{
		MinQueryLength: cfg.Search.MinQueryLength,
		MaxQueryLength: cfg.Search.MaxQueryLength,
		Limits:         limits,
		Weights: searchuc.Weights{
			Title:        w.Title,
			Description:  w.Description,
			Tags:         w.Tags,
			MachineModel: w.MachineModel,
			ProcessType:  w.ProcessType,
		},
		RelevanceFloor:    cfg.Search.RelevanceFloor,
		FacetLimit:        cfg.Search.FacetLimit,
		StoreTimeout:      cfg.Search.StoreTimeout,
		RetryBackoff:      cfg.Search.RetryBackoff,
		InlineSuggestions: cfg.Suggest.InlineLimit,
	}, logger).WithSuggester(engine).WithRecorder(recorder)

	healthSvc := healthuc.New(cat, vocab)

	// Background jobs
	scheduler := task.NewScheduler(logger)
	if cfg.Suggest.RefreshSchedule != "" {
		if err := scheduler.Add(cfg.Suggest.RefreshSchedule, suggestuc.NewRefresher(vocab, cat, 0, logger)); err != nil {
			logger.Fatal("Invalid refresh schedule", zap.Error(err))
		}
	}
	scheduler.Start()

	server := chiTransport.NewServer(searchSvc, engine, recorder, healthSvc, session.Config{
		Debounce: cfg.Session.Debounce,
		Limits:   limits,
	}, logger).WithMaxQueryLength(cfg.Search.MaxQueryLength)

	var limiter *chiTransport.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = chiTransport.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(apiKeys(cfg.Auth.APIKeys)))
	r.Use(chiTransport.RateLimitMiddleware(limiter))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	timeout := time.Duration(cfg.HTTP.ShutdownSec) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler did not stop in time", zap.Error(err))
	}
	if err := recorder.Close(timeout); err != nil {
		logger.Warn("Analytics recorder did not drain", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// apiKeys maps configured keys to principals.
func apiKeys(keys []config.APIKey) []chiTransport.APIKey {
	out := make([]chiTransport.APIKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, chiTransport.APIKey{
			Key: k.Key,
			Principal: access.Principal{
				ID:   k.Name,
				Role: access.Role(k.Role),
			},
		})
	}
	return out
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
