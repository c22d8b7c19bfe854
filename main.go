package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"asset-studio-server/modules/asset"
	"asset-studio-server/modules/common/config"
	"asset-studio-server/modules/common/database"
	"asset-studio-server/modules/common/gemini"
	"asset-studio-server/modules/common/logger"
	"asset-studio-server/modules/common/progress"
	redisutil "asset-studio-server/modules/common/redis"
	"asset-studio-server/modules/generation"
	"asset-studio-server/modules/studio"
	"asset-studio-server/modules/worker"
)

var startTime = time.Now()

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request.
func requestLogger(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			next.ServeHTTP(w, r)
			log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(started)).Msg("request")
		})
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "asset-studio-server",
	})
}

// getMetrics - uptime, queue depth and live progress subscribers
func getMetrics(hub *progress.Hub, store *database.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topics, subscribers := hub.Stats()
		queued, err := store.QueueLength(r.Context())
		if err != nil {
			queued = -1
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"uptime":          time.Since(startTime).String(),
			"startTime":       startTime,
			"queuedJobs":      queued,
			"progressTopics":  topics,
			"progressClients": subscribers,
		})
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog := logger.New("production", "info")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := gemini.NewClient(ctx, cfg, logger.Module(log, "gemini"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create genai client")
	}
	gateway := gemini.NewGateway(client, gemini.Models{
		Describe:        cfg.DescribeModel,
		Selector:        cfg.SelectorModel,
		Image:           cfg.ImageModel,
		Video:           cfg.VideoModel,
		VideoResolution: cfg.VideoResolution,
	}, logger.Module(log, "gemini"))

	genLog := logger.Module(log, "generation")
	orchestrator := generation.NewOrchestrator(
		generation.NewDescriber(gateway, genLog),
		generation.NewSelector(gateway, cfg.MaxCategories, asset.ParseCategories(cfg.DefaultCategories), genLog),
		generation.NewImageGenerator(gateway, genLog),
		generation.NewVideoGenerator(gateway, cfg.VideoPollInterval, cfg.VideoMaxPollAttempts, genLog),
		cfg.GenerationConcurrency,
		genLog,
	)

	rdb, err := redisutil.Connect(ctx, cfg, logger.Module(log, "redis"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	store := database.NewClient(rdb, cfg.JobTTL, logger.Module(log, "jobs"))
	hub := progress.NewHub(logger.Module(log, "progress"))
	hub.SetSnapshot(worker.SnapshotFor(store))

	workerLog := logger.Module(log, "worker")
	queueWorker := worker.New(rdb, store, orchestrator, hub, worker.Options{
		Concurrency: cfg.WorkerConcurrency,
		CancelCheck: cfg.CancelCheckInterval,
		RunDeadline: cfg.AsyncGenerationDeadline,
	}, workerLog)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		queueWorker.Start(ctx)
	}()

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(enableCORS)
	r.Use(requestLogger(logger.Module(log, "http")))

	r.HandleFunc("/", healthCheck).Methods(http.MethodGet)
	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	r.HandleFunc("/metrics", getMetrics(hub, store)).Methods(http.MethodGet)
	r.HandleFunc("/ws", hub.ServeWS)

	studio.NewHandler(orchestrator, cfg.MaxUploadBytes, cfg.SyncGenerationTimeout, logger.Module(log, "studio")).RegisterRoutes(r)
	worker.NewEnqueueHandler(store, cfg.MaxUploadBytes, workerLog).RegisterRoutes(r)
	worker.NewStatusHandler(store, workerLog).RegisterRoutes(r)
	worker.NewCancelHandler(rdb, store, cfg.JobTTL, workerLog).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.Backend).Msg("asset studio server starting")
		if cfg.IsDevelopment() {
			log.Info().Msgf("progress websocket: ws://localhost:%s/ws?job=<job_id>", cfg.Port)
			log.Info().Msgf("health check: http://localhost:%s/health", cfg.Port)
			log.Info().Msgf("metrics: http://localhost:%s/metrics", cfg.Port)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	<-workerDone
}
