package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"anpr-pipeline/internal/config"
	"anpr-pipeline/internal/db"
	"anpr-pipeline/internal/detector"
	"anpr-pipeline/internal/logging"
	"anpr-pipeline/internal/metrics"
	"anpr-pipeline/internal/notify"
	"anpr-pipeline/internal/queue"
	"anpr-pipeline/internal/repository"
	"anpr-pipeline/internal/storage"
	"anpr-pipeline/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.Database.DSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	redisClient, err := queue.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}

	store, err := storage.New(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init storage")
	}

	m := metrics.New()
	go serveMetrics(cfg.Worker.MetricsAddr, m, log)

	uploads := repository.NewUploadRepository(gdb)
	events := repository.NewEventRepository(gdb)
	bolos := repository.NewBoloRepository(gdb)

	notifier := notify.NewWebhookNotifier(cfg.Notify.WebhookTimeout, log)
	matcher := worker.NewMatcher(bolos, notifier, log)
	source := detector.NewExecSource(cfg.Detector, log)

	processor := worker.NewProcessor(
		uploads,
		events,
		matcher,
		store,
		source,
		m,
		cfg.Storage,
		cfg.Worker,
		cfg.Detector.ConfidenceThreshold,
		log,
	)

	jobQueue := queue.New(redisClient, cfg.Redis.Queue, log)
	w := worker.New(jobQueue, processor, m, cfg.Worker, log)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("worker shut down")
}

func serveMetrics(addr string, m *metrics.Metrics, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
	}
}
