package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"anpr-pipeline/internal/config"
	"anpr-pipeline/internal/db"
	apihttp "anpr-pipeline/internal/http"
	"anpr-pipeline/internal/logging"
	"anpr-pipeline/internal/metrics"
	"anpr-pipeline/internal/queue"
	"anpr-pipeline/internal/repository"
	"anpr-pipeline/internal/service"
	"anpr-pipeline/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	gdb, err := db.Connect(cfg.Database.DSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	redisClient, err := queue.Connect(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}

	store, err := storage.New(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init storage")
	}

	jobQueue := queue.New(redisClient, cfg.Redis.Queue, log)
	svc := service.New(
		repository.NewUploadRepository(gdb),
		repository.NewEventRepository(gdb),
		repository.NewBoloRepository(gdb),
		store,
		jobQueue,
		cfg.Storage,
		log,
	)

	m := metrics.New()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.API.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	handler := apihttp.NewHandler(svc, log)
	handler.Register(r, apihttp.AuthMiddleware(cfg.Auth.JWTSecret))

	log.Info().Str("addr", cfg.API.Addr).Msg("api listening")
	if err := r.Run(cfg.API.Addr); err != nil {
		log.Fatal().Err(err).Msg("api server stopped")
	}
}
