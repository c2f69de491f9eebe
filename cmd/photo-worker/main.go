package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/birdwatch/birdwatch-api/internal/config"
	"github.com/birdwatch/birdwatch-api/internal/domain/photo"
	"github.com/birdwatch/birdwatch-api/internal/pkg/database"
	"github.com/birdwatch/birdwatch-api/internal/pkg/imaging"
	"github.com/birdwatch/birdwatch-api/internal/pkg/logger"
	"github.com/birdwatch/birdwatch-api/internal/pkg/realtime"
	"github.com/birdwatch/birdwatch-api/internal/pkg/storage"
)

const pollInterval = 5 * time.Second

var workerPool = database.PoolConfig{
	MaxOpenConns:    5,
	MaxIdleConns:    2,
	ConnMaxLifetime: 5 * time.Minute,
	ConnMaxIdleTime: time.Minute,
}

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
		Service:     "photo-worker",
	})

	concurrency := config.WorkerConcurrency()
	log.Info().Int("concurrency", concurrency).Msg("Starting photo-worker")

	db, err := database.NewPostgres(cfg.DatabaseURL, workerPool)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	st, err := storage.New(storage.Config{
		Driver:      cfg.StorageDriver,
		S3Endpoint:  cfg.S3Endpoint,
		S3Region:    cfg.S3Region,
		S3Bucket:    cfg.S3Bucket,
		S3AccessKey: cfg.S3AccessKey,
		S3SecretKey: cfg.S3SecretKey,
		S3PublicURL: cfg.S3PublicURL,
		LocalPath:   cfg.LocalStoragePath,
		LocalURL:    cfg.LocalStorageURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage")
	}

	// Events published here reach API instances through Redis.
	hub := realtime.NewHub(rdb)
	defer hub.Shutdown()

	processor := photo.NewProcessor(
		photo.NewRepository(db),
		photo.NewOutbox(db),
		st,
		imaging.NewProcessor(imaging.DefaultConfig()),
		hub,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Polling still runs when Redis wake-ups are lost.
	wake := make(chan struct{}, 1)
	go photo.SubscribeUploads(ctx, rdb, wake)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processor.Run(ctx, pollInterval, wake)
		}()
	}
	wg.Wait()

	log.Info().Msg("photo-worker stopped")
}
