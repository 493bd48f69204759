package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pq-sarfi/internal/config"
	httpapi "pq-sarfi/internal/http"
	feedmqtt "pq-sarfi/internal/mqtt"
	"pq-sarfi/internal/repository"
	"pq-sarfi/internal/service"
	"pq-sarfi/internal/upstream"
	"pq-sarfi/pkg/database"
	"pq-sarfi/pkg/logger"
	pkgmqtt "pq-sarfi/pkg/mqtt"
	pkgredis "pq-sarfi/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "pq-sarfi")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres is the system of record; fall back to in-memory repos when it
	// is unreachable so local development still works end to end.
	var (
		db            *sql.DB
		standardsRepo repository.StandardsRepository
		profilesRepo  repository.ProfilesRepository
		eventsRepo    repository.EventsRepository
		metersRepo    repository.MetersRepository
	)
	if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
		db = d
		standardsRepo = repository.NewPostgresStandardsRepository(db, log)
		profilesRepo = repository.NewPostgresProfilesRepository(db, log)
		eventsRepo = repository.NewPostgresEventsRepository(db, log)
		metersRepo = repository.NewPostgresMetersRepository(db, log)
		log.Info("Connected to Postgres")
	} else {
		log.Warn("Postgres unavailable, using in-memory repositories", zap.Error(err))
		standardsRepo = repository.NewMemoryStandardsRepo()
		profilesRepo = repository.NewMemoryProfilesRepo()
		eventsRepo = repository.NewMemoryEventsRepo()
		metersRepo = repository.NewMemoryMetersRepo()
	}

	var kv service.KVStore
	redisClient := pkgredis.NewRedisClient(&cfg.Redis)
	if cfg.Cache.Enabled {
		if err := pkgredis.Ping(context.Background(), redisClient); err != nil {
			log.Warn("Redis unavailable, snapshot cache disabled", zap.Error(err))
		} else {
			kv = service.NewRedisKVStore(redisClient)
			log.Info("Snapshot cache enabled")
		}
	}

	benchmarkSvc := service.NewBenchmarkService(standardsRepo, log)
	profileSvc := service.NewProfileService(profilesRepo, log)
	sarfiSvc := service.NewSARFIService(standardsRepo, profilesRepo, eventsRepo, metersRepo, kv, log)

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterBenchmarkRoutes(httpapi.NewBenchmarkHandler(benchmarkSvc, log))
	router.RegisterProfileRoutes(httpapi.NewProfileHandler(profileSvc, log))
	router.RegisterSARFIRoutes(httpapi.NewSARFIHandler(sarfiSvc, log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Meter registry sync (polling)
	if cfg.Sync.Mode == "polling" && cfg.Upstream.BaseURL != "" {
		registry := upstream.NewRegistryClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, log)
		interval := time.Duration(cfg.Sync.Polling.Interval) * time.Second
		sync := service.NewRegistrySyncService(registry, metersRepo, interval, log)
		go func() {
			if err := sync.Start(ctx); err != nil {
				log.Error("Registry sync stopped", zap.Error(err))
			}
		}()
	}

	// Live event feed over MQTT
	var mqttClient *pkgmqtt.Client
	if cfg.Feed.Enabled {
		if c, err := pkgmqtt.NewClient(&cfg.MQTT); err == nil {
			mqttClient = c
			feed := feedmqtt.NewEventFeed(c, eventsRepo, cfg.Feed.Topic, log)
			if err := feed.Start(ctx); err != nil {
				log.Error("Failed to start event feed", zap.Error(err))
			}
		} else {
			log.Warn("MQTT broker unavailable, event feed disabled", zap.Error(err))
		}
	}

	srv := service.NewServer(cfg.HTTP.ListenAddr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = pkgredis.Close(redisClient)
	if db != nil {
		_ = database.Close(db)
	}
}
