package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ms-meetings/internal/config"
	"ms-meetings/internal/database"
	"ms-meetings/internal/eventstore"
	"ms-meetings/internal/kafka"
	"ms-meetings/internal/launch"
	launchdb "ms-meetings/internal/launch/db"
	"ms-meetings/internal/logger"
	"ms-meetings/internal/scheduler"
	"ms-meetings/internal/session"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger("meeting-scheduler", cfg.Logging.Dir)
	defer log.Close()
	if cfg.Logging.Debug {
		log.SetLevel(logger.DEBUG)
	}
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := eventstore.NewClient(cfg.EventStore.BaseURL, cfg.EventStore.Token,
		&http.Client{Timeout: cfg.EventStore.Timeout}, log)

	var claims launch.Claims = launch.NewMemoryClaims(cfg.Assistant.LaunchTTL)
	if cfg.Redis.Enabled {
		redisClient, err := session.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
		}
		defer redisClient.Close()
		claims = launch.NewRedisClaims(redisClient, cfg.Assistant.LaunchTTL)
	} else {
		log.Warn("REDIS", "Redis disabled; launches are only deduplicated within this process")
	}

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()
	launchLog := &launchdb.DB{Bun: bunDB}
	if err := launchLog.CreateSchema(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to create launch log schema: %v", err))
	}

	var publisher launch.Publisher
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, kafka.Topics{
			EventChanges:      cfg.Kafka.Topics.EventChanges,
			AssistantLaunches: cfg.Kafka.Topics.AssistantLaunches,
		}, log)
		defer producer.Close()
		publisher = producer

		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.EventChanges, cfg.Kafka.GroupID, log)
		defer consumer.Close()
	}

	launcher := launch.NewService(store, claims, launchLog, publisher, cfg.Assistant.BotName, log)
	sched := scheduler.New(store, launcher, scheduler.Options{
		Location: cfg.Schedule.Location,
		Interval: cfg.Assistant.CheckInterval,
		Window:   cfg.Assistant.LaunchWindow,
		Users:    cfg.Assistant.WatchUsers,
	}, log)

	if consumer != nil {
		go consumer.Start(ctx, sched.HandleChange)
	}
	if len(sched.Users()) == 0 && consumer == nil {
		log.Warn("SCHEDULER", "No WATCH_USERS and Kafka disabled; nothing will be launched")
	}

	log.Info("APP", "🚀 Meeting scheduler running")
	if err := sched.Start(ctx); err != nil {
		log.Fatal("SCHEDULER", err.Error())
	}
	log.Info("APP", "✅ Meeting scheduler shutdown complete")
}
