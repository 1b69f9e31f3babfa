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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"ms-meetings/internal/auth"
	"ms-meetings/internal/config"
	"ms-meetings/internal/dashboard/dashboard_api"
	"ms-meetings/internal/database"
	"ms-meetings/internal/eventstore"
	"ms-meetings/internal/kafka"
	"ms-meetings/internal/launch"
	launchdb "ms-meetings/internal/launch/db"
	"ms-meetings/internal/logger"
	"ms-meetings/internal/qr"
	"ms-meetings/internal/schedule"
	"ms-meetings/internal/session"
)

func buildVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) auth.Verifier {
	if cfg.OIDCIssuer == "" {
		log.LogSecurity("unverified_login", "AUTH_ALLOW_UNVERIFIED is set; ID token signatures are NOT checked")
		return auth.UnverifiedVerifier{Logger: log}
	}
	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.ClientID)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Failed to set up OIDC verifier: %v", err))
	}
	log.Info("AUTH", fmt.Sprintf("Verifying ID tokens from %s", cfg.OIDCIssuer))
	return verifier
}

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger("dashboard", cfg.Logging.Dir)
	defer log.Close()
	if cfg.Logging.Debug {
		log.SetLevel(logger.DEBUG)
	}
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}

	log.Info("APP", "Starting Meeting Dashboard initialization")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := eventstore.NewClient(cfg.EventStore.BaseURL, cfg.EventStore.Token,
		&http.Client{Timeout: cfg.EventStore.Timeout}, log)
	log.Info("EVENTSTORE", fmt.Sprintf("Using event store at %s", cfg.EventStore.BaseURL))

	var sessionStore session.Store = session.NewMemoryStore()
	var claims launch.Claims = launch.NewMemoryClaims(cfg.Assistant.LaunchTTL)
	if cfg.Redis.Enabled {
		redisClient, err := session.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
		}
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient, "dashboard:")
		claims = launch.NewRedisClaims(redisClient, cfg.Assistant.LaunchTTL)
	} else {
		log.Warn("REDIS", "Redis disabled; sessions and launch claims are kept in memory")
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

	var launchPublisher launch.Publisher
	var changePublisher dashboard_api.ChangePublisher
	if cfg.Kafka.Enabled {
		topics := kafka.Topics{
			EventChanges:      cfg.Kafka.Topics.EventChanges,
			AssistantLaunches: cfg.Kafka.Topics.AssistantLaunches,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{topics.EventChanges, topics.AssistantLaunches}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, topics, log)
		defer producer.Close()
		launchPublisher = producer
		changePublisher = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")
	}

	launcher := launch.NewService(store, claims, launchLog, launchPublisher, cfg.Assistant.BotName, log)

	handler := &dashboard_api.Handler{
		Registry: dashboard_api.NewRegistry(store,
			schedule.WithLocation(cfg.Schedule.Location),
			schedule.WithLogger(log),
		),
		Verifier:  buildVerifier(ctx, cfg.Auth, log),
		Sessions:  auth.NewSessions(sessionStore, cfg.Auth.SessionTTL),
		Launcher:  launcher,
		QR:        qr.NewQRGenerator(qr.DefaultSize),
		Publisher: changePublisher,
		Logger:    log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(dashboard_api.RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler.RegisterRoutes(r)
	log.Info("ROUTER", "Dashboard routes registered under /api")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Meeting Dashboard running on %s (TZ: %s)", cfg.Server.Port, cfg.Schedule.Location))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Meeting Dashboard shutdown complete")
	}
}
