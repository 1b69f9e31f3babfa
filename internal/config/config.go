package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	EventStore EventStoreConfig
	Schedule   ScheduleConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Assistant  AssistantConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// AllowedOrigins are the browser origins the dashboard frontend is served from.
	AllowedOrigins []string
}

// EventStoreConfig points at the backend that owns event persistence.
type EventStoreConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type ScheduleConfig struct {
	Location *time.Location
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	EventChanges      string
	AssistantLaunches string
}

type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type AuthConfig struct {
	OIDCIssuer      string
	ClientID        string
	AllowUnverified bool
	SessionTTL      time.Duration
}

type AssistantConfig struct {
	BotName       string
	LaunchTTL     time.Duration
	LaunchWindow  time.Duration
	CheckInterval time.Duration
	WatchUsers    []string
}

type LoggingConfig struct {
	Dir   string
	Debug bool
}

func Load() (*Config, error) {
	tzName := getEnv("TIMEZONE", "Local")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", ":8084"),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		EventStore: EventStoreConfig{
			BaseURL: strings.TrimRight(getEnv("EVENT_STORE_URL", "http://localhost:8000/api"), "/"),
			Token:   getEnv("EVENT_STORE_TOKEN", ""),
			Timeout: getEnvDuration("EVENT_STORE_TIMEOUT", 10*time.Second),
		},
		Schedule: ScheduleConfig{
			Location: loc,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID: getEnv("KAFKA_GROUP_ID", "meeting-scheduler-group"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				EventChanges:      getEnv("KAFKA_TOPIC_EVENT_CHANGES", "meetings.events.changed"),
				AssistantLaunches: getEnv("KAFKA_TOPIC_ASSISTANT_LAUNCHES", "meetings.assistant.launched"),
			},
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "sqlite"),
			DSN:          getEnv("DB_DSN", "file:meetings.db?cache=shared"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Auth: AuthConfig{
			OIDCIssuer:      getEnv("OIDC_ISSUER", ""),
			ClientID:        getEnv("OIDC_CLIENT_ID", ""),
			AllowUnverified: getEnvBool("AUTH_ALLOW_UNVERIFIED", false),
			SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		},
		Assistant: AssistantConfig{
			BotName:       getEnv("ASSISTANT_BOT_NAME", "Dialogon Assistant"),
			LaunchTTL:     time.Duration(getEnvInt("ASSISTANT_LAUNCH_TTL_MINUTES", 10)) * time.Minute,
			LaunchWindow:  getEnvDuration("ASSISTANT_LAUNCH_WINDOW", 2*time.Minute),
			CheckInterval: getEnvDuration("ASSISTANT_CHECK_INTERVAL", 30*time.Second),
			WatchUsers:    getEnvList("WATCH_USERS", nil),
		},
		Logging: LoggingConfig{
			Dir:   getEnv("LOG_DIR", "logs"),
			Debug: getEnvBool("LOG_DEBUG", false),
		},
	}

	if cfg.Auth.OIDCIssuer == "" && !cfg.Auth.AllowUnverified {
		return nil, fmt.Errorf("OIDC_ISSUER is required unless AUTH_ALLOW_UNVERIFIED=true")
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
