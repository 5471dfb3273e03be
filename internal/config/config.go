package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the core's application configuration, loaded once at startup
// from the environment (plus any .env file main.go chooses to load first).
type Config struct {
	Port string

	CronSecret string

	JWTSigningKey       string
	WidgetSessionTTL    time.Duration
	WidgetDefaultColor  string
	ProviderBWebhookKey string

	ProviderBBaseURL string
	ProviderCBaseURL string

	HubspotClientID     string
	HubspotClientSecret string
	HubspotTokenURL     string

	CalendarClientID     string
	CalendarClientSecret string
	CalendarTokenURL     string

	AnthropicAPIKey string
	AppBaseURL      string
	ActionsBaseURL  string

	Redis  RedisConfig
	Pubsub PubSubConfig
}

// RedisConfig connects internal/ratelimit's daily-budget state to a single
// Redis instance.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PubSubConfig configures the broadcast bus's Google Cloud Pub/Sub sink.
// ProjectID empty disables the sink in favor of broadcast.NoopSink.
type PubSubConfig struct {
	ProjectID string
	TopicID   string
}

// Load reads Config from the environment.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		CronSecret: getEnv("CRON_SECRET", ""),

		JWTSigningKey:       getEnv("WIDGET_JWT_SIGNING_KEY", ""),
		WidgetSessionTTL:    getEnvAsDuration("WIDGET_SESSION_TTL", 10*time.Minute),
		WidgetDefaultColor:  getEnv("WIDGET_DEFAULT_COLOR", "#0f172a"),
		ProviderBWebhookKey: getEnv("PROVIDER_B_WEBHOOK_SECRET", ""),

		ProviderBBaseURL: getEnv("PROVIDER_B_BASE_URL", ""),
		ProviderCBaseURL: getEnv("PROVIDER_C_BASE_URL", ""),

		HubspotClientID:     getEnv("CRM_B_CLIENT_ID", ""),
		HubspotClientSecret: getEnv("CRM_B_CLIENT_SECRET", ""),
		HubspotTokenURL:     getEnv("CRM_B_TOKEN_URL", "https://api.hubapi.com/oauth/v1/token"),

		CalendarClientID:     getEnv("CALENDAR_CLIENT_ID", ""),
		CalendarClientSecret: getEnv("CALENDAR_CLIENT_SECRET", ""),
		CalendarTokenURL:     getEnv("CALENDAR_TOKEN_URL", ""),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AppBaseURL:      getEnv("NEXT_PUBLIC_APP_URL", "http://localhost:3000"),
		ActionsBaseURL:  getEnv("ACTIONS_BASE_URL", ""),

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Pubsub: PubSubConfig{
			ProjectID: getEnv("PUBSUB_PROJECT_ID", ""),
			TopicID:   getEnv("PUBSUB_TOPIC_ID", "call-events"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
