package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Dispatch DispatchConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type GatewayConfig struct {
	URL     string
	AuthKey string
	Timeout time.Duration
}

type DispatchConfig struct {
	WorkerCount      int
	PollInterval     time.Duration
	CampaignBatchMax int
	Retention        time.Duration
	OptOutFooter     string
}

type AuthConfig struct {
	APIKey          string
	SchedulerAPIKey string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "dispatch"),
			Password: GetEnv("DB_PASSWORD", "dispatch123"),
			DBName:   GetEnv("DB_NAME", "sms_dispatch"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			URL:     GetEnv("GATEWAY_URL", "https://gateway.example.com/v1/messages"),
			AuthKey: GetEnv("GATEWAY_AUTH_KEY", ""),
			Timeout: time.Duration(GetEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Dispatch: DispatchConfig{
			WorkerCount:      GetEnvAsInt("DISPATCH_WORKER_COUNT", 5),
			PollInterval:     GetEnvAsDuration("DISPATCH_POLL_INTERVAL", 500*time.Millisecond),
			CampaignBatchMax: GetEnvAsInt("DISPATCH_CAMPAIGN_BATCH_MAX", 10000),
			Retention:        GetEnvAsDuration("DISPATCH_JOB_RETENTION", 72*time.Hour),
			OptOutFooter:     GetEnv("DISPATCH_OPT_OUT_FOOTER", " Reply STOP to opt out"),
		},
		Auth: AuthConfig{
			APIKey:          GetEnv("API_KEY", ""),
			SchedulerAPIKey: GetEnv("SCHEDULER_API_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
