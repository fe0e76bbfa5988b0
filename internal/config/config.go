package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Realtime RealtimeConfig `yaml:"realtime"`
	App      AppConfig      `yaml:"app"`
}

type ServerConfig struct {
	Port           int    `yaml:"port"`
	BasePath       string `yaml:"base_path"`
	Env            string `yaml:"env"`
	LogLevel       string `yaml:"log_level"`
	AllowedOrigins string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	SecretKey string `yaml:"secret_key"`
}

type RealtimeConfig struct {
	// LivenessWindow is how long a presence record counts as online after
	// its last update.
	LivenessWindow time.Duration `yaml:"liveness_window"`
	// RefreshDebounce is the quiet period coalescing bursts of post changes
	// into a single refetch.
	RefreshDebounce time.Duration `yaml:"refresh_debounce"`
	ActivityLogSize int           `yaml:"activity_log_size"`
}

type AppConfig struct {
	NotificationRetentionDays int    `yaml:"notification_retention_days"`
	CleanupSchedule           string `yaml:"cleanup_schedule"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           8002,
			BasePath:       "/api/collab",
			Env:            "dev",
			LogLevel:       "debug",
			AllowedOrigins: "*",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
			DB:   0,
		},
		Realtime: RealtimeConfig{
			LivenessWindow:  5 * time.Minute,
			RefreshDebounce: time.Second,
			ActivityLogSize: 20,
		},
		App: AppConfig{
			NotificationRetentionDays: 30,
			CleanupSchedule:           "0 3 * * *",
		},
	}

	// Load from yaml file if exists
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override with environment variables
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if basePath := os.Getenv("SERVER_BASE_PATH"); basePath != "" {
		cfg.Server.BasePath = basePath
	}
	if env := os.Getenv("ENV"); env != "" {
		cfg.Server.Env = env
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.Redis.Host = redisHost
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		if p, err := strconv.Atoi(redisPort); err == nil {
			cfg.Redis.Port = p
		}
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = origins
	}
	if secretKey := os.Getenv("SECRET_KEY"); secretKey != "" {
		cfg.Auth.SecretKey = secretKey
	}

	return cfg, nil
}
