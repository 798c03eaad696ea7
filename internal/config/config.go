package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr         string
	Port               string
	DatabaseDriver     string
	DatabasePath       string
	DatabaseDSN        string
	JWTSecret          string
	JWTIssuer          string
	JWTExpiration      time.Duration
	SessionSecret      string
	GinMode            string
	LogLevel           string
	LogFormat          string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// fileConfig 对应 CONFIG_FILE 指向的 YAML 文件，字段均可省略
type fileConfig struct {
	Port     string `yaml:"port"`
	Listen   string `yaml:"listen_addr"`
	Database struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	JWT struct {
		Secret     string `yaml:"secret"`
		Issuer     string `yaml:"issuer"`
		Expiration string `yaml:"expiration"`
	} `yaml:"jwt"`
	SessionSecret string `yaml:"session_secret"`
	GinMode       string `yaml:"gin_mode"`
	Log           struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	ShutdownTimeout    string   `yaml:"shutdown_timeout"`
}

const (
	DefaultJWTSecret = "habit-tracker-dev-secret"
	defaultIssuer    = "habit-tracker"
)

// Load 先读取 CONFIG_FILE（可选），再以环境变量覆盖，并为缺失项提供默认值。
func Load() (AppConfig, error) {
	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return AppConfig{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	port := firstNonEmpty(os.Getenv("PORT"), file.Port, "8080")
	listenAddr := firstNonEmpty(os.Getenv("LISTEN_ADDR"), file.Listen, fmt.Sprintf(":%s", port))

	driver := strings.ToLower(firstNonEmpty(os.Getenv("DATABASE_DRIVER"), file.Database.Driver, "sqlite"))
	if driver != "sqlite" && driver != "postgres" {
		return AppConfig{}, fmt.Errorf("unsupported database driver %q", driver)
	}

	ginMode := strings.ToLower(firstNonEmpty(os.Getenv("GIN_MODE"), file.GinMode, "release"))
	if ginMode != "debug" && ginMode != "release" && ginMode != "test" {
		return AppConfig{}, fmt.Errorf("unsupported gin mode %q", ginMode)
	}

	jwtExpiration, err := parseDuration(firstNonEmpty(os.Getenv("JWT_EXPIRATION"), file.JWT.Expiration), 24*time.Hour)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	shutdownTimeout, err := parseDuration(firstNonEmpty(os.Getenv("SHUTDOWN_TIMEOUT"), file.ShutdownTimeout), 10*time.Second)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	redisDB := file.Redis.DB
	if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
		redisDB, err = strconv.Atoi(raw)
		if err != nil {
			return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}

	origins := file.CORSAllowedOrigins
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		origins = splitList(raw)
	}

	return AppConfig{
		ListenAddr:         listenAddr,
		Port:               port,
		DatabaseDriver:     driver,
		DatabasePath:       firstNonEmpty(os.Getenv("DATABASE_PATH"), file.Database.Path, "habittracker.db"),
		DatabaseDSN:        firstNonEmpty(os.Getenv("DATABASE_DSN"), file.Database.DSN),
		JWTSecret:          firstNonEmpty(os.Getenv("JWT_SECRET"), file.JWT.Secret, DefaultJWTSecret),
		JWTIssuer:          firstNonEmpty(os.Getenv("JWT_ISSUER"), file.JWT.Issuer, defaultIssuer),
		JWTExpiration:      jwtExpiration,
		SessionSecret:      firstNonEmpty(os.Getenv("SESSION_SECRET"), file.SessionSecret, "habit-tracker-session-secret"),
		GinMode:            ginMode,
		LogLevel:           firstNonEmpty(os.Getenv("LOG_LEVEL"), file.Log.Level, "info"),
		LogFormat:          firstNonEmpty(os.Getenv("LOG_FORMAT"), file.Log.Format, "json"),
		RedisAddr:          firstNonEmpty(os.Getenv("REDIS_ADDR"), file.Redis.Addr),
		RedisPassword:      firstNonEmpty(os.Getenv("REDIS_PASSWORD"), file.Redis.Password),
		RedisDB:            redisDB,
		CORSAllowedOrigins: origins,
		ShutdownTimeout:    shutdownTimeout,
	}, nil
}

// DatabaseTarget 返回当前驱动对应的连接串
func (c AppConfig) DatabaseTarget() string {
	if c.DatabaseDriver == "postgres" {
		return c.DatabaseDSN
	}
	return c.DatabasePath
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
