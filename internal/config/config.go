package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver   string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		LogSQL   bool
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	Admin struct {
		IDs       []int64
		TokenHash string
	}

	Session struct {
		TTL time.Duration
	}

	Moderation struct {
		RetentionDays int
	}
}

// FileConfig is the optional YAML layer named by CONFIG_FILE.
// Values found there act as defaults; environment variables still win.
type FileConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"logLevel"`
	DB       struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"db"`
	RedisAddr string  `yaml:"redisAddr"`
	GRPCHost  string  `yaml:"grpcHost"`
	GRPCPort  string  `yaml:"grpcPort"`
	AdminIDs  []int64 `yaml:"adminIDs"`
}

func New() *Config {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	file, err := LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: ignoring %s: %v\n", os.Getenv("CONFIG_FILE"), err)
	}

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", orDefault(file.Env, "development"))

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", orDefault(file.LogLevel, "info"))
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "matchmaker")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", orDefault(file.DB.Driver, "mysql")))
	cfg.DB.LogSQL = isTruthy(os.Getenv("DB_LOG_SQL"))
	cfg.DB.DSN = getEnvDefault("DB_DSN", file.DB.DSN)
	if cfg.DB.DSN == "" {
		cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	}
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "matchmaker")
		cfg.DB.DSN = buildDSN(cfg)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", orDefault(file.RedisAddr, "localhost:6379"))
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", orDefault(file.GRPCHost, "127.0.0.1"))
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", orDefault(file.GRPCPort, "50051"))

	// Admin
	cfg.Admin.IDs = file.AdminIDs
	if raw := os.Getenv("ADMIN_IDS"); raw != "" {
		cfg.Admin.IDs = parseIDs(raw)
	}
	cfg.Admin.TokenHash = os.Getenv("ADMIN_TOKEN_HASH")

	// Dialogue sessions
	cfg.Session.TTL = 24 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Session.TTL = d
		}
	}

	cfg.Moderation.RetentionDays = 30
	if v := os.Getenv("MODERATION_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Moderation.RetentionDays = n
		}
	}

	return cfg
}

// LoadFile reads the YAML layer. An empty path yields a zero FileConfig.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return fc, nil
}

// IsAdmin reports whether the external id is listed in ADMIN_IDS.
func (c *Config) IsAdmin(externalID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == externalID {
			return true
		}
	}
	return false
}

func buildDSN(cfg *Config) string {
	switch cfg.DB.Driver {
	case "postgres":
		cfg.DB.Port = getEnvDefault("DB_PORT", "5432")
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
		)
	case "sqlite":
		return getEnvDefault("DB_PATH", cfg.DB.Name+".db")
	default:
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}
}

func parseIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
