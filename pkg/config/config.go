package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Seed sources.
const (
	SeedSourceFile     = "file"
	SeedSourcePostgres = "postgres"
)

// Session modes and stores.
const (
	SessionModeAddress = "address"
	SessionModeToken   = "token"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Env string

	Server   ServerConfig
	Client   ClientConfig
	Seed     SeedConfig
	Session  SessionConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Audit    AuditConfig
	Admin    AdminConfig
	Snapshot SnapshotConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int
}

type ClientConfig struct {
	Host         string
	Port         int
	Timeout      time.Duration
	MaxReplySize int
}

// SeedConfig selects where users and provider slots are loaded from at startup.
type SeedConfig struct {
	Source        string
	UsersFile     string
	ProvidersFile string
}

// SessionConfig governs how callers are authorized after login.
type SessionConfig struct {
	Mode   string
	Store  string
	Secret string
	TTL    time.Duration
	Issuer string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuditConfig toggles persistence of slot state transitions.
type AuditConfig struct {
	Enabled    bool
	Workers    int
	Retries    int
	BufferSize int
}

// AdminConfig exposes health, metrics and report endpoints over HTTP. An empty
// address disables the admin server. Without a Secret the admin API is
// read-only.
type AdminConfig struct {
	Addr           string
	AllowedOrigins []string
	Secret         string
	TokenTTL       time.Duration
}

// SnapshotConfig controls inventory snapshots written to disk. An empty Dir
// disables them.
type SnapshotConfig struct {
	Dir        string
	Format     string
	Retention  time.Duration
	OnShutdown bool
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	maxMessageSize := v.GetInt("MAX_MESSAGE_SIZE")
	if maxMessageSize <= 0 {
		maxMessageSize = 1024 * 1024
	}
	cfg.Server = ServerConfig{
		Host:           v.GetString("SERVER_HOST"),
		Port:           v.GetInt("SERVER_PORT"),
		ReadTimeout:    parseDuration(v.GetString("READ_TIMEOUT"), 30*time.Second),
		WriteTimeout:   parseDuration(v.GetString("WRITE_TIMEOUT"), 10*time.Second),
		MaxMessageSize: maxMessageSize,
	}

	cfg.Client = ClientConfig{
		Host:         v.GetString("CLIENT_HOST"),
		Port:         v.GetInt("CLIENT_PORT"),
		Timeout:      parseDuration(v.GetString("CLIENT_TIMEOUT"), 10*time.Second),
		MaxReplySize: v.GetInt("CLIENT_MAX_REPLY_SIZE"),
	}

	cfg.Seed = SeedConfig{
		Source:        strings.ToLower(v.GetString("SEED_SOURCE")),
		UsersFile:     v.GetString("USERS_FILE"),
		ProvidersFile: v.GetString("PROVIDERS_FILE"),
	}

	cfg.Session = SessionConfig{
		Mode:   strings.ToLower(v.GetString("SESSION_MODE")),
		Store:  strings.ToLower(v.GetString("SESSION_STORE")),
		Secret: v.GetString("SESSION_SECRET"),
		TTL:    parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		Issuer: v.GetString("SESSION_ISSUER"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Audit = AuditConfig{
		Enabled:    v.GetBool("AUDIT_ENABLED"),
		Workers:    v.GetInt("AUDIT_WORKERS"),
		Retries:    v.GetInt("AUDIT_RETRIES"),
		BufferSize: v.GetInt("AUDIT_BUFFER_SIZE"),
	}

	cfg.Admin = AdminConfig{
		Addr:           v.GetString("ADMIN_ADDR"),
		AllowedOrigins: splitAndTrim(v.GetString("ADMIN_CORS_ORIGINS")),
		Secret:         v.GetString("ADMIN_SECRET"),
		TokenTTL:       parseDuration(v.GetString("ADMIN_TOKEN_TTL"), time.Hour),
	}

	cfg.Snapshot = SnapshotConfig{
		Dir:        v.GetString("SNAPSHOT_DIR"),
		Format:     strings.ToLower(v.GetString("SNAPSHOT_FORMAT")),
		Retention:  parseDuration(v.GetString("SNAPSHOT_RETENTION"), 7*24*time.Hour),
		OnShutdown: v.GetBool("SNAPSHOT_ON_SHUTDOWN"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("SERVER_HOST", "")
	v.SetDefault("SERVER_PORT", 9998)
	v.SetDefault("READ_TIMEOUT", "30s")
	v.SetDefault("WRITE_TIMEOUT", "10s")
	v.SetDefault("MAX_MESSAGE_SIZE", 1024*1024)

	v.SetDefault("CLIENT_HOST", "localhost")
	v.SetDefault("CLIENT_PORT", 9998)
	v.SetDefault("CLIENT_TIMEOUT", "10s")
	v.SetDefault("CLIENT_MAX_REPLY_SIZE", 16*1024*1024)

	v.SetDefault("SEED_SOURCE", SeedSourceFile)
	v.SetDefault("USERS_FILE", "users.txt")
	v.SetDefault("PROVIDERS_FILE", "service_providers.txt")

	v.SetDefault("SESSION_MODE", SessionModeAddress)
	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_ISSUER", "slot-booking")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "slot_booking")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_RETRIES", 3)
	v.SetDefault("AUDIT_BUFFER_SIZE", 64)

	v.SetDefault("ADMIN_ADDR", "")
	v.SetDefault("ADMIN_CORS_ORIGINS", "")
	v.SetDefault("ADMIN_SECRET", "")
	v.SetDefault("ADMIN_TOKEN_TTL", "1h")

	v.SetDefault("SNAPSHOT_DIR", "")
	v.SetDefault("SNAPSHOT_FORMAT", "csv")
	v.SetDefault("SNAPSHOT_RETENTION", "168h")
	v.SetDefault("SNAPSHOT_ON_SHUTDOWN", true)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
