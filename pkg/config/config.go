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

	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Exports   ExportsConfig
	Bootstrap BootstrapConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig selects where published timetables are cached.
type CacheConfig struct {
	Backend         string
	TTL             time.Duration
	CleanupInterval time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig bounds the timetable generator and its worker pool.
type SchedulerConfig struct {
	MaxIterations       int
	Timeout             time.Duration
	Workers             int
	QueueSize           int
	LabBlocksPerWeek    int
	MaxFacultyDailyLoad int
}

// ExportsConfig configures rendered timetable downloads.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// BootstrapConfig seeds the first administrator on an empty users table.
type BootstrapConfig struct {
	AdminUsername     string
	AdminPassword     string
	AdminDepartmentID string
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("CACHE_BACKEND")))
	if backend != CacheBackendMemory {
		backend = CacheBackendRedis
	}
	cfg.Cache = CacheConfig{
		Backend:         backend,
		TTL:             parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
		CleanupInterval: parseDuration(v.GetString("CACHE_CLEANUP_INTERVAL"), 15*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		MaxIterations:       positiveOr(v.GetInt("SCHEDULER_MAX_ITERATIONS"), 2_000_000),
		Timeout:             parseDuration(v.GetString("SCHEDULER_TIMEOUT"), 20*time.Second),
		Workers:             positiveOr(v.GetInt("SCHEDULER_WORKERS"), 2),
		QueueSize:           positiveOr(v.GetInt("SCHEDULER_QUEUE_SIZE"), 16),
		LabBlocksPerWeek:    positiveOr(v.GetInt("SCHEDULER_LAB_BLOCKS_PER_WEEK"), 1),
		MaxFacultyDailyLoad: v.GetInt("SCHEDULER_MAX_FACULTY_DAILY_LOAD"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Bootstrap = BootstrapConfig{
		AdminUsername:     strings.TrimSpace(v.GetString("BOOTSTRAP_ADMIN_USERNAME")),
		AdminPassword:     v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		AdminDepartmentID: strings.TrimSpace(v.GetString("BOOTSTRAP_ADMIN_DEPARTMENT_ID")),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_BACKEND", CacheBackendRedis)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("CACHE_CLEANUP_INTERVAL", "15m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_MAX_ITERATIONS", 2_000_000)
	v.SetDefault("SCHEDULER_TIMEOUT", "20s")
	v.SetDefault("SCHEDULER_WORKERS", 2)
	v.SetDefault("SCHEDULER_QUEUE_SIZE", 16)
	v.SetDefault("SCHEDULER_LAB_BLOCKS_PER_WEEK", 1)
	v.SetDefault("SCHEDULER_MAX_FACULTY_DAILY_LOAD", 0)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("BOOTSTRAP_ADMIN_USERNAME", "")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")
	v.SetDefault("BOOTSTRAP_ADMIN_DEPARTMENT_ID", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
