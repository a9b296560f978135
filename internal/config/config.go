package config

import "time"

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

var globalConfig *Config

func Global() *Config {
	return globalConfig
}

func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

type Config struct {
	Env       string `env:"ENV" env-required:"true"`
	Log       LogConfig
	HTTP      HTTPConfig
	Postgres  PostgresConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
}

type LogConfig struct {
	// File is optional. Logs are always written to stdout.
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" env-default:"10"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" env-default:"3"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" env-default:"28"`
	Compress   bool   `env:"LOG_COMPRESS" env-default:"true"`
}

type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	MaxUploadBytes  int64         `env:"HTTP_MAX_UPLOAD_BYTES" env-default:"33554432"`
}

type PostgresConfig struct {
	Host           string        `env:"POSTGRES_HOST" env-required:"true"`
	Port           int           `env:"POSTGRES_PORT" env-default:"5432"`
	Username       string        `env:"POSTGRES_USERNAME" env-required:"true"`
	Password       string        `env:"POSTGRES_PASSWORD" env-required:"true"`
	Database       string        `env:"POSTGRES_DATABASE" env-required:"true"`
	SSLMode        string        `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	ConnectTimeout time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" env-default:"10s"`
	PingTimeout    time.Duration `env:"POSTGRES_PING_TIMEOUT" env-default:"10s"`
	AutoMigrate    bool          `env:"POSTGRES_AUTO_MIGRATE" env-default:"false"`
}

type JWTConfig struct {
	Issuer          string        `env:"JWT_ISSUER" env-default:"go-taskdesk"`
	SigningKey      string        `env:"JWT_SIGNING_KEY" env-required:"true"`
	AccessTokenTTL  time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `env:"JWT_REFRESH_TOKEN_TTL" env-default:"720h"`
}

type StorageConfig struct {
	Root string `env:"STORAGE_ROOT" env-default:"./uploads"`
}

type SchedulerConfig struct {
	// Both schedules use the six-field cron format with a leading seconds field.
	PollerSchedule string `env:"POLLER_SCHEDULE" env-default:"0 * * * * *"`
	SweepSchedule  string `env:"SWEEP_SCHEDULE" env-default:"0 0 * * * *"`
	Location       string `env:"SCHEDULER_LOCATION" env-default:"Local"`
}
