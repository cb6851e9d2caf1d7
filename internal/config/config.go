// Package config loads process settings. Infrastructure settings come from
// viper (.env file overridden by the environment); game and funds tables are
// read straight from the environment with built-in defaults.
package config

import (
	"time"

	"github.com/spf13/viper"
)

var envBindings = map[string]string{
	"database.host":     "DATABASE_HOST",
	"database.port":     "DATABASE_PORT",
	"database.user":     "DATABASE_USER",
	"database.password": "DATABASE_PASSWORD",
	"database.name":     "DATABASE_NAME",
	"database.ssl_mode": "DATABASE_SSL_MODE",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key":   "JWT_SECRET_KEY",
	"jwt.expiry_hours": "JWT_EXPIRY_HOURS",

	"server.port":            "PORT",
	"server.allowed_origins": "ALLOWED_ORIGINS",

	"storage.backend":      "STORAGE_BACKEND",
	"storage.tx_timeout":   "STORAGE_TX_TIMEOUT",
	"storage.lock_wait":    "STORAGE_LOCK_WAIT",
	"storage.auto_migrate": "STORAGE_AUTO_MIGRATE",

	"events.backend":         "EVENTS_BACKEND",
	"events.stream":          "EVENTS_STREAM",
	"events.max_len":         "EVENTS_MAX_LEN",
	"events.publish_retries": "EVENTS_PUBLISH_RETRIES",

	"idempotency.lock_ttl":   "IDEMPOTENCY_LOCK_TTL",
	"idempotency.result_ttl": "IDEMPOTENCY_RESULT_TTL",

	"admin.bootstrap_user_ids": "ADMIN_BOOTSTRAP_USER_IDS",
	"referral.commission_rate": "REFERRAL_COMMISSION_RATE",
}

// Init points viper at .env and binds the environment. A missing .env file is
// not an error; the returned error only reports it for logging.
func Init() error {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	for key, env := range envBindings {
		viper.BindEnv(key, env)
	}

	return viper.ReadInConfig()
}

type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func GetServerConfig() *ServerConfig {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.allowed_origins", "https://*,http://*")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("server.request_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)

	return &ServerConfig{
		Port:            viper.GetString("server.port"),
		AllowedOrigins:  splitList(viper.GetString("server.allowed_origins")),
		ReadTimeout:     viper.GetDuration("server.read_timeout"),
		WriteTimeout:    viper.GetDuration("server.write_timeout"),
		IdleTimeout:     viper.GetDuration("server.idle_timeout"),
		RequestTimeout:  viper.GetDuration("server.request_timeout"),
		ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
	}
}

// StorageConfig selects the ledger backend. "memory" keeps everything in
// process and is meant for local runs.
type StorageConfig struct {
	Backend     string
	TxTimeout   time.Duration
	LockWait    time.Duration
	AutoMigrate bool
}

func GetStorageConfig() *StorageConfig {
	viper.SetDefault("storage.backend", "postgres")
	viper.SetDefault("storage.tx_timeout", 3*time.Second)
	viper.SetDefault("storage.lock_wait", 2*time.Second)
	viper.SetDefault("storage.auto_migrate", true)

	return &StorageConfig{
		Backend:     viper.GetString("storage.backend"),
		TxTimeout:   viper.GetDuration("storage.tx_timeout"),
		LockWait:    viper.GetDuration("storage.lock_wait"),
		AutoMigrate: viper.GetBool("storage.auto_migrate"),
	}
}

type EventsConfig struct {
	Backend        string
	Stream         string
	MaxLen         int64
	PublishRetries int
}

func GetEventsConfig() *EventsConfig {
	viper.SetDefault("events.backend", "redis")
	viper.SetDefault("events.stream", "ledger:events")
	viper.SetDefault("events.max_len", 10000)
	viper.SetDefault("events.publish_retries", 3)

	return &EventsConfig{
		Backend:        viper.GetString("events.backend"),
		Stream:         viper.GetString("events.stream"),
		MaxLen:         viper.GetInt64("events.max_len"),
		PublishRetries: viper.GetInt("events.publish_retries"),
	}
}

type AuthConfig struct {
	SecretKey       string
	ExpiryHours     int
	BootstrapAdmins []string
}

func GetAuthConfig() *AuthConfig {
	viper.SetDefault("jwt.expiry_hours", 24)

	return &AuthConfig{
		SecretKey:       viper.GetString("jwt.secret_key"),
		ExpiryHours:     viper.GetInt("jwt.expiry_hours"),
		BootstrapAdmins: splitList(viper.GetString("admin.bootstrap_user_ids")),
	}
}

type IdempotencyConfig struct {
	LockTTL   time.Duration
	ResultTTL time.Duration
}

func GetIdempotencyConfig() *IdempotencyConfig {
	viper.SetDefault("idempotency.lock_ttl", 10*time.Second)
	viper.SetDefault("idempotency.result_ttl", time.Minute)

	return &IdempotencyConfig{
		LockTTL:   viper.GetDuration("idempotency.lock_ttl"),
		ResultTTL: viper.GetDuration("idempotency.result_ttl"),
	}
}

// GetReferralCommissionRate is the share of a referred player's wagers
// credited to the referrer's earnings.
func GetReferralCommissionRate() float64 {
	viper.SetDefault("referral.commission_rate", 0.05)
	return viper.GetFloat64("referral.commission_rate")
}
