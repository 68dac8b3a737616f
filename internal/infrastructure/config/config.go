package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the service configuration. Keys are the lowercased field names
// unless a mapstructure tag says otherwise, e.g. database.max_open_conns.
type Config struct {
	App       AppConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	HTTP      HTTPConfig
	Auth      AuthConfig
	Host      HostConfig
	FX        FXConfig
	Issuance  IssuanceConfig
	Storage   StorageConfig
	Events    EventsConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Name string
	Env  string // development or production
	Port string
}

type LogConfig struct {
	Level  string
	Format string // json or console
	Output string // stdout, stderr or a file path
}

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig selects the backend. Only SQLitePath matters for sqlite.
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// RedisConfig is optional. Without it the rate cache and issuance marks
// stay in process.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodySize       int64         `mapstructure:"max_body_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	CORSAllowOrigins  []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods  []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders  []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies"`
}

// AuthConfig guards /api/v1 with HS256 bearer tokens
type AuthConfig struct {
	Enabled   bool
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string
}

// HostConfig is the ERP host reached over its RPC API
type HostConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	APIKey             string `mapstructure:"api_key"`
	APISecret          string `mapstructure:"api_secret"`
	Timeout            time.Duration
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
	Burst              int
}

// Rate sources
const (
	FXSourceDatabase = "database"
	FXSourceHost     = "host"
)

// FXConfig selects where Currency Exchange records are read from
type FXConfig struct {
	Source   string
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// IssuanceConfig bounds Payment Entry creation
type IssuanceConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// StorageConfig is the S3 bucket for cheque pictures
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UsePathStyle    bool          `mapstructure:"use_path_style"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

type EventsConfig struct {
	KafkaEnabled bool `mapstructure:"kafka_enabled"`
	Brokers      []string
	Topic        string
}

// TelemetryConfig covers traces, metrics and OTLP logs
type TelemetryConfig struct {
	Enabled           bool    // traces
	CollectorEndpoint string  `mapstructure:"collector_endpoint"` // OTLP gRPC, e.g. localhost:4317
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`
	ServiceName       string  `mapstructure:"service_name"`
	Insecure          bool    // plaintext gRPC, development only

	MetricsEnabled        bool          `mapstructure:"metrics_enabled"`
	MetricsExporter       string        `mapstructure:"metrics_exporter"` // otlp or prometheus
	MetricsExportInterval time.Duration `mapstructure:"metrics_export_interval"`

	LogsEnabled bool `mapstructure:"logs_enabled"`

	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"` // never in production
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// defaults registers every key with viper. Keys must be known to viper for
// AutomaticEnv to reach them during Unmarshal, so settings without a
// sensible default are listed with their zero value.
var defaults = map[string]any{
	"app.name": "cheques",
	"app.env":  "development",
	"app.port": "8080",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"database.driver":             DriverPostgres,
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "cheques",
	"database.sslmode":            "disable",
	"database.sqlite_path":        "cheques.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"http.read_timeout": 15 * time.Second,
	// Submission waits for every row's Payment Entry
	"http.write_timeout":    60 * time.Second,
	"http.idle_timeout":     60 * time.Second,
	"http.max_header_bytes": 1 << 20,
	// Cheque pictures are the largest request bodies
	"http.max_body_size":       int64(10 << 20),
	"http.rate_limit_enabled":  false,
	"http.rate_limit_requests": 100,
	"http.rate_limit_window":   time.Minute,
	// No origin is allowed until one is configured
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":    []string{},

	"auth.enabled":    false,
	"auth.jwt_secret": "",
	"auth.issuer":     "cheques",

	"host.base_url":              "",
	"host.api_key":               "",
	"host.api_secret":            "",
	"host.timeout":               30 * time.Second,
	"host.rate_limit_per_second": 20.0,
	"host.burst":                 10,

	"fx.source":    FXSourceDatabase,
	"fx.cache_ttl": 10 * time.Minute,

	"issuance.max_concurrency": 4,
	"issuance.idempotency_ttl": 24 * time.Hour,

	"storage.enabled":           false,
	"storage.endpoint":          "",
	"storage.region":            "us-east-1",
	"storage.bucket":            "cheque-pictures",
	"storage.access_key_id":     "",
	"storage.secret_access_key": "",
	"storage.use_path_style":    false,
	"storage.presign_expiry":    15 * time.Minute,

	"events.kafka_enabled": false,
	"events.brokers":       []string{},
	"events.topic":         "cheque-entry-events",

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "", // app.name when empty
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_exporter":        "prometheus",
	"telemetry.metrics_export_interval": time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
}

// Load reads configuration, highest precedence first, from:
//
//  1. CHEQUES_* environment variables (a .env file is loaded into the
//     environment when present), e.g. CHEQUES_HOST_API_KEY
//  2. config.toml in ., ./backend or /app
//  3. the defaults above
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, dir := range []string{".", "./backend", "/app"} {
		v.AddConfigPath(dir)
	}
	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v.SetEnvPrefix("CHEQUES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate reports every invalid setting at once
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.Driver == DriverPostgres || db.Driver == DriverSQLite,
		"database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, db.Driver)
	check(db.MaxOpenConns > 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns >= 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns <= db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)

	check(c.FX.Source == FXSourceDatabase || c.FX.Source == FXSourceHost,
		"fx.source must be %q or %q, got %q", FXSourceDatabase, FXSourceHost, c.FX.Source)
	check(c.Issuance.MaxConcurrency >= 1, "issuance.max_concurrency must be at least 1")
	check(c.Host.RateLimitPerSecond >= 0, "host.rate_limit_per_second cannot be negative")
	check(!c.Events.KafkaEnabled || len(c.Events.Brokers) > 0,
		"events.brokers is required when events.kafka_enabled is set")
	check(!c.Storage.Enabled || c.Storage.Bucket != "", "storage.bucket is required when storage is enabled")

	tel := c.Telemetry
	check(tel.MetricsExporter == "otlp" || tel.MetricsExporter == "prometheus",
		"telemetry.metrics_exporter must be otlp or prometheus, got %q", tel.MetricsExporter)
	check(tel.SamplingRatio >= 0 && tel.SamplingRatio <= 1,
		"telemetry.sampling_ratio must be between 0 and 1, got %g", tel.SamplingRatio)
	check(!c.Auth.Enabled || len(c.Auth.JWTSecret) >= 32,
		"auth.jwt_secret must be at least 32 characters when auth is enabled")

	if c.App.Env == "production" {
		if db.Driver == DriverPostgres {
			check(db.Password != "", "database.password is required in production")
			check(db.SSLMode != "disable", "database.sslmode cannot be 'disable' in production")
		}
		check(c.Host.BaseURL != "" && c.Host.APIKey != "" && c.Host.APISecret != "",
			"host.base_url, host.api_key and host.api_secret are required in production")
		check(!slices.Contains(c.HTTP.CORSAllowOrigins, "*"),
			"http.cors_allow_origins cannot contain '*' in production")
		check(!tel.DBLogFullSQL, "telemetry.db_log_full_sql must be off in production")
	}

	return errors.Join(errs...)
}

// DSN is the postgres URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// MigrationURL returns the golang-migrate database URL for the configured driver
func (d *DatabaseConfig) MigrationURL() string {
	if d.Driver == DriverSQLite {
		return "sqlite3://" + d.SQLitePath
	}
	return d.DSN()
}
