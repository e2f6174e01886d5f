package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. RECORDS_DATABASE_PASSWORD
const EnvPrefix = "RECORDS"

// Config holds all application configuration
type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Log           LogConfig
	HTTP          HTTPConfig
	Hierarchy     HierarchyConfig
	Propagation   PropagationConfig
	Idempotency   IdempotencyConfig
	ProfileClient ProfileClientConfig
	Telemetry     TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string // ops HTTP port
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds ops HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// HierarchyConfig bounds account tree traversal
type HierarchyConfig struct {
	MaxDepth int
}

// PropagationConfig controls the propagation job worker pool
type PropagationConfig struct {
	Enabled           bool
	Workers           int
	BatchSize         int
	PollInterval      time.Duration
	MaxAttempts       int
	BaseBackoff       time.Duration
	JobTimeout        time.Duration
	VisibilityTimeout time.Duration // processing jobs older than this are redelivered
	CleanupInterval   time.Duration
	CleanupRetention  time.Duration
}

// IdempotencyConfig controls the completed-job marker store
type IdempotencyConfig struct {
	Enabled               bool
	TTL                   time.Duration
	AllowInMemoryFallback bool
}

// ProfileClientConfig holds the external profile store connection
type ProfileClientConfig struct {
	Enabled bool
	BaseURL string
	Token   string
	Timeout time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTEL Collector gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool
	MetricsInterval   time.Duration
	LogsEnabled       bool // export zap logs through the OTel log pipeline
	DBTraceEnabled    bool
	ProfilingEnabled  bool
	ProfilingEndpoint string // Pyroscope server address
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with RECORDS_ prefix
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/records")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setBoolDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
		},
		Hierarchy: HierarchyConfig{
			MaxDepth: v.GetInt("hierarchy.max_depth"),
		},
		Propagation: PropagationConfig{
			Enabled:           v.GetBool("propagation.enabled"),
			Workers:           v.GetInt("propagation.workers"),
			BatchSize:         v.GetInt("propagation.batch_size"),
			PollInterval:      v.GetDuration("propagation.poll_interval"),
			MaxAttempts:       v.GetInt("propagation.max_attempts"),
			BaseBackoff:       v.GetDuration("propagation.base_backoff"),
			JobTimeout:        v.GetDuration("propagation.job_timeout"),
			VisibilityTimeout: v.GetDuration("propagation.visibility_timeout"),
			CleanupInterval:   v.GetDuration("propagation.cleanup_interval"),
			CleanupRetention:  v.GetDuration("propagation.cleanup_retention"),
		},
		Idempotency: IdempotencyConfig{
			Enabled:               v.GetBool("idempotency.enabled"),
			TTL:                   v.GetDuration("idempotency.ttl"),
			AllowInMemoryFallback: v.GetBool("idempotency.allow_in_memory_fallback"),
		},
		ProfileClient: ProfileClientConfig{
			Enabled: v.GetBool("profile_client.enabled"),
			BaseURL: v.GetString("profile_client.base_url"),
			Token:   v.GetString("profile_client.token"),
			Timeout: v.GetDuration("profile_client.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingEndpoint: v.GetString("telemetry.profiling_endpoint"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setBoolDefaults registers defaults for switches that are on unless disabled.
// Zero-value detection cannot tell an explicit false from an absent key.
func setBoolDefaults(v *viper.Viper) {
	v.SetDefault("propagation.enabled", true)
	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.allow_in_memory_fallback", true)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "records-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8081"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "records"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.Hierarchy.MaxDepth == 0 {
		cfg.Hierarchy.MaxDepth = 10
	}
	if cfg.Propagation.Workers == 0 {
		cfg.Propagation.Workers = 4
	}
	if cfg.Propagation.BatchSize == 0 {
		cfg.Propagation.BatchSize = 50
	}
	if cfg.Propagation.PollInterval == 0 {
		cfg.Propagation.PollInterval = 2 * time.Second
	}
	if cfg.Propagation.MaxAttempts == 0 {
		cfg.Propagation.MaxAttempts = 3
	}
	if cfg.Propagation.BaseBackoff == 0 {
		cfg.Propagation.BaseBackoff = 2 * time.Second
	}
	if cfg.Propagation.JobTimeout == 0 {
		cfg.Propagation.JobTimeout = 30 * time.Second
	}
	if cfg.Propagation.VisibilityTimeout == 0 {
		cfg.Propagation.VisibilityTimeout = 5 * time.Minute
	}
	if cfg.Propagation.CleanupInterval == 0 {
		cfg.Propagation.CleanupInterval = time.Hour
	}
	if cfg.Propagation.CleanupRetention == 0 {
		cfg.Propagation.CleanupRetention = 168 * time.Hour
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 72 * time.Hour
	}
	if cfg.ProfileClient.Timeout == 0 {
		cfg.ProfileClient.Timeout = 10 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.ProfilingEndpoint == "" {
		cfg.Telemetry.ProfilingEndpoint = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Hierarchy.MaxDepth < 1 {
		return fmt.Errorf("hierarchy.max_depth must be at least 1, got %d", c.Hierarchy.MaxDepth)
	}
	if c.Propagation.Workers < 1 {
		return fmt.Errorf("propagation.workers must be positive")
	}
	if c.Propagation.MaxAttempts < 1 {
		return fmt.Errorf("propagation.max_attempts must be positive")
	}
	if c.Propagation.VisibilityTimeout <= c.Propagation.JobTimeout {
		return fmt.Errorf("propagation.visibility_timeout (%s) must exceed propagation.job_timeout (%s)",
			c.Propagation.VisibilityTimeout, c.Propagation.JobTimeout)
	}

	if c.ProfileClient.Enabled {
		if c.ProfileClient.BaseURL == "" {
			return fmt.Errorf("profile_client.base_url is required when the profile client is enabled")
		}
		if _, err := url.ParseRequestURI(c.ProfileClient.BaseURL); err != nil {
			return fmt.Errorf("profile_client.base_url is invalid: %w", err)
		}
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Idempotency.Enabled && c.Idempotency.AllowInMemoryFallback {
			return fmt.Errorf("idempotency.allow_in_memory_fallback must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port of the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
