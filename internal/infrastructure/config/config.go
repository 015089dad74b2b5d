package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Reservation ReservationConfig
	CycleCount  CycleCountConfig
	Import      ImportConfig
	Transaction TransactionConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
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

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// ReservationConfig holds reservation expiry sweep settings
type ReservationConfig struct {
	ExpiryMinutes   int           // Age at which an ACTIVE reservation counts as abandoned
	MaxBatchRelease int           // Cap on reservations touched per sweep or batch release
	SweepInterval   time.Duration // How often the scheduler runs the expiry sweep
}

// CycleCountConfig holds variance classification thresholds, in percent
type CycleCountConfig struct {
	WarningThreshold     float64 // |variance%| at or above this reports WARNING
	ErrorThreshold       float64 // |variance%| above this reports ERROR
	AutoApproveThreshold float64 // |variance%| at or above this needs explicit approval
}

// ImportConfig holds bulk import limits
type ImportConfig struct {
	MaxRows          int
	MaxFileSizeBytes int
	MaxErrors        int
	SessionTTL       time.Duration // How long import results stay retrievable
}

// TransactionConfig holds database transaction settings
type TransactionConfig struct {
	Timeout time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FULFILLMENT_ prefix (e.g., FULFILLMENT_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("FULFILLMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
		Reservation: ReservationConfig{
			ExpiryMinutes:   v.GetInt("reservation.expiry_minutes"),
			MaxBatchRelease: v.GetInt("reservation.max_batch_release"),
			SweepInterval:   v.GetDuration("reservation.sweep_interval"),
		},
		CycleCount: CycleCountConfig{
			WarningThreshold:     v.GetFloat64("cycle_count.warning_threshold"),
			ErrorThreshold:       v.GetFloat64("cycle_count.error_threshold"),
			AutoApproveThreshold: v.GetFloat64("cycle_count.auto_approve_threshold"),
		},
		Import: ImportConfig{
			MaxRows:          v.GetInt("import.max_rows"),
			MaxFileSizeBytes: v.GetInt("import.max_file_size_bytes"),
			MaxErrors:        v.GetInt("import.max_errors"),
			SessionTTL:       v.GetDuration("import.session_ttl"),
		},
		Transaction: TransactionConfig{
			Timeout: v.GetDuration("transaction.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fulfillment-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "fulfillment"
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
	if cfg.Reservation.ExpiryMinutes == 0 {
		cfg.Reservation.ExpiryMinutes = 30
	}
	if cfg.Reservation.MaxBatchRelease == 0 {
		cfg.Reservation.MaxBatchRelease = 500
	}
	if cfg.Reservation.SweepInterval == 0 {
		cfg.Reservation.SweepInterval = 5 * time.Minute
	}
	if cfg.CycleCount.WarningThreshold == 0 {
		cfg.CycleCount.WarningThreshold = 5
	}
	if cfg.CycleCount.ErrorThreshold == 0 {
		cfg.CycleCount.ErrorThreshold = 20
	}
	if cfg.CycleCount.AutoApproveThreshold == 0 {
		cfg.CycleCount.AutoApproveThreshold = 10
	}
	if cfg.Import.MaxRows == 0 {
		cfg.Import.MaxRows = 10000
	}
	if cfg.Import.MaxFileSizeBytes == 0 {
		cfg.Import.MaxFileSizeBytes = 10 << 20 // 10MB
	}
	if cfg.Import.MaxErrors == 0 {
		cfg.Import.MaxErrors = 100
	}
	if cfg.Import.SessionTTL == 0 {
		cfg.Import.SessionTTL = 24 * time.Hour
	}
	if cfg.Transaction.Timeout == 0 {
		cfg.Transaction.Timeout = 30 * time.Second
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

	if c.CycleCount.WarningThreshold < 0 || c.CycleCount.ErrorThreshold < 0 || c.CycleCount.AutoApproveThreshold < 0 {
		return fmt.Errorf("cycle_count thresholds cannot be negative")
	}
	if c.CycleCount.WarningThreshold > c.CycleCount.ErrorThreshold {
		return fmt.Errorf("cycle_count.warning_threshold (%g) cannot exceed cycle_count.error_threshold (%g)",
			c.CycleCount.WarningThreshold, c.CycleCount.ErrorThreshold)
	}
	if c.Reservation.ExpiryMinutes < 0 {
		return fmt.Errorf("reservation.expiry_minutes cannot be negative")
	}
	if c.Import.MaxRows <= 0 {
		return fmt.Errorf("import.max_rows must be positive")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
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

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
