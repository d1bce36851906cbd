// Package config loads application settings from config.toml and the
// environment.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Log          LogConfig
	HTTP         HTTPConfig
	FoodDatabase FoodDatabaseConfig
	Storage      StorageConfig
	Auth         AuthConfig
	Metrics      MetricsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig selects and configures the catalog store
type DatabaseConfig struct {
	Driver          string // postgres, sqlite, memory
	URL             string // postgres connection string
	Path            string // sqlite file, ":memory:" allowed
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string // gorm log level: silent, error, warn, info
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds server settings
type HTTPConfig struct {
	Addr            string
	StaticDir       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	SecureCookies   bool
}

// FoodDatabaseConfig configures the Open Food Facts lookup
type FoodDatabaseConfig struct {
	BaseURL           string
	Country           string
	UserAgent         string
	Timeout           time.Duration
	PageSize          int
	RequestsPerMinute int // 0 disables pacing
}

// StorageConfig selects where uploaded product images go
type StorageConfig struct {
	Driver    string // disk, s3
	UploadDir string
	S3        S3Config
}

// S3Config holds S3-compatible object storage settings
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	PublicBaseURL   string
	UsePathStyle    bool
}

// AuthConfig holds session and sign-in settings
type AuthConfig struct {
	SessionTTL      time.Duration
	InitialUsername string
	InitialPassword string
	OIDC            OIDCConfig
}

// OIDCConfig enables single sign-on when Issuer is set
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether single sign-on is configured.
func (o OIDCConfig) Enabled() bool {
	return o.Issuer != "" && o.ClientID != ""
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration.
// Priority (highest to lowest):
// 1. Environment variables with FOODTRACKER_ prefix (e.g., FOODTRACKER_DATABASE_URL)
// 2. Legacy variables DATABASE_URL, ADDR and WEB_DIR
// 3. config.toml found in configPaths (default "." and "/app")
// 4. Built-in defaults
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if len(configPaths) == 0 {
		configPaths = []string{".", "/app"}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FOODTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			URL:             v.GetString("database.url"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			StaticDir:       v.GetString("http.static_dir"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxUploadBytes:  v.GetInt64("http.max_upload_bytes"),
			SecureCookies:   v.GetBool("http.secure_cookies"),
		},
		FoodDatabase: FoodDatabaseConfig{
			BaseURL:           v.GetString("food_database.base_url"),
			Country:           v.GetString("food_database.country"),
			UserAgent:         v.GetString("food_database.user_agent"),
			Timeout:           v.GetDuration("food_database.timeout"),
			PageSize:          v.GetInt("food_database.page_size"),
			RequestsPerMinute: v.GetInt("food_database.requests_per_minute"),
		},
		Storage: StorageConfig{
			Driver:    v.GetString("storage.driver"),
			UploadDir: v.GetString("storage.upload_dir"),
			S3: S3Config{
				Bucket:          v.GetString("storage.s3.bucket"),
				Region:          v.GetString("storage.s3.region"),
				Endpoint:        v.GetString("storage.s3.endpoint"),
				AccessKeyID:     v.GetString("storage.s3.access_key_id"),
				SecretAccessKey: v.GetString("storage.s3.secret_access_key"),
				Prefix:          v.GetString("storage.s3.prefix"),
				PublicBaseURL:   v.GetString("storage.s3.public_base_url"),
				UsePathStyle:    v.GetBool("storage.s3.use_path_style"),
			},
		},
		Auth: AuthConfig{
			SessionTTL:      v.GetDuration("auth.session_ttl"),
			InitialUsername: v.GetString("auth.initial_username"),
			InitialPassword: v.GetString("auth.initial_password"),
			OIDC: OIDCConfig{
				Issuer:       v.GetString("auth.oidc.issuer"),
				ClientID:     v.GetString("auth.oidc.client_id"),
				ClientSecret: v.GetString("auth.oidc.client_secret"),
				RedirectURL:  v.GetString("auth.oidc.redirect_url"),
			},
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindLegacyEnv keeps the plain variables used by existing deployments working.
func bindLegacyEnv(v *viper.Viper) error {
	legacy := map[string]string{
		"database.url":    "DATABASE_URL",
		"http.addr":       "ADDR",
		"http.static_dir": "WEB_DIR",
	}
	for key, env := range legacy {
		prefixed := "FOODTRACKER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "foodtracker"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "products.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.StaticDir == "" {
		cfg.HTTP.StaticDir = "static"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxUploadBytes == 0 {
		cfg.HTTP.MaxUploadBytes = 10 << 20
	}

	if cfg.FoodDatabase.BaseURL == "" {
		cfg.FoodDatabase.BaseURL = "https://no.openfoodfacts.org/cgi/search.pl"
	}
	if cfg.FoodDatabase.Country == "" {
		cfg.FoodDatabase.Country = "norway"
	}
	if cfg.FoodDatabase.UserAgent == "" {
		cfg.FoodDatabase.UserAgent = "FoodNutrientApp - Python - Version 1.0 - https://example.com"
	}
	if cfg.FoodDatabase.Timeout == 0 {
		cfg.FoodDatabase.Timeout = 10 * time.Second
	}
	if cfg.FoodDatabase.PageSize == 0 {
		cfg.FoodDatabase.PageSize = 10
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "disk"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = filepath.Join(cfg.HTTP.StaticDir, "uploads")
	}
	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = "us-east-1"
	}

	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 24 * time.Hour
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver must be postgres, sqlite or memory, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Storage.Driver {
	case "disk":
		if _, err := c.UploadURLPrefix(); err != nil {
			return err
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 driver")
		}
		if c.Storage.S3.AccessKeyID == "" || c.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3 access_key_id and secret_access_key are required for the s3 driver")
		}
	default:
		return fmt.Errorf("storage.driver must be disk or s3, got %q", c.Storage.Driver)
	}

	if c.FoodDatabase.PageSize < 0 {
		return fmt.Errorf("food_database.page_size cannot be negative")
	}
	if c.FoodDatabase.RequestsPerMinute < 0 {
		return fmt.Errorf("food_database.requests_per_minute cannot be negative")
	}
	if c.FoodDatabase.Timeout < 0 {
		return fmt.Errorf("food_database.timeout cannot be negative")
	}

	if (c.Auth.InitialUsername == "") != (c.Auth.InitialPassword == "") {
		return fmt.Errorf("auth.initial_username and auth.initial_password must be set together")
	}

	if c.App.Env == "production" && !c.HTTP.SecureCookies {
		return fmt.Errorf("http.secure_cookies must be true in production")
	}

	return nil
}

// UploadURLPrefix returns the URL path under which disk uploads are served.
// The web server exposes http.static_dir at /static, so storage.upload_dir
// must lie inside it.
func (c *Config) UploadURLPrefix() (string, error) {
	static, err := filepath.Abs(c.HTTP.StaticDir)
	if err != nil {
		return "", fmt.Errorf("http.static_dir: %w", err)
	}
	upload, err := filepath.Abs(c.Storage.UploadDir)
	if err != nil {
		return "", fmt.Errorf("storage.upload_dir: %w", err)
	}
	rel, err := filepath.Rel(static, upload)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage.upload_dir %q must be inside http.static_dir %q",
			c.Storage.UploadDir, c.HTTP.StaticDir)
	}
	if rel == "." {
		return "/static", nil
	}
	return "/static/" + filepath.ToSlash(rel), nil
}
