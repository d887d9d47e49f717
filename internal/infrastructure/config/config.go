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
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	HTTP     HTTPConfig
	CRM      CRMConfig
	Sync     SyncConfig
	Lock     LockConfig
	Notify   NotifyConfig
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

// JWTConfig holds JWT settings for the operational API surface
type JWTConfig struct {
	Secret string
	Issuer string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// CRMConfig holds external CRM API settings
type CRMConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	APIVersion   string        // value of the Version header
	Timeout      time.Duration // per-request timeout
	// RefreshWindow is how close to expiry a token may be before it is
	// flagged for opportunistic refresh
	RefreshWindow time.Duration
	// RederiveAge is how old a direct token may be before a parent
	// credential triggers a best-effort re-derivation
	RederiveAge time.Duration
}

// SyncConfig holds sync pipeline tuning
type SyncConfig struct {
	PageSize          int           // incremental page size
	FullSyncBatchSize int           // page size used by the batch driver
	ThrottleAfter     int           // records before cooperative delay kicks in
	ThrottleDelay     time.Duration // delay between batches once throttled
	AppointmentsPast  time.Duration // appointment window lower bound
	AppointmentsAhead time.Duration // appointment window upper bound
	DispatchWorkers   int           // background dispatcher worker count
}

// LockConfig holds install lock settings
type LockConfig struct {
	// TTL must exceed the worst-case pipeline duration; an expired lock
	// is reclaimable by any caller
	TTL time.Duration
}

// NotifyConfig holds operational alert settings
type NotifyConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with LPAI_ prefix (e.g. LPAI_DATABASE_PASSWORD)
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

	v.SetEnvPrefix("LPAI")
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
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
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
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		CRM: CRMConfig{
			BaseURL:       v.GetString("crm.base_url"),
			ClientID:      v.GetString("crm.client_id"),
			ClientSecret:  v.GetString("crm.client_secret"),
			RedirectURL:   v.GetString("crm.redirect_url"),
			APIVersion:    v.GetString("crm.api_version"),
			Timeout:       v.GetDuration("crm.timeout"),
			RefreshWindow: v.GetDuration("crm.refresh_window"),
			RederiveAge:   v.GetDuration("crm.rederive_age"),
		},
		Sync: SyncConfig{
			PageSize:          v.GetInt("sync.page_size"),
			FullSyncBatchSize: v.GetInt("sync.full_sync_batch_size"),
			ThrottleAfter:     v.GetInt("sync.throttle_after"),
			ThrottleDelay:     v.GetDuration("sync.throttle_delay"),
			AppointmentsPast:  v.GetDuration("sync.appointments_past"),
			AppointmentsAhead: v.GetDuration("sync.appointments_ahead"),
			DispatchWorkers:   v.GetInt("sync.dispatch_workers"),
		},
		Lock: LockConfig{
			TTL: v.GetDuration("lock.ttl"),
		},
		Notify: NotifyConfig{
			WebhookURL: v.GetString("notify.webhook_url"),
			Timeout:    v.GetDuration("notify.timeout"),
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
		cfg.App.Name = "lpai-backend"
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
		cfg.Database.DBName = "lpai"
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
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "lpai-backend"
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
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.CRM.BaseURL == "" {
		cfg.CRM.BaseURL = "https://services.leadconnectorhq.com"
	}
	if cfg.CRM.APIVersion == "" {
		cfg.CRM.APIVersion = "2021-07-28"
	}
	if cfg.CRM.Timeout == 0 {
		cfg.CRM.Timeout = 30 * time.Second
	}
	if cfg.CRM.RefreshWindow == 0 {
		cfg.CRM.RefreshWindow = time.Hour
	}
	if cfg.CRM.RederiveAge == 0 {
		cfg.CRM.RederiveAge = 24 * time.Hour
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 50
	}
	if cfg.Sync.FullSyncBatchSize == 0 {
		cfg.Sync.FullSyncBatchSize = 100
	}
	if cfg.Sync.ThrottleAfter == 0 {
		cfg.Sync.ThrottleAfter = 1000
	}
	if cfg.Sync.ThrottleDelay == 0 {
		cfg.Sync.ThrottleDelay = 2 * time.Second
	}
	if cfg.Sync.AppointmentsPast == 0 {
		cfg.Sync.AppointmentsPast = 30 * 24 * time.Hour
	}
	if cfg.Sync.AppointmentsAhead == 0 {
		cfg.Sync.AppointmentsAhead = 90 * 24 * time.Hour
	}
	if cfg.Sync.DispatchWorkers == 0 {
		cfg.Sync.DispatchWorkers = 2
	}
	if cfg.Lock.TTL == 0 {
		cfg.Lock.TTL = 15 * time.Minute
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 5 * time.Second
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
	if c.Lock.TTL < time.Minute {
		return fmt.Errorf("lock.ttl must be at least one minute (worst-case pipeline duration)")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.CRM.ClientID == "" || c.CRM.ClientSecret == "" {
			return fmt.Errorf("crm.client_id and crm.client_secret are required in production")
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

// Addr returns the host:port address for Redis
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
