package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App            AppConfig
	Service        ServiceConfig
	DB             DBConfig
	FeatureFlags   FeatureFlagsConfig
	Sync           SyncConfig
	Scheduler      SchedulerConfig
	PurchasePortal PortalConfig `envconfig:"STOCKSYNC_PURCHASE_PORTAL"`
	SalesPortal    PortalConfig `envconfig:"STOCKSYNC_SALES_PORTAL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKSYNC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOCKSYNC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKSYNC_DB_DSN"`
	Driver string `envconfig:"STOCKSYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKSYNC_DB_USER"`
	LegacyPassword string `envconfig:"STOCKSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKSYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKSYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKSYNC_AUTO_MIGRATE" default:"false"`
}

// SyncConfig tunes the per-source orchestrators.
type SyncConfig struct {
	ListLimit    int           `envconfig:"STOCKSYNC_SYNC_LIST_LIMIT" default:"100"`
	DetailDelay  time.Duration `envconfig:"STOCKSYNC_SYNC_DETAIL_DELAY" default:"2s"`
	MaxRunErrors int           `envconfig:"STOCKSYNC_SYNC_MAX_RUN_ERRORS" default:"20"`
}

// SchedulerConfig tunes the recurring sync timers.
type SchedulerConfig struct {
	Enabled                bool          `envconfig:"STOCKSYNC_SCHEDULER_ENABLED" default:"true"`
	Interval               time.Duration `envconfig:"STOCKSYNC_SCHEDULER_INTERVAL" default:"15m"`
	CatalogRefreshInterval time.Duration `envconfig:"STOCKSYNC_SCHEDULER_CATALOG_REFRESH_INTERVAL" default:"24h"`
}

// PortalConfig holds the connection settings for one external portal.
type PortalConfig struct {
	BaseURL      string        `envconfig:"BASE_URL"`
	APIKey       string        `envconfig:"API_KEY"`
	APIKeyHeader string        `envconfig:"API_KEY_HEADER" default:"X-API-Key"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"30s"`
	RetryMax     int           `envconfig:"RETRY_MAX" default:"3"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
