package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is the envconfig prefix shared by every binary.
	EnvPrefix = "LOKAPASAR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Midtrans     MidtransConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Reconcile    ReconcileConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"LOKAPASAR_APP_ENV" required:"true"`
	Port         string `envconfig:"LOKAPASAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LOKAPASAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOKAPASAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LOKAPASAR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"LOKAPASAR_DB_DSN"`

	LegacyHost     string `envconfig:"LOKAPASAR_DB_HOST"`
	LegacyPort     int    `envconfig:"LOKAPASAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOKAPASAR_DB_USER"`
	LegacyPassword string `envconfig:"LOKAPASAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOKAPASAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOKAPASAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOKAPASAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOKAPASAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOKAPASAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOKAPASAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOKAPASAR_REDIS_URL"`
	Address      string        `envconfig:"LOKAPASAR_REDIS_ADDR"`
	Password     string        `envconfig:"LOKAPASAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOKAPASAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOKAPASAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOKAPASAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOKAPASAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOKAPASAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOKAPASAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type MidtransConfig struct {
	ServerKey      string        `envconfig:"LOKAPASAR_MIDTRANS_SERVER_KEY" required:"true"`
	Env            string        `envconfig:"LOKAPASAR_MIDTRANS_ENV" default:"sandbox"`
	RequestTimeout time.Duration `envconfig:"LOKAPASAR_MIDTRANS_REQUEST_TIMEOUT" default:"10s"`
}

// Environment returns the normalized Midtrans environment (sandbox/production).
func (m MidtransConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(m.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID       string `envconfig:"LOKAPASAR_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"LOKAPASAR_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"LOKAPASAR_PUBSUB_ORDERS_TOPIC" default:"lp-order-events"`
	PaymentsTopic      string `envconfig:"LOKAPASAR_PUBSUB_PAYMENTS_TOPIC" default:"lp-payment-events"`
	NotificationsTopic string `envconfig:"LOKAPASAR_PUBSUB_NOTIFICATIONS_TOPIC" default:"lp-notification-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LOKAPASAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LOKAPASAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LOKAPASAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// ReconcileConfig carries the sweep cadence for the reconciliation workers.
type ReconcileConfig struct {
	ExpirySweepInterval      time.Duration `envconfig:"LOKAPASAR_RECONCILE_EXPIRY_INTERVAL" default:"1m"`
	SettlementSweepInterval  time.Duration `envconfig:"LOKAPASAR_RECONCILE_SETTLEMENT_INTERVAL" default:"10m"`
	RefundSyncInterval       time.Duration `envconfig:"LOKAPASAR_RECONCILE_REFUND_SYNC_INTERVAL" default:"5m"`
	RetentionInterval        time.Duration `envconfig:"LOKAPASAR_RECONCILE_RETENTION_INTERVAL" default:"24h"`
	ShippingReminderAge      time.Duration `envconfig:"LOKAPASAR_RECONCILE_SHIPPING_REMINDER_AGE" default:"24h"`
	ShippingReminderInterval time.Duration `envconfig:"LOKAPASAR_RECONCILE_SHIPPING_REMINDER_INTERVAL" default:"1h"`
	AttemptRetention         time.Duration `envconfig:"LOKAPASAR_RECONCILE_ATTEMPT_RETENTION" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LOKAPASAR_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		"LOKAPASAR_DB_HOST": db.LegacyHost,
		"LOKAPASAR_DB_USER": db.LegacyUser,
		"LOKAPASAR_DB_NAME": db.LegacyName,
	}
	for _, key := range []string{"LOKAPASAR_DB_HOST", "LOKAPASAR_DB_USER", "LOKAPASAR_DB_NAME"} {
		if legacyValues[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either LOKAPASAR_DB_DSN or %s are required", strings.Join(missing, ", "))
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
