package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Checkout     CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETPLACE_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETPLACE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETPLACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETPLACE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MARKETPLACE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN                string        `envconfig:"MARKETPLACE_DB_DSN"`
	SlowQueryThreshold time.Duration `envconfig:"MARKETPLACE_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`

	LegacyHost     string `envconfig:"MARKETPLACE_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETPLACE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETPLACE_DB_USER"`
	LegacyPassword string `envconfig:"MARKETPLACE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETPLACE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETPLACE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETPLACE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETPLACE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETPLACE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARKETPLACE_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETPLACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETPLACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETPLACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETPLACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETPLACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// FeatureFlagsConfig toggles dev conveniences. StaticPromos resolves promo
// codes from the built-in catalog instead of the promo_codes table.
type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"MARKETPLACE_AUTO_MIGRATE" default:"false"`
	StaticPromos bool `envconfig:"MARKETPLACE_STATIC_PROMOS" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MARKETPLACE_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MARKETPLACE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MARKETPLACE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MARKETPLACE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic          string `envconfig:"MARKETPLACE_PUBSUB_ORDERS_TOPIC" required:"true"`
	PaymentsSubscription string `envconfig:"MARKETPLACE_PUBSUB_PAYMENTS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"MARKETPLACE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"MARKETPLACE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"MARKETPLACE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishTimeout time.Duration `envconfig:"MARKETPLACE_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
}

type CheckoutConfig struct {
	Currency            string        `envconfig:"MARKETPLACE_CHECKOUT_CURRENCY" default:"USD"`
	SessionTTL          time.Duration `envconfig:"MARKETPLACE_CHECKOUT_SESSION_TTL" default:"30m"`
	SessionRetention    time.Duration `envconfig:"MARKETPLACE_CHECKOUT_SESSION_RETENTION" default:"24h"`
	DefaultTaxRate      string        `envconfig:"MARKETPLACE_CHECKOUT_DEFAULT_TAX_RATE" default:"0"`
	ConfirmMaxAttempts  int           `envconfig:"MARKETPLACE_CHECKOUT_CONFIRM_MAX_ATTEMPTS" default:"3"`
	ConfirmBackoff      time.Duration `envconfig:"MARKETPLACE_CHECKOUT_CONFIRM_BACKOFF" default:"100ms"`
	DeliveryLeadMinutes int           `envconfig:"MARKETPLACE_CHECKOUT_DELIVERY_LEAD_MINUTES" default:"30"`
	IdempotencyKeyTTL   time.Duration `envconfig:"MARKETPLACE_CHECKOUT_IDEMPOTENCY_KEY_TTL" default:"24h"`
}

// TaxRate parses DefaultTaxRate as a fraction (0.0825 for 8.25%).
func (c CheckoutConfig) TaxRate() (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.DefaultTaxRate)
	if raw == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", EnvCheckoutTaxRate, err)
	}
	return rate, nil
}

func (c CheckoutConfig) validate() error {
	rate, err := c.TaxRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be within [0, 1)", EnvCheckoutTaxRate)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckoutSessionTTL)
	}
	if c.ConfirmMaxAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCheckoutConfirmAttempts)
	}
	return nil
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
