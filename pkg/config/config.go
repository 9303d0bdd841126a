package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"google.golang.org/api/option"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Slots        SlotsConfig
	Pricing      PricingConfig
	Payments     PaymentsConfig
	Square       SquareConfig
	RateLimit    RateLimitConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Slots.ParseWindows(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"WASHFOLD_APP_ENV" required:"true"`
	Port         string   `envconfig:"WASHFOLD_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"WASHFOLD_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"WASHFOLD_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"WASHFOLD_LOG_FORMAT" default:"json"`
	Timezone     string   `envconfig:"WASHFOLD_APP_TIMEZONE" default:"Asia/Kolkata"`
	CORSOrigins  []string `envconfig:"WASHFOLD_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the business timezone used for slot dates. Falls back to UTC.
func (a AppConfig) Location() *time.Location {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type ServiceConfig struct {
	Kind string `envconfig:"WASHFOLD_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"WASHFOLD_DB_DSN"`
	Driver string `envconfig:"WASHFOLD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WASHFOLD_DB_HOST"`
	LegacyPort     int    `envconfig:"WASHFOLD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WASHFOLD_DB_USER"`
	LegacyPassword string `envconfig:"WASHFOLD_DB_PASSWORD"`
	LegacyName     string `envconfig:"WASHFOLD_DB_NAME"`
	LegacySSLMode  string `envconfig:"WASHFOLD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WASHFOLD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WASHFOLD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WASHFOLD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WASHFOLD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WASHFOLD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WASHFOLD_REDIS_ADDR"`
	Password     string        `envconfig:"WASHFOLD_REDIS_PASSWORD"`
	DB           int           `envconfig:"WASHFOLD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WASHFOLD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WASHFOLD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WASHFOLD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WASHFOLD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WASHFOLD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"WASHFOLD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WASHFOLD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"WASHFOLD_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WASHFOLD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WASHFOLD_AUTO_MIGRATE" default:"false"`
}

// SlotsConfig describes the named pickup windows offered every day.
// Windows is a comma separated list of NAME=label pairs.
type SlotsConfig struct {
	Windows         string `envconfig:"WASHFOLD_SLOT_WINDOWS" default:"MORNING=9:00 AM - 1:00 PM,EVENING=3:00 PM - 7:00 PM"`
	DefaultCapacity int    `envconfig:"WASHFOLD_SLOT_DEFAULT_CAPACITY" default:"50"`
}

// SlotWindow is one configured named window.
type SlotWindow struct {
	Name  string
	Label string
}

// ParseWindows returns the configured windows in declaration order.
func (s SlotsConfig) ParseWindows() ([]SlotWindow, error) {
	raw := strings.TrimSpace(s.Windows)
	if raw == "" {
		return nil, fmt.Errorf("%s must define at least one window", EnvSlotWindows)
	}
	seen := map[string]struct{}{}
	windows := []SlotWindow{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, label, _ := strings.Cut(part, "=")
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			return nil, fmt.Errorf("invalid slot window %q", part)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate slot window %q", name)
		}
		seen[name] = struct{}{}
		label = strings.TrimSpace(label)
		if label == "" {
			label = name
		}
		windows = append(windows, SlotWindow{Name: name, Label: label})
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%s must define at least one window", EnvSlotWindows)
	}
	return windows, nil
}

type PricingConfig struct {
	OrderNumberPrefix string `envconfig:"WASHFOLD_ORDER_NUMBER_PREFIX" default:"WF"`
	TaxRate           string `envconfig:"WASHFOLD_PRICING_TAX_RATE" default:"0.18"`
	Currency          string `envconfig:"WASHFOLD_PRICING_CURRENCY" default:"INR"`
}

// PaymentsConfig configures the remote payment gateway.
type PaymentsConfig struct {
	Provider      string        `envconfig:"WASHFOLD_PAYMENTS_PROVIDER" default:"gateway"`
	BaseURL       string        `envconfig:"WASHFOLD_PAYMENTS_BASE_URL" default:"https://api.razorpay.com"`
	KeyID         string        `envconfig:"WASHFOLD_PAYMENTS_KEY_ID"`
	KeySecret     string        `envconfig:"WASHFOLD_PAYMENTS_KEY_SECRET"`
	WebhookSecret string        `envconfig:"WASHFOLD_PAYMENTS_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"WASHFOLD_PAYMENTS_TIMEOUT" default:"10s"`
	WebhookTTL    time.Duration `envconfig:"WASHFOLD_PAYMENTS_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"WASHFOLD_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"WASHFOLD_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"WASHFOLD_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type RateLimitConfig struct {
	TrackingWindow time.Duration `envconfig:"WASHFOLD_RATE_LIMIT_TRACKING_WINDOW" default:"1m"`
	TrackingLimit  int           `envconfig:"WASHFOLD_RATE_LIMIT_TRACKING_LIMIT" default:"30"`
	QuoteWindow    time.Duration `envconfig:"WASHFOLD_RATE_LIMIT_QUOTE_WINDOW" default:"1m"`
	QuoteLimit     int           `envconfig:"WASHFOLD_RATE_LIMIT_QUOTE_LIMIT" default:"60"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"WASHFOLD_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"WASHFOLD_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"WASHFOLD_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"WASHFOLD_GOOGLE_APPLICATION_CREDENTIALS"`
}

// ClientOptions picks inline credentials over a credentials file. With
// neither set the Google clients fall back to application default credentials.
func (g GCPConfig) ClientOptions() []option.ClientOption {
	switch {
	case strings.TrimSpace(g.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(g.CredentialsJSON))}
	case strings.TrimSpace(g.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(g.ApplicationCredentials)}
	}
	return nil
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"WASHFOLD_PUBSUB_ORDERS_TOPIC" default:"washfold-order-events"`
	OrdersSubscription    string `envconfig:"WASHFOLD_PUBSUB_ORDERS_SUBSCRIPTION" default:"washfold-order-events-sub"`
	AnalyticsTopic        string `envconfig:"WASHFOLD_PUBSUB_ANALYTICS_TOPIC"`
	AnalyticsSubscription string `envconfig:"WASHFOLD_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"washfold-analytics-sub"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"WASHFOLD_BIGQUERY_DATASET" default:"washfold"`
	OrderEventsTable string `envconfig:"WASHFOLD_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type OutboxConfig struct {
	BatchSize       int           `envconfig:"WASHFOLD_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS  int           `envconfig:"WASHFOLD_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts     int           `envconfig:"WASHFOLD_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionPeriod time.Duration `envconfig:"WASHFOLD_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"WASHFOLD_CRON_INTERVAL" default:"5m"`
	LockTTL          time.Duration `envconfig:"WASHFOLD_CRON_LOCK_TTL" default:"4m"`
	OrderExpiryBatch int           `envconfig:"WASHFOLD_CRON_ORDER_EXPIRY_BATCH" default:"100"`
	RetentionBatch   int           `envconfig:"WASHFOLD_CRON_RETENTION_BATCH" default:"500"`
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
