package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RevenueCat RevenueCatConfig
	Stripe     StripeConfig
	Access     AccessConfig
	Reconcile  ReconcileConfig
	Cron       CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	cfg.RevenueCat.EntitlementID = strings.TrimSpace(cfg.RevenueCat.EntitlementID)
	if cfg.RevenueCat.EntitlementID == "" {
		return nil, fmt.Errorf("%s must not be blank", EnvRevenueCatEntitlementID)
	}
	if _, err := cfg.Access.Weekday(); err != nil {
		return nil, err
	}
	if _, err := cfg.Access.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string   `envconfig:"DAILYDEV_APP_ENV" required:"true"`
	Port           string   `envconfig:"DAILYDEV_APP_PORT" required:"true"`
	LogLevel       string   `envconfig:"DAILYDEV_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"DAILYDEV_LOG_WARN_STACK" default:"false"`
	AllowedOrigins []string `envconfig:"DAILYDEV_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DAILYDEV_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DAILYDEV_DB_DSN"`
	Driver string `envconfig:"DAILYDEV_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DAILYDEV_DB_HOST"`
	LegacyPort     int    `envconfig:"DAILYDEV_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DAILYDEV_DB_USER"`
	LegacyPassword string `envconfig:"DAILYDEV_DB_PASSWORD"`
	LegacyName     string `envconfig:"DAILYDEV_DB_NAME"`
	LegacySSLMode  string `envconfig:"DAILYDEV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DAILYDEV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DAILYDEV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DAILYDEV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DAILYDEV_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"DAILYDEV_AUTO_MIGRATE" default:"false"`
	// SlowQuery is the threshold above which statements are logged as warnings.
	SlowQuery time.Duration `envconfig:"DAILYDEV_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DAILYDEV_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DAILYDEV_REDIS_ADDR"`
	Password     string        `envconfig:"DAILYDEV_REDIS_PASSWORD"`
	DB           int           `envconfig:"DAILYDEV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DAILYDEV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DAILYDEV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DAILYDEV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DAILYDEV_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DAILYDEV_REDIS_WRITE_TIMEOUT" default:"5s"`
	// WebhookIdempotencyTTL bounds how long a processed Stripe event id is remembered.
	WebhookIdempotencyTTL time.Duration `envconfig:"DAILYDEV_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

// JWTConfig holds the shared secret used by the identity provider to sign
// user access tokens (HS256).
type JWTConfig struct {
	Secret string `envconfig:"DAILYDEV_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"DAILYDEV_JWT_ISSUER"`
	// RevocationTTL is how long a signed-out token id stays on the deny list.
	RevocationTTL time.Duration `envconfig:"DAILYDEV_JWT_REVOCATION_TTL" default:"24h"`
}

type RevenueCatConfig struct {
	WebhookSecret string `envconfig:"DAILYDEV_REVENUECAT_WEBHOOK_SECRET"`
	SecretKey     string `envconfig:"DAILYDEV_REVENUECAT_SECRET_KEY"`
	BaseURL       string `envconfig:"DAILYDEV_REVENUECAT_BASE_URL" default:"https://api.revenuecat.com"`
	EntitlementID string `envconfig:"DAILYDEV_REVENUECAT_ENTITLEMENT_ID" required:"true"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"DAILYDEV_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"DAILYDEV_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"DAILYDEV_STRIPE_ENV" default:"test"`
	PriceID       string `envconfig:"DAILYDEV_STRIPE_PRICE_ID"`
	TrialDays     int64  `envconfig:"DAILYDEV_STRIPE_TRIAL_DAYS" default:"7"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type AccessConfig struct {
	FreeWeekday string `envconfig:"DAILYDEV_FREE_WEEKDAY" default:"friday"`
	Timezone    string `envconfig:"DAILYDEV_TIMEZONE" default:"UTC"`
}

// Weekday parses FreeWeekday ("friday", "Fri", "5").
func (a AccessConfig) Weekday() (time.Weekday, error) {
	raw := strings.ToLower(strings.TrimSpace(a.FreeWeekday))
	if raw == "" {
		return time.Friday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if raw == name || raw == name[:3] || raw == fmt.Sprint(int(d)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid %s %q", EnvFreeWeekday, a.FreeWeekday)
}

// Location resolves Timezone via the tz database.
func (a AccessConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvTimezone, a.Timezone, err)
	}
	return loc, nil
}

type ReconcileConfig struct {
	CacheWindow    time.Duration `envconfig:"DAILYDEV_RECONCILE_CACHE_WINDOW" default:"5m"`
	NetworkTimeout time.Duration `envconfig:"DAILYDEV_RECONCILE_NETWORK_TIMEOUT" default:"15s"`
	IdleTTL        time.Duration `envconfig:"DAILYDEV_RECONCILE_IDLE_TTL" default:"30m"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"DAILYDEV_CRON_INTERVAL" default:"15m"`
	SweepLimit int           `envconfig:"DAILYDEV_CRON_SWEEP_LIMIT" default:"200"`
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
