package config

const EnvPrefix = "DAILYDEV"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "DAILYDEV_APP_ENV"
	EnvPort         = "DAILYDEV_APP_PORT"
	EnvLogLevel     = "DAILYDEV_LOG_LEVEL"
	EnvLogWarnStack = "DAILYDEV_LOG_WARN_STACK"
	EnvCORSOrigins  = "DAILYDEV_CORS_ALLOWED_ORIGINS"

	EnvDBDSN      = "DAILYDEV_DB_DSN"
	EnvDBHost     = "DAILYDEV_DB_HOST"
	EnvDBPort     = "DAILYDEV_DB_PORT"
	EnvDBUser     = "DAILYDEV_DB_USER"
	EnvDBPassword = "DAILYDEV_DB_PASSWORD"
	EnvDBName     = "DAILYDEV_DB_NAME"
	EnvDBSSLMode  = "DAILYDEV_DB_SSLMODE"

	EnvRedisURL = "DAILYDEV_REDIS_URL"

	EnvJWTSecret = "DAILYDEV_JWT_SECRET"
	EnvJWTIssuer = "DAILYDEV_JWT_ISSUER"

	EnvRevenueCatWebhookSecret = "DAILYDEV_REVENUECAT_WEBHOOK_SECRET"
	EnvRevenueCatSecretKey     = "DAILYDEV_REVENUECAT_SECRET_KEY"
	EnvRevenueCatEntitlementID = "DAILYDEV_REVENUECAT_ENTITLEMENT_ID"

	EnvStripeAPIKey        = "DAILYDEV_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "DAILYDEV_STRIPE_WEBHOOK_SECRET"
	EnvStripePriceID       = "DAILYDEV_STRIPE_PRICE_ID"
	EnvStripeTrialDays     = "DAILYDEV_STRIPE_TRIAL_DAYS"

	EnvFreeWeekday = "DAILYDEV_FREE_WEEKDAY"
	EnvTimezone    = "DAILYDEV_TIMEZONE"

	EnvReconcileCacheWindow = "DAILYDEV_RECONCILE_CACHE_WINDOW"
	EnvReconcileTimeout     = "DAILYDEV_RECONCILE_NETWORK_TIMEOUT"

	EnvCronInterval   = "DAILYDEV_CRON_INTERVAL"
	EnvCronSweepLimit = "DAILYDEV_CRON_SWEEP_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
