package config

const EnvPrefix = "MARKETPLACE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "MARKETPLACE_APP_ENV"
	EnvPort     = "MARKETPLACE_APP_PORT"
	EnvLogLevel = "MARKETPLACE_LOG_LEVEL"

	EnvDBDSN  = "MARKETPLACE_DB_DSN"
	EnvDBHost = "MARKETPLACE_DB_HOST"
	EnvDBUser = "MARKETPLACE_DB_USER"
	EnvDBName = "MARKETPLACE_DB_NAME"

	EnvRedisURL = "MARKETPLACE_REDIS_URL"

	EnvGCPProjectID = "MARKETPLACE_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "MARKETPLACE_PUBSUB_ORDERS_TOPIC"
	EnvPubSubPaymentsSub = "MARKETPLACE_PUBSUB_PAYMENTS_SUBSCRIPTION"

	EnvCheckoutTaxRate         = "MARKETPLACE_CHECKOUT_DEFAULT_TAX_RATE"
	EnvCheckoutSessionTTL      = "MARKETPLACE_CHECKOUT_SESSION_TTL"
	EnvCheckoutConfirmAttempts = "MARKETPLACE_CHECKOUT_CONFIRM_MAX_ATTEMPTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
