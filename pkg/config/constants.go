package config

const (
	EnvPrefix = "WASHFOLD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "WASHFOLD_APP_ENV"
	EnvPort       = "WASHFOLD_APP_PORT"
	EnvLogLevel   = "WASHFOLD_LOG_LEVEL"
	EnvDBDSN      = "WASHFOLD_DB_DSN"
	EnvDBHost     = "WASHFOLD_DB_HOST"
	EnvDBUser     = "WASHFOLD_DB_USER"
	EnvDBName     = "WASHFOLD_DB_NAME"
	EnvRedisURL   = "WASHFOLD_REDIS_URL"
	EnvJWTSecret  = "WASHFOLD_JWT_SECRET"
	EnvJWTIssuer  = "WASHFOLD_JWT_ISSUER"
	EnvJWTExpMins = "WASHFOLD_JWT_EXPIRATION_MINUTES"

	EnvSlotWindows         = "WASHFOLD_SLOT_WINDOWS"
	EnvSlotDefaultCapacity = "WASHFOLD_SLOT_DEFAULT_CAPACITY"

	EnvPaymentsKeyID         = "WASHFOLD_PAYMENTS_KEY_ID"
	EnvPaymentsKeySecret     = "WASHFOLD_PAYMENTS_KEY_SECRET"
	EnvPaymentsWebhookSecret = "WASHFOLD_PAYMENTS_WEBHOOK_SECRET"

	EnvPubSubOrdersTopic    = "WASHFOLD_PUBSUB_ORDERS_TOPIC"
	EnvPubSubAnalyticsTopic = "WASHFOLD_PUBSUB_ANALYTICS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
