package config

const (
	EnvPrefix = "CARTFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DefaultSQLiteDSN = "file:cartflow.db?_foreign_keys=on"

	EnvAppEnv   = "CARTFLOW_APP_ENV"
	EnvPort     = "CARTFLOW_APP_PORT"
	EnvLogLevel = "CARTFLOW_LOG_LEVEL"

	EnvDBDSN    = "CARTFLOW_DB_DSN"
	EnvDBDriver = "CARTFLOW_DB_DRIVER"
	EnvDBHost   = "CARTFLOW_DB_HOST"
	EnvDBPort   = "CARTFLOW_DB_PORT"
	EnvDBUser   = "CARTFLOW_DB_USER"
	EnvDBPass   = "CARTFLOW_DB_PASSWORD"
	EnvDBName   = "CARTFLOW_DB_NAME"

	EnvRedisURL = "CARTFLOW_REDIS_URL"

	EnvJWTSecret  = "CARTFLOW_JWT_SECRET"
	EnvJWTIssuer  = "CARTFLOW_JWT_ISSUER"
	EnvJWTExpMins = "CARTFLOW_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "CARTFLOW_USE_SQLITE"
	EnvAutoMigrate = "CARTFLOW_AUTO_MIGRATE"

	EnvOrdersTaxRate          = "CARTFLOW_ORDERS_TAX_RATE"
	EnvOrdersShippingFlat     = "CARTFLOW_ORDERS_SHIPPING_FLAT"
	EnvOrdersStrictTransition = "CARTFLOW_ORDERS_STRICT_TRANSITIONS"

	EnvOutboxSink       = "CARTFLOW_OUTBOX_SINK"
	EnvGCPProjectID     = "CARTFLOW_GCP_PROJECT_ID"
	EnvPubSubOrderTopic = "CARTFLOW_PUBSUB_ORDERS_TOPIC"
	EnvRabbitMQURL      = "CARTFLOW_RABBITMQ_URL"

	OutboxSinkPubSub   = "pubsub"
	OutboxSinkRabbitMQ = "rabbitmq"
)

var dsnPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
