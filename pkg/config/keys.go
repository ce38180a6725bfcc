package config

// EnvPrefix is applied by envconfig on top of the explicit tags.
const EnvPrefix = "VAULTED"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "VAULTED_APP_ENV"
	EnvPort                   = "VAULTED_APP_PORT"
	EnvDBDSN                  = "VAULTED_DB_DSN"
	EnvDBHost                 = "VAULTED_DB_HOST"
	EnvDBUser                 = "VAULTED_DB_USER"
	EnvDBName                 = "VAULTED_DB_NAME"
	EnvRedisURL               = "VAULTED_REDIS_URL"
	EnvJWTSecret              = "VAULTED_JWT_SECRET"
	EnvJWTIssuer              = "VAULTED_JWT_ISSUER"
	EnvJWTExpMins             = "VAULTED_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "VAULTED_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "VAULTED_GCP_PROJECT_ID"
	EnvPubSubLedgerTopic      = "VAULTED_PUBSUB_LEDGER_TOPIC"
	EnvPubSubLedgerSub        = "VAULTED_PUBSUB_LEDGER_SUBSCRIPTION"
	EnvPubSubMarketTopic      = "VAULTED_PUBSUB_MARKET_TOPIC"
	EnvPubSubMarketSub        = "VAULTED_PUBSUB_MARKET_SUBSCRIPTION"
	EnvPubSubCustodyTopic     = "VAULTED_PUBSUB_CUSTODY_TOPIC"
	EnvPubSubCustodySub       = "VAULTED_PUBSUB_CUSTODY_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
