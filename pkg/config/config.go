package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	BigQuery      BigQueryConfig
	Market        MarketConfig
	Storage       StorageConfig
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
	Env          string `envconfig:"VAULTED_APP_ENV" required:"true"`
	Port         string `envconfig:"VAULTED_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VAULTED_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VAULTED_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VAULTED_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VAULTED_DB_DSN"`
	Driver string `envconfig:"VAULTED_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VAULTED_DB_HOST"`
	LegacyPort     int    `envconfig:"VAULTED_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VAULTED_DB_USER"`
	LegacyPassword string `envconfig:"VAULTED_DB_PASSWORD"`
	LegacyName     string `envconfig:"VAULTED_DB_NAME"`
	LegacySSLMode  string `envconfig:"VAULTED_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VAULTED_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VAULTED_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VAULTED_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VAULTED_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VAULTED_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VAULTED_REDIS_ADDR"`
	Password     string        `envconfig:"VAULTED_REDIS_PASSWORD"`
	DB           int           `envconfig:"VAULTED_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VAULTED_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VAULTED_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VAULTED_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VAULTED_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VAULTED_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"VAULTED_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"VAULTED_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"VAULTED_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"VAULTED_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VAULTED_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VAULTED_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VAULTED_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VAULTED_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VAULTED_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"VAULTED_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"VAULTED_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"VAULTED_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"VAULTED_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"VAULTED_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"VAULTED_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VAULTED_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VAULTED_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"VAULTED_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VAULTED_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VAULTED_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VAULTED_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LedgerTopic         string `envconfig:"VAULTED_PUBSUB_LEDGER_TOPIC" default:"vlt-ledger-events"`
	LedgerSubscription  string `envconfig:"VAULTED_PUBSUB_LEDGER_SUBSCRIPTION" required:"true"`
	MarketTopic         string `envconfig:"VAULTED_PUBSUB_MARKET_TOPIC" default:"vlt-market-events"`
	MarketSubscription  string `envconfig:"VAULTED_PUBSUB_MARKET_SUBSCRIPTION" required:"true"`
	CustodyTopic        string `envconfig:"VAULTED_PUBSUB_CUSTODY_TOPIC" default:"vlt-custody-events"`
	CustodySubscription string `envconfig:"VAULTED_PUBSUB_CUSTODY_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VAULTED_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VAULTED_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VAULTED_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"VAULTED_BIGQUERY_DATASET" default:"vaulted_analytics"`
	MarketEventsTable string `envconfig:"VAULTED_BIGQUERY_MARKET_EVENTS_TABLE" default:"market_events"`
}

type MarketConfig struct {
	DefaultFeeBps     int    `envconfig:"VAULTED_MARKET_DEFAULT_FEE_BPS" default:"250"`
	FeeCollectorEmail string `envconfig:"VAULTED_MARKET_FEE_COLLECTOR_EMAIL" default:"fees@vaulted.internal"`
}

type StorageConfig struct {
	GracePeriod  time.Duration `envconfig:"VAULTED_STORAGE_GRACE_PERIOD" default:"4320h"`
	SweepEnabled bool          `envconfig:"VAULTED_STORAGE_SEIZE_SWEEP_ENABLED" default:"true"`
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
