package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "STAGEFRONT_APP_ENV"
	EnvPort      = "STAGEFRONT_APP_PORT"
	EnvDBDSN     = "STAGEFRONT_DB_DSN"
	EnvDBHost    = "STAGEFRONT_DB_HOST"
	EnvDBUser    = "STAGEFRONT_DB_USER"
	EnvDBName    = "STAGEFRONT_DB_NAME"
	EnvRedisURL  = "STAGEFRONT_REDIS_URL"
	EnvJWTSecret = "STAGEFRONT_JWT_SECRET"
	EnvJWTIssuer = "STAGEFRONT_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Payments     PaymentsConfig
	Commerce     CommerceConfig
	Stripe       StripeConfig
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
	Env          string `envconfig:"STAGEFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STAGEFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STAGEFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STAGEFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STAGEFRONT_DB_DSN"`
	Driver string `envconfig:"STAGEFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STAGEFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STAGEFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STAGEFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STAGEFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STAGEFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STAGEFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STAGEFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STAGEFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STAGEFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STAGEFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STAGEFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STAGEFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STAGEFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STAGEFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STAGEFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STAGEFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STAGEFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STAGEFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STAGEFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STAGEFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STAGEFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STAGEFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STAGEFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STAGEFRONT_AUTO_MIGRATE" default:"false"`
}

// PaymentsConfig seeds the live payments gate and points at the external
// create-payment-intent function.
type PaymentsConfig struct {
	Enabled        bool          `envconfig:"STAGEFRONT_PAYMENTS_ENABLED" default:"true"`
	IntentEndpoint string        `envconfig:"STAGEFRONT_PAYMENTS_INTENT_ENDPOINT"`
	RequestTimeout time.Duration `envconfig:"STAGEFRONT_PAYMENTS_REQUEST_TIMEOUT" default:"15s"`
}

// CommerceConfig points at the external hosted-checkout API.
type CommerceConfig struct {
	CheckoutSessionEndpoint string        `envconfig:"STAGEFRONT_COMMERCE_CHECKOUT_ENDPOINT"`
	RequestTimeout          time.Duration `envconfig:"STAGEFRONT_COMMERCE_REQUEST_TIMEOUT" default:"15s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"STAGEFRONT_STRIPE_API_KEY"`
	Secret string `envconfig:"STAGEFRONT_STRIPE_SECRET"`
	Env    string `envconfig:"STAGEFRONT_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
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
