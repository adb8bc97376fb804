package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "BAZARLY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "BAZARLY_DB_DSN"
	EnvDBHost = "BAZARLY_DB_HOST"
	EnvDBUser = "BAZARLY_DB_USER"
	EnvDBName = "BAZARLY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Payment       PaymentConfig
	SSLCommerz    SSLCommerzConfig
	Sendgrid      SendgridConfig
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
	Env          string `envconfig:"BAZARLY_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZARLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAZARLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZARLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BAZARLY_DB_DSN"`
	Driver string `envconfig:"BAZARLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZARLY_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZARLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZARLY_DB_USER"`
	LegacyPassword string `envconfig:"BAZARLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZARLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZARLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZARLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZARLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZARLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZARLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZARLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAZARLY_REDIS_ADDR"`
	Password     string        `envconfig:"BAZARLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZARLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZARLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZARLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZARLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZARLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZARLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BAZARLY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BAZARLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BAZARLY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BAZARLY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAZARLY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAZARLY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAZARLY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAZARLY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAZARLY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BAZARLY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BAZARLY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BAZARLY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BAZARLY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BAZARLY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BAZARLY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAZARLY_AUTO_MIGRATE" default:"false"`
}

// PaymentConfig carries the externally visible base URL the gateway redirects
// back to, plus the window during which a pending order may still be cancelled.
type PaymentConfig struct {
	CallbackBaseURL      string        `envconfig:"BAZARLY_PAYMENT_CALLBACK_BASE_URL" required:"true"`
	CancellationWindow   time.Duration `envconfig:"BAZARLY_ORDER_CANCELLATION_WINDOW" default:"24h"`
	CallbackGuardTTL     time.Duration `envconfig:"BAZARLY_PAYMENT_CALLBACK_GUARD_TTL" default:"5m"`
	GatewayErrorRetryMax int           `envconfig:"BAZARLY_PAYMENT_GATEWAY_RETRY_MAX" default:"2"`
}

type SSLCommerzConfig struct {
	StoreID       string        `envconfig:"BAZARLY_SSLCOMMERZ_STORE_ID" required:"true"`
	StorePassword string        `envconfig:"BAZARLY_SSLCOMMERZ_STORE_PASSWORD" required:"true"`
	Env           string        `envconfig:"BAZARLY_SSLCOMMERZ_ENV" default:"sandbox"`
	Timeout       time.Duration `envconfig:"BAZARLY_SSLCOMMERZ_TIMEOUT" default:"15s"`
	Currency      string        `envconfig:"BAZARLY_SSLCOMMERZ_CURRENCY" default:"BDT"`
}

// Environment returns the normalized SSLCommerz environment (sandbox/live).
func (s SSLCommerzConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type SendgridConfig struct {
	APIKey      string `envconfig:"BAZARLY_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"BAZARLY_SENDGRID_FROM_EMAIL"`
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
