package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PARES"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv    = "PARES_APP_ENV"
	EnvPort      = "PARES_APP_PORT"
	EnvDBDSN     = "PARES_DB_DSN"
	EnvDBHost    = "PARES_DB_HOST"
	EnvDBUser    = "PARES_DB_USER"
	EnvDBName    = "PARES_DB_NAME"
	EnvRedisURL  = "PARES_REDIS_URL"
	EnvJWTSecret = "PARES_JWT_SECRET"
	EnvJWTIssuer = "PARES_JWT_ISSUER"
	EnvJWTExpMin = "PARES_JWT_EXPIRATION_MINUTES"
	EnvBuxSecret = "PARES_BUX_API_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Orders        OrdersConfig
	Bux           BuxConfig
	SMTP          SMTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PARES_APP_ENV" required:"true"`
	Port         string `envconfig:"PARES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PARES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PARES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PARES_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PARES_DB_DSN"`
	Driver string `envconfig:"PARES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PARES_DB_HOST"`
	LegacyPort     int    `envconfig:"PARES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PARES_DB_USER"`
	LegacyPassword string `envconfig:"PARES_DB_PASSWORD"`
	LegacyName     string `envconfig:"PARES_DB_NAME"`
	LegacySSLMode  string `envconfig:"PARES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PARES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PARES_REDIS_ADDR"`
	Password     string        `envconfig:"PARES_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PARES_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PARES_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PARES_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenDays  int    `envconfig:"PARES_JWT_REFRESH_TOKEN_DAYS" default:"30"`
}

// RefreshTokenTTL converts the configured refresh token lifetime to a duration.
func (c JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenDays) * 24 * time.Hour
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PARES_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PARES_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PARES_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PARES_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PARES_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PARES_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PARES_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PARES_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PARES_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PARES_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PARES_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PARES_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PARES_AUTO_MIGRATE" default:"false"`
}

// Draft conflict policies for AddToCart when the item already sits in the draft.
const (
	DraftConflictReplace = "replace"
	DraftConflictAdd     = "add"
	DraftConflictReject  = "reject"
)

type OrdersConfig struct {
	// DraftConflictPolicy decides what a second cart confirmation does when
	// the customer already has a draft: replace it, add the new lines to it,
	// or reject the request.
	DraftConflictPolicy string `envconfig:"PARES_ORDERS_DRAFT_CONFLICT_POLICY" default:"replace"`

	// ReleaseStockOnCancel restores reserved stock when an order is cancelled.
	ReleaseStockOnCancel bool `envconfig:"PARES_ORDERS_RELEASE_STOCK_ON_CANCEL" default:"false"`

	// PendingTTL bounds how long an unpaid checkout may sit before the
	// sweep job expires it and returns its stock.
	PendingTTL    time.Duration `envconfig:"PARES_ORDERS_PENDING_TTL" default:"24h"`
	SweepInterval time.Duration `envconfig:"PARES_ORDERS_SWEEP_INTERVAL" default:"5m"`
}

func (o OrdersConfig) validate() error {
	switch o.DraftConflictPolicy {
	case DraftConflictReplace, DraftConflictAdd, DraftConflictReject:
		return nil
	default:
		return fmt.Errorf("invalid PARES_ORDERS_DRAFT_CONFLICT_POLICY %q", o.DraftConflictPolicy)
	}
}

type BuxConfig struct {
	APIKey          string        `envconfig:"PARES_BUX_API_KEY"`
	APISecret       string        `envconfig:"PARES_BUX_API_SECRET"`
	ClientID        string        `envconfig:"PARES_BUX_CLIENT_ID"`
	BaseURL         string        `envconfig:"PARES_BUX_BASE_URL" default:"https://api.bux.ph/v1"`
	NotificationURL string        `envconfig:"PARES_BUX_NOTIFICATION_URL"`
	RedirectURL     string        `envconfig:"PARES_BUX_REDIRECT_URL"`
	EnabledChannels []string      `envconfig:"PARES_BUX_ENABLED_CHANNELS" default:"gcash,grabpay,card"`
	CheckoutExpiry  time.Duration `envconfig:"PARES_BUX_CHECKOUT_EXPIRY" default:"2h"`
	Timeout         time.Duration `envconfig:"PARES_BUX_TIMEOUT" default:"15s"`
}

type SMTPConfig struct {
	Host     string `envconfig:"PARES_SMTP_HOST"`
	Port     int    `envconfig:"PARES_SMTP_PORT" default:"587"`
	Username string `envconfig:"PARES_SMTP_USERNAME"`
	Password string `envconfig:"PARES_SMTP_PASSWORD"`
	From     string `envconfig:"PARES_SMTP_FROM"`
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
