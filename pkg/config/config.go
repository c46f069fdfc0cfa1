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
	GRPC          GRPCConfig
	Webpay        WebpayConfig
	Currency      CurrencyConfig
	Notifier      NotifierConfig
	PubSub        PubSubConfig
	Cron          CronConfig
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
	Env          string   `envconfig:"BACKOFFICE_APP_ENV" required:"true"`
	Port         string   `envconfig:"BACKOFFICE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"BACKOFFICE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"BACKOFFICE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BACKOFFICE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"BACKOFFICE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"BACKOFFICE_DB_DSN"`

	Host     string `envconfig:"BACKOFFICE_DB_HOST"`
	Port     int    `envconfig:"BACKOFFICE_DB_PORT" default:"5432"`
	User     string `envconfig:"BACKOFFICE_DB_USER"`
	Password string `envconfig:"BACKOFFICE_DB_PASSWORD"`
	Name     string `envconfig:"BACKOFFICE_DB_NAME"`
	SSLMode  string `envconfig:"BACKOFFICE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BACKOFFICE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BACKOFFICE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BACKOFFICE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BACKOFFICE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the duration above which a statement is logged as a warning.
	SlowQuery time.Duration `envconfig:"BACKOFFICE_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BACKOFFICE_REDIS_URL"`
	Address      string        `envconfig:"BACKOFFICE_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"BACKOFFICE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BACKOFFICE_REDIS_DB" default:"0"`
	KeyPrefix    string        `envconfig:"BACKOFFICE_REDIS_KEY_PREFIX" default:"ferremas"`
	PoolSize     int           `envconfig:"BACKOFFICE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BACKOFFICE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BACKOFFICE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BACKOFFICE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BACKOFFICE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BACKOFFICE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BACKOFFICE_JWT_ISSUER" default:"ferremas-backoffice"`
	ExpirationMinutes int    `envconfig:"BACKOFFICE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PasswordConfig tunes argon2id hashing.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BACKOFFICE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BACKOFFICE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BACKOFFICE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BACKOFFICE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BACKOFFICE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow time.Duration `envconfig:"BACKOFFICE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginLimit  int           `envconfig:"BACKOFFICE_AUTH_RATE_LIMIT_LOGIN_LIMIT" default:"5"`
	IPLimit     int           `envconfig:"BACKOFFICE_AUTH_RATE_LIMIT_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BACKOFFICE_AUTO_MIGRATE" default:"false"`
}

type GRPCConfig struct {
	Port string `envconfig:"BACKOFFICE_GRPC_PORT" default:"50051"`
}

// WebpayConfig points the card gateway client at the integration or production environment.
type WebpayConfig struct {
	BaseURL      string        `envconfig:"BACKOFFICE_WEBPAY_BASE_URL" default:"https://webpay3gint.transbank.cl"`
	CommerceCode string        `envconfig:"BACKOFFICE_WEBPAY_COMMERCE_CODE" default:"597055555532"`
	APIKey       string        `envconfig:"BACKOFFICE_WEBPAY_API_KEY"`
	ReturnURL    string        `envconfig:"BACKOFFICE_WEBPAY_RETURN_URL" default:"http://localhost:8080/api/payments/confirm"`
	Timeout      time.Duration `envconfig:"BACKOFFICE_WEBPAY_TIMEOUT" default:"10s"`
	MaxRetries   int           `envconfig:"BACKOFFICE_WEBPAY_MAX_RETRIES" default:"2"`
}

type CurrencyConfig struct {
	BaseURL        string        `envconfig:"BACKOFFICE_CURRENCY_BASE_URL" default:"https://api.apilayer.com/exchangerates_data"`
	APIKey         string        `envconfig:"BACKOFFICE_CURRENCY_API_KEY"`
	BaseCurrency   string        `envconfig:"BACKOFFICE_CURRENCY_BASE" default:"CLP"`
	FreshnessHours int           `envconfig:"BACKOFFICE_CURRENCY_FRESHNESS_HOURS" default:"24"`
	Timeout        time.Duration `envconfig:"BACKOFFICE_CURRENCY_TIMEOUT" default:"10s"`
	MaxRetries     int           `envconfig:"BACKOFFICE_CURRENCY_MAX_RETRIES" default:"2"`
}

// Freshness returns the window inside which a stored rate is considered current.
func (c CurrencyConfig) Freshness() time.Duration {
	if c.FreshnessHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.FreshnessHours) * time.Hour
}

type NotifierConfig struct {
	BufferSize       int `envconfig:"BACKOFFICE_NOTIFIER_BUFFER_SIZE" default:"256"`
	PublishTimeoutMS int `envconfig:"BACKOFFICE_NOTIFIER_PUBLISH_TIMEOUT_MS" default:"2000"`
	HeartbeatSeconds int `envconfig:"BACKOFFICE_SSE_HEARTBEAT_SECONDS" default:"15"`
}

// PubSubConfig enables the optional Pub/Sub mirror of notification events.
type PubSubConfig struct {
	ProjectID   string `envconfig:"BACKOFFICE_GCP_PROJECT_ID"`
	EventsTopic string `envconfig:"BACKOFFICE_PUBSUB_EVENTS_TOPIC"`
}

func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ProjectID) != "" && strings.TrimSpace(p.EventsTopic) != ""
}

type CronConfig struct {
	Tick                  time.Duration `envconfig:"BACKOFFICE_CRON_TICK" default:"1m"`
	ExchangeRatesInterval time.Duration `envconfig:"BACKOFFICE_CRON_EXCHANGE_RATES_INTERVAL" default:"6h"`
	StalePaymentsInterval time.Duration `envconfig:"BACKOFFICE_CRON_STALE_PAYMENTS_INTERVAL" default:"15m"`
	PendingPaymentTTL     time.Duration `envconfig:"BACKOFFICE_CRON_PENDING_PAYMENT_TTL" default:"48h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}
	db.DSN = u.String()
	return nil
}
