package app

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/coursehub-backend/internal/clients/redis"
	"github.com/yungbote/coursehub-backend/internal/data/db"
	"github.com/yungbote/coursehub-backend/internal/services"
)

const (
	DispatchLocal    = "local"
	DispatchTemporal = "temporal"
)

type Config struct {
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	LogMode     string `mapstructure:"LOG_MODE"`
	Environment string `mapstructure:"APP_ENV"`
	CORSOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	Postgres db.PostgresConfig `mapstructure:",squash"`
	Redis    redis.Config      `mapstructure:",squash"`

	JWTSecretKey           string `mapstructure:"JWT_SECRET_KEY"`
	AccessTokenTTLSeconds  int    `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTLSeconds int    `mapstructure:"REFRESH_TOKEN_TTL"`

	Checkout services.CheckoutConfig `mapstructure:",squash"`

	RunServer   bool   `mapstructure:"RUN_SERVER"`
	RunWorker   bool   `mapstructure:"RUN_WORKER"`
	JobDispatch string `mapstructure:"JOB_DISPATCH"`

	InactiveSweepInterval time.Duration `mapstructure:"INACTIVE_SWEEP_INTERVAL"`
	InactiveAfter         time.Duration `mapstructure:"INACTIVE_AFTER"`
	NotifyDebounce        time.Duration `mapstructure:"NOTIFY_DEBOUNCE"`
	NotifyConcurrency     int           `mapstructure:"NOTIFY_CONCURRENCY"`
	CourseCacheTTL        time.Duration `mapstructure:"COURSE_CACHE_TTL"`
	EventChannel          string        `mapstructure:"EVENT_CHANNEL"`

	RateLimitLogin  int           `mapstructure:"RATE_LIMIT_LOGIN"`
	RateLimitWindow time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
	MetricsAddr    string `mapstructure:"METRICS_ADDR"`
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLSeconds) * time.Second
}

func (c Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLSeconds) * time.Second
}

func (c Config) UseTemporal() bool {
	return strings.EqualFold(strings.TrimSpace(c.JobDispatch), DispatchTemporal)
}

var configDefaults = map[string]any{
	"HTTP_ADDR":            ":8080",
	"LOG_MODE":             "development",
	"APP_ENV":              "development",
	"CORS_ALLOWED_ORIGINS": "",

	"POSTGRES_HOST":     "localhost",
	"POSTGRES_PORT":     "5432",
	"POSTGRES_USER":     "postgres",
	"POSTGRES_PASSWORD": "postgres",
	"POSTGRES_NAME":     "coursehub",
	"POSTGRES_SSLMODE":  "disable",

	"REDIS_ADDR":     "",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"JWT_SECRET_KEY":    "defaultsecret",
	"ACCESS_TOKEN_TTL":  3600,
	"REFRESH_TOKEN_TTL": 86400,

	"PAYMENT_SUCCESS_URL": "",
	"PAYMENT_CANCEL_URL":  "",
	"PAYMENT_CURRENCY":    "rub",

	"RUN_SERVER":   true,
	"RUN_WORKER":   true,
	"JOB_DISPATCH": DispatchLocal,

	"INACTIVE_SWEEP_INTERVAL": 24 * time.Hour,
	"INACTIVE_AFTER":          services.DefaultInactiveAfter,
	"NOTIFY_DEBOUNCE":         services.DefaultNotifyDebounce,
	"NOTIFY_CONCURRENCY":      8,
	"COURSE_CACHE_TTL":        time.Hour,
	"EVENT_CHANNEL":           "",

	"RATE_LIMIT_LOGIN":  10,
	"RATE_LIMIT_WINDOW": time.Minute,

	"METRICS_ENABLED": false,
	"METRICS_ADDR":    "",
}

// LoadConfig reads an optional app.env under path, then the environment.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	if strings.TrimSpace(path) != "" {
		v.AddConfigPath(path)
	}
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, def := range configDefaults {
		v.SetDefault(key, def)
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, err
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
