package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	CORS    CORSConfig
	Log     LogConfig
	JWT     JWTConfig
	Booking BookingConfig
	Payment PaymentConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Tracing TracingConfig
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" required:"true"`
	GinMode         string        `envconfig:"GIN_MODE" default:"release"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	DBName   string `envconfig:"DB_NAME"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"20"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key,X-Request-ID"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length,X-Request-ID"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type JWTConfig struct {
	Secret   string        `envconfig:"JWT_SECRET" required:"true"`
	Issuer   string        `envconfig:"JWT_ISSUER" default:"stayhub-identity"`
	Duration time.Duration `envconfig:"JWT_DURATION" default:"24h"`
}

type BookingConfig struct {
	HoldTTL            time.Duration `envconfig:"BOOKING_HOLD_TTL" default:"2m"`
	ReclaimInterval    time.Duration `envconfig:"BOOKING_RECLAIM_INTERVAL" default:"30s"`
	ReclaimBatch       int           `envconfig:"BOOKING_RECLAIM_BATCH" default:"100"`
	PaymentMaxAttempts int           `envconfig:"BOOKING_PAYMENT_MAX_ATTEMPTS" default:"3"`
	PaymentBackoff     time.Duration `envconfig:"BOOKING_PAYMENT_BACKOFF" default:"200ms"`
	RefundTiers        string        `envconfig:"BOOKING_REFUND_TIERS" default:"7:100,2:50"`
	IdempotencyTTL     time.Duration `envconfig:"BOOKING_IDEMPOTENCY_TTL" default:"24h"`
}

const (
	PaymentDriverSandbox = "sandbox"
	PaymentDriverHTTP    = "http"
)

type PaymentConfig struct {
	Driver  string        `envconfig:"PAYMENT_DRIVER" default:"sandbox"`
	BaseURL string        `envconfig:"PAYMENT_BASE_URL"`
	APIKey  string        `envconfig:"PAYMENT_API_KEY"`
	Timeout time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	Enabled         bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Addr            string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password        string        `envconfig:"REDIS_PASSWORD"`
	DB              int           `envconfig:"REDIS_DB" default:"0"`
	AvailabilityTTL time.Duration `envconfig:"REDIS_AVAILABILITY_TTL" default:"30s"`
}

type KafkaConfig struct {
	Brokers       []string      `envconfig:"KAFKA_BROKERS"`
	TopicPrefix   string        `envconfig:"KAFKA_TOPIC_PREFIX" default:"stayhub"`
	RelayInterval time.Duration `envconfig:"KAFKA_RELAY_INTERVAL" default:"2s"`
	RelayBatch    int           `envconfig:"KAFKA_RELAY_BATCH" default:"50"`
}

type TracingConfig struct {
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"stayhub"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	if cfg.Payment.Driver == PaymentDriverHTTP && cfg.Payment.BaseURL == "" {
		return Config{}, fmt.Errorf("PAYMENT_BASE_URL is required when PAYMENT_DRIVER=%s", PaymentDriverHTTP)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:    "8889", // Test port
			GinMode: "test",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
			MaxConns: 10,
		},
		Log: LogConfig{
			Level: "error", // Error level only for tests
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Issuer:   "stayhub-test",
			Duration: time.Hour,
		},
		Booking: BookingConfig{
			HoldTTL:            2 * time.Minute,
			ReclaimInterval:    time.Second,
			ReclaimBatch:       100,
			PaymentMaxAttempts: 3,
			PaymentBackoff:     time.Millisecond,
			RefundTiers:        "7:100,2:50",
			IdempotencyTTL:     24 * time.Hour,
		},
		Payment: PaymentConfig{
			Driver:  PaymentDriverSandbox,
			Timeout: time.Second,
		},
		Kafka: KafkaConfig{
			TopicPrefix:   "stayhub-test",
			RelayInterval: 100 * time.Millisecond,
			RelayBatch:    50,
		},
	}
}
