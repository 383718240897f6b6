package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// GatewayConfig holds everything the gateway adapter needs. It is built once
// at startup and injected; nothing in the engine reads gateway credentials
// from the environment after this point.
type GatewayConfig struct {
	BaseURL     string
	MerchantID  string
	APIKey      string
	HMACSecret  string
	CallbackURL string
	Timeout     time.Duration
}

type Config struct {
	Port             string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	KafkaBrokers     string
	EnrollmentTopic  string
	CourseServiceURL string
	UserServiceURL   string
	JWTSecret        string
	Gateway          GatewayConfig
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	gatewayTimeout := 10 * time.Second
	if raw := os.Getenv("GATEWAY_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			gatewayTimeout = d
		}
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8088"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		RedisHost:        getEnv("REDIS_HOST", "localhost"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:     getEnv("KAFKA_BROKERS", "localhost:9092"),
		EnrollmentTopic:  getEnv("ENROLLMENT_EVENTS_TOPIC", "enrollment-events"),
		CourseServiceURL: getEnv("COURSE_SERVICE_URL", "http://course-service:8081"),
		UserServiceURL:   getEnv("USER_SERVICE_URL", "http://user-service:8082"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		Gateway: GatewayConfig{
			BaseURL:     os.Getenv("GATEWAY_BASE_URL"),
			MerchantID:  os.Getenv("GATEWAY_MERCHANT_ID"),
			APIKey:      os.Getenv("GATEWAY_API_KEY"),
			HMACSecret:  os.Getenv("GATEWAY_HMAC_SECRET"),
			CallbackURL: os.Getenv("GATEWAY_CALLBACK_URL"),
			Timeout:     gatewayTimeout,
		},
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" {
		return nil, fmt.Errorf("missing required postgres environment variables")
	}
	if cfg.Gateway.BaseURL == "" || cfg.Gateway.APIKey == "" || cfg.Gateway.HMACSecret == "" {
		return nil, fmt.Errorf("missing required gateway environment variables")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
