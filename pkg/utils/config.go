package utils

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	OTP       OTPConfig
	RateLimit RateLimitConfig
	Payment   PaymentConfig
	Kafka     KafkaConfig
}

type AppConfig struct {
	Name           string
	Port           string
	Debug          bool
	LogPath        string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

// RedisConfig is optional; an empty Addr keeps OTP and rate-limit state in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	ExpiryMinutes int
	CookieName    string
	CookieSecure  bool
}

type OTPConfig struct {
	ExpiryMinutes int
	HashCost      int
	Demo          DemoOTPConfig
}

// DemoOTPConfig enables a fixed code for one phone number so the kiosk can be
// demonstrated without an SMS provider. Keep disabled in production.
type DemoOTPConfig struct {
	Enabled bool
	Phone   string
	Code    string
}

type RateLimitConfig struct {
	OTPLimit           int
	OTPWindowMinutes   int
	LoginLimit         int
	LoginWindowMinutes int
}

type PaymentConfig struct {
	GatewayURL       string
	KeyID            string
	KeySecret        string
	WebhookSecret    string
	Currency         string
	ReceiptMaxPrints int
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	AuditTopic string
}

func (c OTPConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

func (c JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "citizen-kiosk")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_EXPIRY_MINUTES", 5)
	viper.SetDefault("ACCESS_TOKEN_COOKIE", "access_token")
	viper.SetDefault("COOKIE_SECURE", true)
	viper.SetDefault("OTP_EXPIRY_MINUTES", 5)
	viper.SetDefault("OTP_HASH_COST", 10)
	viper.SetDefault("OTP_DEMO_ENABLED", false)
	viper.SetDefault("OTP_DEMO_PHONE", "9876543210")
	viper.SetDefault("OTP_DEMO_CODE", "123456")
	viper.SetDefault("RATE_OTP_LIMIT", 3)
	viper.SetDefault("RATE_OTP_WINDOW_MINUTES", 10)
	viper.SetDefault("RATE_LOGIN_LIMIT", 5)
	viper.SetDefault("RATE_LOGIN_WINDOW_MINUTES", 15)
	viper.SetDefault("PAYMENT_CURRENCY", "INR")
	viper.SetDefault("RECEIPT_MAX_PRINTS", 1)
	viper.SetDefault("KAFKA_ENABLED", false)
	viper.SetDefault("KAFKA_AUDIT_TOPIC", "kiosk.audit")

	// .env is optional, container deployments pass everything through the environment
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:           viper.GetString("APP_NAME"),
			Port:           viper.GetString("PORT"),
			Debug:          viper.GetBool("DEBUG"),
			LogPath:        viper.GetString("LOG_PATH"),
			AllowedOrigins: splitCSV(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			ExpiryMinutes: viper.GetInt("JWT_EXPIRY_MINUTES"),
			CookieName:    viper.GetString("ACCESS_TOKEN_COOKIE"),
			CookieSecure:  viper.GetBool("COOKIE_SECURE"),
		},
		OTP: OTPConfig{
			ExpiryMinutes: viper.GetInt("OTP_EXPIRY_MINUTES"),
			HashCost:      viper.GetInt("OTP_HASH_COST"),
			Demo: DemoOTPConfig{
				Enabled: viper.GetBool("OTP_DEMO_ENABLED"),
				Phone:   viper.GetString("OTP_DEMO_PHONE"),
				Code:    viper.GetString("OTP_DEMO_CODE"),
			},
		},
		RateLimit: RateLimitConfig{
			OTPLimit:           viper.GetInt("RATE_OTP_LIMIT"),
			OTPWindowMinutes:   viper.GetInt("RATE_OTP_WINDOW_MINUTES"),
			LoginLimit:         viper.GetInt("RATE_LOGIN_LIMIT"),
			LoginWindowMinutes: viper.GetInt("RATE_LOGIN_WINDOW_MINUTES"),
		},
		Payment: PaymentConfig{
			GatewayURL:       viper.GetString("PAYMENT_GATEWAY_URL"),
			KeyID:            viper.GetString("PAYMENT_KEY_ID"),
			KeySecret:        viper.GetString("PAYMENT_KEY_SECRET"),
			WebhookSecret:    viper.GetString("PAYMENT_WEBHOOK_SECRET"),
			Currency:         viper.GetString("PAYMENT_CURRENCY"),
			ReceiptMaxPrints: viper.GetInt("RECEIPT_MAX_PRINTS"),
		},
		Kafka: KafkaConfig{
			Enabled:    viper.GetBool("KAFKA_ENABLED"),
			Brokers:    splitCSV(viper.GetString("KAFKA_BROKERS")),
			AuditTopic: viper.GetString("KAFKA_AUDIT_TOPIC"),
		},
	}

	if config.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return config, nil
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
