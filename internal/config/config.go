package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// insecureDefaultJWTSecret mirrors the historical fallback. main logs a loud
// warning whenever it is in use; production deployments must set JWT_SECRET.
const insecureDefaultJWTSecret = "mysecret"

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTSecret string
	JWTExpiry time.Duration

	OTP OTPConfig

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users    string
	Otps     string
	Contacts string
}

// OTPConfig is the OTP lifecycle tuning, injected into the lifecycle manager
// at construction so tests can run with deterministic settings.
type OTPConfig struct {
	Expiry     time.Duration // code validity; also the rate-limit window
	CodeLength int
	Limit      int           // max issuances per window and failed attempts before lockout
	Lockout    time.Duration // verification suspension once Limit attempts fail
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:    getEnv("DYNAMO_TABLE_USERS", "users"),
			Otps:     getEnv("DYNAMO_TABLE_OTPS", "otps"),
			Contacts: getEnv("DYNAMO_TABLE_CONTACTS", "contacts"),
		},

		JWTSecret: getEnv("JWT_SECRET", insecureDefaultJWTSecret),
		JWTExpiry: time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		OTP: OTPConfig{
			Expiry:     time.Duration(getEnvInt("OTP_EXPIRY_MINUTES", 10)) * time.Minute,
			CodeLength: getEnvInt("OTP_LENGTH", 6),
			Limit:      getEnvInt("OTP_LIMIT", 5),
			Lockout:    time.Duration(getEnvInt("OTP_LOCKOUT_MINUTES", 10)) * time.Minute,
		},

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// UsingDefaultJWTSecret reports whether the insecure built-in signing key is active.
func (c *Config) UsingDefaultJWTSecret() bool {
	return c.JWTSecret == insecureDefaultJWTSecret
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
