package config

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rentwise/settlement-service/internal/domain/ports"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Webhook  WebhookConfig
	Transfer TransferConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	PasswordSecret string // secret reference resolved at startup when set
	Database       string
	SSLMode        string
	MaxConns       int32
	MinConns       int32
}

// WebhookConfig holds gateway webhook verification configuration
type WebhookConfig struct {
	Secret       string
	SecretRef    string // secret reference resolved at startup when set
	MaxBodyBytes int64
}

// TransferConfig holds payout transfer gateway configuration
type TransferConfig struct {
	StripeBaseURL   string
	StripeAPIKey    string
	StripeKeySecret string // secret reference resolved at startup when set
	TimeoutSeconds  int
}

// SecretsConfig selects the secret manager backend
type SecretsConfig struct {
	Backend   string // local, aws, vault
	LocalPath string
	AWSRegion string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			PasswordSecret: getEnv("DB_PASSWORD_SECRET", ""),
			Database:       getEnv("DB_NAME", "settlement_service"),
			SSLMode:        getEnv("DB_SSL_MODE", "disable"),
			MaxConns:       int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:       int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Webhook: WebhookConfig{
			Secret:       getEnv("GATEWAY_WEBHOOK_SECRET", ""),
			SecretRef:    getEnv("GATEWAY_WEBHOOK_SECRET_REF", ""),
			MaxBodyBytes: int64(getEnvAsInt("GATEWAY_WEBHOOK_MAX_BODY", 1<<20)),
		},
		Transfer: TransferConfig{
			StripeBaseURL:   getEnv("STRIPE_BASE_URL", "https://api.stripe.com"),
			StripeAPIKey:    getEnv("STRIPE_API_KEY", ""),
			StripeKeySecret: getEnv("STRIPE_API_KEY_SECRET", ""),
			TimeoutSeconds:  getEnvAsInt("TRANSFER_TIMEOUT", 30),
		},
		Secrets: SecretsConfig{
			Backend:   getEnv("SECRETS_BACKEND", "local"),
			LocalPath: getEnv("SECRETS_LOCAL_PATH", "/etc/settlement/secrets"),
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	return cfg, nil
}

// ResolveSecrets fills secret-referenced values through the configured
// secret manager. Direct env values win so local development needs no
// secrets backend.
func (c *Config) ResolveSecrets(ctx context.Context, manager ports.SecretManager) error {
	if c.Database.Password == "" && c.Database.PasswordSecret != "" {
		secret, err := manager.GetSecret(ctx, c.Database.PasswordSecret)
		if err != nil {
			return fmt.Errorf("resolve database password: %w", err)
		}
		c.Database.Password = secret.Value
	}
	if c.Webhook.Secret == "" && c.Webhook.SecretRef != "" {
		secret, err := manager.GetSecret(ctx, c.Webhook.SecretRef)
		if err != nil {
			return fmt.Errorf("resolve webhook secret: %w", err)
		}
		c.Webhook.Secret = secret.Value
	}
	if c.Transfer.StripeAPIKey == "" && c.Transfer.StripeKeySecret != "" {
		secret, err := manager.GetSecret(ctx, c.Transfer.StripeKeySecret)
		if err != nil {
			return fmt.Errorf("resolve stripe api key: %w", err)
		}
		c.Transfer.StripeAPIKey = secret.Value
	}
	return nil
}

// Validate checks the values the service cannot run without. The webhook
// secret is required: an unverifiable webhook endpoint must never come up.
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD or DB_PASSWORD_SECRET is required")
	}
	if c.Webhook.Secret == "" {
		return fmt.Errorf("GATEWAY_WEBHOOK_SECRET or GATEWAY_WEBHOOK_SECRET_REF is required")
	}
	return nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
