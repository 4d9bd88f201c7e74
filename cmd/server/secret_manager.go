package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/rentwise/settlement-service/internal/adapters/secrets"
	"github.com/rentwise/settlement-service/internal/config"
	"github.com/rentwise/settlement-service/internal/domain/ports"
)

// initSecretManager picks the secret backend from configuration.
// Backends:
//   - local (default): secrets read from files under SECRETS_LOCAL_PATH
//   - aws: AWS Secrets Manager, credentials from the default chain
//   - vault: HashiCorp Vault, token or AppRole auth via VAULT_* variables
func initSecretManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) ports.SecretManager {
	switch cfg.Secrets.Backend {
	case "aws":
		return initAWSSecretManager(ctx, cfg, logger)
	case "vault":
		return initVaultSecretManager(ctx, logger)
	case "local":
		return secrets.NewLocalSecretManager(cfg.Secrets.LocalPath, logger)
	default:
		logger.Warn("Unknown SECRETS_BACKEND, falling back to local",
			zap.String("backend", cfg.Secrets.Backend))
		return secrets.NewLocalSecretManager(cfg.Secrets.LocalPath, logger)
	}
}

func initAWSSecretManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) ports.SecretManager {
	manager, err := secrets.NewAWSSecretsManagerAdapter(ctx, &secrets.AWSSecretsManagerConfig{
		Region:      cfg.Secrets.AWSRegion,
		Profile:     os.Getenv("AWS_PROFILE"),
		Endpoint:    os.Getenv("AWS_SECRETS_ENDPOINT"),
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AWS Secrets Manager", zap.Error(err))
	}
	return manager
}

func initVaultSecretManager(ctx context.Context, logger *zap.Logger) ports.SecretManager {
	manager, err := secrets.NewVaultAdapter(ctx, &secrets.VaultConfig{
		Address:    os.Getenv("VAULT_ADDR"),
		AuthMethod: getEnvDefault("VAULT_AUTH_METHOD", "token"),
		Token:      os.Getenv("VAULT_TOKEN"),
		RoleID:     os.Getenv("VAULT_ROLE_ID"),
		SecretID:   os.Getenv("VAULT_SECRET_ID"),
		Namespace:  os.Getenv("VAULT_NAMESPACE"),
		MountPath:  getEnvDefault("VAULT_MOUNT_PATH", "secret"),
		KVVersion:  getEnvDefault("VAULT_KV_VERSION", "v2"),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Vault secret manager", zap.Error(err))
	}
	return manager
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
