package ports

import "context"

// Secret is a retrieved secret value with metadata
type Secret struct {
	Value    string
	Version  string
	Metadata map[string]string
}

// SecretManager retrieves deployment secrets (webhook signing secret, database
// password) at startup. Backends: local files for development, HashiCorp Vault
// or AWS Secrets Manager in production. Implementations cache with a TTL.
type SecretManager interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
