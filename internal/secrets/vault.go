package secrets

import (
	"context"
	"errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"dataspace-gateway/internal/common"
)

// Store reads secrets by opaque path. An absent secret reads as the empty
// string, not an error; callers poll until the secret appears.
type Store interface {
	ReadSecret(ctx context.Context, path string) (string, error)
}

// secretValueKey is the field holding the shared secret inside a vault entry
const secretValueKey = "value"

// VaultStore implements Store against a HashiCorp Vault KV v2 mount
type VaultStore struct {
	client *vault.Client
	mount  string
}

// VaultConfig holds vault connection settings
type VaultConfig struct {
	Address string
	Token   string
	Mount   string
}

// NewVaultStore creates a new vault-backed secret store
func NewVaultStore(config *VaultConfig) (*VaultStore, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(config.Token)

	mount := config.Mount
	if mount == "" {
		mount = "secret"
	}

	return &VaultStore{client: client, mount: mount}, nil
}

// ReadSecret reads the shared secret stored at path. A missing secret or a
// missing value field returns "" so callers can poll until provisioning
// completes.
func (s *VaultStore) ReadSecret(ctx context.Context, path string) (string, error) {
	secret, err := s.client.KVv2(s.mount).Get(ctx, path)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", nil
		}
		return "", common.ErrRemoteUnavailableError(fmt.Sprintf("failed to read secret at %s", path), err)
	}
	if secret == nil || secret.Data == nil {
		return "", nil
	}

	value, ok := secret.Data[secretValueKey].(string)
	if !ok {
		return "", nil
	}
	return value, nil
}
