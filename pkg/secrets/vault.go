package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"lms-consulting-portal/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrVaultDisabled  = errors.New("vault integration is disabled")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// VaultConfig holds configuration for the Vault client
type VaultConfig struct {
	Address     string
	Token       string
	Namespace   string
	Timeout     time.Duration
	SecretsPath string
	Enabled     bool
}

// VaultManager manages secrets with HashiCorp Vault. When Vault is disabled
// it falls back to environment variables, so development setups work without
// a Vault server.
type VaultManager struct {
	client   *vault.Client
	config   VaultConfig
	cache    map[string]string
	mu       sync.RWMutex
	log      *logger.Logger
	cacheTTL time.Duration
	cachedAt time.Time
}

// NewVaultManager creates a new Vault manager instance
func NewVaultManager(log *logger.Logger) (*VaultManager, error) {
	config := VaultConfig{
		Address:     os.Getenv("VAULT_ADDR"),
		Token:       os.Getenv("VAULT_TOKEN"),
		Namespace:   os.Getenv("VAULT_NAMESPACE"),
		SecretsPath: os.Getenv("VAULT_SECRETS_PATH"),
		Enabled:     false,
		Timeout:     10 * time.Second,
	}

	if enabled := os.Getenv("VAULT_ENABLED"); enabled != "" {
		if v, err := strconv.ParseBool(enabled); err == nil {
			config.Enabled = v
		}
	}

	if config.SecretsPath == "" {
		config.SecretsPath = "secret/data/chat-backend"
	}

	manager := &VaultManager{
		config:   config,
		cache:    make(map[string]string),
		log:      log,
		cacheTTL: 5 * time.Minute,
	}

	if !config.Enabled {
		log.Info("Vault integration disabled, falling back to environment variables")
		return manager, nil
	}

	if config.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if config.Token == "" {
		return nil, ErrNoVaultToken
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	vaultConfig.Timeout = config.Timeout

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	manager.client = client
	log.Info("Vault secrets manager initialized", "address", config.Address, "path", config.SecretsPath)

	return manager, nil
}

// GetSecret retrieves a secret by key, preferring Vault and falling back to
// the environment when Vault is disabled
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	if !m.config.Enabled {
		if value := os.Getenv(key); value != "" {
			return value, nil
		}
		return "", ErrSecretNotFound
	}

	m.mu.RLock()
	if value, ok := m.cache[key]; ok && time.Since(m.cachedAt) < m.cacheTTL {
		m.mu.RUnlock()
		return value, nil
	}
	m.mu.RUnlock()

	secret, err := m.client.Logical().ReadWithContext(ctx, m.config.SecretsPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	// KV v2 nests the payload under "data"
	data := secret.Data
	if nested, ok := secret.Data["data"].(map[string]interface{}); ok {
		data = nested
	}

	raw, ok := data[key]
	if !ok {
		return "", ErrSecretNotFound
	}

	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("secret %q is not a string", key)
	}

	m.mu.Lock()
	m.cache[key] = value
	m.cachedAt = time.Now()
	m.mu.Unlock()

	return value, nil
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}
