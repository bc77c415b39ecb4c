package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the complete gateway configuration
type Config struct {
	Server        ServerConfig        `json:"server"`
	Auth          AuthConfig          `json:"auth"`
	TenantManager TenantManagerConfig `json:"tenant_manager"`
	Management    ManagementConfig    `json:"management"`
	DataPlane     DataPlaneConfig     `json:"data_plane"`
	Vault         VaultConfig         `json:"vault"`
	DID           DIDConfig           `json:"did"`
	Cache         CacheConfig         `json:"cache"`
	Store         StoreConfig         `json:"store"`
	Membership    MembershipConfig    `json:"membership"`
}

// ServerConfig for the gateway HTTP server
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// AuthConfig for API authentication
type AuthConfig struct {
	Enabled           bool          `json:"enabled"`
	JWTSecret         string        `json:"jwt_secret"`
	JWTIssuer         string        `json:"jwt_issuer"`
	TokenExpiry       time.Duration `json:"token_expiry"`
	AdminUser         string        `json:"admin_user"`
	AdminPasswordHash string        `json:"admin_password_hash"`
}

// TenantManagerConfig for the external tenant orchestrator
type TenantManagerConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
}

// ManagementConfig for the data/policy management API
type ManagementConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
}

// DataPlaneConfig for the binary data plane
type DataPlaneConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// VaultConfig for the secret store
type VaultConfig struct {
	Address    string `json:"address"`
	Token      string `json:"token"`
	Mount      string `json:"mount"`
	PathPrefix string `json:"path_prefix"`
}

// DIDConfig for did:web resolution
type DIDConfig struct {
	UseHTTPS bool          `json:"use_https"`
	Timeout  time.Duration `json:"timeout"`
}

// CacheConfig for the catalog cache
type CacheConfig struct {
	Capacity int `json:"capacity"`
}

// StoreConfig for the local entity store
type StoreConfig struct {
	SnapshotPath string `json:"snapshot_path"`
}

// MembershipConfig holds the dataspace membership policy template.
// The constraint gates every published asset; the expression is the CEL
// predicate the constraint's right operand refers to. Injected rather than
// compiled in so a deployment can swap the template without a rebuild.
type MembershipConfig struct {
	ConstraintLeft     string   `json:"constraint_left"`
	ConstraintOperator string   `json:"constraint_operator"`
	ConstraintRight    string   `json:"constraint_right"`
	ExpressionID       string   `json:"expression_id"`
	ExpressionText     string   `json:"expression_text"`
	ExpressionScopes   []string `json:"expression_scopes"`
	PermissionTag      string   `json:"permission_tag"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("GATEWAY_HOST", "0.0.0.0"),
			Port:            getEnvInt("GATEWAY_PORT", 8080),
			ShutdownTimeout: getEnvDuration("GATEWAY_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			Enabled:           getEnvBool("AUTH_ENABLED", true),
			JWTSecret:         getEnvString("AUTH_JWT_SECRET", ""),
			JWTIssuer:         getEnvString("AUTH_JWT_ISSUER", "dataspace-gateway"),
			TokenExpiry:       getEnvDuration("AUTH_TOKEN_EXPIRY", 8*time.Hour),
			AdminUser:         getEnvString("AUTH_ADMIN_USER", "admin"),
			AdminPasswordHash: getEnvString("AUTH_ADMIN_PASSWORD_HASH", ""),
		},
		TenantManager: TenantManagerConfig{
			BaseURL: getEnvString("TENANT_MANAGER_URL", "http://localhost:8180"),
			APIKey:  getEnvString("TENANT_MANAGER_API_KEY", ""),
			Timeout: getEnvDuration("TENANT_MANAGER_TIMEOUT", 30*time.Second),
		},
		Management: ManagementConfig{
			BaseURL: getEnvString("MANAGEMENT_URL", "http://localhost:8280"),
			APIKey:  getEnvString("MANAGEMENT_API_KEY", ""),
			Timeout: getEnvDuration("MANAGEMENT_TIMEOUT", 30*time.Second),
		},
		DataPlane: DataPlaneConfig{
			BaseURL: getEnvString("DATA_PLANE_URL", "http://localhost:8380"),
			Timeout: getEnvDuration("DATA_PLANE_TIMEOUT", 120*time.Second),
		},
		Vault: VaultConfig{
			Address:    getEnvString("VAULT_ADDR", "http://localhost:8200"),
			Token:      getEnvString("VAULT_TOKEN", ""),
			Mount:      getEnvString("VAULT_MOUNT", "secret"),
			PathPrefix: getEnvString("VAULT_PATH_PREFIX", "dataspace/credentials"),
		},
		DID: DIDConfig{
			UseHTTPS: getEnvBool("DID_USE_HTTPS", true),
			Timeout:  getEnvDuration("DID_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			Capacity: getEnvInt("CATALOG_CACHE_CAPACITY", 256),
		},
		Store: StoreConfig{
			SnapshotPath: getEnvString("STORE_SNAPSHOT_PATH", "./data/entities.json"),
		},
		Membership: MembershipConfig{
			ConstraintLeft:     getEnvString("MEMBERSHIP_CONSTRAINT_LEFT", "MembershipCredential"),
			ConstraintOperator: getEnvString("MEMBERSHIP_CONSTRAINT_OPERATOR", "eq"),
			ConstraintRight:    getEnvString("MEMBERSHIP_CONSTRAINT_RIGHT", "active"),
			ExpressionID:       getEnvString("MEMBERSHIP_EXPRESSION_ID", "membership-credential-check"),
			ExpressionText:     getEnvString("MEMBERSHIP_EXPRESSION_TEXT", "credentials.exists(c, c.type == 'MembershipCredential' && c.status == 'active')"),
			ExpressionScopes:   getEnvStringSlice("MEMBERSHIP_EXPRESSION_SCOPES", []string{"catalog", "negotiation", "transfer"}),
			PermissionTag:      getEnvString("MEMBERSHIP_PERMISSION_TAG", "membership-required"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for required values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required when authentication is enabled")
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("catalog cache capacity must be positive: %d", c.Cache.Capacity)
	}
	if c.Membership.ExpressionID == "" {
		return fmt.Errorf("membership expression id must not be empty")
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
