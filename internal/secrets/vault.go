// Package secrets loads document store credentials from HashiCorp Vault
// when one is configured. Config-based credentials remain the fallback.
package secrets

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/vault/api"
)

// VaultClient handles secret lookup against a Vault server.
type VaultClient struct {
	client *api.Client
}

// DocStoreCredentials is the credential set the gateway understands.
type DocStoreCredentials struct {
	APIKey   string
	Username string
	Password string
}

// NewVaultClient creates a Vault client for the given address and token.
func NewVaultClient(address, token string) (*VaultClient, error) {
	cfg := &api.Config{
		Address: address,
		HttpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultClient{client: client}, nil
}

// DocStoreCredentials reads the document store credential secret for a
// service. Expected keys: api_key, or username + password.
func (v *VaultClient) DocStoreCredentials(serviceName string) (*DocStoreCredentials, error) {
	path := fmt.Sprintf("secret/data/%s/doc_store", serviceName)

	secret, err := v.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no secret data found at %s", path)
	}

	// KV v2 nests the payload under "data".
	data := secret.Data
	if nested, ok := secret.Data["data"].(map[string]interface{}); ok {
		data = nested
	}

	creds := &DocStoreCredentials{}
	if v, ok := data["api_key"].(string); ok {
		creds.APIKey = v
	}
	if v, ok := data["username"].(string); ok {
		creds.Username = v
	}
	if v, ok := data["password"].(string); ok {
		creds.Password = v
	}

	return creds, nil
}

// HealthCheck checks whether Vault is reachable.
func (v *VaultClient) HealthCheck() error {
	if _, err := v.client.Sys().Health(); err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	return nil
}
