// Package vault sources operator-provisioned credentials from HashiCorp
// Vault's KV v2 engine, as an alternative to plain environment variables for
// the resolution engine's environment fallback branch.
package vault

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/hashicorp/vault/api"

	"github.com/hengadev/byok"
)

// PathTemplate is the KV v2 path holding the operator credential for a
// provider. The "data" segment follows the KV v2 API convention.
const PathTemplate = "secret/data/byok/operator/%s"

// Source implements byok.OperatorSource against Vault KV v2.
type Source struct {
	client *api.Client
}

// New creates a Source from environment configuration:
//
//   - VAULT_ADDR: server address (required)
//   - VAULT_NAMESPACE: HCP namespace (optional)
//   - VAULT_TOKEN: direct token, or
//   - VAULT_ROLE_ID + VAULT_SECRET_ID: AppRole login
func New() (*Source, error) {
	config := api.DefaultConfig()
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Address = addr
	}
	if config.Address == "" {
		return nil, fmt.Errorf("%w: VAULT_ADDR environment variable is required", byok.ErrInvalidConfiguration)
	}
	config.HttpClient.Transport = &http.Transport{Proxy: http.ProxyFromEnvironment}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if ns := os.Getenv("VAULT_NAMESPACE"); ns != "" {
		client.SetNamespace(ns)
	}

	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
		return &Source{client: client}, nil
	}

	roleID := os.Getenv("VAULT_ROLE_ID")
	secretID := os.Getenv("VAULT_SECRET_ID")
	if roleID != "" && secretID != "" {
		resp, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
			"role_id":   roleID,
			"secret_id": secretID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to login with AppRole: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return nil, fmt.Errorf("no auth info returned from AppRole login")
		}
		client.SetToken(resp.Auth.ClientToken)
		return &Source{client: client}, nil
	}

	return nil, fmt.Errorf("%w: no Vault authentication method configured (set VAULT_TOKEN or VAULT_ROLE_ID+VAULT_SECRET_ID)",
		byok.ErrInvalidConfiguration)
}

// OperatorCredential reads the "api_key" field at the provider's KV path.
// The environment fallback branch never fails: any read error, missing
// secret, or missing field yields an empty value.
func (s *Source) OperatorCredential(ctx context.Context, provider byok.Provider) string {
	path := fmt.Sprintf(PathTemplate, provider)
	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil || secret == nil || secret.Data == nil {
		return ""
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return ""
	}
	value, _ := data["api_key"].(string)
	return value
}

var _ byok.OperatorSource = (*Source)(nil)
