package tenants

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dataspace-gateway/internal/common"
)

// Client talks to the external tenant-management orchestrator
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

// ClientConfig holds client configuration
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://localhost:8180",
		Timeout: 30 * time.Second,
	}
}

// NewClient creates a new tenant-management client
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = common.DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey: config.APIKey,
	}
}

// CreateTenant creates the external tenant object with a name-only payload
// and returns its id
func (c *Client) CreateTenant(ctx context.Context, name string) (string, error) {
	var response createTenantResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/tenants", &createTenantRequest{Name: name}, &response)
	if err != nil {
		return "", fmt.Errorf("failed to create tenant: %w", err)
	}
	return response.ID, nil
}

// DeployProfile creates or re-creates the participant profile under a tenant
// and returns the full profile, sub-resources included
func (c *Client) DeployProfile(ctx context.Context, tenantExternalID string, profile *NewProfile) (*ParticipantProfile, error) {
	path := fmt.Sprintf("/api/v1/tenants/%s/profiles", url.PathEscape(tenantExternalID))

	var response ParticipantProfile
	err := c.doRequest(ctx, http.MethodPost, path, profile, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy profile: %w", err)
	}
	return &response, nil
}

// GetProfile fetches the current participant profile
func (c *Client) GetProfile(ctx context.Context, tenantExternalID, profileExternalID string) (*ParticipantProfile, error) {
	path := fmt.Sprintf("/api/v1/tenants/%s/profiles/%s", url.PathEscape(tenantExternalID), url.PathEscape(profileExternalID))

	var response ParticipantProfile
	err := c.doRequest(ctx, http.MethodGet, path, nil, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &response, nil
}

// doRequest performs an HTTP request with JSON body and response
func (c *Client) doRequest(ctx context.Context, method, path string, requestBody, responseBody interface{}) error {
	var bodyReader io.Reader
	if requestBody != nil {
		data, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return common.ErrRemoteUnavailableError("tenant manager unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusConflict {
			return common.ErrRemoteConflictError(fmt.Sprintf("tenant manager conflict: %s", strings.TrimSpace(string(data))))
		}
		return common.ErrRemoteUnavailableError(
			fmt.Sprintf("tenant manager returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), nil)
	}

	if responseBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(responseBody); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
