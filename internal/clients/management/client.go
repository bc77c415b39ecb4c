package management

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

// Client talks to the data/policy management API of a participant context
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
		BaseURL: "http://localhost:8280",
		Timeout: 30 * time.Second,
	}
}

// NewClient creates a new management client
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

// CreateCelExpression registers a CEL expression. Registration is
// conflict-tolerant: a second registration of the same id reports
// OutcomeAlreadyExists rather than an error.
func (c *Client) CreateCelExpression(ctx context.Context, contextID string, expr *CelExpression) (CreateOutcome, error) {
	path := fmt.Sprintf("/api/v1/%s/expressions", url.PathEscape(contextID))
	return c.doCreate(ctx, path, expr)
}

// CreateAsset creates an asset. Asset creation is NOT conflict-tolerant;
// callers must mint a unique asset id per call.
func (c *Client) CreateAsset(ctx context.Context, contextID string, asset *Asset) error {
	path := fmt.Sprintf("/api/v1/%s/assets", url.PathEscape(contextID))
	if err := c.doRequest(ctx, http.MethodPost, path, asset, nil); err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

// CreatePolicy creates a policy definition, conflict-tolerant
func (c *Client) CreatePolicy(ctx context.Context, contextID string, policy *PolicyDefinition) (CreateOutcome, error) {
	path := fmt.Sprintf("/api/v1/%s/policydefinitions", url.PathEscape(contextID))
	return c.doCreate(ctx, path, policy)
}

// CreateContractDefinition creates a contract definition, conflict-tolerant
func (c *Client) CreateContractDefinition(ctx context.Context, contextID string, def *ContractDefinition) (CreateOutcome, error) {
	path := fmt.Sprintf("/api/v1/%s/contractdefinitions", url.PathEscape(contextID))
	return c.doCreate(ctx, path, def)
}

// GetCatalog fetches the catalog advertised by a counter-party
func (c *Client) GetCatalog(ctx context.Context, contextID, counterPartyID string) (*Catalog, error) {
	path := fmt.Sprintf("/api/v1/%s/catalog/%s", url.PathEscape(contextID), url.PathEscape(counterPartyID))

	var catalog Catalog
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &catalog); err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	return &catalog, nil
}

// ListContractNegotiations lists contract negotiations of a context
func (c *Client) ListContractNegotiations(ctx context.Context, contextID string) ([]*ContractNegotiation, error) {
	path := fmt.Sprintf("/api/v1/%s/contractnegotiations", url.PathEscape(contextID))

	var negotiations []*ContractNegotiation
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &negotiations); err != nil {
		return nil, fmt.Errorf("failed to list contract negotiations: %w", err)
	}
	return negotiations, nil
}

// GetContractNegotiation fetches a single contract negotiation
func (c *Client) GetContractNegotiation(ctx context.Context, contextID, negotiationID string) (*ContractNegotiation, error) {
	path := fmt.Sprintf("/api/v1/%s/contractnegotiations/%s", url.PathEscape(contextID), url.PathEscape(negotiationID))

	var negotiation ContractNegotiation
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &negotiation); err != nil {
		return nil, fmt.Errorf("failed to get contract negotiation: %w", err)
	}
	return &negotiation, nil
}

// GetAgreement fetches the agreement reached by a negotiation
func (c *Client) GetAgreement(ctx context.Context, contextID, negotiationID string) (*Agreement, error) {
	path := fmt.Sprintf("/api/v1/%s/contractnegotiations/%s/agreement", url.PathEscape(contextID), url.PathEscape(negotiationID))

	var agreement Agreement
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &agreement); err != nil {
		return nil, fmt.Errorf("failed to get agreement: %w", err)
	}
	return &agreement, nil
}

// InitiateContractNegotiation starts a negotiation and returns its id
func (c *Client) InitiateContractNegotiation(ctx context.Context, contextID string, request *NegotiationRequest) (string, error) {
	path := fmt.Sprintf("/api/v1/%s/contractnegotiations", url.PathEscape(contextID))

	var response idResponse
	if err := c.doRequest(ctx, http.MethodPost, path, request, &response); err != nil {
		return "", fmt.Errorf("failed to initiate contract negotiation: %w", err)
	}
	return response.ID, nil
}

// InitiateTransferProcess starts a transfer process and returns its id
func (c *Client) InitiateTransferProcess(ctx context.Context, contextID string, request *TransferRequest) (string, error) {
	path := fmt.Sprintf("/api/v1/%s/transferprocesses", url.PathEscape(contextID))

	var response idResponse
	if err := c.doRequest(ctx, http.MethodPost, path, request, &response); err != nil {
		return "", fmt.Errorf("failed to initiate transfer process: %w", err)
	}
	return response.ID, nil
}

// GetTransferProcess fetches a single transfer process
func (c *Client) GetTransferProcess(ctx context.Context, contextID, transferID string) (*TransferProcess, error) {
	path := fmt.Sprintf("/api/v1/%s/transferprocesses/%s", url.PathEscape(contextID), url.PathEscape(transferID))

	var transfer TransferProcess
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &transfer); err != nil {
		return nil, fmt.Errorf("failed to get transfer process: %w", err)
	}
	return &transfer, nil
}

// GetEdr fetches the endpoint data reference of a started transfer
func (c *Client) GetEdr(ctx context.Context, contextID, transferID string) (*EndpointDataReference, error) {
	path := fmt.Sprintf("/api/v1/%s/transferprocesses/%s/edr", url.PathEscape(contextID), url.PathEscape(transferID))

	var edr EndpointDataReference
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &edr); err != nil {
		return nil, fmt.Errorf("failed to get endpoint data reference: %w", err)
	}
	return &edr, nil
}

// doCreate posts a creation payload and maps HTTP 409 to OutcomeAlreadyExists
func (c *Client) doCreate(ctx context.Context, path string, requestBody interface{}) (CreateOutcome, error) {
	err := c.doRequest(ctx, http.MethodPost, path, requestBody, nil)
	if err != nil {
		if common.IsErrorCode(err, common.ErrRemoteConflict) {
			return OutcomeAlreadyExists, nil
		}
		return 0, err
	}
	return OutcomeCreated, nil
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
		return common.ErrRemoteUnavailableError("management API unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusConflict {
			return common.ErrRemoteConflictError(fmt.Sprintf("management API conflict: %s", strings.TrimSpace(string(data))))
		}
		return common.ErrRemoteUnavailableError(
			fmt.Sprintf("management API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), nil)
	}

	if responseBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(responseBody); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
