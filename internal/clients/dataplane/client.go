package dataplane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"dataspace-gateway/internal/common"
)

// Client talks to the binary data plane
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds client configuration
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://localhost:8380",
		Timeout: 120 * time.Second,
	}
}

// NewClient creates a new data plane client
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}

	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// uploadResponse carries the file id minted by the data plane
type uploadResponse struct {
	FileID string `json:"fileId"`
}

// UploadMultipart streams a payload plus its metadata to the data plane as a
// multipart request and returns the opaque file id. The payload is piped
// through rather than buffered so large files do not sit in memory.
func (c *Client) UploadMultipart(ctx context.Context, contextID string, metadata map[string]string, filename, contentType string, payload io.Reader) (string, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() {
			if closeErr := writer.Close(); err == nil {
				err = closeErr
			}
			pw.CloseWithError(err)
		}()

		metadataJSON, marshalErr := json.Marshal(metadata)
		if marshalErr != nil {
			err = fmt.Errorf("failed to marshal metadata: %w", marshalErr)
			return
		}
		if err = writer.WriteField("metadata", string(metadataJSON)); err != nil {
			return
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		header.Set("Content-Type", contentType)
		part, partErr := writer.CreatePart(header)
		if partErr != nil {
			err = partErr
			return
		}
		_, err = io.Copy(part, payload)
	}()

	path := fmt.Sprintf("/api/v1/%s/files", url.PathEscape(contextID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, pr)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", common.ErrRemoteUnavailableError("data plane unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", common.ErrRemoteUnavailableError(
			fmt.Sprintf("data plane returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), nil)
	}

	var response uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	return response.FileID, nil
}

// DownloadFile fetches the bytes of a previously uploaded file
func (c *Client) DownloadFile(ctx context.Context, authToken, fileID string) ([]byte, error) {
	path := fmt.Sprintf("/api/v1/files/%s", url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, common.ErrRemoteUnavailableError("data plane unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, common.ErrNotFoundError(fmt.Sprintf("file not found: %s", fileID))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, common.ErrRemoteUnavailableError(
			fmt.Sprintf("data plane returned %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	return data, nil
}
