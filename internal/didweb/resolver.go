package didweb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"dataspace-gateway/internal/common"
)

const (
	// Prefix is the only DID method this resolver understands
	Prefix = "did:web:"

	// wellKnownPath is appended to every translated DID URL
	wellKnownPath = "/.well-known/did.json"

	// protocolEndpointType marks the service entry carrying the dataspace
	// protocol URL; matched case-insensitively
	protocolEndpointType = "ProtocolEndpoint"
)

// didDocument is the subset of a DID document this resolver reads
type didDocument struct {
	Service []didService `json:"service"`
}

type didService struct {
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// Resolver resolves did:web identifiers to protocol endpoint URLs
type Resolver struct {
	httpClient *http.Client
	useHTTPS   bool
}

// ResolverConfig holds resolver configuration
type ResolverConfig struct {
	UseHTTPS bool
	Timeout  time.Duration
}

// NewResolver creates a new did:web resolver
func NewResolver(config *ResolverConfig) *Resolver {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		httpClient: &http.Client{Timeout: timeout},
		useHTTPS:   config.UseHTTPS,
	}
}

// Resolve resolves a did:web identifier to its advertised protocol endpoint.
// A DID without the did:web prefix is a caller programming error and fails
// with an invalid-argument error. An unreachable or unregistered
// counter-party resolves to "" without error; that is the expected state for
// parties that are offline.
func (r *Resolver) Resolve(ctx context.Context, did string) (string, error) {
	if !strings.HasPrefix(did, Prefix) {
		return "", common.ErrInvalidArgumentError(fmt.Sprintf("not a did:web identifier: %s", did))
	}

	docURL := r.documentURL(did)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return "", common.ErrInvalidArgumentError(fmt.Sprintf("did translates to an invalid URL: %s", docURL))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Printf("didweb: fetch of %s failed: %v", docURL, err)
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("didweb: %s returned status %d", docURL, resp.StatusCode)
		return "", nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("didweb: reading %s failed: %v", docURL, err)
		return "", nil
	}

	var doc didDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("didweb: %s is not a valid DID document: %v", docURL, err)
		return "", nil
	}

	for _, service := range doc.Service {
		if strings.EqualFold(service.Type, protocolEndpointType) {
			return service.ServiceEndpoint, nil
		}
	}
	return "", nil
}

// documentURL translates a did:web identifier into the URL of its DID
// document. Every colon in the method-specific identifier becomes a path
// separator; percent-encoded colons are then decoded so port numbers survive
// the translation.
func (r *Resolver) documentURL(did string) string {
	identifier := strings.TrimPrefix(did, Prefix)
	hostPath := strings.ReplaceAll(identifier, ":", "/")
	hostPath = strings.ReplaceAll(hostPath, "%3A", ":")
	hostPath = strings.ReplaceAll(hostPath, "%3a", ":")

	scheme := "http"
	if r.useHTTPS {
		scheme = "https"
	}
	return scheme + "://" + hostPath + wellKnownPath
}
