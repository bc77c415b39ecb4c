package didweb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataspace-gateway/internal/common"
)

func testResolver() *Resolver {
	return NewResolver(&ResolverConfig{UseHTTPS: false})
}

func didFor(server *httptest.Server) string {
	hostPort := strings.TrimPrefix(server.URL, "http://")
	return Prefix + strings.ReplaceAll(hostPort, ":", "%3A")
}

func TestResolveReturnsFirstProtocolEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/.well-known/did.json", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{
			"service": [
				{"type": "CredentialService", "serviceEndpoint": "https://creds.example.com"},
				{"type": "protocolendpoint", "serviceEndpoint": "https://dsp.example.com/protocol"},
				{"type": "ProtocolEndpoint", "serviceEndpoint": "https://second.example.com"}
			]
		}`))
	}))
	defer server.Close()

	endpoint, err := testResolver().Resolve(context.Background(), didFor(server))
	require.NoError(t, err)
	assert.Equal(t, "https://dsp.example.com/protocol", endpoint)
}

func TestResolveEmptyServiceArrayYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"service": []}`))
	}))
	defer server.Close()

	endpoint, err := testResolver().Resolve(context.Background(), didFor(server))
	require.NoError(t, err)
	assert.Empty(t, endpoint)
}

func TestResolveMissingServiceKeyYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "did:web:example.com"}`))
	}))
	defer server.Close()

	endpoint, err := testResolver().Resolve(context.Background(), didFor(server))
	require.NoError(t, err)
	assert.Empty(t, endpoint)
}

func TestResolveMalformedDIDIsInvalidArgument(t *testing.T) {
	_, err := testResolver().Resolve(context.Background(), "did:key:z6Mkf")
	require.Error(t, err)
	assert.True(t, common.IsErrorCode(err, common.ErrInvalidArgument))
}

func TestResolveNon200YieldsEmptyWithoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	endpoint, err := testResolver().Resolve(context.Background(), didFor(server))
	require.NoError(t, err)
	assert.Empty(t, endpoint)
}

func TestResolveConnectionFailureYieldsEmptyWithoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	endpoint, err := testResolver().Resolve(context.Background(), didFor(server))
	require.NoError(t, err)
	assert.Empty(t, endpoint)
}

func TestDocumentURLTranslation(t *testing.T) {
	r := testResolver()
	assert.Equal(t, "http://example.com/.well-known/did.json", r.documentURL("did:web:example.com"))
	assert.Equal(t, "http://example.com/some/path/.well-known/did.json", r.documentURL("did:web:example.com:some:path"))
	assert.Equal(t, "http://example.com:8080/.well-known/did.json", r.documentURL("did:web:example.com%3A8080"))

	https := NewResolver(&ResolverConfig{UseHTTPS: true})
	assert.Equal(t, "https://example.com/.well-known/did.json", https.documentURL("did:web:example.com"))
}
