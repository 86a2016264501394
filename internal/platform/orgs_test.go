package platform_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appgrid/platform-connect/internal/platform"
)

func TestOrgResolver_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps/app-123/orgs", r.URL.Path)
		assert.Equal(t, "2024-01", r.URL.Query().Get("version"))
		assert.Equal(t, "Bearer access-token-value", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"org-1","name":"First Org"},{"id":"org-2","name":"Second Org"}]}`))
	}))
	defer server.Close()

	resolver := platform.NewOrgResolver(server.Client(), server.URL, "app-123", "2024-01")

	org, err := resolver.Resolve(context.Background(), "Bearer", "access-token-value")
	require.NoError(t, err)
	assert.Equal(t, "org-1", org.ID)
	assert.Equal(t, "First Org", org.Name)
}

func TestOrgResolver_Resolve_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	resolver := platform.NewOrgResolver(server.Client(), server.URL, "app-123", "2024-01")

	_, err := resolver.Resolve(context.Background(), "Bearer", "access-token-value")
	assert.ErrorIs(t, err, platform.ErrNoAuthorizedOrg)
}

func TestOrgResolver_Resolve_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resolver := platform.NewOrgResolver(server.Client(), server.URL, "app-123", "2024-01")

	_, err := resolver.Resolve(context.Background(), "Bearer", "access-token-value")
	require.Error(t, err)
	assert.ErrorIs(t, err, platform.ErrOrgLookup)
	assert.Contains(t, err.Error(), "status 500")
}

func TestOrgResolver_Resolve_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	resolver := platform.NewOrgResolver(server.Client(), server.URL, "app-123", "2024-01")

	_, err := resolver.Resolve(context.Background(), "Bearer", "access-token-value")
	assert.ErrorIs(t, err, platform.ErrOrgLookup)
}

func TestOrgResolver_Resolve_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Closed before use: connection refused.

	resolver := platform.NewOrgResolver(nil, server.URL, "app-123", "2024-01")

	_, err := resolver.Resolve(context.Background(), "Bearer", "access-token-value")
	assert.ErrorIs(t, err, platform.ErrOrgLookup)
}
