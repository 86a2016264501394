package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/appgrid/platform-connect/domain"
)

var (
	ErrNoAuthorizedOrg = errors.New("no organization authorized for this app")
	ErrOrgLookup       = errors.New("organization lookup failed")
)

const maxResponseBytes = 1 << 20

// OrgResolver discovers which organization the app's credential is authorized
// against. One GET per call, no internal retries; retry policy belongs to the
// caller.
type OrgResolver struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	apiVersion string
}

func NewOrgResolver(httpClient *http.Client, baseURL, clientID, apiVersion string) *OrgResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OrgResolver{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		apiVersion: apiVersion,
	}
}

type orgsResponse struct {
	Data []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

// Resolve fetches the organizations this app may act on and returns the first
// entry of the platform's ordered list. An empty list fails with
// ErrNoAuthorizedOrg; transport failures, non-2xx responses and malformed
// bodies fail with ErrOrgLookup carrying the cause.
func (r *OrgResolver) Resolve(ctx context.Context, tokenType, accessToken string) (*domain.Organization, error) {
	endpoint := fmt.Sprintf("%s/apps/%s/orgs?version=%s",
		r.baseURL, url.PathEscape(r.clientID), url.QueryEscape(r.apiVersion))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrOrgLookup, err)
	}
	req.Header.Set("Authorization", tokenType+" "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrgLookup, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrOrgLookup, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d", ErrOrgLookup, resp.StatusCode)
	}

	var parsed orgsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrOrgLookup, err)
	}
	if len(parsed.Data) == 0 {
		return nil, ErrNoAuthorizedOrg
	}

	// The platform orders the list; the first entry is the org this app
	// installation belongs to. Multi-org selection is out of scope.
	first := parsed.Data[0]
	return &domain.Organization{ID: first.ID, Name: first.Name}, nil
}
