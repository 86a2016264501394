package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/appgrid/platform-connect/domain"
)

var ErrProfileLookup = errors.New("profile lookup failed")

// ProfileResolver fetches the authenticated principal's minimal profile from
// /user/me. It exists to supply a subject identifier and is deliberately
// independent of organization resolution.
type ProfileResolver struct {
	httpClient *http.Client
	baseURL    string
}

func NewProfileResolver(httpClient *http.Client, baseURL string) *ProfileResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ProfileResolver{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (r *ProfileResolver) Me(ctx context.Context, accessToken string) (*domain.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/user/me", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProfileLookup, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileLookup, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProfileLookup, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d", ErrProfileLookup, resp.StatusCode)
	}

	var profile domain.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProfileLookup, err)
	}
	return &profile, nil
}
