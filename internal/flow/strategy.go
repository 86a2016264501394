package flow

import (
	"context"
	"strings"

	"golang.org/x/oauth2"

	"github.com/appgrid/platform-connect/domain"
)

// ProfileFunc fetches the minimal identity profile for an access token. It is
// the secondary identity capability exposed to the OAuth2 engine and is
// independent of organization resolution.
type ProfileFunc func(ctx context.Context, accessToken string) (*domain.Profile, error)

// StrategyOptions is the immutable parameter set handed to the external OAuth2
// engine for a single authorization attempt. One attempt, one nonce: the same
// value is bound into the attempt that will verify the callback.
type StrategyOptions struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
	ClientID              string
	ClientSecret          string
	CallbackURL           string
	Scope                 string
	ScopeSeparator        string
	UseState              bool
	PassContextToCallback bool
	Nonce                 string
	ProfileResolver       ProfileFunc
}

// OAuth2Config renders the options as an x/oauth2 configuration, the engine
// that performs the redirect and the authorization-code exchange.
func (o *StrategyOptions) OAuth2Config() *oauth2.Config {
	var scopes []string
	if o.Scope != "" {
		scopes = strings.Split(o.Scope, o.ScopeSeparator)
	}
	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  o.CallbackURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  o.AuthorizationEndpoint,
			TokenURL: o.TokenEndpoint,
		},
	}
}

// AuthCodeURL builds the authorization redirect carrying the CSRF state and
// the attempt nonce.
func (o *StrategyOptions) AuthCodeURL(state string) string {
	return o.OAuth2Config().AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", o.Nonce))
}
