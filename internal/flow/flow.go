// Package flow implements the server-side half of the platform's OAuth2
// authorization-code integration: per-attempt nonce issuance, verification of
// the identity assertion returned at callback time, organization resolution,
// and encryption of the exchanged tokens before persistence.
package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/appgrid/platform-connect/domain"
	"github.com/appgrid/platform-connect/log"
)

const bearerTokenType = "Bearer"

// Config carries the process-level settings one attempt is assembled from.
// Values are injected once at construction; the flow never reads ambient state.
type Config struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
	ClientID              string
	ClientSecret          string
	CallbackURL           string
	Scope                 string // space-delimited requested scopes
}

// OrgResolver resolves the organization an access token is authorized against.
type OrgResolver interface {
	Resolve(ctx context.Context, tokenType, accessToken string) (*domain.Organization, error)
}

// TokenCipher is the encryption boundary around stored secrets.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Flow builds authorization attempts and completes their callbacks.
// It is safe for concurrent use; per-attempt state lives in the Attempt value.
type Flow struct {
	cfg     Config
	orgs    OrgResolver
	profile ProfileFunc
	cipher  TokenCipher
	creds   domain.CredentialRepository
	logger  log.Logger
}

func NewFlow(
	cfg Config,
	orgs OrgResolver,
	profile ProfileFunc,
	cipher TokenCipher,
	creds domain.CredentialRepository,
	logger log.Logger,
) *Flow {
	return &Flow{
		cfg:     cfg,
		orgs:    orgs,
		profile: profile,
		cipher:  cipher,
		creds:   creds,
		logger:  logger,
	}
}

// Attempt is one in-flight authorization. The nonce is scoped to this value
// alone; it is never written to any shared table by the flow itself.
type Attempt struct {
	flow  *Flow
	nonce string
}

// NewAttempt starts an authorization attempt with a freshly generated nonce.
func (f *Flow) NewAttempt() *Attempt {
	return &Attempt{flow: f, nonce: NewNonce()}
}

// ResumeAttempt rebinds an attempt around a nonce the caller carried across
// the browser redirect. The nonce must originate from a prior NewAttempt.
func (f *Flow) ResumeAttempt(nonce string) *Attempt {
	return &Attempt{flow: f, nonce: nonce}
}

// Nonce returns the attempt's nonce for correlation by the caller.
func (a *Attempt) Nonce() string {
	return a.nonce
}

// Options assembles the engine-facing configuration for this attempt. The
// returned options carry the attempt's own nonce verbatim.
func (a *Attempt) Options() *StrategyOptions {
	return &StrategyOptions{
		AuthorizationEndpoint: a.flow.cfg.AuthorizationEndpoint,
		TokenEndpoint:         a.flow.cfg.TokenEndpoint,
		ClientID:              a.flow.cfg.ClientID,
		ClientSecret:          a.flow.cfg.ClientSecret,
		CallbackURL:           a.flow.cfg.CallbackURL,
		Scope:                 a.flow.cfg.Scope,
		ScopeSeparator:        " ",
		UseState:              true,
		PassContextToCallback: true,
		Nonce:                 a.nonce,
		ProfileResolver:       a.flow.profile,
	}
}

// TokenExchange is what the OAuth2 engine hands back once the authorization
// code has been exchanged.
type TokenExchange struct {
	AccessToken  string
	RefreshToken string
	Params       domain.TokenGrant // expires_in, scope, token_type as granted
	IDToken      string            // raw identity assertion
}

// Completion is the success outcome. It carries only the attempt nonce for
// correlation; no secret material travels upward.
type Completion struct {
	Nonce string
}

// Complete runs the callback sequence: decode the assertion, verify the nonce,
// resolve the organization, encrypt both tokens, persist the record. Every
// step is fatal on failure and no later step executes; a failed attempt
// persists nothing.
func (a *Attempt) Complete(ctx context.Context, exch TokenExchange) (*Completion, error) {
	claims, err := decodeAssertion(exch.IDToken)
	if err != nil {
		return nil, err
	}

	if err := verifyNonce(a.nonce, claims.Nonce); err != nil {
		a.flow.logger.Warn(ctx, "assertion nonce mismatch, rejecting attempt", map[string]interface{}{
			"subject": claims.Subject,
		})
		return nil, err
	}

	org, err := a.flow.orgs.Resolve(ctx, normalizeTokenType(exch.Params.TokenType), exch.AccessToken)
	if err != nil {
		return nil, err
	}

	// Both secrets must encrypt before anything is persisted; a half-encrypted
	// record must never reach the repository.
	encAccess, err := a.flow.cipher.Encrypt(exch.AccessToken)
	if err != nil {
		return nil, err
	}
	encRefresh, err := a.flow.cipher.Encrypt(exch.RefreshToken)
	if err != nil {
		return nil, err
	}

	cred := &domain.Credential{
		Date:         time.Now().UTC(),
		UserID:       claims.Subject,
		OrgID:        org.ID,
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		ExpiresIn:    exch.Params.ExpiresIn,
		Scope:        exch.Params.Scope,
		TokenType:    exch.Params.TokenType,
		Nonce:        a.nonce,
	}
	if err := a.flow.creds.Insert(ctx, cred); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	a.flow.logger.Info(ctx, "authorization attempt completed", map[string]interface{}{
		"org_id":  org.ID,
		"user_id": claims.Subject,
	})

	return &Completion{Nonce: a.nonce}, nil
}

// normalizeTokenType maps any casing of "bearer" to the canonical scheme used
// in Authorization headers. Unknown schemes pass through untouched.
func normalizeTokenType(tokenType string) string {
	if tokenType == "" || strings.EqualFold(tokenType, bearerTokenType) {
		return bearerTokenType
	}
	return tokenType
}
