package domain

import (
	"context"
	"time"
)

// Credential is the persisted outcome of one completed authorization attempt.
// AccessToken and RefreshToken hold ciphertext only; plaintext token material
// must never cross the repository boundary.
type Credential struct {
	ID           string    `bson:"_id,omitempty" json:"id,omitempty"`
	Date         time.Time `bson:"date"          json:"date"` // Set at write time, not token-issue time
	UserID       string    `bson:"user_id"       json:"user_id"`
	OrgID        string    `bson:"org_id"        json:"org_id"`
	AccessToken  string    `bson:"access_token"  json:"access_token"`
	RefreshToken string    `bson:"refresh_token" json:"refresh_token"`
	ExpiresIn    int       `bson:"expires_in"    json:"expires_in"`
	Scope        string    `bson:"scope"         json:"scope"`
	TokenType    string    `bson:"token_type"    json:"token_type"`
	Nonce        string    `bson:"nonce"         json:"nonce"` // Retained for audit only, never re-verified
}

// TokenGrant carries the non-secret grant parameters from the token exchange.
// The tokens themselves travel separately so they can be encrypted before
// anything is persisted.
type TokenGrant struct {
	ExpiresIn int    `json:"expires_in"`
	Scope     string `json:"scope"`
	TokenType string `json:"token_type"`
}

// CredentialRepository stores finished credential records. Insert has
// at-least-once semantics; the caller owns nothing after handing the record over.
type CredentialRepository interface {
	Insert(ctx context.Context, cred *Credential) error
}
