package flow

import (
	"crypto/subtle"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NewNonce returns a fresh single-use nonce for one authorization attempt.
// UUIDv4 carries 122 bits of CSPRNG entropy, which satisfies the
// unguessability requirement.
func NewNonce() string {
	return uuid.NewString()
}

// assertionClaims is the subset of identity-assertion claims this flow
// interprets. Everything else in the token is opaque here.
type assertionClaims struct {
	Nonce   string
	Subject string
}

// decodeAssertion extracts the nonce claim and subject from the raw identity
// assertion. The assertion arrived over the back-channel token exchange;
// signature verification is the issuing provider boundary's concern, while the
// nonce equality check below is the replay defense owned by this flow.
func decodeAssertion(raw string) (*assertionClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssertionDecode, err)
	}

	nonce, _ := claims["nonce"].(string)
	if nonce == "" {
		return nil, fmt.Errorf("%w: missing nonce claim", ErrAssertionDecode)
	}
	subject, _ := claims.GetSubject()

	return &assertionClaims{Nonce: nonce, Subject: subject}, nil
}

// verifyNonce compares the expected attempt nonce against the decoded claim in
// constant time. Any mismatch is fatal to the attempt.
func verifyNonce(expected, got string) error {
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return ErrNonceMismatch
	}
	return nil
}
