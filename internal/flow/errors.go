package flow

import "errors"

var (
	// ErrAssertionDecode marks an identity assertion that could not be decoded
	// or that carries no nonce claim. Always fatal to the attempt.
	ErrAssertionDecode = errors.New("identity assertion could not be decoded")

	// ErrNonceMismatch marks an assertion whose nonce claim does not match the
	// attempt's nonce. Treated as a potential replay, never retried.
	ErrNonceMismatch = errors.New("assertion nonce does not match attempt nonce")
)
