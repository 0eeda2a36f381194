// Package otp issues and verifies one-time password-reset codes. Codes are
// short-lived and consumed exactly once; credential rotation itself belongs
// to the identity provider, this package only answers "did the requester
// prove control of the address".
package otp

import (
	"context"
	"time"

	"warden/pkg/platform/sentinel"
)

// ErrNotFound is returned by Consume when no live code exists for the key.
var ErrNotFound = sentinel.ErrNotFound

// CodeStore holds issued codes until they expire or are consumed.
//
// Consume removes the stored code atomically and returns it, so a code can
// never verify twice even under concurrent confirmation attempts.
type CodeStore interface {
	Put(ctx context.Context, email, code string, ttl time.Duration) error
	Consume(ctx context.Context, email string) (string, error)
}
