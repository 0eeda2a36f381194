package models

import (
	"fmt"
	"time"

	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

// Account is the identity tracked by the service. Credentials and profile
// management live in other services; warden owns only the restriction fields.
//
// Invariant: Banned == false implies BanReason == nil and BanEndsAt == nil.
// Banned == true with a nil BanEndsAt means the restriction is permanent.
type Account struct {
	ID           id.UserID
	Username     string
	Email        string
	CreatedAt    time.Time
	LastActiveAt *time.Time

	Banned    bool
	BanReason *string
	BanEndsAt *time.Time
}

// New creates an account with invariant validation. CreatedAt is stamped with
// now when zero.
func New(userID id.UserID, username, email string, now time.Time) (*Account, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account id cannot be nil")
	}
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot be empty")
	}
	return &Account{
		ID:        userID,
		Username:  username,
		Email:     email,
		CreatedAt: now,
	}, nil
}

// EffectivelyBanned reports whether the account is blocked from access at the
// given instant. Stored Banned means "has an unlifted restriction"; a temporal
// restriction whose expiry has passed is no longer effective even though no
// lift was recorded. Every read path that needs "usable right now" must go
// through this predicate rather than the raw flag.
func (a *Account) EffectivelyBanned(now time.Time) bool {
	if !a.Banned {
		return false
	}
	return a.BanEndsAt == nil || a.BanEndsAt.After(now)
}

// ApplyBan sets the restriction fields. A nil endsAt marks the restriction
// permanent.
func (a *Account) ApplyBan(reason string, endsAt *time.Time) {
	a.Banned = true
	a.BanReason = &reason
	a.BanEndsAt = endsAt
}

// ClearBan removes the restriction fields, restoring the invariant for the
// unbanned state.
func (a *Account) ClearBan() {
	a.Banned = false
	a.BanReason = nil
	a.BanEndsAt = nil
}

// RemainingBanTime formats the time left on a restriction as "Xd Yh", or
// "Permanent" when there is no expiry. Expired-but-unlifted restrictions
// report "0d 0h".
func (a *Account) RemainingBanTime(now time.Time) string {
	if a.BanEndsAt == nil {
		return "Permanent"
	}
	remaining := a.BanEndsAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	days := int(remaining.Hours()) / 24
	hours := int(remaining.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
