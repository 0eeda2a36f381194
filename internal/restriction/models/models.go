package models

import (
	"time"

	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
)

// BanDuration is the closed choice of restriction length. Adding a variant is
// a compile-visible change here plus the switches below; resolution never
// silently defaults.
type BanDuration string

const (
	BanDuration7Days     BanDuration = "7d"
	BanDuration30Days    BanDuration = "30d"
	BanDurationPermanent BanDuration = "permanent"
)

// ParseBanDuration creates a BanDuration from external input, validating it.
func ParseBanDuration(s string) (BanDuration, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "ban duration cannot be empty")
	}
	d := BanDuration(s)
	if !d.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid ban duration: must be '7d', '30d' or 'permanent'")
	}
	return d, nil
}

// IsValid checks if the duration is one of the supported enum values.
func (d BanDuration) IsValid() bool {
	switch d {
	case BanDuration7Days, BanDuration30Days, BanDurationPermanent:
		return true
	}
	return false
}

// Days returns the day count for temporal durations. ok is false for the
// permanent variant.
func (d BanDuration) Days() (days int, ok bool) {
	switch d {
	case BanDuration7Days:
		return 7, true
	case BanDuration30Days:
		return 30, true
	default:
		return 0, false
	}
}

// Label returns the human description used in the owner notification.
func (d BanDuration) Label() string {
	switch d {
	case BanDuration7Days:
		return "7-day ban"
	case BanDuration30Days:
		return "30-day ban"
	case BanDurationPermanent:
		return "Permanent ban"
	default:
		return string(d)
	}
}

func (d BanDuration) String() string {
	return string(d)
}

// BanEventType distinguishes the two lifecycle events in the audit trail.
type BanEventType string

const (
	BanEventImposed BanEventType = "imposed"
	BanEventLifted  BanEventType = "lifted"
)

// BanEvent is one immutable entry in the per-account audit trail. Events are
// appended when a restriction is imposed and again when it is lifted; nothing
// updates or deletes them.
type BanEvent struct {
	ID       id.EventID
	UserID   id.UserID
	Type     BanEventType
	Reason   string
	Duration BanDuration
	// ImposedAt is the restriction start. On a lifted event it carries the
	// imposition instant of the restriction being closed.
	ImposedAt  time.Time
	LiftedAt   *time.Time
	Actor      string
	LiftReason *string
	RecordedAt time.Time
}

// NewImposedEvent builds the audit entry for a freshly applied restriction.
func NewImposedEvent(userID id.UserID, reason string, duration BanDuration, actor string, now time.Time) (*BanEvent, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ban event requires a user id")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ban event requires a reason")
	}
	return &BanEvent{
		ID:         id.NewEventID(),
		UserID:     userID,
		Type:       BanEventImposed,
		Reason:     reason,
		Duration:   duration,
		ImposedAt:  now,
		Actor:      actor,
		RecordedAt: now,
	}, nil
}

// NewLiftedEvent builds the audit entry closing a restriction. imposedAt is
// the start of the restriction being closed; liftReason may be empty.
func NewLiftedEvent(userID id.UserID, closingReason string, duration BanDuration, imposedAt time.Time, actor string, liftReason string, now time.Time) (*BanEvent, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ban event requires a user id")
	}
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "lifted event requires an actor")
	}
	event := &BanEvent{
		ID:         id.NewEventID(),
		UserID:     userID,
		Type:       BanEventLifted,
		Reason:     closingReason,
		Duration:   duration,
		ImposedAt:  imposedAt,
		LiftedAt:   &now,
		Actor:      actor,
		RecordedAt: now,
	}
	if liftReason != "" {
		event.LiftReason = &liftReason
	}
	return event, nil
}

// BanResult is the outcome returned to the caller of a ban operation.
type BanResult struct {
	UserID    id.UserID  `json:"user_id"`
	Duration  string     `json:"duration"`
	Reason    string     `json:"reason"`
	BanEndsAt *time.Time `json:"ban_ends_at,omitempty"`
	// Notified reports whether the account owner could be told about the
	// restriction. Delivery failure never fails the ban itself.
	Notified bool `json:"notified"`
}

// UnbanResult confirms a lifted restriction.
type UnbanResult struct {
	UserID        id.UserID `json:"user_id"`
	ClearedReason string    `json:"cleared_reason"`
}

// BanRequest is the transport payload for imposing a restriction.
type BanRequest struct {
	Reason   string `json:"reason"`
	Duration string `json:"duration"`
}

// UnbanRequest is the transport payload for lifting a restriction.
type UnbanRequest struct {
	Reason string `json:"reason"`
}

// BannedAccountSummary is one row of the banned-account listing.
type BannedAccountSummary struct {
	UserID        id.UserID  `json:"user_id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Reason        string     `json:"reason"`
	BanEndsAt     *time.Time `json:"ban_ends_at,omitempty"`
	RemainingTime string     `json:"remaining_time"`
}

// BannedAccountPage is a page of the banned-account listing.
type BannedAccountPage struct {
	Accounts []BannedAccountSummary `json:"accounts"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	Total    int                    `json:"total"`
}
