package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"warden/internal/notify"
	dErrors "warden/pkg/domain-errors"
)

const codeSubject = "Password reset code"

// Service issues reset codes and verifies confirmation attempts.
type Service struct {
	codes    CodeStore
	notifier notify.Notifier
	ttl      time.Duration
	logger   *slog.Logger
}

func NewService(codes CodeStore, notifier notify.Notifier, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		codes:    codes,
		notifier: notifier,
		ttl:      ttl,
		logger:   logger,
	}
}

// Request issues a fresh code for the address and sends it through the
// notifier. A new request replaces any previous unconsumed code.
func (s *Service) Request(ctx context.Context, email string) error {
	if email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}

	code, err := generateCode()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "generate reset code")
	}
	if err := s.codes.Put(ctx, email, code, s.ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store reset code")
	}

	body := fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.",
		code, int(s.ttl.Minutes()))
	if err := s.notifier.Send(ctx, email, codeSubject, body); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "send reset code")
	}

	s.logger.InfoContext(ctx, "reset code issued", "email", email)
	return nil
}

// Confirm verifies a code. The stored code is consumed on every attempt, so a
// wrong guess burns the code and a correct one can never verify twice.
func (s *Service) Confirm(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email and code are required")
	}

	stored, err := s.codes.Consume(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no active reset code for this address")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "consume reset code")
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return dErrors.New(dErrors.CodeInvalidState, "reset code does not match")
	}

	s.logger.InfoContext(ctx, "reset code confirmed", "email", email)
	return nil
}

// generateCode produces a uniform 6-digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
