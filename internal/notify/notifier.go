// Package notify defines the outbound notification port. Actual delivery
// (mail, push) is an external collaborator; warden only needs "send a message
// to an address, tell me if it worked". Delivery failure never rolls back the
// operation that triggered it.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends a message to an account's contact address.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// LogNotifier writes notifications to the structured log. Default
// implementation for deployments where the mail relay is owned by another
// service consuming the kafka stream.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, address, subject, body string) error {
	n.logger.InfoContext(ctx, "notification",
		"address", address,
		"subject", subject,
		"body", body,
	)
	return nil
}
