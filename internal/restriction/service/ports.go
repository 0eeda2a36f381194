package service

import (
	"context"

	accountstore "warden/internal/account/store"
	"warden/internal/restriction/announcer"
	"warden/internal/restriction/store/history"
)

// Type aliases for the persistence ports so call sites read naturally.
type (
	AccountStore = accountstore.AccountStore
	HistoryStore = history.Store
)

// Notifier sends a message to an account's contact address. Delivery failure
// is reported back as a flag on the ban result, never as an operation error.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// Announcer publishes lifecycle events for downstream consumers. Best-effort.
type Announcer interface {
	Announce(ctx context.Context, event announcer.Event)
}

// TxRunner executes fn inside one logical unit of work. Implementations
// inject a transaction into the context (pkg/platform/tx) that the postgres
// stores pick up; the in-memory runner just calls fn.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxRunnerFunc adapts a function to the TxRunner interface.
type TxRunnerFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func (f TxRunnerFunc) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// PassthroughTx is the unit-of-work runner for stores that are atomic on
// their own (the in-memory implementations).
func PassthroughTx() TxRunner {
	return TxRunnerFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	})
}
