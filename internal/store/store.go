// Package store defines the contract every durable expense backend
// satisfies. Concrete backends live in the subpackages file, sheet and
// sqlite; selection between them is done by package backend.
package store

import (
	"context"
	"errors"

	"splitledger/internal/core"
)

var (
	// ErrNotFound is returned when a referenced expense id does not
	// exist. Deleting twice surfaces it the second time.
	ErrNotFound = errors.New("expense not found")

	// ErrCorruptStore marks persisted state that cannot be read back.
	// It is never auto-recovered; a corrupt store must stay
	// distinguishable from an empty one.
	ErrCorruptStore = errors.New("corrupt store")

	// ErrBackendUnavailable marks network or auth failures reaching a
	// remote backend.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Store is the backend-agnostic expense store. Implementations
// serialize their own mutating calls; the id counter in Meta and the
// expense records are kept consistent by each implementation (single
// document write, transaction, or explicit two-step commit with
// compensation).
type Store interface {
	// ListExpenses returns all expenses in storage order.
	ListExpenses(ctx context.Context) ([]core.Expense, error)

	// AddExpense assigns the next id, persists the draft and advances
	// the counter. Both happen or neither does, from the caller's
	// perspective.
	AddExpense(ctx context.Context, draft core.Expense) (core.Expense, error)

	// UpdateExpense replaces all mutable fields of the expense with the
	// given id. Fails with ErrNotFound if the id is absent.
	UpdateExpense(ctx context.Context, id int64, e core.Expense) (core.Expense, error)

	// DeleteExpense removes the expense with the given id. The id is
	// never reused afterwards.
	DeleteExpense(ctx context.Context, id int64) error

	// ClearAll removes every expense, resets the id counter to 1 and
	// clears stored categories.
	ClearAll(ctx context.Context) error

	// Meta returns the persisted metadata.
	Meta(ctx context.Context) (core.Meta, error)

	// SetMeta replaces the persisted metadata.
	SetMeta(ctx context.Context, meta core.Meta) error

	// Kind identifies the backend for status reporting.
	Kind() string
}
