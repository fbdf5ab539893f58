// Package tracker is the ledger service: it validates expenses before
// they reach storage, keeps a per-session read cache, and derives
// balances, settlements and summaries from the stored records.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

// Publisher receives best-effort notifications about ledger mutations.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, op string, id int64) error
}

// Ledger orchestrates expense operations on top of a storage backend.
type Ledger struct {
	store     store.Store
	publisher Publisher

	mu     sync.Mutex
	cached []core.Expense
	valid  bool
}

// New builds a ledger on the given backend. The publisher may be nil.
func New(st store.Store, publisher Publisher) *Ledger {
	return &Ledger{store: st, publisher: publisher}
}

// StorageKind reports which backend the ledger is running on.
func (l *Ledger) StorageKind() string {
	return l.store.Kind()
}

// Add validates and persists a new expense. The id is assigned by the
// backend.
func (l *Ledger) Add(ctx context.Context, draft core.Expense) (core.Expense, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return core.Expense{}, err
	}

	added, err := l.store.AddExpense(ctx, draft)
	if err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}
	l.invalidate()
	l.notify(ctx, "expense.added", added.ID)
	return added, nil
}

// Update replaces the expense with the given id.
func (l *Ledger) Update(ctx context.Context, id int64, e core.Expense) (core.Expense, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := l.store.UpdateExpense(ctx, id, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	l.invalidate()
	l.notify(ctx, "expense.updated", id)
	return updated, nil
}

// Delete removes the expense with the given id. Its id is never
// reassigned.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	if err := l.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	l.invalidate()
	l.notify(ctx, "expense.deleted", id)
	return nil
}

// Clear wipes all expenses and resets the id counter.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	l.invalidate()
	l.notify(ctx, "ledger.cleared", 0)
	return nil
}

// List returns expenses, optionally filtered by year and month (0
// means no filter on that component).
func (l *Ledger) List(ctx context.Context, year, month int) ([]core.Expense, error) {
	expenses, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterByPeriod(expenses, year, month), nil
}

// Get returns a single expense by id.
func (l *Ledger) Get(ctx context.Context, id int64) (core.Expense, error) {
	expenses, err := l.load(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	for _, e := range expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
}

// Balances computes the per-person net position over the whole
// ledger. Positive means the person is owed money.
func (l *Ledger) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	expenses, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return core.Balances(expenses)
}

// Settlements returns the greedy transfer plan that zeroes all
// balances.
func (l *Ledger) Settlements(ctx context.Context) ([]core.Transfer, error) {
	balances, err := l.Balances(ctx)
	if err != nil {
		return nil, err
	}
	return core.Settle(balances), nil
}

// Periods lists the years and months that carry at least one dated
// expense.
func (l *Ledger) Periods(ctx context.Context) ([]int, map[int][]int, error) {
	expenses, err := l.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	years, months := core.Periods(expenses)
	return years, months, nil
}

// TotalsByCategory sums spending per category within the given period.
func (l *Ledger) TotalsByCategory(ctx context.Context, year, month int) (map[string]decimal.Decimal, error) {
	expenses, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return core.TotalsByCategory(core.FilterByPeriod(expenses, year, month)), nil
}

// Categories merges the default seed list with what the backend has
// stored.
func (l *Ledger) Categories(ctx context.Context) ([]string, error) {
	meta, err := l.store.Meta(ctx)
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	return core.MergeCategories(meta.Categories), nil
}

// AddCategory stores a new custom category. Adding one that already
// exists is a no-op.
func (l *Ledger) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty category name", core.ErrInvalidCategory)
	}

	meta, err := l.store.Meta(ctx)
	if err != nil {
		return fmt.Errorf("load meta: %w", err)
	}
	for _, c := range core.MergeCategories(meta.Categories) {
		if strings.EqualFold(c, name) {
			return nil
		}
	}
	meta.Categories = append(meta.Categories, name)
	sort.Strings(meta.Categories)
	if err := l.store.SetMeta(ctx, meta); err != nil {
		return fmt.Errorf("store category: %w", err)
	}
	return nil
}

// load returns the session's cached expense list, reading from the
// backend when the cache has been invalidated by a mutation.
func (l *Ledger) load(ctx context.Context) ([]core.Expense, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.valid {
		return l.cached, nil
	}
	expenses, err := l.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	l.cached = expenses
	l.valid = true
	return expenses, nil
}

func (l *Ledger) invalidate() {
	l.mu.Lock()
	l.valid = false
	l.cached = nil
	l.mu.Unlock()
}

func (l *Ledger) notify(ctx context.Context, op string, id int64) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishLedgerEvent(ctx, op, id); err != nil {
		slog.ErrorContext(ctx, "failed to publish ledger event",
			"op", op, "id", id, "error", err)
	}
}
