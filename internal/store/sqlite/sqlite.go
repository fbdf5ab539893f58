// Package sqlite implements the expense store on a local SQLite
// database. Unlike the sheet backend it gets counter/record atomicity
// for free from transactions. It is only ever selected explicitly,
// never by automatic fallback.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

type Store struct {
	mu sync.Mutex
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Kind() string { return "sqlite" }

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const expenseColumns = "id, amount, payer, participants, shares, category, description, unit, date"

func (s *Store) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, "SELECT "+expenseColumns+" FROM expenses ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (s *Store) AddExpense(ctx context.Context, draft core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var raw string
	if err := tx.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'next_id'").Scan(&raw); err != nil {
		return core.Expense{}, fmt.Errorf("%w: read next_id: %v", store.ErrCorruptStore, err)
	}
	nextID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || nextID < 1 {
		return core.Expense{}, fmt.Errorf("%w: bad next_id %q", store.ErrCorruptStore, raw)
	}
	draft.ID = nextID

	participants, shares, err := encodeLists(draft)
	if err != nil {
		return core.Expense{}, err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		draft.ID, draft.Amount.String(), draft.Payer, participants, shares,
		draft.Category, draft.Description, draft.Unit, draft.Date.String())
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	_, err = tx.ExecContext(ctx, "UPDATE meta SET value = ? WHERE key = 'next_id'",
		strconv.FormatInt(draft.ID+1, 10))
	if err != nil {
		return core.Expense{}, fmt.Errorf("advance next_id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit: %w", err)
	}
	return draft, nil
}

func (s *Store) UpdateExpense(ctx context.Context, id int64, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = id
	participants, shares, err := encodeLists(e)
	if err != nil {
		return core.Expense{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, payer = ?, participants = ?, shares = ?,
		 category = ?, description = ?, unit = ?, date = ? WHERE id = ?`,
		e.Amount.String(), e.Payer, participants, shares,
		e.Category, e.Description, e.Unit, e.Date.String(), id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.Expense{}, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses"); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE meta SET value = '1' WHERE key = 'next_id'"); err != nil {
		return fmt.Errorf("reset next_id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE meta SET value = '[]' WHERE key = 'categories'"); err != nil {
		return fmt.Errorf("reset categories: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Meta(ctx context.Context) (core.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return core.Meta{}, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()

	meta := core.Meta{NextID: 1}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return core.Meta{}, fmt.Errorf("scan meta: %w", err)
		}
		switch key {
		case "next_id":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil || id < 1 {
				return core.Meta{}, fmt.Errorf("%w: bad next_id %q", store.ErrCorruptStore, value)
			}
			meta.NextID = id
		case "categories":
			if err := json.Unmarshal([]byte(value), &meta.Categories); err != nil {
				return core.Meta{}, fmt.Errorf("%w: bad categories: %v", store.ErrCorruptStore, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return core.Meta{}, fmt.Errorf("iterate meta: %w", err)
	}
	return meta, nil
}

func (s *Store) SetMeta(ctx context.Context, meta core.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	categories, err := json.Marshal(meta.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	for key, value := range map[string]string{
		"next_id":    strconv.FormatInt(meta.NextID, 10),
		"categories": string(categories),
	} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, value); err != nil {
			return fmt.Errorf("write meta %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func encodeLists(e core.Expense) (participants, shares string, err error) {
	p, err := json.Marshal(e.Participants)
	if err != nil {
		return "", "", fmt.Errorf("encode participants: %w", err)
	}
	sh := []byte("{}")
	if len(e.Shares) > 0 {
		sh, err = json.Marshal(e.Shares)
		if err != nil {
			return "", "", fmt.Errorf("encode shares: %w", err)
		}
	}
	return string(p), string(sh), nil
}

func scanExpense(rows *sql.Rows) (core.Expense, error) {
	var (
		e                    core.Expense
		amount, participants string
		shares, date         string
	)
	if err := rows.Scan(&e.ID, &amount, &e.Payer, &participants, &shares,
		&e.Category, &e.Description, &e.Unit, &date); err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	var err error
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: bad amount %q", store.ErrCorruptStore, amount)
	}
	if err := json.Unmarshal([]byte(participants), &e.Participants); err != nil {
		return core.Expense{}, fmt.Errorf("%w: bad participants: %v", store.ErrCorruptStore, err)
	}
	if shares != "" && shares != "{}" {
		if err := json.Unmarshal([]byte(shares), &e.Shares); err != nil {
			return core.Expense{}, fmt.Errorf("%w: bad shares: %v", store.ErrCorruptStore, err)
		}
	}
	e.Date, err = core.ParseDate(date)
	if err != nil {
		e.Date = core.Date{}
	}
	return e, nil
}
