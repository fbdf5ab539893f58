// Package file persists the ledger as a single JSON document on local
// disk. Every mutation reads the current document, applies the change
// in memory and writes the whole document back atomically, so a partial
// write can never corrupt previously saved records.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

type Store struct {
	mu   sync.Mutex
	path string
}

var _ store.Store = (*Store)(nil)

type document struct {
	Expenses []core.Expense `json:"expenses"`
	Meta     core.Meta      `json:"meta"`
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Kind() string { return "file" }

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Expenses, nil
}

func (s *Store) AddExpense(_ context.Context, draft core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return core.Expense{}, err
	}
	draft.ID = doc.Meta.NextID
	doc.Meta.NextID++
	doc.Expenses = append(doc.Expenses, draft)
	if err := s.write(doc); err != nil {
		return core.Expense{}, err
	}
	return draft, nil
}

func (s *Store) UpdateExpense(_ context.Context, id int64, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return core.Expense{}, err
	}
	for i := range doc.Expenses {
		if doc.Expenses[i].ID != id {
			continue
		}
		e.ID = id
		doc.Expenses[i] = e
		if err := s.write(doc); err != nil {
			return core.Expense{}, err
		}
		return e, nil
	}
	return core.Expense{}, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Expenses {
		if doc.Expenses[i].ID != id {
			continue
		}
		doc.Expenses = append(doc.Expenses[:i], doc.Expenses[i+1:]...)
		return s.write(doc)
	}
	return fmt.Errorf("%w: id %d", store.ErrNotFound, id)
}

func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(document{Meta: core.Meta{NextID: 1}})
}

// Replace swaps the whole document for the given snapshot in one
// atomic write. Used for mirroring another backend.
func (s *Store) Replace(_ context.Context, expenses []core.Expense, meta core.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := document{Expenses: expenses, Meta: meta}
	normalize(&doc)
	return s.write(doc)
}

func (s *Store) Meta(_ context.Context) (core.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return core.Meta{}, err
	}
	return doc.Meta, nil
}

func (s *Store) SetMeta(_ context.Context, meta core.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Meta = meta
	normalize(&doc)
	return s.write(doc)
}

// load reads the whole document. A missing or empty file yields an
// empty ledger with next_id 1; unreadable content is reported as
// ErrCorruptStore, never as an empty ledger.
func (s *Store) load() (document, error) {
	empty := document{Meta: core.Meta{NextID: 1}}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(b) == 0 {
		return empty, nil
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return document{}, fmt.Errorf("%w: %s: %v", store.ErrCorruptStore, s.path, err)
	}
	normalize(&doc)
	return doc, nil
}

// normalize keeps the id counter strictly above every stored id, so a
// document edited out of band cannot cause id reuse.
func normalize(doc *document) {
	maxID := int64(0)
	for _, e := range doc.Expenses {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	if doc.Meta.NextID < maxID+1 {
		doc.Meta.NextID = maxID + 1
	}
	if doc.Meta.NextID < 1 {
		doc.Meta.NextID = 1
	}
}

// write replaces the whole file: temp file in the same directory,
// fsync, then rename.
func (s *Store) write(doc document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "expenses-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
