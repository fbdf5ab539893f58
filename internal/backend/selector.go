// Package backend resolves which storage backend the ledger runs on.
//
// Resolution happens once per process and the result is cached; callers
// that want to pick up changed connectivity ask for ForceResolve. The
// selector never moves data between backends.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"splitledger/internal/store"
	"splitledger/internal/store/file"
	"splitledger/internal/store/sheet"
	"splitledger/internal/store/sqlite"
)

// Selector lazily constructs the configured backend.
type Selector struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	resolved store.Store
	detail   string
	cleanup  func() error
}

// NewSelector builds a selector. Resolution is deferred until the first
// call to Resolve.
func NewSelector(cfg Config, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{cfg: cfg, logger: logger}
}

// Resolve returns the active backend, constructing it on first use.
func (s *Selector) Resolve(ctx context.Context) (store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved != nil {
		return s.resolved, nil
	}
	return s.resolveLocked(ctx)
}

// ForceResolve drops the cached backend and resolves again. Used after
// configuration or connectivity changes.
func (s *Selector) ForceResolve(ctx context.Context) (store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return s.resolveLocked(ctx)
}

// Status reports the active backend kind and a human-readable detail.
// Before the first Resolve the kind is empty.
func (s *Selector) Status() (kind, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved == nil {
		return "", "not resolved"
	}
	return s.resolved.Kind(), s.detail
}

// Close releases the active backend, if any.
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Selector) closeLocked() error {
	var err error
	if s.cleanup != nil {
		err = s.cleanup()
	}
	s.resolved = nil
	s.detail = ""
	s.cleanup = nil
	return err
}

func (s *Selector) resolveLocked(ctx context.Context) (store.Store, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	switch s.cfg.Kind {
	case KindSheets:
		st, err := s.openSheet(ctx)
		if err != nil {
			return nil, err
		}
		s.set(st, fmt.Sprintf("spreadsheet %s", s.cfg.SpreadsheetID), nil)
	case KindFile:
		st := file.New(s.cfg.FilePath)
		s.set(st, fmt.Sprintf("file %s", s.cfg.FilePath), nil)
	case KindSQLite:
		st, err := sqlite.New(s.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		s.set(st, fmt.Sprintf("database %s", s.cfg.SQLitePath), st.Close)
	case KindAuto:
		s.resolveAuto(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend kind: %q", s.cfg.Kind)
	}

	s.logger.InfoContext(ctx, "storage backend resolved",
		"kind", s.resolved.Kind(),
		"detail", s.detail)
	return s.resolved, nil
}

// resolveAuto prefers the sheet backend when it is configured and
// reachable. Any failure demotes to the local file; the failure is
// never surfaced to callers.
func (s *Selector) resolveAuto(ctx context.Context) {
	if s.cfg.SpreadsheetID != "" {
		st, err := s.openSheet(ctx)
		if err == nil {
			s.set(st, fmt.Sprintf("spreadsheet %s", s.cfg.SpreadsheetID), nil)
			return
		}
		s.logger.WarnContext(ctx, "sheet backend unreachable, falling back to local file",
			"spreadsheet_id", s.cfg.SpreadsheetID,
			"error", err)
		s.set(file.New(s.cfg.FilePath), fmt.Sprintf("file %s (sheet unreachable: %v)", s.cfg.FilePath, err), nil)
		return
	}
	s.set(file.New(s.cfg.FilePath), fmt.Sprintf("file %s (no spreadsheet configured)", s.cfg.FilePath), nil)
}

func (s *Selector) openSheet(ctx context.Context) (*sheet.Store, error) {
	st, err := sheet.New(ctx, sheet.Config{
		SpreadsheetID:   s.cfg.SpreadsheetID,
		CredentialsJSON: s.cfg.CredentialsJSON,
		CredentialsFile: s.cfg.CredentialsFile,
		Timeout:         s.cfg.SheetTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Selector) set(st store.Store, detail string, cleanup func() error) {
	s.resolved = st
	s.detail = detail
	s.cleanup = cleanup
}
