// Package sheet maps the expense store contract onto two worksheets of
// a Google spreadsheet: "expenses" (one row per expense) and "meta"
// (key/value rows for next_id and categories). Row identity for update
// and delete is resolved by scanning for the matching id column, which
// is fine at the expected low-thousands row count.
//
// All writes use RAW value input so user-entered text is stored as
// plain values and never evaluated as a formula.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

const (
	expensesSheet = "expenses"
	metaSheet     = "meta"

	// DefaultTimeout bounds every remote call; a timeout surfaces as
	// ErrBackendUnavailable instead of hanging the session.
	DefaultTimeout = 15 * time.Second
)

type Config struct {
	SpreadsheetID string
	// Credential sources, first match wins: inline JSON, key file,
	// application default credentials.
	CredentialsJSON string
	CredentialsFile string
	Timeout         time.Duration
}

type Store struct {
	mu            sync.Mutex
	svc           *gsheet.Service
	spreadsheetID string
	timeout       time.Duration
	sheetIDs      map[string]int64
}

var _ store.Store = (*Store)(nil)

// New builds the Sheets client. It does not touch the network; call
// Ping for the reachability check.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("service account file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsFile(cfg.CredentialsFile))
	}
	// Without an explicit source the client falls back to application
	// default credentials.
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create sheets service: %v", store.ErrBackendUnavailable, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		timeout:       timeout,
		sheetIDs:      map[string]int64{},
	}, nil
}

func (s *Store) Kind() string { return "sheets" }

// Ping verifies the spreadsheet is reachable and makes sure both
// worksheets exist with their header rows.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return s.unavailable("reach spreadsheet", err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}

	var requests []*gsheet.Request
	for _, title := range []string{expensesSheet, metaSheet} {
		if _, ok := s.sheetIDs[title]; !ok {
			requests = append(requests, &gsheet.Request{
				AddSheet: &gsheet.AddSheetRequest{
					Properties: &gsheet.SheetProperties{Title: title},
				},
			})
		}
	}
	if len(requests) > 0 {
		resp, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			return s.unavailable("create worksheets", err)
		}
		for _, r := range resp.Replies {
			if r.AddSheet != nil && r.AddSheet.Properties != nil {
				s.sheetIDs[r.AddSheet.Properties.Title] = r.AddSheet.Properties.SheetId
			}
		}
	}
	if err := s.ensureHeaders(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.bound(ctx)
	defer cancel()
	expenses, _, err := s.listRows(ctx)
	return expenses, err
}

// AddExpense is the one operation the spreadsheet cannot make atomic:
// the id is reserved from meta, the record row is appended, then meta
// is committed. If the meta commit fails the appended row is deleted so
// no orphaned record survives.
func (s *Store) AddExpense(ctx context.Context, draft core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	meta, err := s.meta(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	draft.ID = meta.NextID

	row, err := expenseToRow(draft)
	if err != nil {
		return core.Expense{}, err
	}
	appendRange := fmt.Sprintf("%s!A1:I1", expensesSheet)
	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, appendRange, &gsheet.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return core.Expense{}, s.unavailable("append expense row", err)
	}

	meta.NextID = draft.ID + 1
	if err := s.writeMeta(ctx, meta); err != nil {
		// Compensate: remove the orphaned record before surfacing. The
		// meta write usually fails by timeout, so the rollback needs its
		// own deadline, detached from the expired call context.
		rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer rcancel()
		if resp.Updates != nil {
			if rowNum, perr := rowFromRange(resp.Updates.UpdatedRange); perr == nil {
				if derr := s.deleteRow(rctx, rowNum); derr != nil {
					slog.WarnContext(rctx, "Could not roll back orphaned expense row",
						"row", rowNum, "error", derr)
				}
			}
		}
		return core.Expense{}, err
	}
	return draft, nil
}

func (s *Store) UpdateExpense(ctx context.Context, id int64, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, rowNum, err := s.findRow(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id
	row, err := expenseToRow(e)
	if err != nil {
		return core.Expense{}, err
	}
	writeRange := fmt.Sprintf("%s!A%d:I%d", expensesSheet, rowNum, rowNum)
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, writeRange, &gsheet.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return core.Expense{}, s.unavailable("update expense row", err)
	}
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, rowNum, err := s.findRow(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteRow(ctx, rowNum)
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, rng := range []string{
		fmt.Sprintf("%s!A2:I", expensesSheet),
		fmt.Sprintf("%s!A2:B", metaSheet),
	} {
		g.Go(func() error {
			_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
				Context(gctx).Do()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return s.unavailable("clear worksheets", err)
	}
	return s.writeMeta(ctx, core.Meta{NextID: 1})
}

func (s *Store) Meta(ctx context.Context) (core.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.meta(ctx)
}

func (s *Store) SetMeta(ctx context.Context, meta core.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.writeMeta(ctx, meta)
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, store.ErrBackendUnavailable, err)
}

func (s *Store) ensureHeaders(ctx context.Context) error {
	for title, headers := range map[string][]string{
		expensesSheet: expenseHeaders,
		metaSheet:     metaHeaders,
	} {
		rng := fmt.Sprintf("%s!1:1", title)
		resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return s.unavailable("read headers", err)
		}
		current := []string{}
		if len(resp.Values) > 0 {
			current = toStrings(resp.Values[0])
		}
		if equalStrings(current, headers) {
			continue
		}
		row := make([]interface{}, len(headers))
		for i, h := range headers {
			row[i] = h
		}
		_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, fmt.Sprintf("%s!A1", title), &gsheet.ValueRange{
			Values: [][]interface{}{row},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return s.unavailable("write headers", err)
		}
	}
	return nil
}

// listRows returns all expenses with their worksheet row numbers.
// Unparsable load-bearing cells are corruption, not an empty ledger.
func (s *Store) listRows(ctx context.Context) ([]core.Expense, []int64, error) {
	rng := fmt.Sprintf("%s!A2:I", expensesSheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, nil, s.unavailable("read expenses", err)
	}
	var (
		expenses []core.Expense
		rows     []int64
	)
	for i, row := range resp.Values {
		cols := toStrings(row)
		if isBlankRow(cols) {
			continue
		}
		e, err := rowToExpense(cols)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: row %d: %v", store.ErrCorruptStore, i+2, err)
		}
		expenses = append(expenses, e)
		rows = append(rows, int64(i+2))
	}
	return expenses, rows, nil
}

func (s *Store) findRow(ctx context.Context, id int64) (core.Expense, int64, error) {
	expenses, rows, err := s.listRows(ctx)
	if err != nil {
		return core.Expense{}, 0, err
	}
	for i, e := range expenses {
		if e.ID == id {
			return e, rows[i], nil
		}
	}
	return core.Expense{}, 0, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
}

func (s *Store) deleteRow(ctx context.Context, rowNum int64) error {
	sheetID, ok := s.sheetIDs[expensesSheet]
	if !ok {
		return s.unavailable("delete expense row", errors.New("unknown sheet id (ping not run)"))
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: rowNum - 1,
					EndIndex:   rowNum,
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return s.unavailable("delete expense row", err)
	}
	return nil
}

func (s *Store) meta(ctx context.Context) (core.Meta, error) {
	rng := fmt.Sprintf("%s!A2:B", metaSheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.Meta{}, s.unavailable("read meta", err)
	}
	meta, found, err := metaFromRows(resp.Values)
	if err != nil {
		return core.Meta{}, fmt.Errorf("%w: meta: %v", store.ErrCorruptStore, err)
	}
	// Keep the counter strictly above every stored id. Covers the first
	// run against a fresh sheet and a counter left behind by an
	// out-of-band edit or an interrupted commit.
	expenses, _, err := s.listRows(ctx)
	if err != nil {
		return core.Meta{}, err
	}
	if !found || meta.NextID < 1 {
		meta.NextID = 1
	}
	for _, e := range expenses {
		if e.ID >= meta.NextID {
			meta.NextID = e.ID + 1
		}
	}
	return meta, nil
}

func (s *Store) writeMeta(ctx context.Context, meta core.Meta) error {
	rows, err := metaToRows(meta)
	if err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!A2:B%d", metaSheet, 1+len(rows))
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{
		Values: rows,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return s.unavailable("write meta", err)
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
