package sheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"splitledger/internal/core"
	"splitledger/internal/store"
)

// fakeSheets emulates the slice of the Sheets REST API the store uses,
// holding worksheet rows in memory.
type fakeSheets struct {
	mu           sync.Mutex
	headers      map[string][]interface{}
	expenseRows  [][]interface{}
	metaRows     [][]interface{}
	sheetsListed bool

	metaWriteDelay time.Duration
	deleteCalls    int
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		headers: map[string][]interface{}{},
		metaRows: [][]interface{}{
			{"next_id", "1"},
			{"categories", "[]"},
		},
	}
}

func (f *fakeSheets) setMetaWriteDelay(d time.Duration) {
	f.mu.Lock()
	f.metaWriteDelay = d
	f.mu.Unlock()
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case r.Method == http.MethodGet && path == "/v4/spreadsheets/test":
		f.mu.Lock()
		f.sheetsListed = true
		f.mu.Unlock()
		reply(w, &gsheet.Spreadsheet{Sheets: []*gsheet.Sheet{
			{Properties: &gsheet.SheetProperties{Title: expensesSheet, SheetId: 1}},
			{Properties: &gsheet.SheetProperties{Title: metaSheet, SheetId: 2}},
		}})

	case r.Method == http.MethodPost && path == "/v4/spreadsheets/test:batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		for _, request := range req.Requests {
			if request.DeleteDimension != nil {
				f.deleteCalls++
				idx := int(request.DeleteDimension.Range.StartIndex) - 1
				if idx >= 0 && idx < len(f.expenseRows) {
					f.expenseRows = append(f.expenseRows[:idx], f.expenseRows[idx+1:]...)
				}
			}
		}
		f.mu.Unlock()
		reply(w, &gsheet.BatchUpdateSpreadsheetResponse{})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.mu.Lock()
		f.expenseRows = append(f.expenseRows, vr.Values...)
		rowNum := len(f.expenseRows) + 1
		f.mu.Unlock()
		reply(w, &gsheet.AppendValuesResponse{
			Updates: &gsheet.UpdateValuesResponse{
				UpdatedRange: fmt.Sprintf("%s!A%d:I%d", expensesSheet, rowNum, rowNum),
			},
		})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.mu.Lock()
		if strings.Contains(path, expensesSheet+"!") {
			f.expenseRows = nil
		} else {
			f.metaRows = nil
		}
		f.mu.Unlock()
		reply(w, &gsheet.ClearValuesResponse{})

	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		rng := path[strings.LastIndex(path, "/")+1:]
		f.mu.Lock()
		vr := &gsheet.ValueRange{}
		switch {
		case strings.HasSuffix(rng, "!1:1"):
			if h, ok := f.headers[strings.TrimSuffix(rng, "!1:1")]; ok {
				vr.Values = [][]interface{}{h}
			}
		case strings.HasPrefix(rng, expensesSheet+"!"):
			vr.Values = f.expenseRows
		default:
			vr.Values = f.metaRows
		}
		f.mu.Unlock()
		reply(w, vr)

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		rng := path[strings.LastIndex(path, "/")+1:]
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		if strings.HasPrefix(rng, metaSheet+"!A2") {
			f.mu.Lock()
			delay := f.metaWriteDelay
			f.mu.Unlock()
			// The stall runs outside the lock so a concurrent rollback
			// is never blocked behind it.
			if delay > 0 {
				time.Sleep(delay)
				http.Error(w, "backend exploded", http.StatusServiceUnavailable)
				return
			}
		}
		f.mu.Lock()
		switch {
		case strings.HasSuffix(rng, "!A1"):
			if len(vr.Values) > 0 {
				f.headers[strings.TrimSuffix(rng, "!A1")] = vr.Values[0]
			}
		case strings.HasPrefix(rng, metaSheet+"!"):
			f.metaRows = vr.Values
		default:
			if rowNum, err := rowFromRange(rng); err == nil {
				idx := int(rowNum) - 2
				if idx >= 0 && idx < len(f.expenseRows) && len(vr.Values) > 0 {
					f.expenseRows[idx] = vr.Values[0]
				}
			}
		}
		f.mu.Unlock()
		reply(w, &gsheet.UpdateValuesResponse{})

	default:
		http.Error(w, "unexpected request: "+r.Method+" "+path, http.StatusBadRequest)
	}
}

func reply(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newFakeStore(t *testing.T, f http.Handler, timeout time.Duration) *Store {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return &Store{
		svc:           svc,
		spreadsheetID: "test",
		timeout:       timeout,
		sheetIDs:      map[string]int64{expensesSheet: 1, metaSheet: 2},
	}
}

func sheetDraft(amount, payer string, participants ...string) core.Expense {
	return core.Expense{
		Amount:       decimal.RequireFromString(amount),
		Payer:        payer,
		Participants: participants,
		Unit:         "EUR",
		Date:         core.NewDate(2025, 4, 2),
	}
}

func TestPingWritesHeaders(t *testing.T) {
	f := newFakeSheets()
	s := newFakeStore(t, f, time.Second)

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !f.sheetsListed {
		t.Fatal("ping should list the spreadsheet's worksheets")
	}
	if got := toStrings(f.headers[expensesSheet]); !equalStrings(got, expenseHeaders) {
		t.Fatalf("expense headers = %v", got)
	}
	if got := toStrings(f.headers[metaSheet]); !equalStrings(got, metaHeaders) {
		t.Fatalf("meta headers = %v", got)
	}
}

func TestAddListRoundTrip(t *testing.T) {
	f := newFakeSheets()
	s := newFakeStore(t, f, time.Second)
	ctx := context.Background()

	first, err := s.AddExpense(ctx, sheetDraft("12.50", "Alice", "Alice", "Bob"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := s.AddExpense(ctx, sheetDraft("3", "Bob", "Bob"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("ids = %d, %d", first.ID, second.ID)
	}

	expenses, err := s.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %v", expenses)
	}
	got := expenses[0]
	if !got.Amount.Equal(decimal.RequireFromString("12.50")) || got.Payer != "Alice" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Participants) != 2 || got.Date.String() != "2025-04-02" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	meta, err := s.Meta(ctx)
	if err != nil || meta.NextID != 3 {
		t.Fatalf("meta after adds: %+v %v", meta, err)
	}
}

func TestFailedMetaCommitRollsBackAppendedRow(t *testing.T) {
	f := newFakeSheets()
	s := newFakeStore(t, f, 200*time.Millisecond)
	ctx := context.Background()

	// Meta write stalls past the store timeout: the call context is
	// already expired when the rollback has to run.
	f.setMetaWriteDelay(600 * time.Millisecond)
	_, err := s.AddExpense(ctx, sheetDraft("10", "Alice", "Alice"))
	if !errors.Is(err, store.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}

	f.mu.Lock()
	deletes, remaining := f.deleteCalls, len(f.expenseRows)
	f.mu.Unlock()
	if deletes != 1 {
		t.Fatalf("expected one rollback delete, got %d", deletes)
	}
	if remaining != 0 {
		t.Fatalf("orphaned row survived the rollback: %v", f.expenseRows)
	}

	// With the partial state undone the next add must not duplicate ids.
	f.setMetaWriteDelay(0)
	e, err := s.AddExpense(ctx, sheetDraft("10", "Alice", "Alice"))
	if err != nil {
		t.Fatalf("add after rollback: %v", err)
	}
	if e.ID != 1 {
		t.Fatalf("expected id 1 after rollback, got %d", e.ID)
	}
	expenses, err := s.ListExpenses(ctx)
	if err != nil || len(expenses) != 1 {
		t.Fatalf("list after rollback: %v %v", expenses, err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFakeSheets()
	s := newFakeStore(t, f, time.Second)
	ctx := context.Background()

	e, _ := s.AddExpense(ctx, sheetDraft("10", "Alice", "Alice"))
	s.AddExpense(ctx, sheetDraft("20", "Bob", "Bob"))

	e.Amount = decimal.NewFromInt(15)
	updated, err := s.UpdateExpense(ctx, e.ID, e)
	if err != nil || !updated.Amount.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("update: %+v %v", updated, err)
	}
	expenses, _ := s.ListExpenses(ctx)
	if !expenses[0].Amount.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("update not persisted: %+v", expenses[0])
	}

	if _, err := s.UpdateExpense(ctx, 99, e); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteExpense(ctx, e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete should fail, got %v", err)
	}
	expenses, _ = s.ListExpenses(ctx)
	if len(expenses) != 1 || expenses[0].ID != 2 {
		t.Fatalf("wrong row deleted: %v", expenses)
	}
}

func TestCorruptRowSurfacesNotEmptyLedger(t *testing.T) {
	f := newFakeSheets()
	f.expenseRows = [][]interface{}{
		{"not-a-number", "10", "Alice", "[]", "general", "", "EUR", "", "2025-01-01"},
	}
	s := newFakeStore(t, f, time.Second)

	_, err := s.ListExpenses(context.Background())
	if !errors.Is(err, store.ErrCorruptStore) {
		t.Fatalf("expected ErrCorruptStore, got %v", err)
	}
}

func TestMetaCounterClampedAboveStoredIDs(t *testing.T) {
	f := newFakeSheets()
	f.expenseRows = [][]interface{}{
		{"7", "10", "Alice", "[\"Alice\"]", "general", "", "EUR", "", "2025-01-01"},
	}
	// Counter left behind, as after an interrupted commit.
	f.metaRows = [][]interface{}{{"next_id", "1"}, {"categories", "[]"}}
	s := newFakeStore(t, f, time.Second)
	ctx := context.Background()

	meta, err := s.Meta(ctx)
	if err != nil || meta.NextID != 8 {
		t.Fatalf("expected clamped next_id 8, got %+v %v", meta, err)
	}
	e, err := s.AddExpense(ctx, sheetDraft("5", "Bob", "Bob"))
	if err != nil || e.ID != 8 {
		t.Fatalf("expected id 8, got %d %v", e.ID, err)
	}
}

func TestClearAllResetsBothWorksheets(t *testing.T) {
	f := newFakeSheets()
	s := newFakeStore(t, f, time.Second)
	ctx := context.Background()

	s.AddExpense(ctx, sheetDraft("10", "Alice", "Alice"))
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	expenses, err := s.ListExpenses(ctx)
	if err != nil || len(expenses) != 0 {
		t.Fatalf("expenses after clear: %v %v", expenses, err)
	}
	meta, err := s.Meta(ctx)
	if err != nil || meta.NextID != 1 {
		t.Fatalf("meta after clear: %+v %v", meta, err)
	}
}

func TestRemoteFailureIsUnavailableNotEmpty(t *testing.T) {
	down := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	s := newFakeStore(t, down, time.Second)

	_, err := s.ListExpenses(context.Background())
	if !errors.Is(err, store.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}
