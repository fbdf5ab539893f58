package notify

import (
	"testing"
	"time"
)

func TestLedgerEventRoundTrip(t *testing.T) {
	event := NewLedgerEvent("expense.added", 42)
	if event.Timestamp.IsZero() {
		t.Fatal("event should be timestamped")
	}

	body, err := event.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Op != "expense.added" || got.ID != 42 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(event.Timestamp.Truncate(time.Nanosecond)) {
		t.Fatalf("timestamp mismatch: %v vs %v", got.Timestamp, event.Timestamp)
	}
}

func TestLedgerEventFromInvalidJSON(t *testing.T) {
	if _, err := LedgerEventFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}
