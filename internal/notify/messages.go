package notify

import (
	"encoding/json"
	"time"
)

// LedgerEvent describes a single ledger mutation. Consumers fetch the
// full record from storage; the event only carries the id.
type LedgerEvent struct {
	Op        string    `json:"op"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps a new event with the current time.
func NewLedgerEvent(op string, id int64) *LedgerEvent {
	return &LedgerEvent{
		Op:        op,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var event LedgerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
