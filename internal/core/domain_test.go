package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-14")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2025 || d.Month() != 3 || d.Day() != 14 {
		t.Fatalf("unexpected date: %v", d)
	}

	if d, err := ParseDate(""); err != nil || !d.IsZero() {
		t.Fatalf("empty input should yield zero date, got %v %v", d, err)
	}
	if _, err := ParseDate("14/03/2025"); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	for _, d := range []Date{NewDate(2025, 1, 31), {}} {
		b, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var got Date
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if got.String() != d.String() {
			t.Fatalf("round trip mismatch: %q != %q", got.String(), d.String())
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Amount:       decimal.NewFromInt(10),
		Payer:        "Alice",
		Participants: []string{"Alice", "Bob"},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		e    Expense
		want error
	}{
		{"zero amount", Expense{Payer: "a", Participants: []string{"a"}}, ErrInvalidAmount},
		{"negative amount", Expense{Amount: decimal.NewFromInt(-1), Payer: "a", Participants: []string{"a"}}, ErrInvalidAmount},
		{"empty payer", Expense{Amount: decimal.NewFromInt(1), Participants: []string{"a"}}, ErrEmptyPayer},
		{"no participants", Expense{Amount: decimal.NewFromInt(1), Payer: "a"}, ErrNoParticipants},
		{"negative share", Expense{
			Amount: decimal.NewFromInt(1), Payer: "a", Participants: []string{"a"},
			Shares: map[string]decimal.Decimal{"a": decimal.NewFromInt(-1)},
		}, ErrNegativeShare},
		{"zero share sum", Expense{
			Amount: decimal.NewFromInt(1), Payer: "a", Participants: []string{"a"},
			Shares: map[string]decimal.Decimal{"a": decimal.Zero},
		}, ErrZeroShares},
	}
	for _, tc := range cases {
		if err := tc.e.Validate(); err != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestExpenseNormalize(t *testing.T) {
	e := Expense{
		Amount:       decimal.NewFromInt(5),
		Payer:        "  Alice ",
		Participants: []string{"Alice", " Bob", "Alice", "", "  "},
	}
	e.Normalize()
	if e.Payer != "Alice" {
		t.Fatalf("payer not trimmed: %q", e.Payer)
	}
	if len(e.Participants) != 2 || e.Participants[0] != "Alice" || e.Participants[1] != "Bob" {
		t.Fatalf("participants not deduped: %v", e.Participants)
	}
	if e.Unit != DefaultUnit {
		t.Fatalf("unit default not applied: %q", e.Unit)
	}
	if e.Category != DefaultCategory {
		t.Fatalf("category default not applied: %q", e.Category)
	}
}

func TestMergeCategories(t *testing.T) {
	merged := MergeCategories([]string{"Custom", "Groceries", " "})
	if merged[0] != "Groceries" {
		t.Fatalf("defaults should come first, got %v", merged[:3])
	}
	count := 0
	for _, c := range merged {
		if c == "Groceries" {
			count++
		}
		if c == " " || c == "" {
			t.Fatalf("blank category kept")
		}
	}
	if count != 1 {
		t.Fatalf("duplicate category kept, count=%d", count)
	}
	if merged[len(merged)-1] != "Custom" {
		t.Fatalf("extra category should follow defaults: %v", merged)
	}
}
