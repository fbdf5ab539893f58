package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultUnit is the base reporting currency used when an expense
	// carries no explicit unit.
	DefaultUnit = "EUR"

	// DefaultCategory is assigned when a draft has no category.
	DefaultCategory = "general"
)

type (
	// Date is a calendar day without a time component. The zero value
	// means "no date set".
	Date struct {
		time.Time
	}

	// Expense is a single shared expense. ID is assigned by the store
	// and never reused; all other fields are mutable via update.
	Expense struct {
		ID           int64                      `json:"id"`
		Amount       decimal.Decimal            `json:"amount"`
		Payer        string                     `json:"payer"`
		Participants []string                   `json:"participants"`
		Shares       map[string]decimal.Decimal `json:"shares,omitempty"`
		Category     string                     `json:"category"`
		Description  string                     `json:"description"`
		Unit         string                     `json:"unit"`
		Date         Date                       `json:"date"`
	}

	// Meta is the small metadata map persisted alongside the expenses.
	// NextID is strictly greater than any id ever issued.
	Meta struct {
		NextID     int64    `json:"next_id"`
		Categories []string `json:"categories"`
	}
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrEmptyPayer      = errors.New("empty payer")
	ErrNoParticipants  = errors.New("no participants")
	ErrNegativeShare   = errors.New("negative share weight")
	ErrZeroShares      = errors.New("share weights sum to zero")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCategory = errors.New("invalid category")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO "YYYY-MM-DD" string. Empty input yields the
// zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Year returns the calendar year, or 0 for the zero Date.
func (d Date) Year() int {
	if d.IsZero() {
		return 0
	}
	return d.Time.Year()
}

// Month returns the calendar month 1-12, or 0 for the zero Date.
func (d Date) Month() int {
	if d.IsZero() {
		return 0
	}
	return int(d.Time.Month())
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Normalize trims names, removes duplicate participants preserving
// order, and fills in default unit and category. Called before Validate
// on drafts coming from callers.
func (e *Expense) Normalize() {
	e.Payer = strings.TrimSpace(e.Payer)
	seen := map[string]struct{}{}
	out := make([]string, 0, len(e.Participants))
	for _, p := range e.Participants {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	e.Participants = out
	if len(e.Shares) > 0 {
		shares := make(map[string]decimal.Decimal, len(e.Shares))
		for name, w := range e.Shares {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			shares[name] = w
		}
		e.Shares = shares
	}
	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		e.Category = DefaultCategory
	}
	e.Unit = strings.TrimSpace(e.Unit)
	if e.Unit == "" {
		e.Unit = DefaultUnit
	}
}

// Validate checks a draft before any persistence attempt.
func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Payer) == "" {
		return ErrEmptyPayer
	}
	if len(e.Participants) == 0 {
		return ErrNoParticipants
	}
	if len(e.Shares) > 0 {
		sum := decimal.Zero
		for _, w := range e.Shares {
			if w.IsNegative() {
				return ErrNegativeShare
			}
			sum = sum.Add(w)
		}
		if !sum.IsPositive() {
			return ErrZeroShares
		}
	}
	return nil
}

// DefaultCategories returns the seed category list used when no
// categories have been persisted yet.
func DefaultCategories() []string {
	return []string{
		"Groceries",
		"Eating out",
		"Electricity & Water",
		"Fuel",
		"Home",
		"Electronics",
		"Telephony",
		"Taxes",
		"Culture & Entertainment",
		"Transport",
		"Gifts",
		"Clothes",
		"Airfares",
		"Hotels - Holidays",
	}
}

// MergeCategories combines the default seed list with stored
// categories: defaults first, then any extras in stored order.
func MergeCategories(stored []string) []string {
	merged := DefaultCategories()
	seen := map[string]struct{}{}
	for _, c := range merged {
		seen[c] = struct{}{}
	}
	for _, c := range stored {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		merged = append(merged, c)
	}
	return merged
}
