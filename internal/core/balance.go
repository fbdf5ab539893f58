package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Balances computes each participant's net position across the ledger.
// Positive means the participant is owed money, negative means they owe.
//
// For each expense the payer is credited the full amount. Each
// participant is debited their share: weighted by Shares when present
// (weights normalized over their sum), otherwise an equal split among
// Participants. A payer who also participates nets out to their own
// proportional share.
//
// The caller is expected to pass an already-validated ledger. A result
// that does not sum to zero within Epsilon is reported as an error, not
// corrected.
func Balances(expenses []Expense) (map[string]decimal.Decimal, error) {
	balances := map[string]decimal.Decimal{}
	add := func(name string, delta decimal.Decimal) {
		balances[name] = balances[name].Add(delta)
	}

	for _, e := range expenses {
		if len(e.Shares) > 0 {
			sum := decimal.Zero
			for _, w := range e.Shares {
				sum = sum.Add(w)
			}
			if !sum.IsPositive() {
				return nil, fmt.Errorf("expense %d: share weights sum to %s", e.ID, sum)
			}
			for name, w := range e.Shares {
				add(name, e.Amount.Mul(w).Div(sum).Neg())
			}
		} else {
			participants := uniqueNames(e.Participants)
			if len(participants) == 0 {
				continue
			}
			owed := e.Amount.Div(decimal.NewFromInt(int64(len(participants))))
			for _, name := range participants {
				add(name, owed.Neg())
			}
		}
		add(e.Payer, e.Amount)
	}

	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	if total.Abs().GreaterThan(Epsilon) {
		return nil, fmt.Errorf("balance conservation violated: net sum %s exceeds tolerance", total)
	}
	return balances, nil
}

// Participants returns the sorted set of all names appearing in the
// ledger, as payer or participant.
func Participants(expenses []Expense) []string {
	seen := map[string]struct{}{}
	for _, e := range expenses {
		if e.Payer != "" {
			seen[e.Payer] = struct{}{}
		}
		for _, p := range e.Participants {
			seen[p] = struct{}{}
		}
		for p := range e.Shares {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func uniqueNames(names []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
