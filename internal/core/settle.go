package core

import (
	"github.com/shopspring/decimal"
)

// Transfer is a suggested payment from From to To.
type Transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// Settle converts net balances into a list of transfers that zeroes
// every balance. It greedily matches the largest creditor with the
// largest debtor; this does not always yield the theoretical minimum
// number of transactions, but it is deterministic and terminates in at
// most n-1 transfers for n participants with non-zero balances.
//
// Transfers are returned in generation order, largest amounts first.
func Settle(balances map[string]decimal.Decimal) []Transfer {
	creditors := map[string]decimal.Decimal{}
	debtors := map[string]decimal.Decimal{} // stored positive
	for name, b := range balances {
		switch {
		case b.GreaterThan(Epsilon):
			creditors[name] = b
		case b.Neg().GreaterThan(Epsilon):
			debtors[name] = b.Neg()
		}
	}

	var transfers []Transfer
	for len(creditors) > 0 && len(debtors) > 0 {
		creditor := largest(creditors)
		debtor := largest(debtors)
		amount := decimal.Min(creditors[creditor], debtors[debtor])

		transfers = append(transfers, Transfer{From: debtor, To: creditor, Amount: amount})

		creditors[creditor] = creditors[creditor].Sub(amount)
		debtors[debtor] = debtors[debtor].Sub(amount)
		if !creditors[creditor].GreaterThan(Epsilon) {
			delete(creditors, creditor)
		}
		if !debtors[debtor].GreaterThan(Epsilon) {
			delete(debtors, debtor)
		}
	}
	return transfers
}

// largest returns the key with the greatest value; name order breaks
// ties so suggestions are stable across runs.
func largest(m map[string]decimal.Decimal) string {
	var best string
	var bestV decimal.Decimal
	for name, v := range m {
		if best == "" || v.GreaterThan(bestV) || (v.Equal(bestV) && name < best) {
			best = name
			bestV = v
		}
	}
	return best
}
