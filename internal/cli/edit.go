package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"splitledger/internal/core"
)

type editCmd struct {
	id          int64
	amount      string
	payer       string
	with        string
	shares      string
	category    string
	description string
	unit        string
	date        string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "modify an existing expense" }
func (*editCmd) Usage() string {
	return `splitledger edit -id <n> [flags]

  Changes the given fields of an expense; everything else is kept.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Id of the expense to edit.")
	f.StringVar(&c.amount, "amount", "", "New amount.")
	f.StringVar(&c.payer, "payer", "", "New payer.")
	f.StringVar(&c.with, "with", "", "New comma-separated participant list.")
	f.StringVar(&c.shares, "shares", "", "New name=weight pairs; 'equal' clears custom shares.")
	f.StringVar(&c.category, "category", "", "New category.")
	f.StringVar(&c.description, "desc", "", "New description.")
	f.StringVar(&c.unit, "unit", "", "New currency unit.")
	f.StringVar(&c.date, "date", "", "New date (yyyy-mm-dd).")
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -id is required.")
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	ledger, err := a.ledger(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	expense, err := ledger.Get(ctx, c.id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading expense: %v\n", err)
		return subcommands.ExitFailure
	}

	var parseErr error
	f.Visit(func(fl *flag.Flag) {
		if parseErr != nil {
			return
		}
		switch fl.Name {
		case "amount":
			expense.Amount, parseErr = core.ParseAmount(c.amount)
		case "payer":
			expense.Payer = c.payer
		case "with":
			expense.Participants = parseNames(c.with)
		case "shares":
			if c.shares == "equal" {
				expense.Shares = nil
			} else {
				expense.Shares, parseErr = parseShareFlags(c.shares)
			}
		case "category":
			expense.Category = c.category
		case "desc":
			expense.Description = c.description
		case "unit":
			expense.Unit = c.unit
		case "date":
			expense.Date, parseErr = core.ParseDate(c.date)
		}
	})
	if parseErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", parseErr)
		return subcommands.ExitUsageError
	}

	if _, err := ledger.Update(ctx, c.id, expense); err != nil {
		fmt.Fprintf(os.Stderr, "Error updating expense: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Updated expense #%d\n", c.id)
	return subcommands.ExitSuccess
}
