package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"splitledger/internal/core"
)

type addCmd struct {
	amount      string
	payer       string
	with        string
	shares      string
	category    string
	description string
	unit        string
	date        string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a new shared expense" }
func (*addCmd) Usage() string {
	return `splitledger add -amount <amount> -payer <name> -with <names> [-shares <name=weight,...>] [-category <c>] [-desc <text>] [-unit <ccy>] [-date <yyyy-mm-dd>]

  Records an expense paid by one person and split among participants.
  Without -shares the amount is split equally.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "Amount paid.")
	f.StringVar(&c.payer, "payer", "", "Who paid.")
	f.StringVar(&c.with, "with", "", "Comma-separated participants sharing the expense.")
	f.StringVar(&c.shares, "shares", "", "Optional name=weight pairs for an uneven split.")
	f.StringVar(&c.category, "category", "", "Expense category.")
	f.StringVar(&c.description, "desc", "", "Free-form description.")
	f.StringVar(&c.unit, "unit", "", "Currency unit of the amount.")
	f.StringVar(&c.date, "date", "", "Date of the expense (yyyy-mm-dd).")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount: %v\n", err)
		return subcommands.ExitUsageError
	}
	shares, err := parseShareFlags(c.shares)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing shares: %v\n", err)
		return subcommands.ExitUsageError
	}
	date, err := core.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
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

	if c.unit == "" {
		c.unit = a.cfg.BaseCurrency
	}
	added, err := ledger.Add(ctx, core.Expense{
		Amount:       amount,
		Payer:        c.payer,
		Participants: parseNames(c.with),
		Shares:       shares,
		Category:     c.category,
		Description:  c.description,
		Unit:         c.unit,
		Date:         date,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding expense: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Added expense #%d: %s %s paid by %s\n",
		added.ID, core.FormatAmount(added.Amount), added.Unit, added.Payer)
	return subcommands.ExitSuccess
}
