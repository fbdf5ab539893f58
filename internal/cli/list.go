package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"splitledger/internal/core"
)

type listCmd struct {
	year  int
	month int
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list recorded expenses" }
func (*listCmd) Usage() string {
	return `splitledger list [-year <yyyy>] [-month <1-12>]

  Lists expenses, optionally restricted to a year or a month.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "Only expenses from this year.")
	f.IntVar(&c.month, "month", 0, "Only expenses from this month (requires -year).")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.month != 0 && c.year == 0 {
		fmt.Fprintln(os.Stderr, "Error: -month requires -year.")
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

	expenses, err := ledger.List(ctx, c.year, c.month)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing expenses: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(expenses) == 0 {
		fmt.Println("No expenses recorded.")
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tPAYER\tPARTICIPANTS\tCATEGORY\tDESCRIPTION")
	for _, e := range expenses {
		fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.Date.String(),
			core.FormatAmount(e.Amount), e.Unit,
			e.Payer,
			strings.Join(e.Participants, ","),
			e.Category,
			e.Description)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
