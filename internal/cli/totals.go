package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/google/subcommands"

	"splitledger/internal/core"
)

type totalsCmd struct {
	year  int
	month int
}

func (*totalsCmd) Name() string     { return "totals" }
func (*totalsCmd) Synopsis() string { return "show spending per category" }
func (*totalsCmd) Usage() string {
	return `splitledger totals [-year <yyyy>] [-month <1-12>]

  Sums spending per category, optionally restricted to a period.
`
}

func (c *totalsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "Only expenses from this year.")
	f.IntVar(&c.month, "month", 0, "Only expenses from this month (requires -year).")
}

func (c *totalsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	totals, err := ledger.TotalsByCategory(ctx, c.year, c.month)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing totals: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(totals) == 0 {
		fmt.Println("No expenses in the selected period.")
		return subcommands.ExitSuccess
	}

	categories := make([]string, 0, len(totals))
	for category := range totals {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "CATEGORY\t%s\n", a.cfg.BaseCurrency)
	for _, category := range categories {
		fmt.Fprintf(w, "%s\t%s\n", category, core.FormatAmount(totals[category]))
	}
	w.Flush()
	return subcommands.ExitSuccess
}

type periodsCmd struct{}

func (*periodsCmd) Name() string     { return "periods" }
func (*periodsCmd) Synopsis() string { return "list years and months with expenses" }
func (*periodsCmd) Usage() string {
	return `splitledger periods

  Lists the years and months that carry at least one dated expense.
`
}

func (*periodsCmd) SetFlags(f *flag.FlagSet) {}

func (c *periodsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	years, months, err := ledger.Periods(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing periods: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(years) == 0 {
		fmt.Println("No dated expenses recorded.")
		return subcommands.ExitSuccess
	}
	for _, year := range years {
		fmt.Printf("%d: months %v\n", year, months[year])
	}
	return subcommands.ExitSuccess
}
