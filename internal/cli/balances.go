package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"splitledger/internal/core"
	"splitledger/internal/rates"
)

type balancesCmd struct {
	convert string
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "show who owes and who is owed" }
func (*balancesCmd) Usage() string {
	return `splitledger balances [-convert <ccy>]

  Shows each person's net position. Positive means the person is owed
  money. With -convert, amounts are also shown in another currency
  using the configured rate endpoint.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.convert, "convert", "", "Also show balances in this currency.")
}

func (c *balancesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	implied := false
	if c.convert == "" && a.cfg.ReportCurrency != "" && a.cfg.ReportCurrency != a.cfg.BaseCurrency {
		c.convert = a.cfg.ReportCurrency
		implied = true
	}

	ledger, err := a.ledger(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	var (
		balances map[string]decimal.Decimal
		rate     rates.Rate
		rateErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balances, err = ledger.Balances(gctx)
		return err
	})
	if c.convert != "" {
		g.Go(func() error {
			rate, rateErr = a.rates().Rate(gctx, a.cfg.BaseCurrency, c.convert)
			// A conversion implied by REPORT_CURRENCY must not take
			// the base-currency balances down with it.
			if implied && errors.Is(rateErr, rates.ErrUnavailable) {
				return nil
			}
			return rateErr
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if rateErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: showing %s only, no %s rate: %v\n",
			a.cfg.BaseCurrency, c.convert, rateErr)
		c.convert = ""
	}

	if len(balances) == 0 {
		fmt.Println("No balances: the ledger is empty.")
		return subcommands.ExitSuccess
	}

	names := make([]string, 0, len(balances))
	for name := range balances {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if c.convert != "" {
		fmt.Fprintf(w, "PERSON\t%s\t%s\n", a.cfg.BaseCurrency, c.convert)
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				name,
				core.FormatAmount(balances[name]),
				core.FormatAmount(balances[name].Mul(rate.Value)))
		}
	} else {
		fmt.Fprintf(w, "PERSON\t%s\n", a.cfg.BaseCurrency)
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", name, core.FormatAmount(balances[name]))
		}
	}
	w.Flush()
	if rate.Stale {
		fmt.Printf("(conversion uses a cached rate from %s; the rate endpoint is unreachable)\n",
			rate.FetchedAt.Format("2006-01-02 15:04"))
	}
	return subcommands.ExitSuccess
}
