package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"splitledger/internal/core"
)

type settleCmd struct{}

func (*settleCmd) Name() string     { return "settle" }
func (*settleCmd) Synopsis() string { return "suggest transfers that settle all debts" }
func (*settleCmd) Usage() string {
	return `splitledger settle

  Prints a short list of transfers that brings every balance to zero.
`
}

func (*settleCmd) SetFlags(f *flag.FlagSet) {}

func (c *settleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	transfers, err := ledger.Settlements(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing settlements: %v\n", err)
		return subcommands.ExitFailure
	}

	if len(transfers) == 0 {
		fmt.Println("All settled, nothing to transfer.")
		return subcommands.ExitSuccess
	}
	for _, t := range transfers {
		fmt.Printf("%s pays %s %s %s\n",
			t.From, t.To, core.FormatAmount(t.Amount), a.cfg.BaseCurrency)
	}
	return subcommands.ExitSuccess
}
