package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type removeCmd struct {
	id int64
}

func (*removeCmd) Name() string     { return "rm" }
func (*removeCmd) Synopsis() string { return "delete an expense" }
func (*removeCmd) Usage() string {
	return `splitledger rm -id <n>

  Deletes the expense with the given id. Ids are never reused.
`
}

func (c *removeCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Id of the expense to delete.")
}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if err := ledger.Delete(ctx, c.id); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting expense: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Deleted expense #%d\n", c.id)
	return subcommands.ExitSuccess
}

type clearCmd struct {
	yes bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete all expenses and reset the ledger" }
func (*clearCmd) Usage() string {
	return `splitledger clear -yes

  Wipes every expense and restarts id numbering from 1.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Confirm the wipe.")
}

func (c *clearCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		fmt.Fprintln(os.Stderr, "Refusing to clear the ledger without -yes.")
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
	if err := ledger.Clear(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println("Ledger cleared.")
	return subcommands.ExitSuccess
}
