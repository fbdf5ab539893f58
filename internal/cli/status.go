package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type statusCmd struct {
	refresh bool
}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "show which storage backend is active" }
func (*statusCmd) Usage() string {
	return `splitledger status [-refresh]

  Shows the active storage backend. With -refresh, backend selection
  runs again, picking up connectivity changes.
`
}

func (c *statusCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.refresh, "refresh", false, "Re-run backend selection.")
}

func (c *statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if _, err := a.selector.Resolve(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving backend: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.refresh {
		if _, err := a.selector.ForceResolve(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error re-resolving backend: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	kind, detail := a.selector.Status()
	fmt.Printf("backend: %s\n", kind)
	fmt.Printf("detail:  %s\n", detail)
	fmt.Printf("config:  DATA_BACKEND=%s\n", a.cfg.DataBackend)
	return subcommands.ExitSuccess
}
