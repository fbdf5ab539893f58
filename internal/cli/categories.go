package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type categoriesCmd struct {
	add string
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "list or extend the category set" }
func (*categoriesCmd) Usage() string {
	return `splitledger categories [-add <name>]

  Lists the known expense categories. With -add, stores a new one.
`
}

func (c *categoriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.add, "add", "", "Add a new category.")
}

func (c *categoriesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	if c.add != "" {
		if err := ledger.AddCategory(ctx, c.add); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding category: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	categories, err := ledger.Categories(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing categories: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, category := range categories {
		fmt.Println(category)
	}
	return subcommands.ExitSuccess
}
