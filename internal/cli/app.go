// Package cli implements the command line application for the shared
// expense ledger.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"splitledger/internal/backend"
	"splitledger/internal/config"
	"splitledger/internal/core"
	"splitledger/internal/notify"
	"splitledger/internal/rates"
	"splitledger/internal/tracker"
)

// Register adds every subcommand to the commander.
func Register(c *subcommands.Commander) {
	c.Register(&addCmd{}, "expenses")
	c.Register(&listCmd{}, "expenses")
	c.Register(&editCmd{}, "expenses")
	c.Register(&removeCmd{}, "expenses")
	c.Register(&clearCmd{}, "expenses")

	c.Register(&balancesCmd{}, "reports")
	c.Register(&settleCmd{}, "reports")
	c.Register(&totalsCmd{}, "reports")
	c.Register(&periodsCmd{}, "reports")

	c.Register(&categoriesCmd{}, "ledger")
	c.Register(&statusCmd{}, "ledger")
}

// app wires config, backend selection and the ledger service for one
// command invocation.
type app struct {
	cfg      *config.Config
	selector *backend.Selector
	notifier *notify.Client
}

// newApp loads and validates configuration. A .env file is honored
// for local development.
func newApp() (*app, error) {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		selector: backend.NewSelector(cfg.BackendConfig(), slog.Default()),
	}, nil
}

// ledger resolves the backend and builds the ledger service. The
// AMQP notifier is optional: a broker failure downgrades to local-only
// operation.
func (a *app) ledger(ctx context.Context) (*tracker.Ledger, error) {
	st, err := a.selector.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	var publisher tracker.Publisher
	if a.cfg.AMQPURL != "" {
		client, err := notify.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
		if err != nil {
			slog.WarnContext(ctx, "AMQP broker unavailable, continuing without notifications", "error", err)
		} else {
			a.notifier = client
			publisher = client
		}
	}
	return tracker.New(st, publisher), nil
}

func (a *app) rates() *rates.Service {
	return rates.New(rates.Config{
		URL: a.cfg.RatesURL,
		TTL: a.cfg.RatesTTL,
	})
}

func (a *app) close() {
	if a.notifier != nil {
		a.notifier.Close()
	}
	a.selector.Close()
}

// parseNames splits a comma-separated list of people, dropping blanks.
func parseNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parseShareFlags parses "name=weight" pairs separated by commas.
func parseShareFlags(s string) (map[string]decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	shares := make(map[string]decimal.Decimal)
	for _, part := range strings.Split(s, ",") {
		name, weight, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("invalid share %q: expected name=weight", part)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid share %q: empty name", part)
		}
		w, err := core.ParseWeight(strings.TrimSpace(weight))
		if err != nil {
			return nil, fmt.Errorf("invalid share %q: %w", part, err)
		}
		shares[name] = w
	}
	return shares, nil
}
