package cli

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"splitledger/internal/core"
	"splitledger/internal/store/file"
)

// deadRatesURL returns an endpoint that refuses connections, so every
// rate fetch fails and no cached rate exists.
func deadRatesURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func setupBalancesEnv(t *testing.T) {
	t.Helper()
	dataFile := filepath.Join(t.TempDir(), "expenses.json")

	st := file.New(dataFile)
	_, err := st.AddExpense(context.Background(), core.Expense{
		Amount:       decimal.NewFromInt(30),
		Payer:        "Alice",
		Participants: []string{"Alice", "Bob"},
		Category:     "general",
		Unit:         "EUR",
		Date:         core.NewDate(2025, 4, 2),
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}

	t.Setenv("DATA_BACKEND", "file")
	t.Setenv("DATA_FILE", dataFile)
	t.Setenv("BASE_CURRENCY", "EUR")
	t.Setenv("REPORT_CURRENCY", "USD")
	t.Setenv("RATES_URL", deadRatesURL(t))
	t.Setenv("AMQP_URL", "")
}

func TestBalancesDegradesWhenReportCurrencyRateUnavailable(t *testing.T) {
	setupBalancesEnv(t)

	cmd := &balancesCmd{}
	fs := flag.NewFlagSet("balances", flag.ContinueOnError)
	cmd.SetFlags(fs)

	if got := cmd.Execute(context.Background(), fs); got != subcommands.ExitSuccess {
		t.Fatalf("expected base-currency fallback to succeed, got %v", got)
	}
}

func TestBalancesFailsWhenExplicitConversionUnavailable(t *testing.T) {
	setupBalancesEnv(t)

	cmd := &balancesCmd{convert: "USD"}
	fs := flag.NewFlagSet("balances", flag.ContinueOnError)

	if got := cmd.Execute(context.Background(), fs); got != subcommands.ExitFailure {
		t.Fatalf("expected explicit -convert to fail, got %v", got)
	}
}
