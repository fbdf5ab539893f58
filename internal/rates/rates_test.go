package rates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type rateServer struct {
	*httptest.Server
	calls atomic.Int64
	fail  atomic.Bool
	usd   atomic.Value // string
}

func newRateServer(t *testing.T) *rateServer {
	t.Helper()
	rs := &rateServer{}
	rs.usd.Store("1.10")
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.calls.Add(1)
		if rs.fail.Load() {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		base := r.URL.Query().Get("base")
		fmt.Fprintf(w, `{"base":%q,"rates":{"USD":%s,"GBP":0.85}}`, base, rs.usd.Load())
	}))
	t.Cleanup(rs.Close)
	return rs
}

func newService(t *testing.T, url string, ttl time.Duration) *Service {
	t.Helper()
	return New(Config{URL: url, TTL: ttl, Timeout: time.Second})
}

func TestFreshFetch(t *testing.T) {
	srv := newRateServer(t)
	s := newService(t, srv.URL, time.Minute)

	r, err := s.Rate(context.Background(), "EUR", "USD")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if r.Stale {
		t.Fatal("first fetch must not be stale")
	}
	if !r.Value.Equal(decimal.RequireFromString("1.10")) {
		t.Fatalf("value = %s", r.Value)
	}
}

func TestCacheHitWithinTTL(t *testing.T) {
	srv := newRateServer(t)
	s := newService(t, srv.URL, time.Minute)
	ctx := context.Background()

	if _, err := s.Rate(ctx, "EUR", "USD"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := s.Rate(ctx, "EUR", "GBP"); err != nil {
		t.Fatalf("second: %v", err)
	}
	if got := srv.calls.Load(); got != 1 {
		t.Fatalf("expected a single upstream call, got %d", got)
	}
}

func TestStaleFallbackAfterExpiry(t *testing.T) {
	srv := newRateServer(t)
	s := newService(t, srv.URL, 10*time.Millisecond)
	ctx := context.Background()

	if _, err := s.Rate(ctx, "EUR", "USD"); err != nil {
		t.Fatalf("prime: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	srv.fail.Store(true)

	r, err := s.Rate(ctx, "EUR", "USD")
	if err != nil {
		t.Fatalf("stale fallback should succeed, got %v", err)
	}
	if !r.Stale {
		t.Fatal("result should be flagged stale")
	}
	if !r.Value.Equal(decimal.RequireFromString("1.10")) {
		t.Fatalf("stale value = %s", r.Value)
	}
}

func TestUnavailableWithoutHistory(t *testing.T) {
	srv := newRateServer(t)
	srv.fail.Store(true)
	s := newService(t, srv.URL, time.Minute)

	if _, err := s.Rate(context.Background(), "EUR", "USD"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSameCurrencyIsIdentity(t *testing.T) {
	s := newService(t, "", time.Minute)
	r, err := s.Rate(context.Background(), "EUR", "EUR")
	if err != nil || !r.Value.Equal(decimal.NewFromInt(1)) || r.Stale {
		t.Fatalf("identity rate: %+v %v", r, err)
	}
}

func TestMissingQuoteCurrency(t *testing.T) {
	srv := newRateServer(t)
	s := newService(t, srv.URL, time.Minute)

	if _, err := s.Rate(context.Background(), "EUR", "XXX"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for unknown currency, got %v", err)
	}
}

func TestConvert(t *testing.T) {
	srv := newRateServer(t)
	s := newService(t, srv.URL, time.Minute)

	got, r, err := s.Convert(context.Background(), decimal.NewFromInt(100), "EUR", "USD")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("110")) {
		t.Fatalf("converted = %s (rate %s)", got, r.Value)
	}
}
