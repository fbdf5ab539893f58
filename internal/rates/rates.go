// Package rates fetches and caches foreign-exchange rates. Fresh
// rates are served from a TTL cache; when the upstream endpoint is
// down the last successful snapshot is served instead, flagged as
// stale. Conversion only fails when no snapshot was ever fetched.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when rates cannot be fetched and no
// previous snapshot exists.
var ErrUnavailable = errors.New("exchange rates unavailable")

const (
	// DefaultTTL bounds how long a snapshot counts as fresh.
	DefaultTTL = time.Hour
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 10 * time.Second

	lastKnownPrefix = "last-"
)

// Rate is a single base→quote conversion factor.
type Rate struct {
	Base      string
	Quote     string
	Value     decimal.Decimal
	Stale     bool
	FetchedAt time.Time
}

// Config configures the rate service.
type Config struct {
	// URL is the rate endpoint. The base currency is passed as a
	// query parameter.
	URL     string
	TTL     time.Duration
	Timeout time.Duration
}

// Service fetches and caches rate snapshots per base currency.
type Service struct {
	url     string
	ttl     time.Duration
	timeout time.Duration
	client  *http.Client
	cache   *gocache.Cache
}

type snapshot struct {
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

type rateResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// New builds a rate service. Zero TTL and timeout fall back to the
// defaults.
func New(cfg Config) *Service {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		url:     cfg.URL,
		ttl:     ttl,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		cache:   gocache.New(ttl, 2*ttl),
	}
}

// Rate returns the conversion factor from base to quote. A stale
// result means the endpoint is unreachable and the value comes from
// the last successful fetch.
func (s *Service) Rate(ctx context.Context, base, quote string) (Rate, error) {
	if base == quote {
		return Rate{Base: base, Quote: quote, Value: decimal.NewFromInt(1), FetchedAt: time.Now()}, nil
	}

	snap, stale, err := s.snapshot(ctx, base)
	if err != nil {
		return Rate{}, err
	}
	value, ok := snap.rates[quote]
	if !ok {
		return Rate{}, fmt.Errorf("%w: no rate for %s in %s snapshot", ErrUnavailable, quote, base)
	}
	return Rate{
		Base:      base,
		Quote:     quote,
		Value:     value,
		Stale:     stale,
		FetchedAt: snap.fetchedAt,
	}, nil
}

// Convert converts an amount from base to quote using the current
// rate.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, base, quote string) (decimal.Decimal, Rate, error) {
	r, err := s.Rate(ctx, base, quote)
	if err != nil {
		return decimal.Zero, Rate{}, err
	}
	return amount.Mul(r.Value), r, nil
}

// snapshot returns a fresh snapshot when one is cached or fetchable,
// otherwise the last known one flagged stale.
func (s *Service) snapshot(ctx context.Context, base string) (snapshot, bool, error) {
	if v, found := s.cache.Get(base); found {
		return v.(snapshot), false, nil
	}

	snap, err := s.fetch(ctx, base)
	if err == nil {
		s.cache.Set(base, snap, gocache.DefaultExpiration)
		s.cache.Set(lastKnownPrefix+base, snap, gocache.NoExpiration)
		return snap, false, nil
	}

	if v, found := s.cache.Get(lastKnownPrefix + base); found {
		last := v.(snapshot)
		slog.WarnContext(ctx, "rate fetch failed, serving stale snapshot",
			"base", base,
			"fetched_at", last.fetchedAt,
			"error", err)
		return last, true, nil
	}
	return snapshot{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *Service) fetch(ctx context.Context, base string) (snapshot, error) {
	if s.url == "" {
		return snapshot{}, errors.New("no rate endpoint configured")
	}

	u, err := url.Parse(s.url)
	if err != nil {
		return snapshot{}, fmt.Errorf("parse rate endpoint: %w", err)
	}
	q := u.Query()
	q.Set("base", base)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return snapshot{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snapshot{}, fmt.Errorf("rate endpoint returned %s", resp.Status)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return snapshot{}, fmt.Errorf("decode rate response: %w", err)
	}
	if len(body.Rates) == 0 {
		return snapshot{}, errors.New("rate response carries no rates")
	}

	snap := snapshot{rates: make(map[string]decimal.Decimal, len(body.Rates)), fetchedAt: time.Now()}
	for code, v := range body.Rates {
		snap.rates[code] = decimal.NewFromFloat(v)
	}
	return snap, nil
}
