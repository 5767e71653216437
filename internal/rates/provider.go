package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/rkeller/salespipe/internal/domain"

	"github.com/shopspring/decimal"
)

// Provider fetches the rate table for a base currency. UsedFallback is true
// when the external source failed and the configured fallback table was
// substituted; a provider failure never propagates as a pipeline failure.
type Provider interface {
	Fetch(ctx context.Context, base string) (table domain.RateTable, usedFallback bool)
}

// HTTPProvider queries a JSON exchange-rate endpoint. The response must
// contain a "rates" object mapping currency codes to multipliers relative to
// the base currency.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
	fallback domain.RateTable
}

// NewHTTPProvider wires a provider with a bounded request timeout. A hung
// endpoint must not hang the run.
func NewHTTPProvider(endpoint string, timeout time.Duration, fallback domain.RateTable) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		fallback: fallback,
	}
}

// Fetch returns the live rate table, or the fallback table when the endpoint
// fails in any way. The base currency always maps to 1.0.
func (p *HTTPProvider) Fetch(ctx context.Context, base string) (domain.RateTable, bool) {
	table, err := p.fetch(ctx, base)
	if err != nil {
		log.Printf("[RATES] fetch failed, using configured fallback rates: %v", err)
		return withBase(p.fallback, base), true
	}
	return withBase(table, base), false
}

func (p *HTTPProvider) fetch(ctx context.Context, base string) (domain.RateTable, error) {
	endpoint, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid rates endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("base", base)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rates request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode rates response: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, errors.New("rates response contained no rates")
	}

	table := make(domain.RateTable, len(payload.Rates))
	for currency, rate := range payload.Rates {
		if rate <= 0 {
			return nil, fmt.Errorf("rates response contained non-positive rate %f for %s", rate, currency)
		}
		table[currency] = decimal.NewFromFloat(rate)
	}

	return table, nil
}

// withBase copies the table and pins the base currency to 1.0.
func withBase(table domain.RateTable, base string) domain.RateTable {
	pinned := make(domain.RateTable, len(table)+1)
	for currency, rate := range table {
		pinned[currency] = rate
	}
	pinned[base] = decimal.NewFromInt(1)
	return pinned
}
