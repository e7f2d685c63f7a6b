// Package pricing fetches dashboard price quotes from external sources and
// serves them from an explicitly owned TTL cache.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one cached price observation.
type Quote struct {
	Asset     string          `json:"asset"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Provider fetches current USD prices for a set of assets. A provider
// should return as many prices as possible, even if some assets fail.
type Provider interface {
	// Name returns the provider's display name (e.g., "CoinGecko", "HTX").
	Name() string

	// FetchPrices fetches current USD prices keyed by asset symbol.
	FetchPrices(ctx context.Context, assets []string) (map[string]decimal.Decimal, error)
}

// CoinGeckoProvider fetches prices from the CoinGecko simple-price API.
type CoinGeckoProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
}

// NewCoinGeckoProvider creates a new CoinGecko price provider.
func NewCoinGeckoProvider(httpClient *http.Client) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		httpClient: httpClient,
		baseURL:    "https://api.coingecko.com/api/v3/simple/price",
	}
}

// Name returns the provider's display name.
func (p *CoinGeckoProvider) Name() string { return "CoinGecko" }

// coinGeckoIDs maps asset symbols to CoinGecko coin ids.
var coinGeckoIDs = map[string]string{
	"ALGO": "algorand",
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDC": "usd-coin",
}

// FetchPrices fetches current USD prices from CoinGecko.
func (p *CoinGeckoProvider) FetchPrices(ctx context.Context, assets []string) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(assets))
	symbolByID := make(map[string]string, len(assets))
	for _, asset := range assets {
		id, ok := coinGeckoIDs[asset]
		if !ok {
			continue
		}
		ids = append(ids, id)
		symbolByID[id] = asset
	}
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	url := fmt.Sprintf("%s?ids=%s&vs_currencies=usd", p.baseURL, strings.Join(ids, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko returned %d", resp.StatusCode)
	}

	var body map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(body))
	for id, quote := range body {
		symbol, ok := symbolByID[id]
		if !ok {
			continue
		}
		if usd, ok := quote["usd"]; ok {
			prices[symbol] = usd
		}
	}
	return prices, nil
}

// HTXProvider fetches prices from the HTX (Huobi) merged-ticker API.
type HTXProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
}

// NewHTXProvider creates a new HTX price provider.
func NewHTXProvider(httpClient *http.Client) *HTXProvider {
	return &HTXProvider{
		httpClient: httpClient,
		baseURL:    "https://api.huobi.pro/market/detail/merged",
	}
}

// Name returns the provider's display name.
func (p *HTXProvider) Name() string { return "HTX" }

type htxResponse struct {
	Status string `json:"status"`
	Tick   struct {
		Close decimal.Decimal `json:"close"`
	} `json:"tick"`
}

// FetchPrices fetches current USD prices from HTX, one symbol at a time.
func (p *HTXProvider) FetchPrices(ctx context.Context, assets []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(assets))
	for _, asset := range assets {
		symbol := strings.ToLower(asset) + "usdt"
		url := fmt.Sprintf("%s?symbol=%s", p.baseURL, symbol)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return prices, err
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return prices, err
		}

		var body htxResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if decodeErr != nil || body.Status != "ok" {
			continue
		}
		prices[asset] = body.Tick.Close
	}
	return prices, nil
}

// SimulatedDEXProvider produces jittered prices around a fixed base, used
// for pools that have no external market feed.
type SimulatedDEXProvider struct {
	mu    sync.Mutex
	rng   *rand.Rand
	bases map[string]decimal.Decimal
}

// NewSimulatedDEXProvider creates a simulated DEX price source with the
// given base prices.
func NewSimulatedDEXProvider(seed int64, bases map[string]decimal.Decimal) *SimulatedDEXProvider {
	return &SimulatedDEXProvider{
		rng:   rand.New(rand.NewSource(seed)),
		bases: bases,
	}
}

// Name returns the provider's display name.
func (p *SimulatedDEXProvider) Name() string { return "SimulatedDEX" }

// FetchPrices returns each base price jittered by up to ±2%.
func (p *SimulatedDEXProvider) FetchPrices(_ context.Context, assets []string) (map[string]decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prices := make(map[string]decimal.Decimal, len(assets))
	for _, asset := range assets {
		base, ok := p.bases[asset]
		if !ok {
			continue
		}
		jitter := decimal.NewFromFloat(1 + (p.rng.Float64()-0.5)*0.04)
		prices[asset] = base.Mul(jitter).Round(8)
	}
	return prices, nil
}
