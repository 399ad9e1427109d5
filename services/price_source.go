package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const exchangeRateTTL = 60 * time.Second

// PriceSource quotes how many settlement tokens one US dollar buys.
type PriceSource interface {
	ExchangeRate(ctx context.Context) (float64, error)
}

// HTTPPriceSource reads the USD price of the settlement asset from a
// simple-price JSON API and caches the derived rate briefly.
type HTTPPriceSource struct {
	baseURL string
	asset   string
	client  *http.Client
	cache   *expirable.LRU[string, float64]
	logger  *slog.Logger
}

func NewHTTPPriceSource(baseURL, asset string, logger *slog.Logger) *HTTPPriceSource {
	return &HTTPPriceSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		asset:   asset,
		client:  &http.Client{Timeout: 5 * time.Second},
		cache:   expirable.NewLRU[string, float64](8, nil, exchangeRateTTL),
		logger:  logger,
	}
}

func (p *HTTPPriceSource) ExchangeRate(ctx context.Context) (float64, error) {
	if rate, ok := p.cache.Get(p.asset); ok {
		return rate, nil
	}

	start := time.Now()
	defer func() {
		externalLatency.WithLabelValues("price", "exchange_rate").Observe(time.Since(start).Seconds())
	}()

	q := url.Values{}
	q.Set("ids", p.asset)
	q.Set("vs_currencies", "usd")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch price of %s: %w", p.asset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("price request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var prices map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}
	usd := prices[p.asset]["usd"]
	if usd <= 0 {
		return 0, fmt.Errorf("no usd price for %s", p.asset)
	}

	rate := 1 / usd
	p.cache.Add(p.asset, rate)
	p.logger.Debug("exchange rate refreshed", "asset", p.asset, "usd_price", usd, "rate", rate)
	return rate, nil
}

// StaticPriceSource always quotes the same rate.
type StaticPriceSource struct {
	Rate float64
}

func (s StaticPriceSource) ExchangeRate(context.Context) (float64, error) {
	return s.Rate, nil
}
