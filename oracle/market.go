package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

const (
	priceCacheTTL   = 30 * time.Second
	priceCacheSweep = time.Minute
	requestTimeout  = 10 * time.Second
)

// MarketClient fetches token prices from an external market data HTTP API.
// Responses are cached briefly so bursts of fee calculations do not hammer
// the provider.
type MarketClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	prices     *cache.Cache
}

// NewMarketClient builds a market data price source.
func NewMarketClient(baseURL, apiKey string) *MarketClient {
	return &MarketClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		prices:     cache.New(priceCacheTTL, priceCacheSweep),
	}
}

// FetchPrice implements PriceFetcher.
func (c *MarketClient) FetchPrice(ctx context.Context, token common.Address) (TokenPrice, error) {
	key := token.Hex()
	if cached, ok := c.prices.Get(key); ok {
		return cached.(TokenPrice), nil
	}

	url := fmt.Sprintf("%s/v1/price/%s", c.baseURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return TokenPrice{}, errors.Wrap(err, "could not build price request")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenPrice{}, errors.Wrapf(err, "could not fetch price for %s", key)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return TokenPrice{}, errors.Errorf("price provider returned status %d for %s", resp.StatusCode, key)
	}

	var payload struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return TokenPrice{}, errors.Wrap(err, "could not decode price response")
	}

	price := TokenPrice{
		Token:      token,
		USD:        payload.USD,
		ObservedAt: time.Now(),
	}
	c.prices.Set(key, price, cache.DefaultExpiration)
	return price, nil
}
