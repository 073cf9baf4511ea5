package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
	"github.com/chapinin777/drkpaypal-wallet-sub000/pkg/logger"
)

const priceTTL = 30 * time.Second

// Client fetches USD prices from the market-data service. Prices for display
// may be served from a short-lived cache; swap rates are always fetched
// fresh so the rate applied is the one quoted immediately before commit.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *PriceCache
	log        *logger.Logger
}

func NewClient(baseURL string, cache *PriceCache, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		log:        log,
	}
}

type priceResponse struct {
	Symbol   string          `json:"symbol"`
	USDPrice decimal.Decimal `json:"usd_price"`
}

// Price returns the USD price of a currency, serving from cache when fresh.
func (c *Client) Price(ctx context.Context, code string) (decimal.Decimal, error) {
	code = strings.ToUpper(code)
	if code == "USD" {
		return decimal.NewFromInt(1), nil
	}

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, code); err == nil {
			if p, perr := decimal.NewFromString(cached); perr == nil {
				return p, nil
			}
		}
	}

	price, err := c.fetchPrice(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, code, price.String(), priceTTL); err != nil {
			c.log.Warn("failed to cache price: ", err)
		}
	}
	return price, nil
}

// Rate returns how many units of toCode one unit of fromCode buys. Both legs
// are fetched fresh; a stale cached price must never decide a swap.
func (c *Client) Rate(ctx context.Context, fromCode, toCode string) (decimal.Decimal, error) {
	const op = "market.Rate"

	fromCode = strings.ToUpper(fromCode)
	toCode = strings.ToUpper(toCode)

	fromPrice := decimal.NewFromInt(1)
	if fromCode != "USD" {
		p, err := c.fetchPrice(ctx, fromCode)
		if err != nil {
			return decimal.Zero, err
		}
		fromPrice = p
	}

	toPrice := decimal.NewFromInt(1)
	if toCode != "USD" {
		p, err := c.fetchPrice(ctx, toCode)
		if err != nil {
			return decimal.Zero, err
		}
		toPrice = p
	}

	if !toPrice.IsPositive() {
		return decimal.Zero, errors.NewExternalDependency(op, "market data", fmt.Errorf("non-positive price for %s", toCode))
	}
	return fromPrice.Div(toPrice), nil
}

func (c *Client) fetchPrice(ctx context.Context, code string) (decimal.Decimal, error) {
	const op = "market.fetchPrice"

	url := fmt.Sprintf("%s/api/v1/prices/%s", c.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, errors.NewInternal(op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, errors.NewExternalDependency(op, "market data", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, errors.NewExternalDependency(op, "market data",
			fmt.Errorf("unexpected status %d for %s", resp.StatusCode, code))
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, errors.NewExternalDependency(op, "market data", err)
	}
	if !body.USDPrice.IsPositive() {
		return decimal.Zero, errors.NewExternalDependency(op, "market data",
			fmt.Errorf("non-positive price for %s", code))
	}
	return body.USDPrice, nil
}
