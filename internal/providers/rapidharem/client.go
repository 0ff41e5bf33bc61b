// Package rapidharem implements the secondary (metered) upstream adapter.
//
// The feed returns an array of free-text keyed records behind API-key
// headers. Records are mapped to canonical codes via a fixed table, kilogram
// quotes are rescaled to grams, and USD/EUR rates are enriched from the
// central-bank feed as a best-effort second call.
package rapidharem

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"goldprice-api/internal/models"
	"goldprice-api/internal/providers"
	"goldprice-api/internal/providers/tcmb"
)

const providerName = "rapidharem"

// Client fetches prices from the metered upstream.
type Client struct {
	baseURL     string
	host        string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	rates       tcmb.RateSource
}

// Config holds client settings. Zero values fall back to production
// defaults; Rates may be nil to skip currency enrichment entirely.
type Config struct {
	BaseURL   string
	Host      string
	APIKey    string
	Timeout   time.Duration
	RateLimit int // requests per minute against the metered endpoint
	Rates     tcmb.RateSource
}

// NewClient creates a secondary-source client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://harem-altin-live-gold-price-data.p.rapidapi.com/harem_altin/prices"
	}
	if config.Host == "" {
		config.Host = "harem-altin-live-gold-price-data.p.rapidapi.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 30
	}

	return &Client{
		baseURL: config.BaseURL,
		host:    config.Host,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RateLimit)), 1),
		rates:       config.Rates,
	}
}

// Name implements providers.Client.
func (c *Client) Name() string { return providerName }

// Source implements providers.Client.
func (c *Client) Source() models.Source { return models.SourcePaid }

type feedResponse struct {
	Data []entry `json:"data"`
}

// Fetch implements providers.Client.
func (c *Client) Fetch(ctx context.Context) (*models.Snapshot, error) {
	if c.apiKey == "" {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeNetwork, "API key not configured", nil)
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeNetwork, "rate limit wait cancelled", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeNetwork, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeNetwork, "failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeNetwork,
			http.StatusText(resp.StatusCode), nil)
	}

	var payload feedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeFormat, "failed to parse response", err)
	}
	if payload.Data == nil {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeFormat, "payload has no data array", nil)
	}

	fetchedAt := time.Now()
	values := mapEntries(payload.Data)
	c.enrichCurrencies(ctx, values)

	if err := providers.ValidateAnchor(providerName, values); err != nil {
		return nil, err
	}

	return models.NewSnapshot(values, models.SourcePaid, fetchedAt), nil
}

// enrichCurrencies fills USDTRY/EURTRY from the rates feed. The feed's
// failure leaves the zero placeholders in place; it never fails the fetch.
func (c *Client) enrichCurrencies(ctx context.Context, values map[models.Code]models.Quote) {
	values[models.CodeUSDTRY] = models.Quote{}
	values[models.CodeEURTRY] = models.Quote{}

	if c.rates == nil {
		return
	}

	rates, err := c.rates.Rates(ctx)
	if err != nil {
		logrus.WithError(err).Debug("currency enrichment failed, keeping zero placeholders")
		return
	}
	for _, code := range []models.Code{models.CodeUSDTRY, models.CodeEURTRY} {
		if q, ok := rates[code]; ok {
			values[code] = q
		}
	}
}
