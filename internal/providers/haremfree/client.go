// Package haremfree implements the primary (free) upstream adapter.
//
// The feed is a JSON object keyed by instrument name, each entry carrying
// `alis`/`satis` fields that may be spelled as strings or numbers. Keys match
// the canonical instrument names directly; anything outside the canonical set
// is ignored.
package haremfree

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"goldprice-api/internal/models"
	"goldprice-api/internal/moneyparse"
	"goldprice-api/internal/providers"
)

const providerName = "haremfree"

// Client fetches prices from the free upstream.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds client settings. Zero values fall back to production defaults.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a primary-source client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://canlipiyasalar.haremaltin.com/tmp/altin.json"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	return &Client{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name implements providers.Client.
func (c *Client) Name() string { return providerName }

// Source implements providers.Client.
func (c *Client) Source() models.Source { return models.SourceFree }

type feedResponse struct {
	Data map[string]feedEntry `json:"data"`
}

type feedEntry struct {
	Alis  interface{} `json:"alis"`
	Satis interface{} `json:"satis"`
}

// Fetch implements providers.Client.
func (c *Client) Fetch(ctx context.Context) (*models.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeNetwork, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	// The feed rejects requests without a browser-looking agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

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
		return nil, providers.NewFetchError(providerName, providers.ErrCodeFormat, "payload has no data object", nil)
	}

	fetchedAt := time.Now()
	values := make(map[models.Code]models.Quote, len(models.AllCodes))
	for _, code := range models.AllCodes {
		entry, ok := payload.Data[string(code)]
		if !ok {
			continue
		}
		values[code] = models.Quote{
			Buy:  moneyparse.Parse(entry.Alis),
			Sell: moneyparse.Parse(entry.Satis),
		}
	}

	if err := providers.ValidateAnchor(providerName, values); err != nil {
		return nil, err
	}

	return models.NewSnapshot(values, models.SourceFree, fetchedAt), nil
}
