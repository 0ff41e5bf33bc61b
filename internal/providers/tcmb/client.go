// Package tcmb fetches USD/EUR exchange rates from the central bank's daily
// XML feed. It is a best-effort enrichment source for the paid adapter: its
// failures never fail a price fetch.
package tcmb

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"time"

	"goldprice-api/internal/models"
	"goldprice-api/internal/moneyparse"
	"goldprice-api/internal/providers"
)

const providerName = "tcmb"

// RateSource supplies currency quotes for snapshot enrichment.
type RateSource interface {
	Rates(ctx context.Context) (map[models.Code]models.Quote, error)
}

// Client reads the daily rates feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds client settings. Zero values fall back to production defaults.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a rates-feed client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://www.tcmb.gov.tr/kurlar/today.xml"
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

type ratesDocument struct {
	XMLName    xml.Name   `xml:"Tarih_Date"`
	Currencies []currency `xml:"Currency"`
}

type currency struct {
	Code         string `xml:"CurrencyCode,attr"`
	ForexBuying  string `xml:"ForexBuying"`
	ForexSelling string `xml:"ForexSelling"`
}

// Rates returns the USDTRY/EURTRY quotes from the feed. Currencies other
// than USD and EUR are ignored.
func (c *Client) Rates(ctx context.Context) (map[models.Code]models.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeNetwork, "failed to create request", err)
	}

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

	var doc ratesDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, providers.NewFetchError(providerName, providers.ErrCodeFormat, "failed to parse rates XML", err)
	}

	rates := make(map[models.Code]models.Quote, 2)
	for _, cur := range doc.Currencies {
		var code models.Code
		switch cur.Code {
		case "USD":
			code = models.CodeUSDTRY
		case "EUR":
			code = models.CodeEURTRY
		default:
			continue
		}
		rates[code] = models.Quote{
			Buy:  moneyparse.ParseString(cur.ForexBuying),
			Sell: moneyparse.ParseString(cur.ForexSelling),
		}
	}

	return rates, nil
}
