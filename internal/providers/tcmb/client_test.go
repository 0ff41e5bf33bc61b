package tcmb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldprice-api/internal/models"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<Tarih_Date Tarih="29.08.2026" Date="08/29/2026">
	<Currency CrossOrder="0" Kod="USD" CurrencyCode="USD">
		<Unit>1</Unit>
		<ForexBuying>41.1034</ForexBuying>
		<ForexSelling>41.1774</ForexSelling>
	</Currency>
	<Currency CrossOrder="9" Kod="EUR" CurrencyCode="EUR">
		<Unit>1</Unit>
		<ForexBuying>47.9012</ForexBuying>
		<ForexSelling>47.9875</ForexSelling>
	</Currency>
	<Currency CrossOrder="2" Kod="GBP" CurrencyCode="GBP">
		<Unit>1</Unit>
		<ForexBuying>55.1</ForexBuying>
		<ForexSelling>55.4</ForexSelling>
	</Currency>
</Tarih_Date>`

func TestClient_Rates(t *testing.T) {
	t.Run("maps USD and EUR, ignores others", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(sampleFeed))
		}))
		defer server.Close()

		client := NewClient(&Config{BaseURL: server.URL, Timeout: 2 * time.Second})
		rates, err := client.Rates(context.Background())
		require.NoError(t, err)

		require.Len(t, rates, 2)
		assert.Equal(t, models.Quote{Buy: 41.1034, Sell: 41.1774}, rates[models.CodeUSDTRY])
		assert.Equal(t, models.Quote{Buy: 47.9012, Sell: 47.9875}, rates[models.CodeEURTRY])
	})

	t.Run("locale-formatted numbers are tolerated", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<Tarih_Date><Currency CurrencyCode="USD"><ForexBuying>41,1034</ForexBuying><ForexSelling>41,1774</ForexSelling></Currency></Tarih_Date>`))
		}))
		defer server.Close()

		client := NewClient(&Config{BaseURL: server.URL, Timeout: 2 * time.Second})
		rates, err := client.Rates(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 41.1034, rates[models.CodeUSDTRY].Buy)
	})

	t.Run("malformed XML is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not":"xml"}`))
		}))
		defer server.Close()

		client := NewClient(&Config{BaseURL: server.URL, Timeout: 2 * time.Second})
		_, err := client.Rates(context.Background())
		assert.Error(t, err)
	})
}
