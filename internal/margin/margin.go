// Package margin applies per-code price adjustments configured by
// administrators. Buy prices are lowered and sell prices are raised so
// the adjusted spread always contains the upstream spread.
package margin

import (
	"strings"

	"github.com/shopspring/decimal"

	"goldprice-api/internal/models"
)

const (
	buySuffix  = "_alis"
	sellSuffix = "_satis"
	keySuffix  = "_marj"
)

// BuyMarginKey returns the margin key for a code's buy price.
func BuyMarginKey(code models.Code) string {
	return string(code) + buySuffix + keySuffix
}

// SellMarginKey returns the margin key for a code's sell price.
func SellMarginKey(code models.Code) string {
	return string(code) + sellSuffix + keySuffix
}

// IsValidKey reports whether key names a margin for a known code and side.
func IsValidKey(key string) bool {
	trimmed, ok := strings.CutSuffix(key, keySuffix)
	if !ok {
		return false
	}
	for _, code := range models.AllCodes {
		if trimmed == string(code)+buySuffix || trimmed == string(code)+sellSuffix {
			return true
		}
	}
	return false
}

// Apply returns a copy of prices with margins applied. A margin for
// "<CODE>_alis" is subtracted from the buy price and a margin for
// "<CODE>_satis" is added to the sell price. Prices without a matching
// margin pass through unchanged. Decimal arithmetic avoids the drift
// float operations accumulate on repeated adjustments.
func Apply(prices map[string]float64, margins map[string]float64) map[string]float64 {
	if len(margins) == 0 {
		out := make(map[string]float64, len(prices))
		for k, v := range prices {
			out[k] = v
		}
		return out
	}

	out := make(map[string]float64, len(prices))
	for key, value := range prices {
		adj, ok := margins[key+keySuffix]
		if !ok {
			out[key] = value
			continue
		}

		price := decimal.NewFromFloat(value)
		delta := decimal.NewFromFloat(adj)
		switch {
		case strings.HasSuffix(key, buySuffix):
			price = price.Sub(delta)
		case strings.HasSuffix(key, sellSuffix):
			price = price.Add(delta)
		}
		out[key], _ = price.Float64()
	}
	return out
}
