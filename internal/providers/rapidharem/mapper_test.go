package rapidharem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldprice-api/internal/models"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "YENI CEYREK", normalizeKey("YENİ ÇEYREK"))
	assert.Equal(t, "HAS ALTIN", normalizeKey("Has Altın"))
	assert.Equal(t, "KULCE ALTIN (GRAM)", normalizeKey("  Külçe  Altın (GRAM) "))
}

func TestMapEntries(t *testing.T) {
	t.Run("maps Turkish free-text keys to canonical codes", func(t *testing.T) {
		values := mapEntries([]entry{
			{Key: "GRAM ALTIN", Buy: "5.923,01", Sell: "5.925,44"},
			{Key: "YENİ ÇEYREK", Buy: "9.670,00", Sell: "9.740,00"},
			{Key: "Has Altın", Buy: "5.900,00", Sell: "5.910,00"},
			{Key: "22 AYAR", Buy: 5410.2, Sell: 5480.0},
		})

		require.Len(t, values, 4)
		assert.Equal(t, models.Quote{Buy: 5923.01, Sell: 5925.44}, values[models.CodeKulceAltin])
		assert.Equal(t, models.Quote{Buy: 9670, Sell: 9740}, values[models.CodeCeyrekYeni])
		assert.Equal(t, models.Quote{Buy: 5900, Sell: 5910}, values[models.CodeAltin])
		assert.Equal(t, models.Quote{Buy: 5410.2, Sell: 5480}, values[models.CodeAyar22])
	})

	t.Run("kilogram quotes are rescaled to grams", func(t *testing.T) {
		values := mapEntries([]entry{
			{Key: "KULCE ALTIN (KG)", Buy: "5.923.010", Sell: "5.925.000"},
		})

		q, ok := values[models.CodeKulceAltin]
		require.True(t, ok)
		assert.InDelta(t, 5923.01, q.Buy, 1e-9)
		assert.InDelta(t, 5925.0, q.Sell, 1e-9)
	})

	t.Run("parenthesised qualifiers are stripped for lookup", func(t *testing.T) {
		values := mapEntries([]entry{
			{Key: "KULCE ALTIN (GRAM)", Buy: "5923", Sell: "5925"},
		})
		_, ok := values[models.CodeKulceAltin]
		assert.True(t, ok)
	})

	t.Run("unmapped keys are ignored", func(t *testing.T) {
		values := mapEntries([]entry{
			{Key: "GUMUS", Buy: "40", Sell: "41"},
			{Key: "", Buy: "1", Sell: "2"},
		})
		assert.Empty(t, values)
	})
}
