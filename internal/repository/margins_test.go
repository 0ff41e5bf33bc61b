package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMarginStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryMarginStore()

	t.Run("unknown user returns empty map", func(t *testing.T) {
		margins, err := store.GetMargins(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, margins)
	})

	t.Run("update then read back", func(t *testing.T) {
		require.NoError(t, store.UpdateMargin(ctx, "user-1", "KULCEALTIN_satis_marj", 15))
		require.NoError(t, store.UpdateMargin(ctx, "user-1", "USDTRY_alis_marj", 0.05))

		margins, err := store.GetMargins(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{
			"KULCEALTIN_satis_marj": 15,
			"USDTRY_alis_marj":      0.05,
		}, margins)
	})

	t.Run("margins are isolated per user", func(t *testing.T) {
		require.NoError(t, store.UpdateMargin(ctx, "user-2", "KULCEALTIN_satis_marj", 99))

		one, err := store.GetMargins(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, float64(15), one["KULCEALTIN_satis_marj"])

		two, err := store.GetMargins(ctx, "user-2")
		require.NoError(t, err)
		assert.Equal(t, float64(99), two["KULCEALTIN_satis_marj"])
	})

	t.Run("returned map is a copy", func(t *testing.T) {
		margins, err := store.GetMargins(ctx, "user-1")
		require.NoError(t, err)

		margins["KULCEALTIN_satis_marj"] = 999

		fresh, err := store.GetMargins(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, float64(15), fresh["KULCEALTIN_satis_marj"])
	})
}
