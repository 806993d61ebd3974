//go:build integration

package pricer

import (
	"context"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/sbl/internal/domain"
)

// Public ticker endpoints, no keys needed.
// To run this test, use: go test -tags=integration -v ./...
func TestPricers_GetPrice_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pricers := map[string]Pricer{
		"binance": NewBinancePricer(binance.NewClient("", "")),
		"bybit":   NewBybitPricer(bybit.NewClient()),
	}

	for name, p := range pricers {
		t.Run(name, func(t *testing.T) {
			pair := domain.Pair{From: "BTC", To: "USDT"}

			price, err := p.GetPrice(context.Background(), pair)
			require.NoError(t, err)
			assert.True(t, price.GreaterThan(decimal.Zero), "expected price > 0 for %s, got %s", pair.String(), price.String())

			_, err = p.GetPrice(context.Background(), domain.Pair{From: "INVALID", To: "PAIR"})
			assert.Error(t, err)
		})
	}
}
