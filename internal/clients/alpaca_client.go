package clients

import (
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

func NewAlpacaClient(apiKey, apiSecret string) *marketdata.Client {
	return marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
}
