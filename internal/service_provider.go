package internal

import (
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	bybit "github.com/hirokisan/bybit/v2"

	"github.com/vadiminshakov/sbl/config"
	"github.com/vadiminshakov/sbl/internal/clients"
	"github.com/vadiminshakov/sbl/internal/domain"
	"github.com/vadiminshakov/sbl/internal/services/market/collector"
	"github.com/vadiminshakov/sbl/internal/services/pricer"
)

// serviceProvider creates platform-specific market data services.
type serviceProvider interface {
	KlineProvider() collector.KlineProvider
	// Pricer returns nil when the platform has no live quote.
	Pricer() pricer.Pricer
}

// newClient builds the SDK client for the configured platform.
func newClient(cfg config.Config) (any, error) {
	switch cfg.Platform {
	case domain.PlatformBinance:
		return clients.NewBinanceClient(cfg.Secrets.APIKey, cfg.Secrets.APISecret), nil
	case domain.PlatformBybit:
		return clients.NewBybitClient(cfg.Secrets.APIKey, cfg.Secrets.APISecret), nil
	case domain.PlatformHyperliquid:
		return clients.NewHyperliquidClient(cfg.Secrets.APISecret, "")
	case domain.PlatformAlpaca:
		if cfg.Secrets.APIKey == "" || cfg.Secrets.APISecret == "" {
			return nil, fmt.Errorf("ALPACA_API_KEY and ALPACA_API_SECRET environment variables must be set")
		}
		return clients.NewAlpacaClient(cfg.Secrets.APIKey, cfg.Secrets.APISecret), nil
	case domain.PlatformCSV:
		return csvSource(cfg.CSVDir), nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}

type csvSource string

// newServiceProvider creates a new service provider based on the client type.
// This is the single point of truth for dispatching to platform-specific implementations.
func newServiceProvider(client any, alpacaFeed string) (serviceProvider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return &binanceProvider{client: c}, nil
	case *bybit.Client:
		return &bybitProvider{client: c}, nil
	case *clients.HyperliquidClient:
		return &hyperliquidProvider{client: c}, nil
	case *marketdata.Client:
		return &alpacaProvider{client: c, feed: marketdata.Feed(alpacaFeed)}, nil
	case csvSource:
		return &csvProvider{dir: string(c)}, nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}

type binanceProvider struct {
	client *binance.Client
}

func (p *binanceProvider) KlineProvider() collector.KlineProvider {
	return collector.NewBinanceKlineProvider(p.client)
}
func (p *binanceProvider) Pricer() pricer.Pricer {
	return pricer.NewBinancePricer(p.client)
}

type bybitProvider struct {
	client *bybit.Client
}

func (p *bybitProvider) KlineProvider() collector.KlineProvider {
	return collector.NewBybitKlineProvider(p.client)
}
func (p *bybitProvider) Pricer() pricer.Pricer {
	return pricer.NewBybitPricer(p.client)
}

type hyperliquidProvider struct {
	client *clients.HyperliquidClient
}

func (p *hyperliquidProvider) KlineProvider() collector.KlineProvider {
	return collector.NewHyperliquidKlineProvider(p.client.Info())
}
func (p *hyperliquidProvider) Pricer() pricer.Pricer {
	return pricer.NewHyperliquidPricer(p.client.Info())
}

type alpacaProvider struct {
	client *marketdata.Client
	feed   marketdata.Feed
}

func (p *alpacaProvider) KlineProvider() collector.KlineProvider {
	return collector.NewAlpacaKlineProvider(p.client, p.feed)
}
func (p *alpacaProvider) Pricer() pricer.Pricer {
	return pricer.NewAlpacaPricer(p.client, p.feed)
}

type csvProvider struct {
	dir string
}

func (p *csvProvider) KlineProvider() collector.KlineProvider {
	return collector.NewCSVKlineProvider(p.dir)
}
func (p *csvProvider) Pricer() pricer.Pricer { return nil }
