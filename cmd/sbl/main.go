// Command sbl ranks a universe of instruments by breakout setup quality and
// builds support/breakout/level scenario plans for single symbols.
// Candles come from Binance, Bybit, Hyperliquid, Alpaca or local CSV files.
//
// Usage:
//
//	sbl --config config.yaml          serve the HTTP API and rescan on schedule
//	sbl --setup                       write a config with the interactive wizard
//	sbl --scan-once --limit 20        print one ranking and exit
//	sbl --analyze EQNR                print the scenario analysis and exit
//
// Credentials are read from the environment (a .env file is loaded when present):
//
//	<PLATFORM>_API_KEY, <PLATFORM>_API_SECRET, REDIS_PASSWORD
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sbl/config"
	"github.com/vadiminshakov/sbl/internal"
	"github.com/vadiminshakov/sbl/internal/setup"
)

func main() {
	_ = godotenv.Load()

	conf, opts, err := config.Get(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if opts.Setup {
		path, err := setup.RunTUI()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("config written to %s\n", path)

		conf, _, err = config.Get([]string{"--config", path})
		if err != nil {
			log.Fatal(err)
		}
	}

	logger := newLogger(opts.Debug)
	defer logger.Sync()

	if err := run(conf, opts, logger); err != nil {
		logger.Error("screener stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(conf config.Config, opts config.RunOptions, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := internal.NewScreenerApp(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	switch {
	case opts.Analyze != "":
		return app.Analyze(ctx, os.Stdout, opts.Analyze)
	case opts.ScanOnce:
		return app.ScanOnce(ctx, os.Stdout, opts.Limit)
	default:
		logger.Info("starting screener",
			zap.String("platform", string(conf.Platform)),
			zap.String("interval", conf.Interval),
			zap.Int("instruments", len(conf.Instruments)))
		return app.Run(ctx)
	}
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err)
	}

	return logger
}
