package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/sbl/config"
	"github.com/vadiminshakov/sbl/internal/domain"
	"github.com/vadiminshakov/sbl/internal/sbl"
)

// DefaultFile the wizard writes to.
const DefaultFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

func step(title string) {
	fmt.Print("\033[H\033[2J") // clear screen
	fmt.Println(headerStyle.Render("SBL CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(title))
}

// RunTUI launches the terminal configuration wizard and returns the written file path.
func RunTUI() (string, error) {
	var (
		platform     string
		interval     = "1d"
		lookback     = "120"
		symbols      string
		scanInterval = "15m"
		cacheBackend = config.CacheMemory
		redisAddr    = "localhost:6379"
		livePrices   bool
		confirm      bool
	)

	step("STEP 1: CANDLE SOURCE")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Where should candles come from?\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select platform").
				Options(
					huh.NewOption("Binance", string(domain.PlatformBinance)),
					huh.NewOption("Bybit", string(domain.PlatformBybit)),
					huh.NewOption("Hyperliquid", string(domain.PlatformHyperliquid)),
					huh.NewOption("Alpaca (US stocks)", string(domain.PlatformAlpaca)),
					huh.NewOption("CSV files", string(domain.PlatformCSV)),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return "", err
	}

	step("STEP 2: UNIVERSE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Instruments").
				Description("One per line. BASE_QUOTE for crypto (BTC_USDT), plain ticker for stocks (AAPL)").
				Value(&symbols).
				Validate(validateSymbols),
		),
	).Run()
	if err != nil {
		return "", err
	}

	step("STEP 3: CANDLES AND TIMING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Candle interval").
				Description("e.g. 1h, 4h, 1d").
				Value(&interval),
			huh.NewInput().
				Title("Lookback").
				Description(fmt.Sprintf("Candles per instrument, at least %d", sbl.MinCandles)).
				Value(&lookback).
				Validate(validateLookback),
			huh.NewInput().
				Title("Scan interval").
				Description("Duration string (e.g. 5m, 15m, 1h)").
				Value(&scanInterval).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewConfirm().
				Title("Use live prices?").
				Description("Override the last close with the platform's latest price").
				Value(&livePrices),
		),
	).Run()
	if err != nil {
		return "", err
	}

	step("STEP 4: CACHE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Scan cache").
				Options(
					huh.NewOption("In memory", config.CacheMemory),
					huh.NewOption("Redis", config.CacheRedis),
				).
				Value(&cacheBackend),
		),
	).Run()
	if err != nil {
		return "", err
	}
	if cacheBackend == config.CacheRedis {
		err = huh.NewForm(huh.NewGroup(huh.NewInput().Title("Redis address").Value(&redisAddr))).Run()
		if err != nil {
			return "", err
		}
	}

	step("FINAL CONFIRMATION")
	instruments := parseSymbols(symbols)
	summary := fmt.Sprintf(
		"Platform: %s\nInstruments: %d\nInterval: %s\nLookback: %s\nScan every: %s\nCache: %s\n",
		platform, len(instruments), interval, lookback, scanInterval, cacheBackend,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return "", err
	}
	if !confirm {
		return "", fmt.Errorf("setup cancelled by user")
	}

	cfgTmp := config.ConfigTmp{
		Platform:     platform,
		Interval:     interval,
		Lookback:     lookback,
		ScanInterval: scanInterval,
		LivePrices:   livePrices,
		Cache:        config.CacheTmp{Backend: cacheBackend},
		Instruments:  instruments,
	}
	if cacheBackend == config.CacheRedis {
		cfgTmp.Cache.RedisAddr = redisAddr
	}
	if platform == string(domain.PlatformCSV) {
		cfgTmp.CSVDir = "./data"
	}

	if err := Write(DefaultFile, cfgTmp); err != nil {
		return "", err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting scanner...", DefaultFile)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return DefaultFile, nil
}

// Write validates c and saves it as yaml.
func Write(path string, c config.ConfigTmp) error {
	if _, err := config.FromTmp(c); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func parseSymbols(s string) []config.InstrumentTmp {
	var out []config.InstrumentTmp
	for _, line := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == ',' }) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, config.InstrumentTmp{Symbol: strings.ToUpper(line)})
		}
	}
	return out
}

func validateSymbols(s string) error {
	instruments := parseSymbols(s)
	if len(instruments) == 0 {
		return fmt.Errorf("add at least one instrument")
	}
	for _, in := range instruments {
		if _, err := domain.ParsePair(in.Symbol); err != nil {
			return err
		}
	}
	return nil
}

func validateLookback(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < sbl.MinCandles {
		return fmt.Errorf("must be at least %d", sbl.MinCandles)
	}
	return nil
}
