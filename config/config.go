package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	// zone database for minimal containers
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/sbl/internal/domain"
	"github.com/vadiminshakov/sbl/internal/sbl"
)

const (
	defaultInterval     = "1d"
	defaultLookback     = 120
	defaultConcurrency  = 10
	defaultScanInterval = 15 * time.Minute
	defaultListenAddr   = ":8080"
	defaultCertCacheDir = "cert-cache"
	defaultJournalDir   = "./wal/scans"
	defaultTimezone     = "Europe/Oslo"
	defaultMaxRetries   = 3
	defaultRetryBackoff = time.Second

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Platform domain.Platform
	// Interval candle size, e.g. "1h", "1d".
	Interval     string
	Lookback     int
	Concurrency  int
	ScanInterval time.Duration
	ListenAddr   string
	TLSDomains   []string
	CertCacheDir string
	CSVDir       string
	JournalDir   string
	// LivePrices overrides the last close with the platform's live price.
	LivePrices  bool
	AlpacaFeed  string
	Cache       CacheConfig
	Retry       RetryConfig
	Instruments []domain.Instrument
	Secrets     Secrets
}

type CacheConfig struct {
	Backend   string
	RedisAddr string
	RedisDB   int
	Location  *time.Location
}

type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
}

// Secrets come from the environment only.
type Secrets struct {
	APIKey        string
	APISecret     string
	RedisPassword string
}

// RunOptions select what the binary does.
type RunOptions struct {
	ConfigPath string
	Setup      bool
	Analyze    string
	ScanOnce   bool
	// Limit rows printed by --scan-once.
	Limit      int
	Debug      bool
}

type ConfigTmp struct {
	Platform     string          `yaml:"platform"`
	Interval     string          `yaml:"interval,omitempty"`
	Lookback     string          `yaml:"lookback,omitempty"`
	Concurrency  string          `yaml:"concurrency,omitempty"`
	ScanInterval string          `yaml:"scan_interval,omitempty"`
	ListenAddr   string          `yaml:"listen_addr,omitempty"`
	TLSDomains   []string        `yaml:"tls_domains,omitempty"`
	CertCacheDir string          `yaml:"cert_cache_dir,omitempty"`
	CSVDir       string          `yaml:"csv_dir,omitempty"`
	JournalDir   string          `yaml:"journal_dir,omitempty"`
	LivePrices   bool            `yaml:"live_prices,omitempty"`
	AlpacaFeed   string          `yaml:"alpaca_feed,omitempty"`
	Cache        CacheTmp        `yaml:"cache,omitempty"`
	Retry        RetryTmp        `yaml:"retry,omitempty"`
	Instruments  []InstrumentTmp `yaml:"instruments"`
}

type CacheTmp struct {
	Backend   string `yaml:"backend,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
	RedisDB   string `yaml:"redis_db,omitempty"`
	Timezone  string `yaml:"timezone,omitempty"`
}

type RetryTmp struct {
	MaxRetries      string `yaml:"max_retries,omitempty"`
	InitialInterval string `yaml:"initial_interval,omitempty"`
}

type InstrumentTmp struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name,omitempty"`
}

// Get parses args (usually os.Args[1:]). With --config the yaml file is the source,
// otherwise the remaining flags are.
func Get(args []string) (Config, RunOptions, error) {
	fs := flag.NewFlagSet("sbl", flag.ContinueOnError)

	var opts RunOptions
	fs.StringVar(&opts.ConfigPath, "config", "", "path to yaml config")
	fs.BoolVar(&opts.Setup, "setup", false, "run the interactive config wizard")
	fs.StringVar(&opts.Analyze, "analyze", "", "print the full analysis for one symbol and exit")
	fs.BoolVar(&opts.ScanOnce, "scan-once", false, "run one scan, print the ranking and exit")
	fs.IntVar(&opts.Limit, "limit", 50, "rows printed by --scan-once")
	fs.BoolVar(&opts.Debug, "debug", false, "development logging")

	var tmp ConfigTmp
	var symbols string
	fs.StringVar(&tmp.Platform, "platform", string(domain.PlatformBinance), "candle source: binance|bybit|hyperliquid|alpaca|csv")
	fs.StringVar(&tmp.Interval, "interval", defaultInterval, "candle interval, example: 1h")
	fs.StringVar(&tmp.Lookback, "lookback", strconv.Itoa(defaultLookback), "candles fetched per instrument")
	fs.StringVar(&tmp.Concurrency, "concurrency", strconv.Itoa(defaultConcurrency), "parallel fetches during a scan")
	fs.StringVar(&tmp.ScanInterval, "scan-interval", defaultScanInterval.String(), "period of scheduled scans")
	fs.StringVar(&tmp.ListenAddr, "listen", defaultListenAddr, "http listen address")
	fs.StringVar(&tmp.CSVDir, "csv-dir", "", "directory with <SYMBOL>.csv files for the csv platform")
	fs.StringVar(&tmp.JournalDir, "journal-dir", defaultJournalDir, "scan journal directory")
	fs.BoolVar(&tmp.LivePrices, "live-prices", false, "override the last close with the live price")
	fs.StringVar(&tmp.Cache.Backend, "cache", CacheMemory, "scan cache backend: memory|redis")
	fs.StringVar(&tmp.Cache.RedisAddr, "redis-addr", "", "redis address for the redis cache")
	fs.StringVar(&symbols, "symbols", "BTC_USDT,ETH_USDT", "comma separated instruments, example: BTC_USDT,EQNR")

	if err := fs.Parse(args); err != nil {
		return Config{}, RunOptions{}, err
	}

	if opts.Setup {
		return Config{}, opts, nil
	}

	if opts.ConfigPath != "" {
		c, err := getYaml(opts.ConfigPath)
		return c, opts, err
	}

	for _, s := range strings.Split(symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			tmp.Instruments = append(tmp.Instruments, InstrumentTmp{Symbol: s})
		}
	}

	c, err := FromTmp(tmp)
	return c, opts, err
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("failed to parse yaml config %s: %w", path, err)
	}

	return FromTmp(tmp)
}

// FromTmp validates raw values and fills defaults.
func FromTmp(c ConfigTmp) (Config, error) {
	platform := domain.Platform(strings.ToLower(c.Platform))
	if !platform.IsValid() {
		return Config{}, fmt.Errorf("incorrect 'platform' param in yaml config: %q, must be one of binance, bybit, hyperliquid, alpaca, csv", c.Platform)
	}

	newConfig := Config{
		Platform:     platform,
		Interval:     orDefault(c.Interval, defaultInterval),
		ListenAddr:   orDefault(c.ListenAddr, defaultListenAddr),
		TLSDomains:   c.TLSDomains,
		CertCacheDir: orDefault(c.CertCacheDir, defaultCertCacheDir),
		CSVDir:       c.CSVDir,
		JournalDir:   orDefault(c.JournalDir, defaultJournalDir),
		LivePrices:   c.LivePrices,
		AlpacaFeed:   c.AlpacaFeed,
	}

	if !validInterval(newConfig.Interval) {
		return Config{}, fmt.Errorf("incorrect 'interval' param in yaml config: %q (correct format is 15m, 4h, 1d or 1w)", newConfig.Interval)
	}

	var err error
	if newConfig.Lookback, err = intParam(c.Lookback, defaultLookback); err != nil {
		return Config{}, fmt.Errorf("incorrect 'lookback' param in yaml config (must be an integer), error: %w", err)
	}
	if newConfig.Lookback < sbl.MinCandles {
		return Config{}, fmt.Errorf("incorrect 'lookback' param in yaml config: %d, must be at least %d", newConfig.Lookback, sbl.MinCandles)
	}

	if newConfig.Concurrency, err = intParam(c.Concurrency, defaultConcurrency); err != nil {
		return Config{}, fmt.Errorf("incorrect 'concurrency' param in yaml config (must be an integer), error: %w", err)
	}
	if newConfig.Concurrency < 1 {
		return Config{}, fmt.Errorf("incorrect 'concurrency' param in yaml config: %d, must be positive", newConfig.Concurrency)
	}

	if newConfig.ScanInterval, err = durationParam(c.ScanInterval, defaultScanInterval); err != nil {
		return Config{}, fmt.Errorf("incorrect 'scan_interval' param in yaml config (correct format is 15m), error: %w", err)
	}

	if platform == domain.PlatformCSV && newConfig.CSVDir == "" {
		return Config{}, fmt.Errorf("'csv_dir' param is required for the csv platform")
	}

	if newConfig.Cache, err = cacheConfig(c.Cache); err != nil {
		return Config{}, err
	}

	if newConfig.Retry.MaxRetries, err = intParam(c.Retry.MaxRetries, defaultMaxRetries); err != nil {
		return Config{}, fmt.Errorf("incorrect 'retry.max_retries' param in yaml config (must be an integer), error: %w", err)
	}
	if newConfig.Retry.MaxRetries < 0 {
		return Config{}, fmt.Errorf("incorrect 'retry.max_retries' param in yaml config: %d, must not be negative", newConfig.Retry.MaxRetries)
	}
	if newConfig.Retry.InitialInterval, err = durationParam(c.Retry.InitialInterval, defaultRetryBackoff); err != nil {
		return Config{}, fmt.Errorf("incorrect 'retry.initial_interval' param in yaml config (correct format is 1s), error: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Instruments))
	for _, in := range c.Instruments {
		pair, err := domain.ParsePair(in.Symbol)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'instruments' entry in yaml config: %q, error: %w", in.Symbol, err)
		}
		if _, dup := seen[pair.String()]; dup {
			continue
		}
		seen[pair.String()] = struct{}{}

		name := in.Name
		if name == "" {
			name = pair.String()
		}
		newConfig.Instruments = append(newConfig.Instruments, domain.Instrument{Pair: pair, Name: name})
	}

	newConfig.Secrets = secretsFromEnv(platform)

	return newConfig, nil
}

func cacheConfig(c CacheTmp) (CacheConfig, error) {
	cc := CacheConfig{
		Backend:   strings.ToLower(orDefault(c.Backend, CacheMemory)),
		RedisAddr: c.RedisAddr,
	}

	switch cc.Backend {
	case CacheMemory:
	case CacheRedis:
		if cc.RedisAddr == "" {
			return CacheConfig{}, fmt.Errorf("'cache.redis_addr' param is required for the redis cache")
		}
	default:
		return CacheConfig{}, fmt.Errorf("incorrect 'cache.backend' param in yaml config: %q, must be memory or redis", c.Backend)
	}

	db, err := intParam(c.RedisDB, 0)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("incorrect 'cache.redis_db' param in yaml config (must be an integer), error: %w", err)
	}
	cc.RedisDB = db

	loc, err := time.LoadLocation(orDefault(c.Timezone, defaultTimezone))
	if err != nil {
		return CacheConfig{}, fmt.Errorf("incorrect 'cache.timezone' param in yaml config: %q, error: %w", c.Timezone, err)
	}
	cc.Location = loc

	return cc, nil
}

func secretsFromEnv(p domain.Platform) Secrets {
	prefix := strings.ToUpper(string(p))
	return Secrets{
		APIKey:        os.Getenv(prefix + "_API_KEY"),
		APISecret:     os.Getenv(prefix + "_API_SECRET"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}
}

func validInterval(s string) bool {
	if len(s) < 2 || !strings.ContainsRune("mhdw", rune(s[len(s)-1])) {
		return false
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	return err == nil && n > 0
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func intParam(v string, def int) (int, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	return strconv.Atoi(strings.TrimSpace(v))
}

func durationParam(v string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err == nil && d <= 0 {
		err = fmt.Errorf("must be positive, got %s", d)
	}
	return d, err
}
