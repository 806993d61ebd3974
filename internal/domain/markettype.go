package domain

// Platform candle source backing a scan.
type Platform string

const (
	PlatformBinance     Platform = "binance"
	PlatformBybit       Platform = "bybit"
	PlatformHyperliquid Platform = "hyperliquid"
	PlatformAlpaca      Platform = "alpaca"
	// PlatformCSV reads candles from local files.
	PlatformCSV Platform = "csv"
)

// String returns the string representation.
func (p Platform) String() string {
	return string(p)
}

// IsValid checks if the Platform value is valid.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformBinance, PlatformBybit, PlatformHyperliquid, PlatformAlpaca, PlatformCSV:
		return true
	default:
		return false
	}
}
