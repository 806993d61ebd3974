// Package domain defines core data structures shared by the engine, the scanner and the services.
package domain

import (
	"fmt"
	"strings"
)

// Pair tradable instrument. Crypto pairs carry both legs (BTC_USDT),
// stocks carry only the ticker in From.
type Pair struct {
	// From base currency symbol or stock ticker.
	From string
	// To quote currency symbol, empty for stocks.
	To string
}

// ParsePair parses "BTC_USDT" or a plain ticker such as "EQNR".
func ParsePair(s string) (Pair, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Pair{}, fmt.Errorf("empty pair")
	}

	parts := strings.Split(s, "_")
	switch len(parts) {
	case 1:
		return Pair{From: strings.ToUpper(parts[0])}, nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Pair{}, fmt.Errorf("invalid pair %q", s)
		}
		return Pair{From: strings.ToUpper(parts[0]), To: strings.ToUpper(parts[1])}, nil
	default:
		return Pair{}, fmt.Errorf("invalid pair %q", s)
	}
}

// String returns the string representation.
func (p Pair) String() string {
	if p.To == "" {
		return p.From
	}
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated symbol representation used by exchanges.
func (p Pair) Symbol() string {
	return p.From + p.To
}

// Instrument a pair plus its display name.
type Instrument struct {
	Pair Pair
	Name string
}
