package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pair trading pair, e.g. BTC_USDT.
type Pair struct {
	From string
	To   string
}

// String returns BASE_QUOTE representation.
func (p Pair) String() string {
	return p.From + "_" + p.To
}

// Symbol returns the exchange symbol without separator, e.g. BTCUSDT.
func (p Pair) Symbol() string {
	return p.From + p.To
}

// PairFromString parses a BASE_QUOTE pair string.
func PairFromString(s string) (Pair, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair: %s", s)
	}
	return Pair{From: strings.ToUpper(parts[0]), To: strings.ToUpper(parts[1])}, nil
}

// MarketCandle single OHLCV candle.
type MarketCandle struct {
	OpenTime  time.Time       `json:"open_time"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	CloseTime time.Time       `json:"close_time"`
}

// DateKey returns the YYYY-MM-DD key of the candle open time (UTC).
func (c MarketCandle) DateKey() string {
	return c.OpenTime.UTC().Format("2006-01-02")
}

// ChangePct intraday change between open and close, in percent.
func (c MarketCandle) ChangePct() float64 {
	if c.Open.IsZero() {
		return 0
	}
	change, _ := c.Close.Sub(c.Open).Div(c.Open).Mul(decimal.NewFromInt(100)).Float64()
	return change
}
