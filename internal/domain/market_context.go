package domain

import "github.com/shopspring/decimal"

// TrendSignal coarse indicator classification.
type TrendSignal string

const (
	SignalBullish TrendSignal = "bullish"
	SignalBearish TrendSignal = "bearish"
	SignalNeutral TrendSignal = "neutral"
)

// BandPosition position of price relative to the Bollinger bands.
type BandPosition string

const (
	BandAboveUpper BandPosition = "above_upper"
	BandBelowLower BandPosition = "below_lower"
	BandWithin     BandPosition = "within"
)

// TechnicalSnapshot indicator values for one simulated day.
// Zero-valued pointers mean the indicator could not be computed
// (not enough history).
type TechnicalSnapshot struct {
	RSI14         *float64
	RSISignal     TrendSignal
	MACDSignal    TrendSignal
	MA50          *decimal.Decimal
	MA200         *decimal.Decimal
	BandPosition  BandPosition
	OverallSignal TrendSignal
}

// NewsHeadline one cached news item shown to an investor.
type NewsHeadline struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Source    string `json:"source"`
	Published string `json:"published"`
}

// PortfolioState investor portfolio figures at decision time.
type PortfolioState struct {
	TotalValue  decimal.Decimal
	USDBalance  decimal.Decimal
	BTCQuantity decimal.Decimal
	ReturnPct   float64
}

// MarketContext everything an investor (AI or rule policy) may reason over
// for one simulated day. Fields an investor does not subscribe to are left
// zero-valued by the simulator.
type MarketContext struct {
	Date         string
	Price        decimal.Decimal
	ChangePct    float64
	Technical    *TechnicalSnapshot
	FearGreed    *FearGreedReading
	NewsItems    []NewsHeadline
	Portfolio    PortfolioState
}

// FearGreedReading one day of the Fear & Greed index.
type FearGreedReading struct {
	Date           string `json:"date"`
	Value          int    `json:"value"`
	Classification string `json:"classification"`
}
