// Package indicators derives the daily technical picture from candle
// history using the cinar/indicator library: RSI, MACD, moving averages
// and Bollinger bands.
package indicators

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/projectchronos/chronos/internal/domain"
)

const (
	rsiPeriod   = 14
	smaShort    = 50
	smaLong     = 200
	minForMACD  = 35
	minForBands = 20
)

// Snapshot computes the technical snapshot for the last candle of the
// window. Indicators whose lookback exceeds the window are left nil, the
// snapshot is usable from the first simulated day onward.
func Snapshot(candles []domain.MarketCandle) (*domain.TechnicalSnapshot, error) {
	if len(candles) == 0 {
		return nil, errors.New("no candles for indicator snapshot")
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
	}
	price := candles[len(candles)-1].Close

	snap := &domain.TechnicalSnapshot{
		RSISignal:     domain.SignalNeutral,
		MACDSignal:    domain.SignalNeutral,
		BandPosition:  domain.BandWithin,
		OverallSignal: domain.SignalNeutral,
	}

	if len(closes) > rsiPeriod {
		rsi := lastOf(helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](rsiPeriod).Compute(helper.SliceToChan(closes))))
		snap.RSI14 = &rsi
		switch {
		case rsi < 30:
			snap.RSISignal = domain.SignalBullish
		case rsi > 70:
			snap.RSISignal = domain.SignalBearish
		}
	}

	if len(closes) >= smaShort {
		ma := decimal.NewFromFloat(lastOf(helper.ChanToSlice(trend.NewSmaWithPeriod[float64](smaShort).Compute(helper.SliceToChan(closes)))))
		snap.MA50 = &ma
	}
	if len(closes) >= smaLong {
		ma := decimal.NewFromFloat(lastOf(helper.ChanToSlice(trend.NewSmaWithPeriod[float64](smaLong).Compute(helper.SliceToChan(closes)))))
		snap.MA200 = &ma
	}

	if len(closes) >= minForMACD {
		snap.MACDSignal = macdTrend(closes)
	}

	if len(closes) >= minForBands {
		snap.BandPosition = bandPosition(closes, price)
	}

	snap.OverallSignal = overall(snap, price)

	return snap, nil
}

func macdTrend(closes []float64) domain.TrendSignal {
	macdChan, signalChan := trend.NewMacd[float64]().Compute(helper.SliceToChan(closes))

	done := make(chan []float64, 1)
	go func() { done <- helper.ChanToSlice(signalChan) }()
	macdLine := helper.ChanToSlice(macdChan)
	signalLine := <-done

	if len(macdLine) == 0 || len(signalLine) == 0 {
		return domain.SignalNeutral
	}

	macd := macdLine[len(macdLine)-1]
	signal := signalLine[len(signalLine)-1]
	switch {
	case macd > signal:
		return domain.SignalBullish
	case macd < signal:
		return domain.SignalBearish
	default:
		return domain.SignalNeutral
	}
}

func bandPosition(closes []float64, price decimal.Decimal) domain.BandPosition {
	upperChan, middleChan, lowerChan := volatility.NewBollingerBands[float64]().Compute(helper.SliceToChan(closes))

	upperDone := make(chan []float64, 1)
	middleDone := make(chan []float64, 1)
	go func() { upperDone <- helper.ChanToSlice(upperChan) }()
	go func() { middleDone <- helper.ChanToSlice(middleChan) }()
	lower := helper.ChanToSlice(lowerChan)
	upper := <-upperDone
	<-middleDone

	if len(upper) == 0 || len(lower) == 0 {
		return domain.BandWithin
	}

	p, _ := price.Float64()
	switch {
	case p > upper[len(upper)-1]:
		return domain.BandAboveUpper
	case p < lower[len(lower)-1]:
		return domain.BandBelowLower
	default:
		return domain.BandWithin
	}
}

func overall(snap *domain.TechnicalSnapshot, price decimal.Decimal) domain.TrendSignal {
	var bullish, bearish int

	switch snap.RSISignal {
	case domain.SignalBullish:
		bullish++
	case domain.SignalBearish:
		bearish++
	}

	switch snap.MACDSignal {
	case domain.SignalBullish:
		bullish++
	case domain.SignalBearish:
		bearish++
	}

	switch snap.BandPosition {
	case domain.BandBelowLower:
		bullish++
	case domain.BandAboveUpper:
		bearish++
	}

	if snap.MA200 != nil {
		if price.GreaterThan(*snap.MA200) {
			bullish++
		} else if price.LessThan(*snap.MA200) {
			bearish++
		}
	}

	switch {
	case bullish > bearish:
		return domain.SignalBullish
	case bearish > bullish:
		return domain.SignalBearish
	default:
		return domain.SignalNeutral
	}
}

func lastOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
