package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/projectchronos/chronos/internal/domain"
)

const binancePageLimit = 1000

// BinanceKlineProvider implements KlineProvider for Binance.
type BinanceKlineProvider struct {
	client *binance.Client
}

// NewBinanceKlineProvider creates a new Binance kline provider.
func NewBinanceKlineProvider(client *binance.Client) *BinanceKlineProvider {
	return &BinanceKlineProvider{client: client}
}

// DailyKlines fetches daily candles from Binance, paginating past the
// per-request limit for long backtest windows.
func (p *BinanceKlineProvider) DailyKlines(ctx context.Context, pair domain.Pair, start, end time.Time) ([]domain.MarketCandle, error) {
	startMs := dayFloor(start).UnixMilli()
	endMs := dayFloor(end).Add(24*time.Hour - time.Millisecond).UnixMilli()

	var result []domain.MarketCandle
	for startMs <= endMs {
		klines, err := p.client.NewKlinesService().
			Symbol(pair.Symbol()).
			Interval(dailyInterval).
			StartTime(startMs).
			EndTime(endMs).
			Limit(binancePageLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", pair.String())
		}
		if len(klines) == 0 {
			break
		}

		for i, k := range klines {
			candle, err := convertBinanceKline(k)
			if err != nil {
				return nil, errors.Wrapf(err, "bad kline at index %d", i)
			}
			result = append(result, candle)
		}

		last := klines[len(klines)-1]
		startMs = last.CloseTime + 1
		if len(klines) < binancePageLimit {
			break
		}
	}

	return result, nil
}

func convertBinanceKline(k *binance.Kline) (domain.MarketCandle, error) {
	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse open price")
	}
	high, err := decimal.NewFromString(k.High)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse high price")
	}
	low, err := decimal.NewFromString(k.Low)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse low price")
	}
	closePrice, err := decimal.NewFromString(k.Close)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse close price")
	}
	volume, err := decimal.NewFromString(k.Volume)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse volume")
	}

	return domain.MarketCandle{
		OpenTime:  time.UnixMilli(k.OpenTime),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		CloseTime: time.UnixMilli(k.CloseTime),
	}, nil
}
