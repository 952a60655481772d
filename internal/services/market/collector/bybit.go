package collector

import (
	"context"
	"sort"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/projectchronos/chronos/internal/domain"
)

const bybitCategory = "spot"

// BybitKlineProvider implements KlineProvider for Bybit.
type BybitKlineProvider struct {
	client *bybit.Client
}

// NewBybitKlineProvider creates a new Bybit kline provider.
func NewBybitKlineProvider(client *bybit.Client) *BybitKlineProvider {
	return &BybitKlineProvider{client: client}
}

// DailyKlines fetches daily candles from Bybit. The V5 API returns candles
// newest first, so the result is re-sorted oldest first before returning.
func (p *BybitKlineProvider) DailyKlines(ctx context.Context, pair domain.Pair, start, end time.Time) ([]domain.MarketCandle, error) {
	startMs := dayFloor(start).UnixMilli()
	endMs := dayFloor(end).Add(24*time.Hour - time.Millisecond).UnixMilli()
	limit := 1000

	var result []domain.MarketCandle
	for endMs >= startMs {
		klines, err := p.client.V5().Market().GetKline(bybit.V5GetKlineParam{
			Category: bybitCategory,
			Symbol:   bybit.SymbolV5(pair.Symbol()),
			Interval: bybit.IntervalD,
			Start:    &startMs,
			End:      &endMs,
			Limit:    &limit,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", pair.String())
		}
		if len(klines.Result.List) == 0 {
			break
		}

		oldestMs := endMs
		for _, k := range klines.Result.List {
			candle, err := convertBybitKline(k)
			if err != nil {
				return nil, err
			}
			result = append(result, candle)
			if ms := candle.OpenTime.UnixMilli(); ms < oldestMs {
				oldestMs = ms
			}
		}

		if len(klines.Result.List) < limit {
			break
		}
		endMs = oldestMs - 1
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenTime.Before(result[j].OpenTime)
	})

	return result, nil
}

func convertBybitKline(k bybit.V5GetKlineItem) (domain.MarketCandle, error) {
	openMs, err := strconv.ParseInt(k.StartTime, 10, 64)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrapf(err, "failed to parse kline start time: %s", k.StartTime)
	}
	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrapf(err, "failed to parse open price: %s", k.Open)
	}
	high, err := decimal.NewFromString(k.High)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrapf(err, "failed to parse high price: %s", k.High)
	}
	low, err := decimal.NewFromString(k.Low)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrapf(err, "failed to parse low price: %s", k.Low)
	}
	closePrice, err := decimal.NewFromString(k.Close)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrapf(err, "failed to parse close price: %s", k.Close)
	}
	volume, err := decimal.NewFromString(k.Volume)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrapf(err, "failed to parse volume: %s", k.Volume)
	}

	openTime := time.UnixMilli(openMs)
	return domain.MarketCandle{
		OpenTime:  openTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		CloseTime: openTime.Add(24*time.Hour - time.Millisecond),
	}, nil
}
