// Package collector fetches historical daily candles from exchanges and
// caches them on disk so repeated runs over the same period stay offline.
package collector

import (
	"context"
	"time"

	"github.com/projectchronos/chronos/internal/domain"
)

const dailyInterval = "1d"

// KlineProvider fetches historical daily candles for a trading pair.
type KlineProvider interface {
	// DailyKlines returns daily candles covering [start, end], oldest first.
	DailyKlines(ctx context.Context, pair domain.Pair, start, end time.Time) ([]domain.MarketCandle, error)
}

func dayFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
