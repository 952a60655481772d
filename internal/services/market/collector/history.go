package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/internal/domain"
	"github.com/projectchronos/chronos/pkg/retrier"
)

// warmupDays of extra candles loaded before the requested window so the
// 200-day moving average has data from the first simulated day.
const warmupDays = 250

// HistoryService loads the full candle history of a run up front and
// serves per-day lookups from memory. Fetched data is cached as JSON on
// disk keyed by pair and window, so reruns do not hit the exchange.
type HistoryService struct {
	provider KlineProvider
	pair     domain.Pair
	dataDir  string
	retry    *retrier.Retrier
	logger   *zap.Logger

	byDate  map[string]domain.MarketCandle
	ordered []domain.MarketCandle
}

// NewHistoryService creates a history service backed by the given provider.
func NewHistoryService(logger *zap.Logger, provider KlineProvider, pair domain.Pair, dataDir string) *HistoryService {
	return &HistoryService{
		provider: provider,
		pair:     pair,
		dataDir:  dataDir,
		retry:    retrier.New(retrier.WithMaxRetries(3)),
		logger:   logger,
		byDate:   make(map[string]domain.MarketCandle),
	}
}

// Load fills the in-memory candle index for [start, end] plus the warmup
// window preceding it.
func (h *HistoryService) Load(ctx context.Context, start, end time.Time) error {
	loadFrom := dayFloor(start).AddDate(0, 0, -warmupDays)
	loadTo := dayFloor(end)

	candles, err := h.loadCached(loadFrom, loadTo)
	if err != nil {
		h.logger.Debug("kline cache miss", zap.Error(err))

		candles, err = retrier.DoWithData(h.retry, ctx, func(ctx context.Context) ([]domain.MarketCandle, error) {
			return h.provider.DailyKlines(ctx, h.pair, loadFrom, loadTo)
		})
		if err != nil {
			return errors.Wrapf(err, "failed to load candle history for %s", h.pair.String())
		}

		if err := h.saveCache(loadFrom, loadTo, candles); err != nil {
			h.logger.Warn("failed to write kline cache", zap.Error(err))
		}
	}

	if len(candles) == 0 {
		return errors.Errorf("no candle history for %s", h.pair.String())
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})

	h.ordered = candles
	h.byDate = make(map[string]domain.MarketCandle, len(candles))
	for _, c := range candles {
		h.byDate[c.DateKey()] = c
	}

	h.logger.Info("candle history loaded",
		zap.String("pair", h.pair.String()),
		zap.Int("candles", len(candles)),
		zap.String("from", candles[0].DateKey()),
		zap.String("to", candles[len(candles)-1].DateKey()))

	return nil
}

// CandleOn returns the candle for a calendar day, if any.
func (h *HistoryService) CandleOn(date time.Time) (domain.MarketCandle, bool) {
	c, ok := h.byDate[dayFloor(date).Format("2006-01-02")]
	return c, ok
}

// Window returns up to n candles ending on the given day, oldest first.
// Used to feed indicator calculations with their lookback period.
func (h *HistoryService) Window(date time.Time, n int) []domain.MarketCandle {
	cutoff := dayFloor(date).Add(24 * time.Hour)

	// find the first candle past the cutoff
	idx := sort.Search(len(h.ordered), func(i int) bool {
		return !h.ordered[i].OpenTime.Before(cutoff)
	})

	lo := idx - n
	if lo < 0 {
		lo = 0
	}
	return h.ordered[lo:idx]
}

func (h *HistoryService) cachePath(from, to time.Time) string {
	name := fmt.Sprintf("klines_%s_%s_%s.json",
		h.pair.String(), from.Format("2006-01-02"), to.Format("2006-01-02"))
	return filepath.Join(h.dataDir, name)
}

func (h *HistoryService) loadCached(from, to time.Time) ([]domain.MarketCandle, error) {
	data, err := os.ReadFile(h.cachePath(from, to))
	if err != nil {
		return nil, err
	}

	var candles []domain.MarketCandle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, errors.Wrap(err, "corrupt kline cache")
	}
	return candles, nil
}

func (h *HistoryService) saveCache(from, to time.Time, candles []domain.MarketCandle) error {
	if err := os.MkdirAll(h.dataDir, 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(candles)
	if err != nil {
		return err
	}
	return os.WriteFile(h.cachePath(from, to), data, 0o644)
}
