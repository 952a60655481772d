// Package news serves pre-collected news headlines to the simulation.
// Headlines live in monthly JSON files under the data directory, one file
// per calendar month, mapping dates to headline lists. The simulation
// never fetches news live: a missing month simply means no news that day.
package news

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/internal/domain"
)

// Cache lazily loads monthly headline files and serves per-day lookups.
type Cache struct {
	dir    string
	logger *zap.Logger

	months map[string]map[string][]domain.NewsHeadline
}

// NewCache creates a headline cache reading from dir.
func NewCache(logger *zap.Logger, dir string) *Cache {
	return &Cache{
		dir:    dir,
		logger: logger,
		months: make(map[string]map[string][]domain.NewsHeadline),
	}
}

// On returns the headlines for a calendar day. Days without coverage
// return an empty slice.
func (c *Cache) On(date time.Time) []domain.NewsHeadline {
	day := date.UTC().Format("2006-01-02")
	month := day[:7]

	byDay, ok := c.months[month]
	if !ok {
		byDay = c.loadMonth(month)
		c.months[month] = byDay
	}

	return byDay[day]
}

// Put stores headlines for a day and persists the month file. Used by
// tooling that pre-collects news for a backtest period.
func (c *Cache) Put(date time.Time, items []domain.NewsHeadline) error {
	day := date.UTC().Format("2006-01-02")
	month := day[:7]

	byDay, ok := c.months[month]
	if !ok {
		byDay = c.loadMonth(month)
	}
	byDay[day] = items
	c.months[month] = byDay

	return c.saveMonth(month, byDay)
}

func (c *Cache) monthPath(month string) string {
	return filepath.Join(c.dir, "news", month+".json")
}

func (c *Cache) loadMonth(month string) map[string][]domain.NewsHeadline {
	data, err := os.ReadFile(c.monthPath(month))
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("failed to read news cache", zap.String("month", month), zap.Error(err))
		}
		return make(map[string][]domain.NewsHeadline)
	}

	var byDay map[string][]domain.NewsHeadline
	if err := json.Unmarshal(data, &byDay); err != nil {
		c.logger.Warn("corrupt news cache, ignoring month",
			zap.String("month", month), zap.Error(err))
		return make(map[string][]domain.NewsHeadline)
	}

	return byDay
}

func (c *Cache) saveMonth(month string, byDay map[string][]domain.NewsHeadline) error {
	if err := os.MkdirAll(filepath.Dir(c.monthPath(month)), 0o755); err != nil {
		return errors.Wrap(err, "failed to create news cache dir")
	}

	data, err := json.MarshalIndent(byDay, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal news cache")
	}

	return os.WriteFile(c.monthPath(month), data, 0o644)
}
