// Package sentiment serves the crypto Fear & Greed index for simulated
// days. The full index history is fetched from alternative.me once and
// cached on disk, afterwards lookups are purely local.
package sentiment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/internal/domain"
	"github.com/projectchronos/chronos/pkg/retrier"
)

const (
	// limit=0 returns the full history of the index
	fearGreedURL  = "https://api.alternative.me/fng/?limit=0&format=json"
	cacheFileName = "fear_greed.json"
	fetchTimeout  = 30 * time.Second
)

// FearGreedService caches and serves daily Fear & Greed readings.
type FearGreedService struct {
	httpClient *http.Client
	url        string
	dataDir    string
	retry      *retrier.Retrier
	logger     *zap.Logger

	byDate map[string]domain.FearGreedReading
}

// NewFearGreedService creates the service with its cache under dataDir.
func NewFearGreedService(logger *zap.Logger, dataDir string) *FearGreedService {
	return &FearGreedService{
		httpClient: &http.Client{Timeout: fetchTimeout},
		url:        fearGreedURL,
		dataDir:    dataDir,
		retry:      retrier.New(retrier.WithMaxRetries(3)),
		logger:     logger,
		byDate:     make(map[string]domain.FearGreedReading),
	}
}

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
}

// Load fills the in-memory index from the disk cache or the API.
func (s *FearGreedService) Load(ctx context.Context) error {
	readings, err := s.loadCached()
	if err != nil {
		s.logger.Debug("fear greed cache miss", zap.Error(err))

		readings, err = retrier.DoWithData(s.retry, ctx, s.fetch)
		if err != nil {
			return errors.Wrap(err, "failed to load fear and greed index")
		}

		if err := s.saveCache(readings); err != nil {
			s.logger.Warn("failed to write fear greed cache", zap.Error(err))
		}
	}

	s.byDate = make(map[string]domain.FearGreedReading, len(readings))
	for _, r := range readings {
		s.byDate[r.Date] = r
	}

	s.logger.Info("fear and greed index loaded", zap.Int("days", len(readings)))
	return nil
}

// On returns the reading for a calendar day, if the index covers it.
func (s *FearGreedService) On(date time.Time) (*domain.FearGreedReading, bool) {
	r, ok := s.byDate[date.UTC().Format("2006-01-02")]
	if !ok {
		return nil, false
	}
	return &r, true
}

func (s *FearGreedService) fetch(ctx context.Context) ([]domain.FearGreedReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fear and greed request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fear and greed API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	var parsed fngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal fear and greed response")
	}

	readings := make([]domain.FearGreedReading, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		value, err := strconv.Atoi(d.Value)
		if err != nil {
			continue
		}
		ts, err := strconv.ParseInt(d.Timestamp, 10, 64)
		if err != nil {
			continue
		}

		readings = append(readings, domain.FearGreedReading{
			Date:           time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Value:          value,
			Classification: d.Classification,
		})
	}

	if len(readings) == 0 {
		return nil, errors.New("fear and greed API returned no usable data")
	}

	return readings, nil
}

func (s *FearGreedService) cachePath() string {
	return filepath.Join(s.dataDir, cacheFileName)
}

func (s *FearGreedService) loadCached() ([]domain.FearGreedReading, error) {
	data, err := os.ReadFile(s.cachePath())
	if err != nil {
		return nil, err
	}

	var readings []domain.FearGreedReading
	if err := json.Unmarshal(data, &readings); err != nil {
		return nil, errors.Wrap(err, "corrupt fear greed cache")
	}
	if len(readings) == 0 {
		return nil, errors.New("empty fear greed cache")
	}
	return readings, nil
}

func (s *FearGreedService) saveCache(readings []domain.FearGreedReading) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(readings)
	if err != nil {
		return err
	}
	return os.WriteFile(s.cachePath(), data, 0o644)
}
