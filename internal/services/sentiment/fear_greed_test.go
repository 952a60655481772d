package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/internal/domain"
	"github.com/projectchronos/chronos/pkg/retrier"
)

func newFastRetry() *retrier.Retrier {
	return retrier.New(retrier.WithMaxRetries(0))
}

func TestLoadFromAPI(t *testing.T) {
	// 2024-01-15 and 2024-01-16 midnight UTC
	payload := `{"data":[
		{"value":"25","value_classification":"Extreme Fear","timestamp":"1705276800"},
		{"value":"72","value_classification":"Greed","timestamp":"1705363200"},
		{"value":"garbage","value_classification":"broken","timestamp":"1705449600"}
	]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	svc := NewFearGreedService(zap.NewNop(), t.TempDir())
	svc.url = server.URL
	require.NoError(t, svc.Load(context.Background()))

	reading, ok := svc.On(time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 25, reading.Value)
	assert.Equal(t, "Extreme Fear", reading.Classification)

	reading, ok = svc.On(time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 72, reading.Value)

	// the malformed row is dropped, not fatal
	_, ok = svc.On(time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)

	_, ok = svc.On(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestLoadPrefersCache(t *testing.T) {
	dir := t.TempDir()
	cached := []domain.FearGreedReading{
		{Date: "2024-02-01", Value: 40, Classification: "Fear"},
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, cacheFileName), data, 0o644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("API must not be hit when the cache is present")
	}))
	defer server.Close()

	svc := NewFearGreedService(zap.NewNop(), dir)
	svc.url = server.URL
	require.NoError(t, svc.Load(context.Background()))

	reading, ok := svc.On(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 40, reading.Value)
}

func TestLoadFailsWithoutDataOrCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewFearGreedService(zap.NewNop(), t.TempDir())
	svc.url = server.URL
	svc.retry = newFastRetry()

	require.Error(t, svc.Load(context.Background()))
}
