package debate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chatFunc func(ctx context.Context, system, user string) (string, error)

func (f chatFunc) Chat(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

func TestTemplateFallbackWithoutClient(t *testing.T) {
	gen := NewGenerator(zap.NewNop(), nil)

	tests := []struct {
		name      string
		changePct float64
		first     string
	}{
		{name: "pump day", changePct: 7.5, first: "degen"},
		{name: "dump day", changePct: -6.0, first: "guardian"},
		{name: "quiet day", changePct: 0.3, first: "quant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gen.Generate(context.Background(), "2024-01-15", decimal.NewFromInt(42000), tt.changePct, nil)
			require.NotEmpty(t, d.Entries)
			assert.Equal(t, tt.first, d.Entries[0].Speaker)
			assert.NotEmpty(t, d.MarketSummary)
		})
	}
}

func TestLLMTranscriptParsed(t *testing.T) {
	client := chatFunc(func(context.Context, string, string) (string, error) {
		return "guardian: I stay careful today.\nnot-a-speaker: ignored\ndegen: LFG, buying more!\n\nquant: RSI says neutral.", nil
	})
	gen := NewGenerator(zap.NewNop(), client)

	d := gen.Generate(context.Background(), "2024-01-15", decimal.NewFromInt(42000), 1.0, nil)
	require.Len(t, d.Entries, 3)
	assert.Equal(t, "guardian", d.Entries[0].Speaker)
	assert.Equal(t, "degen", d.Entries[1].Speaker)
	assert.Equal(t, "quant", d.Entries[2].Speaker)
}

func TestLLMFailureFallsBackToTemplate(t *testing.T) {
	client := chatFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("model unavailable")
	})
	gen := NewGenerator(zap.NewNop(), client)

	d := gen.Generate(context.Background(), "2024-01-15", decimal.NewFromInt(42000), 0.1, nil)
	require.NotEmpty(t, d.Entries)
	assert.Equal(t, "quant", d.Entries[0].Speaker)
}

func TestSaveWritesMarkdown(t *testing.T) {
	gen := NewGenerator(zap.NewNop(), nil)
	d := gen.Generate(context.Background(), "2024-01-15", decimal.NewFromInt(42000), 2.0, nil)

	dir := t.TempDir()
	path, err := d.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-01-15.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "2024-01-15 Daily Roundtable")
	assert.Contains(t, string(content), "BTC price")
}
