// Package debate renders a daily roundtable transcript of the four
// investors reacting to the market. Transcripts are a narrative artifact
// of the simulation: when no LLM is configured, or the LLM fails, a
// canned template keyed on the day's move is used instead.
package debate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/internal/domain"
)

// speaker display metadata, keyed by investor ID
var speakers = map[string]struct {
	Name  string
	Emoji string
}{
	"guardian":   {Name: "Guardian", Emoji: "🛡️"},
	"degen":      {Name: "Degen", Emoji: "🚀"},
	"quant":      {Name: "Quant", Emoji: "📊"},
	"strategist": {Name: "Strategist", Emoji: "🌍"},
}

// Entry one line of the roundtable.
type Entry struct {
	Speaker string
	Name    string
	Emoji   string
	Content string
}

// DailyDebate transcript of one simulated day.
type DailyDebate struct {
	Date          string
	Price         decimal.Decimal
	ChangePct     float64
	MarketSummary string
	Entries       []Entry
}

// Markdown renders the transcript.
func (d *DailyDebate) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 📅 %s Daily Roundtable\n\n", d.Date)
	b.WriteString("## Market overview\n")
	fmt.Fprintf(&b, "- **BTC price**: $%s\n", d.Price.StringFixed(2))
	fmt.Fprintf(&b, "- **Daily change**: %+.2f%%\n", d.ChangePct)
	fmt.Fprintf(&b, "- **Summary**: %s\n\n", d.MarketSummary)
	b.WriteString("---\n\n## Transcript\n\n")

	for _, e := range d.Entries {
		fmt.Fprintf(&b, "**%s %s**: %s\n\n", e.Emoji, e.Name, e.Content)
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "*generated at %s*\n", time.Now().Format(time.RFC3339))

	return b.String()
}

// Save writes the transcript as <date>.md under outputDir.
func (d *DailyDebate) Save(outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create debates dir")
	}

	path := filepath.Join(outputDir, d.Date+".md")
	if err := os.WriteFile(path, []byte(d.Markdown()), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write debate transcript")
	}
	return path, nil
}

// ChatClient is the LLM surface the generator may use for live transcripts.
type ChatClient interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Generator produces daily transcripts.
type Generator struct {
	client ChatClient
	logger *zap.Logger
}

// NewGenerator creates a generator. A nil client limits it to templates.
func NewGenerator(logger *zap.Logger, client ChatClient) *Generator {
	return &Generator{client: client, logger: logger}
}

// Generate builds the day's transcript. Decisions feed the prompt so the
// roundtable reflects what each investor actually did.
func (g *Generator) Generate(ctx context.Context, date string, price decimal.Decimal, changePct float64, decisions []domain.DecisionResult) *DailyDebate {
	if g.client != nil {
		debate, err := g.generateWithLLM(ctx, date, price, changePct, decisions)
		if err == nil {
			return debate
		}
		g.logger.Warn("LLM debate generation failed, using template",
			zap.String("date", date), zap.Error(err))
	}

	return fallbackDebate(date, price, changePct)
}

const debateSystemPrompt = `You are the scriptwriter of a daily investor roundtable about Bitcoin.
Four investors discuss the day: guardian (cautious), degen (aggressive), quant (data driven), strategist (macro focused).
Write 4-8 short lines of dialogue. Each line must have the form "id: text" where id is one of guardian, degen, quant, strategist.
Keep each line under 40 words. No other output.`

func (g *Generator) generateWithLLM(ctx context.Context, date string, price decimal.Decimal, changePct float64, decisions []domain.DecisionResult) (*DailyDebate, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Date: %s\nBTC price: $%s\nDaily change: %+.2f%%\n\nToday's decisions:\n",
		date, price.StringFixed(2), changePct)
	for _, res := range decisions {
		fmt.Fprintf(&prompt, "- %s: %s %.0f%% (%s)\n",
			res.Investor.ID, res.Decision.Action, res.Decision.AmountPct, res.Decision.Reason)
	}

	raw, err := g.client.Chat(ctx, debateSystemPrompt, prompt.String())
	if err != nil {
		return nil, err
	}

	entries := parseEntries(raw)
	if len(entries) == 0 {
		return nil, errors.New("no usable dialogue lines in LLM response")
	}

	return &DailyDebate{
		Date:          date,
		Price:         price,
		ChangePct:     changePct,
		MarketSummary: summaryFor(changePct),
		Entries:       entries,
	}, nil
}

func parseEntries(raw string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(raw, "\n") {
		id, content, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		id = strings.ToLower(strings.TrimSpace(strings.Trim(id, "*-• ")))
		content = strings.TrimSpace(content)

		meta, known := speakers[id]
		if !known || content == "" {
			continue
		}
		entries = append(entries, Entry{Speaker: id, Name: meta.Name, Emoji: meta.Emoji, Content: content})
	}
	return entries
}

func summaryFor(changePct float64) string {
	switch {
	case changePct > 5:
		return "BTC rallies hard, sentiment is euphoric"
	case changePct < -5:
		return "BTC drops sharply, fear dominates"
	default:
		return "BTC consolidates, market awaits direction"
	}
}

func fallbackDebate(date string, price decimal.Decimal, changePct float64) *DailyDebate {
	line := func(id, content string) Entry {
		meta := speakers[id]
		return Entry{Speaker: id, Name: meta.Name, Emoji: meta.Emoji, Content: content}
	}

	var entries []Entry
	switch {
	case changePct > 5:
		entries = []Entry{
			line("degen", "See?! Up again! Told you to go all-in!"),
			line("guardian", "The higher it goes, the more careful we should be."),
			line("quant", "RSI is overbought, the system says wait."),
			line("strategist", "Short-term noise. The long trend is what matters."),
		}
	case changePct < -5:
		entries = []Entry{
			line("guardian", "Good thing I stayed conservative. Look at this."),
			line("degen", "It's just a pullback, perfect spot to add!"),
			line("quant", "Support broken, waiting for a confirmed bottom."),
			line("strategist", "Fundamentals unchanged, panic is opportunity."),
		}
	default:
		entries = []Entry{
			line("quant", "Ranging. Waiting for a breakout direction."),
			line("degen", "Boring. When do we get some action..."),
			line("guardian", "Stability is good news, be patient."),
			line("strategist", "Watching the upcoming macro releases."),
		}
	}

	return &DailyDebate{
		Date:          date,
		Price:         price,
		ChangePct:     changePct,
		MarketSummary: summaryFor(changePct),
		Entries:       entries,
	}
}
