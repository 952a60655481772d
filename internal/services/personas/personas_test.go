package personas

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectchronos/chronos/internal/domain"
)

func baseContext() domain.MarketContext {
	return domain.MarketContext{
		Date:      "2024-01-15",
		Price:     decimal.NewFromInt(42000),
		ChangePct: 0.5,
		Portfolio: domain.PortfolioState{
			TotalValue:  decimal.NewFromInt(10000),
			USDBalance:  decimal.NewFromInt(5000),
			BTCQuantity: decimal.NewFromFloat(0.119),
			ReturnPct:   0,
		},
	}
}

func withFearGreed(ctx domain.MarketContext, value int) domain.MarketContext {
	ctx.FearGreed = &domain.FearGreedReading{Date: ctx.Date, Value: value, Classification: "test"}
	return ctx
}

func withNews(ctx domain.MarketContext, titles ...string) domain.MarketContext {
	for _, title := range titles {
		ctx.NewsItems = append(ctx.NewsItems, domain.NewsHeadline{Title: title})
	}
	return ctx
}

func floatPtr(f float64) *float64 { return &f }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestRegistryHasFourPersonas(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{"guardian", "degen", "quant", "strategist"}, reg.IDs())

	for _, id := range reg.IDs() {
		p, ok := reg.Get(id)
		require.True(t, ok)
		assert.Equal(t, id, p.Profile().ID)
		assert.NotEmpty(t, p.Profile().Name)
		assert.Contains(t, p.SystemPrompt("2024-01-15"), "2024-01-15")
	}
}

func TestGuardianRules(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(domain.MarketContext) domain.MarketContext
		wantAction domain.TradeAction
		wantPct    float64
	}{
		{
			name: "extreme fear below MA200 buys",
			mutate: func(ctx domain.MarketContext) domain.MarketContext {
				ctx = withFearGreed(ctx, 15)
				ctx.Technical = &domain.TechnicalSnapshot{MA200: decPtr(50000)}
				return ctx
			},
			wantAction: domain.ActionBuy,
			wantPct:    25,
		},
		{
			name: "mild fear below MA200 buys small",
			mutate: func(ctx domain.MarketContext) domain.MarketContext {
				ctx = withFearGreed(ctx, 22)
				ctx.Technical = &domain.TechnicalSnapshot{MA200: decPtr(50000)}
				return ctx
			},
			wantAction: domain.ActionBuy,
			wantPct:    15,
		},
		{
			name: "extreme fear above MA200 holds",
			mutate: func(ctx domain.MarketContext) domain.MarketContext {
				ctx = withFearGreed(ctx, 15)
				ctx.Technical = &domain.TechnicalSnapshot{MA200: decPtr(30000)}
				return ctx
			},
			wantAction: domain.ActionHold,
		},
		{
			name: "extreme greed takes profit",
			mutate: func(ctx domain.MarketContext) domain.MarketContext {
				return withFearGreed(ctx, 85)
			},
			wantAction: domain.ActionSell,
			wantPct:    30,
		},
		{
			name: "deep drawdown triggers stop loss",
			mutate: func(ctx domain.MarketContext) domain.MarketContext {
				ctx = withFearGreed(ctx, 50)
				ctx.Portfolio.ReturnPct = -20
				return ctx
			},
			wantAction: domain.ActionSell,
			wantPct:    50,
		},
		{
			name:       "neutral market holds",
			mutate:     func(ctx domain.MarketContext) domain.MarketContext { return withFearGreed(ctx, 50) },
			wantAction: domain.ActionHold,
		},
		{
			name: "missing fear greed defaults to neutral",
			mutate: func(ctx domain.MarketContext) domain.MarketContext {
				ctx.Technical = &domain.TechnicalSnapshot{MA200: decPtr(50000)}
				return ctx
			},
			wantAction: domain.ActionHold,
		},
	}

	g := &Guardian{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := g.RuleDecision(tt.mutate(baseContext()))
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, dec.Action)
			if tt.wantPct > 0 {
				assert.Equal(t, tt.wantPct, dec.AmountPct)
			}
			require.NoError(t, dec.Validate())
		})
	}
}

func TestDegenRules(t *testing.T) {
	d := &Degen{}

	t.Run("bullish headline triggers big buy", func(t *testing.T) {
		ctx := withNews(baseContext(), "Bitcoin ETF approval sparks institutional interest")
		dec, err := d.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBuy, dec.Action)
		assert.Equal(t, 40.0, dec.AmountPct)
	})

	t.Run("big pump gets chased", func(t *testing.T) {
		ctx := baseContext()
		ctx.ChangePct = 6.2
		dec, err := d.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBuy, dec.Action)
		assert.Equal(t, 35.0, dec.AmountPct)
	})

	t.Run("big dip gets bought", func(t *testing.T) {
		ctx := baseContext()
		ctx.ChangePct = -7.5
		dec, err := d.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBuy, dec.Action)
		assert.Equal(t, 40.0, dec.AmountPct)
	})

	t.Run("greedy market joins FOMO", func(t *testing.T) {
		ctx := withFearGreed(baseContext(), 75)
		dec, err := d.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBuy, dec.Action)
	})

	t.Run("idle cash gets deployed", func(t *testing.T) {
		ctx := baseContext()
		ctx.Portfolio.USDBalance = decimal.NewFromInt(9000)
		dec, err := d.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBuy, dec.Action)
		assert.Equal(t, 20.0, dec.AmountPct)
	})

	t.Run("no cash means no chase", func(t *testing.T) {
		ctx := baseContext()
		ctx.ChangePct = 8
		ctx.Portfolio.USDBalance = decimal.NewFromInt(10)
		dec, err := d.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionHold, dec.Action)
	})
}

func TestQuantRules(t *testing.T) {
	q := &Quant{}

	t.Run("three aligned buy signals size up", func(t *testing.T) {
		ctx := baseContext()
		ctx.Technical = &domain.TechnicalSnapshot{
			RSI14:        floatPtr(25),
			MACDSignal:   domain.SignalBullish,
			BandPosition: domain.BandBelowLower,
		}
		dec, err := q.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBuy, dec.Action)
		assert.Equal(t, 40.0, dec.AmountPct)
		assert.Contains(t, dec.Reason, "RSI=25.0<30")
	})

	t.Run("single sell signal sells small", func(t *testing.T) {
		ctx := baseContext()
		ctx.Technical = &domain.TechnicalSnapshot{RSI14: floatPtr(78)}
		dec, err := q.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionSell, dec.Action)
		assert.Equal(t, 15.0, dec.AmountPct)
	})

	t.Run("two sell signals size up", func(t *testing.T) {
		ctx := baseContext()
		ctx.Technical = &domain.TechnicalSnapshot{
			RSI14:        floatPtr(78),
			MACDSignal:   domain.SignalBearish,
			BandPosition: domain.BandWithin,
		}
		dec, err := q.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionSell, dec.Action)
		assert.Equal(t, 25.0, dec.AmountPct)
	})

	t.Run("no indicators holds", func(t *testing.T) {
		dec, err := q.RuleDecision(baseContext())
		require.NoError(t, err)
		assert.Equal(t, domain.ActionHold, dec.Action)
	})

	t.Run("buy signal without cash holds", func(t *testing.T) {
		ctx := baseContext()
		ctx.Portfolio.USDBalance = decimal.NewFromInt(5)
		ctx.Technical = &domain.TechnicalSnapshot{RSI14: floatPtr(25)}
		dec, err := q.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionHold, dec.Action)
	})
}

func TestStrategistRules(t *testing.T) {
	s := &Strategist{}

	t.Run("two bullish macro headlines buy", func(t *testing.T) {
		ctx := withNews(baseContext(),
			"BlackRock files spot Bitcoin ETF",
			"Institutional adoption accelerates")
		dec, err := s.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBuy, dec.Action)
		assert.Equal(t, 25.0, dec.AmountPct)
	})

	t.Run("one bullish headline in uptrend buys", func(t *testing.T) {
		ctx := withNews(baseContext(), "Fed signals rate pause ahead")
		ctx.Technical = &domain.TechnicalSnapshot{MA200: decPtr(38000)}
		dec, err := s.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBuy, dec.Action)
		assert.Equal(t, 20.0, dec.AmountPct)
	})

	t.Run("bearish macro headlines sell", func(t *testing.T) {
		ctx := withNews(baseContext(),
			"SEC lawsuit targets major exchange",
			"Exchange hack drains funds")
		dec, err := s.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionSell, dec.Action)
		assert.Equal(t, 30.0, dec.AmountPct)
	})

	t.Run("extreme fear contrarian buy", func(t *testing.T) {
		ctx := withFearGreed(baseContext(), 12)
		dec, err := s.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBuy, dec.Action)
		assert.Equal(t, 15.0, dec.AmountPct)
	})

	t.Run("extreme greed contrarian trim", func(t *testing.T) {
		ctx := withFearGreed(baseContext(), 90)
		dec, err := s.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionSell, dec.Action)
	})

	t.Run("quiet news flow holds", func(t *testing.T) {
		ctx := withNews(baseContext(), "Bitcoin trades sideways on low volume")
		dec, err := s.RuleDecision(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionHold, dec.Action)
	})
}

func TestBuildDecisionPromptSubscriptions(t *testing.T) {
	ctx := baseContext()
	ctx.Technical = &domain.TechnicalSnapshot{RSI14: floatPtr(45), MA50: decPtr(41000)}
	ctx = withFearGreed(ctx, 30)
	ctx = withNews(ctx, "Bitcoin steady as markets await CPI")

	t.Run("includes subscribed sections", func(t *testing.T) {
		profile := Profile{UseNews: true, UseTechnical: true, UseFearGreed: true}
		prompt := BuildDecisionPrompt(profile, ctx)
		assert.Contains(t, prompt, "RSI(14): 45.0")
		assert.Contains(t, prompt, "Fear & Greed Index: 30")
		assert.Contains(t, prompt, "CPI")
		assert.Contains(t, prompt, "amount_pct")
	})

	t.Run("excludes unsubscribed sections", func(t *testing.T) {
		profile := Profile{}
		prompt := BuildDecisionPrompt(profile, ctx)
		assert.NotContains(t, prompt, "RSI")
		assert.NotContains(t, prompt, "Fear & Greed")
		assert.NotContains(t, prompt, "CPI")
		assert.Contains(t, prompt, "Total value")
	})

	t.Run("caps news at five items", func(t *testing.T) {
		many := withNews(baseContext(), "a1", "a2", "a3", "a4", "a5", "a6", "a7")
		prompt := BuildDecisionPrompt(Profile{UseNews: true}, many)
		assert.Equal(t, 5, strings.Count(prompt, "- a"))
	})
}

type stubChat struct {
	system string
	user   string
	reply  string
}

func (s *stubChat) Chat(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.system = systemPrompt
	s.user = userPrompt
	return s.reply, nil
}

func TestRegistryOracleUsesPersonaPrompts(t *testing.T) {
	reg := NewRegistry()
	chat := &stubChat{reply: `{"action":"HOLD","amount_pct":0,"reason":"x","confidence":50}`}
	oracle := reg.Oracle(chat)

	req := domain.DecisionRequest{
		Investor: reg.Investor("degen"),
		Context:  withNews(baseContext(), "Bitcoin rally continues"),
	}
	req.Context.Date = "2024-03-01"

	raw, err := oracle.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, chat.reply, raw)
	assert.Contains(t, chat.system, "Degen")
	assert.Contains(t, chat.system, "2024-03-01")
	assert.Contains(t, chat.user, "Bitcoin rally continues")

	_, err = oracle.Decide(context.Background(), domain.DecisionRequest{
		Investor: domain.Investor{ID: "nobody"},
	})
	require.Error(t, err)
}

func TestRegistryRulesDispatch(t *testing.T) {
	rules := NewRegistry().RulePolicy()

	dec, err := rules.Decide(domain.DecisionRequest{
		Investor: domain.Investor{ID: "guardian"},
		Context:  withFearGreed(baseContext(), 50),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, dec.Action)

	_, err = rules.Decide(domain.DecisionRequest{Investor: domain.Investor{ID: "ghost"}})
	require.Error(t, err)
}
