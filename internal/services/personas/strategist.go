package personas

import (
	"fmt"
	"strings"

	"github.com/projectchronos/chronos/internal/domain"
)

// Strategist is the macro investor: trades the big picture from headlines
// and the long-term trend, contrarian only at sentiment extremes.
type Strategist struct{}

var strategistBullishKeywords = []string{
	"etf", "approval", "approved", "institutional", "adoption",
	"blackrock", "fidelity", "legal", "positive",
	"rate cut", "rate pause", "dovish",
}

var strategistBearishKeywords = []string{
	"ban", "crackdown", "sec", "lawsuit", "fraud", "hack",
	"bankruptcy", "collapse", "rate hike", "hawkish",
	"investigation", "criminal",
}

func (s *Strategist) Profile() Profile {
	return Profile{
		ID:             "strategist",
		Name:           "Strategist",
		Style:          "macro narrative driven, patient",
		Philosophy:     "Price follows the macro story. Read policy and institutional flows, then position ahead of the crowd.",
		RiskTolerance:  "medium",
		UseNews:        true,
		UseTechnical:   true,
		UseFearGreed:   true,
		MaxPositionPct: 70,
		MinTradePct:    10,
	}
}

func (s *Strategist) SystemPrompt(date string) string {
	return fmt.Sprintf(`You are a macro strategist investing in Bitcoin, codename "Strategist".

`+timeAnchorPrompt+`

## Your philosophy
1. Narrative first: regulation, ETFs and institutional flows move the market
2. The long trend matters: MA200 separates bull regimes from bear regimes
3. Be greedy when others are fearful, careful when others are euphoric
4. Medium positions, 10-30%% per move, never all in

## Decision rules
- Multiple bullish macro headlines (ETF approvals, institutional adoption): buy 20-30%%
- One bullish headline in an uptrend (price above MA200): buy 15-20%%
- Multiple bearish macro headlines (bans, lawsuits, hawkish policy): sell 20-30%%
- Fear & Greed < 20: contrarian small buy
- Fear & Greed > 85: contrarian small sell
- Otherwise: HOLD and watch the narrative

Reply with the JSON decision only.`, date)
}

func (s *Strategist) RuleDecision(ctx domain.MarketContext) (*domain.TradeDecision, error) {
	var headlines strings.Builder
	for _, item := range ctx.NewsItems {
		headlines.WriteString(strings.ToLower(item.Title))
		headlines.WriteString(" ")
	}
	text := headlines.String()

	bullish := countKeywords(text, strategistBullishKeywords)
	bearish := countKeywords(text, strategistBearishKeywords)

	fg := fearGreedValue(ctx, 50)
	aboveMA200 := priceAbove(ctx, ma200(ctx))
	belowMA200 := priceBelow(ctx, ma200(ctx))
	cash := hasUSD(ctx)
	holding := hasBTC(ctx)

	switch {
	case bullish >= 2 && cash:
		return &domain.TradeDecision{
			Action: domain.ActionBuy, AmountPct: 25,
			Reason:     fmt.Sprintf("%d bullish macro signals in the news flow", bullish),
			Confidence: 75,
		}, nil
	case bullish >= 1 && aboveMA200 && cash:
		return &domain.TradeDecision{
			Action: domain.ActionBuy, AmountPct: 20,
			Reason:     "bullish narrative with price above MA200, trend confirms",
			Confidence: 70,
		}, nil
	case bearish >= 2 && holding:
		return &domain.TradeDecision{
			Action: domain.ActionSell, AmountPct: 30,
			Reason:     fmt.Sprintf("%d bearish macro signals, reducing exposure", bearish),
			Confidence: 75,
		}, nil
	case bearish >= 1 && belowMA200 && holding:
		return &domain.TradeDecision{
			Action: domain.ActionSell, AmountPct: 20,
			Reason:     "bearish narrative in a downtrend, cutting risk",
			Confidence: 70,
		}, nil
	case fg < 20 && cash:
		return &domain.TradeDecision{
			Action: domain.ActionBuy, AmountPct: 15,
			Reason:     fmt.Sprintf("extreme fear (FG=%d), contrarian accumulation", fg),
			Confidence: 65,
		}, nil
	case fg > 85 && holding:
		return &domain.TradeDecision{
			Action: domain.ActionSell, AmountPct: 15,
			Reason:     fmt.Sprintf("extreme greed (FG=%d), contrarian trim", fg),
			Confidence: 65,
		}, nil
	}

	reason := "no dominant macro narrative, holding"
	if aboveMA200 {
		reason = "quiet news flow, uptrend intact, holding the position"
	} else if belowMA200 {
		reason = "quiet news flow in a downtrend, staying defensive"
	}

	return &domain.TradeDecision{
		Action: domain.ActionHold, AmountPct: 0,
		Reason: reason, Confidence: 55,
	}, nil
}

func countKeywords(text string, keywords []string) int {
	var n int
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
