package personas

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/projectchronos/chronos/internal/domain"
)

// Degen is the momentum chaser: buys rallies, buys dips, buys headlines.
// Ignores technical indicators entirely and never sets a stop loss.
type Degen struct{}

var degenBullishKeywords = []string{"surge", "rally", "bull", "etf", "adoption", "institutional"}

func (d *Degen) Profile() Profile {
	return Profile{
		ID:             "degen",
		Name:           "Degen",
		Style:          "bold momentum chasing, YOLO mindset",
		Philosophy:     "Missing out is losing! Chase price whenever the trend is up or the news is good.",
		RiskTolerance:  "high",
		UseNews:        true,
		UseTechnical:   false,
		UseFearGreed:   true,
		MaxPositionPct: 100,
		MinTradePct:    20,
	}
}

func (d *Degen) SystemPrompt(date string) string {
	return fmt.Sprintf(`You are an extremely aggressive Bitcoin investor, codename "Degen".

`+timeAnchorPrompt+`

## Your philosophy
1. YOLO: missing out equals losing
2. Chase momentum: buy rallies, treat dips as discounts
3. News is signal: good headline means buy, price does not matter
4. No stop losses: it always comes back
5. Go big: every trade uses 20-50%% of funds

## Decision rules
- Bullish news: buy big, 30-50%%
- Market up > 3%%: chase with 20-40%%
- Fear & Greed > 60: market is optimistic, add 20-30%%
- Market down > 5%%: "discount price", buy the dip 30-50%%
- HOLD only when there is no signal at all

Reply with the JSON decision only.`, date)
}

func (d *Degen) RuleDecision(ctx domain.MarketContext) (*domain.TradeDecision, error) {
	fg := fearGreedValue(ctx, 50)
	change := ctx.ChangePct
	cash := hasUSD(ctx)

	var headlines strings.Builder
	for _, item := range ctx.NewsItems {
		headlines.WriteString(strings.ToLower(item.Title))
		headlines.WriteString(" ")
	}
	bullishNews := false
	for _, kw := range degenBullishKeywords {
		if strings.Contains(headlines.String(), kw) {
			bullishNews = true
			break
		}
	}

	switch {
	case bullishNews && cash:
		return &domain.TradeDecision{
			Action: domain.ActionBuy, AmountPct: 40,
			Reason: "bullish headlines, LFG", Confidence: 85,
		}, nil
	case change > 5 && cash:
		return &domain.TradeDecision{
			Action: domain.ActionBuy, AmountPct: 35,
			Reason: fmt.Sprintf("up %.1f%%, chasing the pump", change), Confidence: 80,
		}, nil
	case change > 3 && cash:
		return &domain.TradeDecision{
			Action: domain.ActionBuy, AmountPct: 25,
			Reason: fmt.Sprintf("solid move of %.1f%%, can't miss it", change), Confidence: 70,
		}, nil
	case fg > 70 && cash:
		return &domain.TradeDecision{
			Action: domain.ActionBuy, AmountPct: 30,
			Reason: fmt.Sprintf("market in FOMO (FG=%d), joining in", fg), Confidence: 75,
		}, nil
	case change < -5 && cash:
		return &domain.TradeDecision{
			Action: domain.ActionBuy, AmountPct: 40,
			Reason: fmt.Sprintf("down %.1f%%? that's a discount, diamond hands", change), Confidence: 85,
		}, nil
	case change < -3 && cash:
		return &domain.TradeDecision{
			Action: domain.ActionBuy, AmountPct: 25,
			Reason: fmt.Sprintf("pullback of %.1f%%, good spot to add", change), Confidence: 70,
		}, nil
	case ctx.Portfolio.USDBalance.GreaterThan(ctx.Portfolio.TotalValue.Mul(decimal.NewFromFloat(0.5))):
		return &domain.TradeDecision{
			Action: domain.ActionBuy, AmountPct: 20,
			Reason: "too much idle cash, buying, WAGMI", Confidence: 60,
		}, nil
	}

	return &domain.TradeDecision{
		Action: domain.ActionHold, AmountPct: 0,
		Reason: "waiting for a clearer signal, WAGMI", Confidence: 50,
	}, nil
}
