package personas

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/projectchronos/chronos/internal/domain"
)

// Guardian is the capital-preservation investor: buys only into extreme
// fear below the MA200, takes profit into greed, and cuts losses hard.
// Ignores news to avoid FOMO.
type Guardian struct{}

func (g *Guardian) Profile() Profile {
	return Profile{
		ID:             "guardian",
		Name:           "Guardian",
		Style:          "extremely conservative, capital preservation first",
		Philosophy:     "Better to miss a rally than to lose principal. Scale in only when the market is in extreme fear.",
		RiskTolerance:  "low",
		UseNews:        false,
		UseTechnical:   true,
		UseFearGreed:   true,
		MaxPositionPct: 50,
		MinTradePct:    10,
	}
}

func (g *Guardian) SystemPrompt(date string) string {
	return fmt.Sprintf(`You are an extremely conservative Bitcoin investor, codename "Guardian".

`+timeAnchorPrompt+`

## Your philosophy
1. Principal safety above everything: missing upside beats taking losses
2. Enter only on extreme panic: consider buying only when Fear & Greed < 25
3. Scale in: never deploy more than 10-30%% of available funds at once
4. Strict stop loss: if drawdown exceeds 15%%, reduce the position
5. Patience: most days the right move is to wait

## Decision rules
- Fear & Greed < 20 and price below MA200: buy 20-30%% in tranches
- Fear & Greed < 25 and price below MA200: small buy of 10-20%%
- Fear & Greed > 75: take profit on part of the position
- Otherwise: HOLD

Reply with the JSON decision only.`, date)
}

func (g *Guardian) RuleDecision(ctx domain.MarketContext) (*domain.TradeDecision, error) {
	fg := fearGreedValue(ctx, 50)
	belowMA200 := priceBelow(ctx, ma200(ctx))
	cash := hasUSD(ctx)
	holding := hasBTC(ctx)

	switch {
	case fg < 20 && belowMA200 && cash:
		return &domain.TradeDecision{
			Action:     domain.ActionBuy,
			AmountPct:  25,
			Reason:     fmt.Sprintf("extreme fear (FG=%d), price below MA200, scaling in", fg),
			Confidence: 75,
		}, nil
	case fg < 25 && belowMA200 && cash:
		return &domain.TradeDecision{
			Action:     domain.ActionBuy,
			AmountPct:  15,
			Reason:     fmt.Sprintf("fearful market (FG=%d), small accumulation", fg),
			Confidence: 65,
		}, nil
	case fg > 80 && holding:
		return &domain.TradeDecision{
			Action:     domain.ActionSell,
			AmountPct:  30,
			Reason:     fmt.Sprintf("extreme greed (FG=%d), taking partial profit", fg),
			Confidence: 70,
		}, nil
	case fg > 75 && holding:
		return &domain.TradeDecision{
			Action:     domain.ActionSell,
			AmountPct:  20,
			Reason:     fmt.Sprintf("overheated market (FG=%d), reducing exposure", fg),
			Confidence: 65,
		}, nil
	case ctx.Portfolio.ReturnPct < -15 && holding:
		return &domain.TradeDecision{
			Action:     domain.ActionSell,
			AmountPct:  50,
			Reason:     fmt.Sprintf("stop loss triggered (%.1f%% drawdown), protecting principal", ctx.Portfolio.ReturnPct),
			Confidence: 80,
		}, nil
	}

	return &domain.TradeDecision{
		Action:     domain.ActionHold,
		AmountPct:  0,
		Reason:     "market unclear, staying on the sidelines",
		Confidence: 60,
	}, nil
}

// shared rule helpers

func fearGreedValue(ctx domain.MarketContext, fallback int) int {
	if ctx.FearGreed == nil {
		return fallback
	}
	return ctx.FearGreed.Value
}

func ma50(ctx domain.MarketContext) *decimal.Decimal {
	if ctx.Technical == nil {
		return nil
	}
	return ctx.Technical.MA50
}

func ma200(ctx domain.MarketContext) *decimal.Decimal {
	if ctx.Technical == nil {
		return nil
	}
	return ctx.Technical.MA200
}

func priceBelow(ctx domain.MarketContext, ma *decimal.Decimal) bool {
	return ma != nil && ctx.Price.LessThan(*ma)
}

func priceAbove(ctx domain.MarketContext, ma *decimal.Decimal) bool {
	return ma != nil && ctx.Price.GreaterThan(*ma)
}

func hasUSD(ctx domain.MarketContext) bool {
	return ctx.Portfolio.USDBalance.GreaterThan(decimal.NewFromInt(100))
}

func hasBTC(ctx domain.MarketContext) bool {
	return ctx.Portfolio.BTCQuantity.GreaterThan(decimal.Zero)
}
