package personas

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/projectchronos/chronos/internal/domain"
)

// Quant is the emotionless systems trader: counts indicator signals and
// sizes the position by how many agree. News and sentiment are noise.
type Quant struct{}

func (q *Quant) Profile() Profile {
	return Profile{
		ID:             "quant",
		Name:           "Quant",
		Style:          "data driven, emotionally flat",
		Philosophy:     "Markets can be modeled. Emotion is noise, only data is truth.",
		RiskTolerance:  "medium",
		UseNews:        false,
		UseTechnical:   true,
		UseFearGreed:   false,
		MaxPositionPct: 80,
		MinTradePct:    10,
	}
}

func (q *Quant) SystemPrompt(date string) string {
	return fmt.Sprintf(`You are a pure quantitative trader, codename "Quant".

`+timeAnchorPrompt+`

## Your philosophy
1. Data is everything: trust only indicators and models
2. Emotion is noise: news, opinion and sentiment indexes are distractions
3. Disciplined execution: when the system signals, act without hesitation
4. Fixed-fraction risk management

## Trading system
Buy signals (the more that align, the larger the position):
- RSI < 30 (oversold)
- MACD bullish cross
- Price below the lower Bollinger band
- Price breaking above MA50

Sell signals:
- RSI > 70 (overbought)
- MACD bearish cross
- Price above the upper Bollinger band
- Price breaking below MA50

Position sizing: 1 signal = 15%%, 2 signals = 25%%, 3+ signals = 40%%.

Reply with the JSON decision only.`, date)
}

func (q *Quant) RuleDecision(ctx domain.MarketContext) (*domain.TradeDecision, error) {
	var buySignals, sellSignals float64
	var reasons []string

	tech := ctx.Technical
	if tech != nil {
		if tech.RSI14 != nil {
			switch {
			case *tech.RSI14 < 30:
				buySignals++
				reasons = append(reasons, fmt.Sprintf("RSI=%.1f<30 oversold", *tech.RSI14))
			case *tech.RSI14 > 70:
				sellSignals++
				reasons = append(reasons, fmt.Sprintf("RSI=%.1f>70 overbought", *tech.RSI14))
			}
		}

		switch tech.MACDSignal {
		case domain.SignalBullish:
			buySignals++
			reasons = append(reasons, "MACD bullish")
		case domain.SignalBearish:
			sellSignals++
			reasons = append(reasons, "MACD bearish")
		}

		switch tech.BandPosition {
		case domain.BandBelowLower:
			buySignals++
			reasons = append(reasons, "price below lower band")
		case domain.BandAboveUpper:
			sellSignals++
			reasons = append(reasons, "price above upper band")
		}

		if tech.MA50 != nil && !ctx.Price.IsZero() {
			// half a signal either way when price is 2% beyond MA50
			if ctx.Price.GreaterThan(tech.MA50.Mul(decimal.NewFromFloat(1.02))) {
				buySignals += 0.5
			} else if ctx.Price.LessThan(tech.MA50.Mul(decimal.NewFromFloat(0.98))) {
				sellSignals += 0.5
			}
		}
	}

	if len(reasons) > 3 {
		reasons = reasons[:3]
	}

	switch {
	case buySignals >= sellSignals && buySignals >= 1 && hasUSD(ctx):
		pct, conf := quantSizing(buySignals)
		return &domain.TradeDecision{
			Action:     domain.ActionBuy,
			AmountPct:  pct,
			Reason:     "buy signals: " + strings.Join(reasons, ", "),
			Confidence: conf,
		}, nil
	case sellSignals > buySignals && sellSignals >= 1 && hasBTC(ctx):
		pct, conf := quantSizing(sellSignals)
		return &domain.TradeDecision{
			Action:     domain.ActionSell,
			AmountPct:  pct,
			Reason:     "sell signals: " + strings.Join(reasons, ", "),
			Confidence: conf,
		}, nil
	}

	reason := "no clear signal, keeping current allocation"
	if tech != nil && tech.RSI14 != nil {
		reason += fmt.Sprintf(" (RSI=%.1f)", *tech.RSI14)
	}

	return &domain.TradeDecision{
		Action: domain.ActionHold, AmountPct: 0,
		Reason: reason, Confidence: 50,
	}, nil
}

func quantSizing(signals float64) (amountPct, confidence float64) {
	switch {
	case signals >= 3:
		return 40, 85
	case signals >= 2:
		return 25, 75
	default:
		return 15, 65
	}
}
