// Package trade applies decided trades to a portfolio with sanity guards
// against dust orders.
package trade

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/internal/domain"
	"github.com/projectchronos/chronos/internal/services/portfolio"
)

var (
	// minimum trade sizes, smaller orders degrade to HOLD
	minBuyUSD  = decimal.NewFromInt(10)
	minSellBTC = decimal.NewFromFloat(0.0001)
)

// Executor turns trade decisions into portfolio mutations.
type Executor struct {
	logger *zap.Logger
}

// NewExecutor creates a trade executor.
func NewExecutor(logger *zap.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute applies a decision to the portfolio. BUY spends a percentage of
// available USD, SELL disposes a percentage of the held position. Orders
// below the minimum trade size are recorded as HOLD instead of failing.
func (e *Executor) Execute(p *portfolio.Portfolio, decision *domain.TradeDecision, date string, btcPrice decimal.Decimal) error {
	if decision == nil {
		return errors.New("nil decision")
	}

	pct := decimal.NewFromFloat(decision.AmountPct).Div(decimal.NewFromInt(100))

	switch decision.Action {
	case domain.ActionHold:
		p.Hold(date, btcPrice, decision.Reason)
		return nil

	case domain.ActionBuy:
		usdAmount := p.USDBalance().Mul(pct)
		if usdAmount.LessThan(minBuyUSD) {
			e.logger.Debug("buy below minimum, holding instead",
				zap.String("investor", p.InvestorID()),
				zap.String("usd", usdAmount.StringFixed(2)))
			p.Hold(date, btcPrice, "[amount too small] "+decision.Reason)
			return nil
		}
		return p.Buy(date, btcPrice, usdAmount, decision.Reason)

	case domain.ActionSell:
		btcQuantity := p.BTCQuantity().Mul(pct)
		if btcQuantity.LessThan(minSellBTC) {
			e.logger.Debug("sell below minimum, holding instead",
				zap.String("investor", p.InvestorID()),
				zap.String("btc", btcQuantity.StringFixed(8)))
			p.Hold(date, btcPrice, "[quantity too small] "+decision.Reason)
			return nil
		}
		return p.Sell(date, btcPrice, btcQuantity, decision.Reason)

	default:
		return errors.Errorf("unknown trade action: %s", decision.Action)
	}
}
