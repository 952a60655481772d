// Package portfolio tracks a simulated investor's assets: USD balance,
// BTC position with average cost, the daily equity curve and the full
// trade log.
package portfolio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Position BTC holding with volume-weighted average cost.
type Position struct {
	Symbol   string
	Quantity decimal.Decimal
	AvgCost  decimal.Decimal
}

func (p *Position) update(quantityDelta, price decimal.Decimal) {
	newQuantity := p.Quantity.Add(quantityDelta)

	if quantityDelta.IsPositive() {
		totalCost := p.Quantity.Mul(p.AvgCost).Add(quantityDelta.Mul(price))
		if newQuantity.IsPositive() {
			p.AvgCost = totalCost.Div(newQuantity)
		}
	} else if !newQuantity.IsPositive() {
		newQuantity = decimal.Zero
		p.AvgCost = decimal.Zero
	}

	p.Quantity = newQuantity
}

// Snapshot one day of the equity curve.
type Snapshot struct {
	Date           string          `json:"date"`
	USDBalance     decimal.Decimal `json:"usd_balance"`
	BTCQuantity    decimal.Decimal `json:"btc_quantity"`
	BTCPrice       decimal.Decimal `json:"btc_price"`
	TotalValue     decimal.Decimal `json:"total_value_usd"`
	DailyReturnPct float64         `json:"daily_return_pct"`
}

// TradeRecord one executed (or skipped) trade.
type TradeRecord struct {
	ID                  string          `json:"trade_id"`
	Date                string          `json:"date"`
	Action              string          `json:"action"`
	Symbol              string          `json:"symbol"`
	Quantity            decimal.Decimal `json:"quantity"`
	Price               decimal.Decimal `json:"price"`
	USDAmount           decimal.Decimal `json:"usd_amount"`
	Reason              string          `json:"reason"`
	PortfolioValueAfter decimal.Decimal `json:"portfolio_value_after"`
}

// Summary end-of-run portfolio figures.
type Summary struct {
	InvestorID     string          `json:"investor_id"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	ReturnPct      float64         `json:"return_pct"`
	USDBalance     decimal.Decimal `json:"usd_balance"`
	BTCQuantity    decimal.Decimal `json:"btc_quantity"`
	BTCAvgCost     decimal.Decimal `json:"btc_avg_cost"`
	TotalTrades    int             `json:"total_trades"`
}

// Portfolio tracks one investor's assets over the simulation.
type Portfolio struct {
	investorID     string
	initialCapital decimal.Decimal
	usdBalance     decimal.Decimal
	position       Position
	snapshots      []Snapshot
	trades         []TradeRecord
	logger         *zap.Logger
}

// New creates a portfolio holding only USD.
func New(logger *zap.Logger, investorID string, initialCapital decimal.Decimal) *Portfolio {
	return &Portfolio{
		investorID:     investorID,
		initialCapital: initialCapital,
		usdBalance:     initialCapital,
		position:       Position{Symbol: "BTC"},
		logger:         logger.With(zap.String("investor", investorID)),
	}
}

// TotalValue current portfolio worth at the given BTC price.
func (p *Portfolio) TotalValue(btcPrice decimal.Decimal) decimal.Decimal {
	return p.usdBalance.Add(p.position.Quantity.Mul(btcPrice))
}

// ReturnPct cumulative return against initial capital, in percent.
func (p *Portfolio) ReturnPct(btcPrice decimal.Decimal) float64 {
	if p.initialCapital.IsZero() {
		return 0
	}
	pct, _ := p.TotalValue(btcPrice).Sub(p.initialCapital).
		Div(p.initialCapital).Mul(hundred).Float64()
	return pct
}

// USDBalance available cash.
func (p *Portfolio) USDBalance() decimal.Decimal { return p.usdBalance }

// BTCQuantity held position size.
func (p *Portfolio) BTCQuantity() decimal.Decimal { return p.position.Quantity }

// State returns the portfolio figures investors see at decision time.
func (p *Portfolio) State(btcPrice decimal.Decimal) domain.PortfolioState {
	return domain.PortfolioState{
		TotalValue:  p.TotalValue(btcPrice),
		USDBalance:  p.usdBalance,
		BTCQuantity: p.position.Quantity,
		ReturnPct:   p.ReturnPct(btcPrice),
	}
}

// Buy spends usdAmount on BTC at btcPrice. An amount above the available
// balance is clamped to it.
func (p *Portfolio) Buy(date string, btcPrice, usdAmount decimal.Decimal, reason string) error {
	if usdAmount.GreaterThan(p.usdBalance) {
		p.logger.Warn("buy clamped to available balance",
			zap.String("requested", usdAmount.StringFixed(2)),
			zap.String("available", p.usdBalance.StringFixed(2)))
		usdAmount = p.usdBalance
	}
	if !usdAmount.IsPositive() {
		return errors.New("buy amount is zero")
	}
	if !btcPrice.IsPositive() {
		return errors.New("price must be positive")
	}

	btcQuantity := usdAmount.Div(btcPrice)
	p.usdBalance = p.usdBalance.Sub(usdAmount)
	p.position.update(btcQuantity, btcPrice)

	p.record(date, "BUY", btcQuantity, btcPrice, usdAmount, reason)
	p.logger.Info("buy executed",
		zap.String("quantity", btcQuantity.StringFixed(6)),
		zap.String("price", btcPrice.StringFixed(2)),
		zap.String("usd", usdAmount.StringFixed(2)))
	return nil
}

// Sell disposes btcQuantity at btcPrice. A quantity above the held
// position is clamped to it.
func (p *Portfolio) Sell(date string, btcPrice, btcQuantity decimal.Decimal, reason string) error {
	if btcQuantity.GreaterThan(p.position.Quantity) {
		p.logger.Warn("sell clamped to held position",
			zap.String("requested", btcQuantity.StringFixed(6)),
			zap.String("held", p.position.Quantity.StringFixed(6)))
		btcQuantity = p.position.Quantity
	}
	if !btcQuantity.IsPositive() {
		return errors.New("sell quantity is zero")
	}
	if !btcPrice.IsPositive() {
		return errors.New("price must be positive")
	}

	usdAmount := btcQuantity.Mul(btcPrice)
	p.usdBalance = p.usdBalance.Add(usdAmount)
	p.position.update(btcQuantity.Neg(), btcPrice)

	p.record(date, "SELL", btcQuantity, btcPrice, usdAmount, reason)
	p.logger.Info("sell executed",
		zap.String("quantity", btcQuantity.StringFixed(6)),
		zap.String("price", btcPrice.StringFixed(2)),
		zap.String("usd", usdAmount.StringFixed(2)))
	return nil
}

// Hold records a no-op day in the trade log.
func (p *Portfolio) Hold(date string, btcPrice decimal.Decimal, reason string) {
	p.record(date, "HOLD", decimal.Zero, btcPrice, decimal.Zero, reason)
}

func (p *Portfolio) record(date, action string, quantity, price, usdAmount decimal.Decimal, reason string) {
	p.trades = append(p.trades, TradeRecord{
		ID:                  uuid.New().String(),
		Date:                date,
		Action:              action,
		Symbol:              p.position.Symbol,
		Quantity:            quantity,
		Price:               price,
		USDAmount:           usdAmount,
		Reason:              reason,
		PortfolioValueAfter: p.TotalValue(price),
	})
}

// TakeSnapshot appends today's equity curve point.
func (p *Portfolio) TakeSnapshot(date string, btcPrice decimal.Decimal) {
	totalValue := p.TotalValue(btcPrice)

	dailyReturn := 0.0
	if len(p.snapshots) > 0 {
		prev := p.snapshots[len(p.snapshots)-1].TotalValue
		if prev.IsPositive() {
			dailyReturn, _ = totalValue.Sub(prev).Div(prev).Mul(hundred).Float64()
		}
	}

	p.snapshots = append(p.snapshots, Snapshot{
		Date:           date,
		USDBalance:     p.usdBalance,
		BTCQuantity:    p.position.Quantity,
		BTCPrice:       btcPrice,
		TotalValue:     totalValue,
		DailyReturnPct: dailyReturn,
	})
}

// Snapshots returns the equity curve, oldest first.
func (p *Portfolio) Snapshots() []Snapshot { return p.snapshots }

// Trades returns the full trade log including HOLD entries.
func (p *Portfolio) Trades() []TradeRecord { return p.trades }

// Summary builds end-of-run figures at the given BTC price.
func (p *Portfolio) Summary(btcPrice decimal.Decimal) Summary {
	executed := 0
	for _, t := range p.trades {
		if t.Action != "HOLD" {
			executed++
		}
	}

	return Summary{
		InvestorID:     p.investorID,
		InitialCapital: p.initialCapital,
		CurrentValue:   p.TotalValue(btcPrice).Round(2),
		ReturnPct:      p.ReturnPct(btcPrice),
		USDBalance:     p.usdBalance.Round(2),
		BTCQuantity:    p.position.Quantity.Round(8),
		BTCAvgCost:     p.position.AvgCost.Round(2),
		TotalTrades:    executed,
	}
}

// ExportTradesCSV renders the trade log as CSV, header included.
func (p *Portfolio) ExportTradesCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"date", "action", "symbol", "quantity", "price", "usd_amount", "reason", "portfolio_value"}); err != nil {
		return "", errors.Wrap(err, "failed to write CSV header")
	}

	for _, t := range p.trades {
		reason := strings.ReplaceAll(t.Reason, "\n", " ")
		if runes := []rune(reason); len(runes) > 100 {
			reason = string(runes[:100])
		}

		row := []string{
			t.Date,
			t.Action,
			t.Symbol,
			t.Quantity.StringFixed(8),
			t.Price.StringFixed(2),
			t.USDAmount.StringFixed(2),
			reason,
			t.PortfolioValueAfter.StringFixed(2),
		}
		if err := w.Write(row); err != nil {
			return "", errors.Wrap(err, "failed to write CSV row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, "failed to flush CSV")
	}

	return buf.String(), nil
}

// InvestorID identifies the portfolio owner.
func (p *Portfolio) InvestorID() string { return p.investorID }

// String short human readable state, used in debug logs.
func (p *Portfolio) String() string {
	return fmt.Sprintf("%s: $%s + %s BTC",
		p.investorID, p.usdBalance.StringFixed(2), p.position.Quantity.StringFixed(6))
}
