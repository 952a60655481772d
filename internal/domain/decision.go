package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// TradeAction daily action chosen by an investor.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
	ActionHold TradeAction = "HOLD"
)

// TradeDecision a single daily trading decision.
type TradeDecision struct {
	Action     TradeAction `json:"action"`
	AmountPct  float64     `json:"amount_pct"`
	Reason     string      `json:"reason"`
	Confidence float64     `json:"confidence"`
}

// ParseTradeDecision builds a validated decision from a raw LLM payload.
func ParseTradeDecision(raw string) (*TradeDecision, error) {
	payload := sanitizeDecisionPayload(raw)

	if !json.Valid([]byte(payload)) {
		return nil, errors.New("invalid JSON structure")
	}

	var decision TradeDecision
	if err := json.Unmarshal([]byte(payload), &decision); err != nil {
		return nil, errors.Wrap(err, "JSON unmarshal error")
	}

	decision.Action = TradeAction(strings.ToUpper(string(decision.Action)))
	if err := decision.Validate(); err != nil {
		return nil, err
	}

	decision.AmountPct = clampPct(decision.AmountPct)
	decision.Confidence = clampPct(decision.Confidence)

	return &decision, nil
}

func sanitizeDecisionPayload(raw string) string {
	payload := strings.TrimSpace(raw)
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")
	return strings.TrimSpace(payload)
}

// Validate validates the decision.
func (d *TradeDecision) Validate() error {
	switch d.Action {
	case ActionBuy, ActionSell, ActionHold:
	case "":
		return errors.New("action field is required")
	default:
		return fmt.Errorf("invalid action: %s", d.Action)
	}

	if d.Action != ActionHold && d.AmountPct <= 0 {
		return fmt.Errorf("invalid amount_pct: %f (must be > 0 for %s)", d.AmountPct, d.Action)
	}

	return nil
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Hold builds a no-op decision with the given reason.
func Hold(reason string) *TradeDecision {
	return &TradeDecision{
		Action:     ActionHold,
		AmountPct:  0,
		Reason:     reason,
		Confidence: 50,
	}
}
