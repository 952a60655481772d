package domain

import "time"

// DecisionEvent one decision as persisted in the WAL for later inspection.
type DecisionEvent struct {
	Timestamp      time.Time  `json:"ts"`
	Date           string     `json:"date"`
	InvestorID     string     `json:"investor_id"`
	Model          string     `json:"model,omitempty"`
	Action         string     `json:"action"`
	AmountPct      float64    `json:"amount_pct,omitempty"`
	Reason         string     `json:"reason"`
	Confidence     float64    `json:"confidence,omitempty"`
	Provenance     Provenance `json:"provenance"`
	Price          string     `json:"price,omitempty"`
	PortfolioValue string     `json:"portfolio_value,omitempty"`
}

// NewDecisionEvent builds an event from a decision result.
func NewDecisionEvent(res DecisionResult, model, price, portfolioValue string) DecisionEvent {
	return DecisionEvent{
		Timestamp:      time.Now(),
		Date:           res.Date.Format("2006-01-02"),
		InvestorID:     res.Investor.ID,
		Model:          model,
		Action:         string(res.Decision.Action),
		AmountPct:      res.Decision.AmountPct,
		Reason:         res.Decision.Reason,
		Confidence:     res.Decision.Confidence,
		Provenance:     res.Provenance,
		Price:          price,
		PortfolioValue: portfolioValue,
	}
}

// DecisionEventRecord bundles a decision event with its WAL index.
type DecisionEventRecord struct {
	Index uint64
	Event DecisionEvent
}
