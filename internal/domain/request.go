package domain

import "time"

// Mode selects how daily decisions are produced for a run.
type Mode string

const (
	// ModeAI asks the LLM oracle first and degrades to rule decisions on failure.
	ModeAI Mode = "ai"
	// ModeRuleOnly never touches the LLM and uses rule decisions directly.
	ModeRuleOnly Mode = "rule"
)

// Provenance records which code path produced a decision.
type Provenance string

const (
	ProvenanceAISuccess         Provenance = "ai_success"
	ProvenanceAITimeoutFallback Provenance = "ai_timeout_fallback"
	ProvenanceAIErrorFallback   Provenance = "ai_error_fallback"
	ProvenanceRuleOnly          Provenance = "rule_only"
)

// Investor identifies one simulated investor persona.
type Investor struct {
	ID   string
	Name string
}

// DecisionRequest a single (investor, day) decision request.
// Immutable once constructed; the simulator creates a fresh one per step.
type DecisionRequest struct {
	Investor Investor
	Date     time.Time
	Context  MarketContext
	Model    string
}

// DecisionResult the decision together with its provenance.
type DecisionResult struct {
	Investor   Investor
	Date       time.Time
	Decision   *TradeDecision
	Provenance Provenance
}
