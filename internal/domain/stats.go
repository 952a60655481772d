package domain

import "sync/atomic"

// RunStatistics decision counters for one simulation run.
// All counters start at zero and are mutated exactly once per decision.
// Increments are atomic so concurrent Decide calls keep the totals exact.
type RunStatistics struct {
	aiDecisions      atomic.Int64
	ruleDecisions    atomic.Int64
	timeoutFallbacks atomic.Int64
	errorFallbacks   atomic.Int64
}

// NewRunStatistics creates zeroed counters for one run.
func NewRunStatistics() *RunStatistics {
	return &RunStatistics{}
}

// RecordAISuccess counts a decision produced by the AI oracle.
func (s *RunStatistics) RecordAISuccess() {
	s.aiDecisions.Add(1)
}

// RecordRuleDecision counts a decision produced by a rule policy directly.
func (s *RunStatistics) RecordRuleDecision() {
	s.ruleDecisions.Add(1)
}

// RecordTimeoutFallback counts a rule decision taken after an AI timeout.
// The rule counter is bumped first so a concurrent reader never observes
// more fallbacks than rule decisions.
func (s *RunStatistics) RecordTimeoutFallback() {
	s.ruleDecisions.Add(1)
	s.timeoutFallbacks.Add(1)
}

// RecordErrorFallback counts a rule decision taken after an AI error.
func (s *RunStatistics) RecordErrorFallback() {
	s.ruleDecisions.Add(1)
	s.errorFallbacks.Add(1)
}

// AIDecisions returns the number of successful AI decisions so far.
func (s *RunStatistics) AIDecisions() int64 { return s.aiDecisions.Load() }

// RuleDecisions returns the number of rule decisions so far,
// including fallback-produced ones.
func (s *RunStatistics) RuleDecisions() int64 { return s.ruleDecisions.Load() }

// TimeoutFallbacks returns the number of AI timeouts so far.
func (s *RunStatistics) TimeoutFallbacks() int64 { return s.timeoutFallbacks.Load() }

// ErrorFallbacks returns the number of AI errors so far.
func (s *RunStatistics) ErrorFallbacks() int64 { return s.errorFallbacks.Load() }

// Report end-of-run decision statistics.
type Report struct {
	Total            int64   `json:"total"`
	AIDecisions      int64   `json:"ai_decisions"`
	RuleDecisions    int64   `json:"rule_decisions"`
	TimeoutFallbacks int64   `json:"timeout_fallbacks"`
	ErrorFallbacks   int64   `json:"error_fallbacks"`
	AIPercentage     float64 `json:"ai_percentage"`
}

// Empty reports whether no decisions were made.
func (r Report) Empty() bool { return r.Total == 0 }

// Summarize computes the end-of-run report. Pure read, safe at any point.
func (s *RunStatistics) Summarize() Report {
	ai := s.aiDecisions.Load()
	rule := s.ruleDecisions.Load()
	total := ai + rule

	report := Report{
		Total:            total,
		AIDecisions:      ai,
		RuleDecisions:    rule,
		TimeoutFallbacks: s.timeoutFallbacks.Load(),
		ErrorFallbacks:   s.errorFallbacks.Load(),
	}
	if total > 0 {
		report.AIPercentage = float64(ai) / float64(total) * 100
	}

	return report
}
