// Package decision produces exactly one trading decision per (investor, day)
// step. It asks the AI oracle under a bounded wait and degrades to the
// investor's deterministic rule policy on timeout or error, so a slow or
// broken LLM never aborts a simulation run.
package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/internal/domain"
)

// DefaultWaitBudget is the maximum time the oracle gets per decision.
// Reasoning models routinely take minutes, shorter budgets cause
// spurious fallbacks.
const DefaultWaitBudget = 300 * time.Second

// Oracle asks an external LLM for a decision payload.
// A reply arriving after the orchestrator's deadline is void.
type Oracle interface {
	Decide(ctx context.Context, req domain.DecisionRequest) (string, error)
}

// RulePolicy produces a deterministic decision synchronously.
// It is the degradation baseline; its failure is fatal for the step.
type RulePolicy interface {
	Decide(req domain.DecisionRequest) (*domain.TradeDecision, error)
}

// Orchestrator owns the per-run decision statistics and the oracle race.
type Orchestrator struct {
	oracle     Oracle
	rules      RulePolicy
	stats      *domain.RunStatistics
	mode       domain.Mode
	waitBudget time.Duration
	logger     *zap.Logger
}

// NewOrchestrator creates an orchestrator for one simulation run.
// waitBudget <= 0 falls back to DefaultWaitBudget.
func NewOrchestrator(
	logger *zap.Logger,
	oracle Oracle,
	rules RulePolicy,
	stats *domain.RunStatistics,
	mode domain.Mode,
	waitBudget time.Duration,
) (*Orchestrator, error) {
	if rules == nil {
		return nil, errors.New("rule policy is required")
	}
	if stats == nil {
		return nil, errors.New("run statistics are required")
	}
	if mode == domain.ModeAI && oracle == nil {
		return nil, errors.New("oracle is required in AI mode")
	}
	if waitBudget <= 0 {
		waitBudget = DefaultWaitBudget
	}

	return &Orchestrator{
		oracle:     oracle,
		rules:      rules,
		stats:      stats,
		mode:       mode,
		waitBudget: waitBudget,
		logger:     logger,
	}, nil
}

type oracleReply struct {
	payload string
	err     error
}

// Decide returns exactly one decision for the request. AI failures and
// timeouts are absorbed; the only error returned is a rule-policy failure
// or an invalid request.
func (o *Orchestrator) Decide(ctx context.Context, req domain.DecisionRequest) (domain.DecisionResult, error) {
	if req.Investor.ID == "" {
		return domain.DecisionResult{}, errors.New("investor id is required")
	}
	if req.Date.IsZero() {
		return domain.DecisionResult{}, errors.New("decision date is required")
	}

	if o.mode == domain.ModeRuleOnly {
		decision, err := o.rules.Decide(req)
		if err != nil {
			return domain.DecisionResult{}, errors.Wrapf(err, "rule decision failed for %s", req.Investor.ID)
		}
		o.stats.RecordRuleDecision()
		return o.result(req, decision, domain.ProvenanceRuleOnly), nil
	}

	// Race the oracle against the wait budget. The buffered channel lets a
	// late reply complete without a reader, so it is dropped instead of
	// mutating anything after the fallback already won.
	replyCh := make(chan oracleReply, 1)
	oracleCtx, cancel := context.WithTimeout(ctx, o.waitBudget)
	defer cancel()

	go func() {
		payload, err := o.oracle.Decide(oracleCtx, req)
		replyCh <- oracleReply{payload: payload, err: err}
	}()

	timer := time.NewTimer(o.waitBudget)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		if reply.err != nil {
			if errors.Is(reply.err, context.DeadlineExceeded) {
				return o.timeoutFallback(req)
			}
			return o.errorFallback(req, reply.err)
		}

		decision, err := domain.ParseTradeDecision(reply.payload)
		if err != nil {
			return o.errorFallback(req, errors.Wrap(err, "invalid oracle payload"))
		}

		o.stats.RecordAISuccess()
		return o.result(req, decision, domain.ProvenanceAISuccess), nil

	case <-timer.C:
		// detach the in-flight call so it cannot outlive the deadline
		cancel()
		return o.timeoutFallback(req)
	}
}

func (o *Orchestrator) timeoutFallback(req domain.DecisionRequest) (domain.DecisionResult, error) {
	o.stats.RecordTimeoutFallback()
	o.logger.Warn("AI decision timed out, degrading to rule decision",
		zap.String("investor", req.Investor.Name),
		zap.String("date", req.Date.Format("2006-01-02")),
		zap.String("waited", fmt.Sprintf("> %.0fs", o.waitBudget.Seconds())),
		zap.String("model", req.Model),
		zap.Int64("timeouts_so_far", o.stats.TimeoutFallbacks()))

	decision, err := o.rules.Decide(req)
	if err != nil {
		return domain.DecisionResult{}, errors.Wrapf(err, "rule fallback failed for %s", req.Investor.ID)
	}

	return o.result(req, decision, domain.ProvenanceAITimeoutFallback), nil
}

func (o *Orchestrator) errorFallback(req domain.DecisionRequest, cause error) (domain.DecisionResult, error) {
	o.stats.RecordErrorFallback()
	o.logger.Warn("AI decision failed, degrading to rule decision",
		zap.String("investor", req.Investor.Name),
		zap.String("date", req.Date.Format("2006-01-02")),
		zap.String("kind", fmt.Sprintf("%T", errors.Cause(cause))),
		zap.Error(cause),
		zap.Int64("errors_so_far", o.stats.ErrorFallbacks()))

	decision, err := o.rules.Decide(req)
	if err != nil {
		return domain.DecisionResult{}, errors.Wrapf(err, "rule fallback failed for %s", req.Investor.ID)
	}

	return o.result(req, decision, domain.ProvenanceAIErrorFallback), nil
}

func (o *Orchestrator) result(req domain.DecisionRequest, decision *domain.TradeDecision, p domain.Provenance) domain.DecisionResult {
	return domain.DecisionResult{
		Investor:   req.Investor,
		Date:       req.Date,
		Decision:   decision,
		Provenance: p,
	}
}

// Summary returns the current decision statistics report.
func (o *Orchestrator) Summary() domain.Report {
	return o.stats.Summarize()
}
