package decision

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/internal/domain"
)

const validPayload = `{"action": "BUY", "amount_pct": 25, "reason": "test buy", "confidence": 80}`

type oracleFunc func(ctx context.Context, req domain.DecisionRequest) (string, error)

func (f oracleFunc) Decide(ctx context.Context, req domain.DecisionRequest) (string, error) {
	return f(ctx, req)
}

type rulesFunc func(req domain.DecisionRequest) (*domain.TradeDecision, error)

func (f rulesFunc) Decide(req domain.DecisionRequest) (*domain.TradeDecision, error) {
	return f(req)
}

func holdRules() RulePolicy {
	return rulesFunc(func(domain.DecisionRequest) (*domain.TradeDecision, error) {
		return domain.Hold("no clear signal"), nil
	})
}

func testRequest() domain.DecisionRequest {
	return domain.DecisionRequest{
		Investor: domain.Investor{ID: "guardian", Name: "Guardian"},
		Date:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Model:    "test-model",
	}
}

func newTestOrchestrator(t *testing.T, oracle Oracle, rules RulePolicy, mode domain.Mode, budget time.Duration) (*Orchestrator, *domain.RunStatistics) {
	t.Helper()
	stats := domain.NewRunStatistics()
	orc, err := NewOrchestrator(zap.NewNop(), oracle, rules, stats, mode, budget)
	require.NoError(t, err)
	return orc, stats
}

func TestRuleOnlyModeNeverCallsOracle(t *testing.T) {
	oracle := oracleFunc(func(context.Context, domain.DecisionRequest) (string, error) {
		t.Fatal("oracle must not be called in rule-only mode")
		return "", nil
	})
	orc, stats := newTestOrchestrator(t, oracle, holdRules(), domain.ModeRuleOnly, time.Second)

	for i := 0; i < 5; i++ {
		res, err := orc.Decide(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Equal(t, domain.ProvenanceRuleOnly, res.Provenance)
		assert.Equal(t, domain.ActionHold, res.Decision.Action)
	}

	assert.EqualValues(t, 0, stats.AIDecisions())
	assert.EqualValues(t, 5, stats.RuleDecisions())
	assert.EqualValues(t, 0, stats.TimeoutFallbacks())
	assert.EqualValues(t, 0, stats.ErrorFallbacks())
}

func TestAISuccess(t *testing.T) {
	oracle := oracleFunc(func(context.Context, domain.DecisionRequest) (string, error) {
		return validPayload, nil
	})
	orc, stats := newTestOrchestrator(t, oracle, holdRules(), domain.ModeAI, time.Second)

	res, err := orc.Decide(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.ProvenanceAISuccess, res.Provenance)
	assert.Equal(t, domain.ActionBuy, res.Decision.Action)
	assert.Equal(t, 25.0, res.Decision.AmountPct)
	assert.EqualValues(t, 1, stats.AIDecisions())
	assert.EqualValues(t, 0, stats.RuleDecisions())
}

func TestOracleNeverResponds(t *testing.T) {
	const budget = 50 * time.Millisecond

	oracle := oracleFunc(func(ctx context.Context, _ domain.DecisionRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	orc, stats := newTestOrchestrator(t, oracle, holdRules(), domain.ModeAI, budget)

	const calls = 3
	for i := 0; i < calls; i++ {
		start := time.Now()
		res, err := orc.Decide(context.Background(), testRequest())
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Equal(t, domain.ProvenanceAITimeoutFallback, res.Provenance)
		assert.Less(t, elapsed, budget+200*time.Millisecond, "call must resolve within the wait budget")
	}

	assert.EqualValues(t, calls, stats.TimeoutFallbacks())
	assert.EqualValues(t, calls, stats.RuleDecisions())
	assert.EqualValues(t, 0, stats.AIDecisions())
	assert.EqualValues(t, 0, stats.ErrorFallbacks())
}

func TestOracleErrorReturnsPromptly(t *testing.T) {
	oracle := oracleFunc(func(context.Context, domain.DecisionRequest) (string, error) {
		return "", errors.New("rate limited")
	})
	orc, stats := newTestOrchestrator(t, oracle, holdRules(), domain.ModeAI, 10*time.Second)

	start := time.Now()
	res, err := orc.Decide(context.Background(), testRequest())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceAIErrorFallback, res.Provenance)
	assert.Less(t, elapsed, time.Second, "error path must not wait for the full budget")
	assert.EqualValues(t, 1, stats.ErrorFallbacks())
	assert.EqualValues(t, 1, stats.RuleDecisions())
}

func TestMalformedPayloadFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not JSON", payload: "I think you should buy"},
		{name: "unknown action", payload: `{"action": "YOLO", "amount_pct": 10, "reason": "x"}`},
		{name: "empty", payload: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := oracleFunc(func(context.Context, domain.DecisionRequest) (string, error) {
				return tt.payload, nil
			})
			orc, stats := newTestOrchestrator(t, oracle, holdRules(), domain.ModeAI, time.Second)

			res, err := orc.Decide(context.Background(), testRequest())
			require.NoError(t, err)
			assert.Equal(t, domain.ProvenanceAIErrorFallback, res.Provenance)
			assert.EqualValues(t, 1, stats.ErrorFallbacks())
		})
	}
}

func TestLateReplyDiscarded(t *testing.T) {
	const budget = 50 * time.Millisecond

	// ignores cancellation and replies long after the deadline
	oracle := oracleFunc(func(context.Context, domain.DecisionRequest) (string, error) {
		time.Sleep(4 * budget)
		return validPayload, nil
	})
	orc, stats := newTestOrchestrator(t, oracle, holdRules(), domain.ModeAI, budget)

	res, err := orc.Decide(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceAITimeoutFallback, res.Provenance)
	assert.Equal(t, domain.ActionHold, res.Decision.Action)

	// let the late reply land, then verify it changed nothing
	time.Sleep(6 * budget)
	assert.EqualValues(t, 0, stats.AIDecisions())
	assert.EqualValues(t, 1, stats.TimeoutFallbacks())
	assert.EqualValues(t, 1, stats.RuleDecisions())
}

func TestRuleFallbackFailureIsFatal(t *testing.T) {
	oracle := oracleFunc(func(context.Context, domain.DecisionRequest) (string, error) {
		return "", errors.New("oracle down")
	})
	rules := rulesFunc(func(domain.DecisionRequest) (*domain.TradeDecision, error) {
		return nil, errors.New("rule engine broken")
	})
	orc, _ := newTestOrchestrator(t, oracle, rules, domain.ModeAI, time.Second)

	_, err := orc.Decide(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule fallback failed")
}

func TestInvalidRequestRejected(t *testing.T) {
	orc, stats := newTestOrchestrator(t, nil, holdRules(), domain.ModeRuleOnly, time.Second)

	req := testRequest()
	req.Investor.ID = ""
	_, err := orc.Decide(context.Background(), req)
	require.Error(t, err)

	req = testRequest()
	req.Date = time.Time{}
	_, err = orc.Decide(context.Background(), req)
	require.Error(t, err)

	assert.EqualValues(t, 0, stats.RuleDecisions())
}

func TestSummarize(t *testing.T) {
	t.Run("empty run", func(t *testing.T) {
		stats := domain.NewRunStatistics()
		report := stats.Summarize()
		assert.True(t, report.Empty())
		assert.Equal(t, 0.0, report.AIPercentage)
	})

	t.Run("all AI success", func(t *testing.T) {
		oracle := oracleFunc(func(context.Context, domain.DecisionRequest) (string, error) {
			return validPayload, nil
		})
		orc, stats := newTestOrchestrator(t, oracle, holdRules(), domain.ModeAI, time.Second)

		for i := 0; i < 4; i++ {
			_, err := orc.Decide(context.Background(), testRequest())
			require.NoError(t, err)
		}

		report := stats.Summarize()
		assert.EqualValues(t, 4, report.Total)
		assert.Equal(t, 100.0, report.AIPercentage)
	})
}

func TestMixedOutcomeRun(t *testing.T) {
	const budget = 50 * time.Millisecond

	var mu sync.Mutex
	call := 0
	oracle := oracleFunc(func(ctx context.Context, _ domain.DecisionRequest) (string, error) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()

		switch {
		case n <= 5:
			return validPayload, nil
		case n <= 7:
			<-ctx.Done()
			return "", ctx.Err()
		default:
			return "", errors.New("boom")
		}
	})
	orc, stats := newTestOrchestrator(t, oracle, holdRules(), domain.ModeAI, budget)

	for i := 0; i < 10; i++ {
		_, err := orc.Decide(context.Background(), testRequest())
		require.NoError(t, err)

		// exactly one outcome class per call, totals stay exact mid-run
		total := stats.AIDecisions() + stats.RuleDecisions()
		assert.EqualValues(t, i+1, total)
	}

	report := stats.Summarize()
	assert.EqualValues(t, 5, report.AIDecisions)
	assert.EqualValues(t, 2, report.TimeoutFallbacks)
	assert.EqualValues(t, 3, report.ErrorFallbacks)
	assert.EqualValues(t, 5, report.RuleDecisions)
	assert.Equal(t, 50.0, report.AIPercentage)
}

func TestConcurrentDecides(t *testing.T) {
	oracle := oracleFunc(func(context.Context, domain.DecisionRequest) (string, error) {
		return validPayload, nil
	})
	orc, stats := newTestOrchestrator(t, oracle, holdRules(), domain.ModeAI, time.Second)

	const goroutines = 32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, err := orc.Decide(context.Background(), testRequest())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, goroutines, stats.AIDecisions()+stats.RuleDecisions())
}
