// Package internal wires the simulation together: the day loop, the
// per-investor decision flow and the end-of-run reports.
package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/projectchronos/chronos/config"
	"github.com/projectchronos/chronos/internal/domain"
	"github.com/projectchronos/chronos/internal/services/debate"
	"github.com/projectchronos/chronos/internal/services/decision"
	"github.com/projectchronos/chronos/internal/services/market/collector"
	"github.com/projectchronos/chronos/internal/services/market/indicators"
	"github.com/projectchronos/chronos/internal/services/news"
	"github.com/projectchronos/chronos/internal/services/personas"
	"github.com/projectchronos/chronos/internal/services/portfolio"
	"github.com/projectchronos/chronos/internal/services/sentiment"
	"github.com/projectchronos/chronos/internal/services/trade"
	"github.com/projectchronos/chronos/internal/storage/decisions"
)

// indicatorLookback candles fed into the daily snapshot, enough for MA200
const indicatorLookback = 250

// DailyResult everything recorded for one simulated day.
type DailyResult struct {
	Date            string                     `json:"date"`
	BTCPrice        decimal.Decimal            `json:"btc_price"`
	BTCChangePct    float64                    `json:"btc_change_pct"`
	Decisions       map[string]DecisionSummary `json:"decisions"`
	PortfolioValues map[string]decimal.Decimal `json:"portfolio_values"`
	DebateFile      string                     `json:"debate_file,omitempty"`
}

// DecisionSummary the decision of one investor on one day.
type DecisionSummary struct {
	Action     string            `json:"action"`
	AmountPct  float64           `json:"amount_pct"`
	Reason     string            `json:"reason"`
	Confidence float64           `json:"confidence"`
	Provenance domain.Provenance `json:"provenance"`
}

// Simulator runs one backtest: every persona decides once per day and
// its portfolio is updated against the day's close.
type Simulator struct {
	cfg          config.Config
	logger       *zap.Logger
	registry     *personas.Registry
	orchestrator *decision.Orchestrator
	history      *collector.HistoryService
	fearGreed    *sentiment.FearGreedService
	newsCache    *news.Cache
	executor     *trade.Executor
	portfolios   map[string]*portfolio.Portfolio
	decisionLog  *decisions.WALStore
	debates      *debate.Generator

	dailyResults []DailyResult
}

// NewSimulator assembles a simulator from its services.
func NewSimulator(
	cfg config.Config,
	logger *zap.Logger,
	registry *personas.Registry,
	orchestrator *decision.Orchestrator,
	history *collector.HistoryService,
	fearGreed *sentiment.FearGreedService,
	newsCache *news.Cache,
	decisionLog *decisions.WALStore,
	debates *debate.Generator,
) (*Simulator, error) {
	if registry == nil || orchestrator == nil || history == nil {
		return nil, errors.New("registry, orchestrator and history are required")
	}

	portfolios := make(map[string]*portfolio.Portfolio)
	for _, id := range registry.IDs() {
		portfolios[id] = portfolio.New(logger, id, cfg.InitialCapital)
	}

	return &Simulator{
		cfg:          cfg,
		logger:       logger,
		registry:     registry,
		orchestrator: orchestrator,
		history:      history,
		fearGreed:    fearGreed,
		newsCache:    newsCache,
		executor:     trade.NewExecutor(logger),
		portfolios:   portfolios,
		decisionLog:  decisionLog,
		debates:      debates,
	}, nil
}

// Run executes the full backtest and writes the reports.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.history.Load(ctx, s.cfg.StartDate, s.cfg.EndDate); err != nil {
		return err
	}
	if s.fearGreed != nil {
		if err := s.fearGreed.Load(ctx); err != nil {
			return err
		}
	}

	totalDays := int(s.cfg.EndDate.Sub(s.cfg.StartDate).Hours()/24) + 1
	dayCount := 0

	s.logger.Info("starting backtest",
		zap.String("from", s.cfg.StartDate.Format("2006-01-02")),
		zap.String("to", s.cfg.EndDate.Format("2006-01-02")),
		zap.String("mode", string(s.cfg.Mode)),
		zap.Int("days", totalDays))

	for day := s.cfg.StartDate; !day.After(s.cfg.EndDate); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "simulation interrupted")
		}
		dayCount++

		candle, ok := s.history.CandleOn(day)
		if !ok {
			s.logger.Warn("no price data, skipping day", zap.String("date", day.Format("2006-01-02")))
			continue
		}

		if err := s.runDay(ctx, day, candle, dayCount, totalDays); err != nil {
			return err
		}
	}

	if err := s.writeReports(); err != nil {
		return err
	}
	s.logSummary()

	return nil
}

func (s *Simulator) runDay(ctx context.Context, day time.Time, candle domain.MarketCandle, dayCount, totalDays int) error {
	dateStr := day.Format("2006-01-02")
	price := candle.Close
	changePct := candle.ChangePct()

	s.logger.Info("simulating day",
		zap.String("progress", fmt.Sprintf("%d/%d", dayCount, totalDays)),
		zap.String("date", dateStr),
		zap.String("price", price.StringFixed(0)),
		zap.String("change", fmt.Sprintf("%+.2f%%", changePct)))

	tech, err := indicators.Snapshot(s.history.Window(day, indicatorLookback))
	if err != nil {
		return errors.Wrapf(err, "indicator snapshot failed for %s", dateStr)
	}

	results := make([]domain.DecisionResult, 0, len(s.registry.IDs()))
	decisionMap := make(map[string]DecisionSummary, len(s.registry.IDs()))
	valueMap := make(map[string]decimal.Decimal, len(s.registry.IDs()))

	for _, id := range s.registry.IDs() {
		p := s.portfolios[id]

		req := domain.DecisionRequest{
			Investor: s.registry.Investor(id),
			Date:     day,
			Context:  s.buildContext(id, day, candle, tech, p),
			Model:    s.cfg.Model,
		}

		res, err := s.orchestrator.Decide(ctx, req)
		if err != nil {
			return errors.Wrapf(err, "decision failed for %s on %s", id, dateStr)
		}

		if err := s.executor.Execute(p, res.Decision, dateStr, price); err != nil {
			return errors.Wrapf(err, "trade execution failed for %s on %s", id, dateStr)
		}
		p.TakeSnapshot(dateStr, price)

		if s.decisionLog != nil {
			event := domain.NewDecisionEvent(res, s.cfg.Model,
				price.StringFixed(2), p.TotalValue(price).StringFixed(2))
			if err := s.decisionLog.Save(event); err != nil {
				s.logger.Warn("failed to persist decision event", zap.Error(err))
			}
		}

		results = append(results, res)
		decisionMap[id] = DecisionSummary{
			Action:     string(res.Decision.Action),
			AmountPct:  res.Decision.AmountPct,
			Reason:     res.Decision.Reason,
			Confidence: res.Decision.Confidence,
			Provenance: res.Provenance,
		}
		valueMap[id] = p.TotalValue(price).Round(2)

		s.logger.Debug("investor decided",
			zap.String("investor", id),
			zap.String("action", string(res.Decision.Action)),
			zap.String("provenance", string(res.Provenance)),
			zap.String("portfolio", valueMap[id].StringFixed(0)))
	}

	result := DailyResult{
		Date:            dateStr,
		BTCPrice:        price,
		BTCChangePct:    changePct,
		Decisions:       decisionMap,
		PortfolioValues: valueMap,
	}

	if s.cfg.GenerateDebates && s.debates != nil {
		transcript := s.debates.Generate(ctx, dateStr, price, changePct, results)
		path, err := transcript.Save(filepath.Join(s.cfg.OutputDir, "debates"))
		if err != nil {
			s.logger.Warn("failed to save debate transcript", zap.Error(err))
		} else {
			result.DebateFile = path
		}
	}

	s.dailyResults = append(s.dailyResults, result)
	return nil
}

// buildContext assembles the market view for one investor, including only
// the data feeds its profile subscribes to.
func (s *Simulator) buildContext(id string, day time.Time, candle domain.MarketCandle, tech *domain.TechnicalSnapshot, p *portfolio.Portfolio) domain.MarketContext {
	price := candle.Close

	ctx := domain.MarketContext{
		Date:      day.Format("2006-01-02"),
		Price:     price,
		ChangePct: candle.ChangePct(),
		Portfolio: p.State(price),
	}

	persona, ok := s.registry.Get(id)
	if !ok {
		return ctx
	}
	profile := persona.Profile()

	if profile.UseTechnical {
		ctx.Technical = tech
	}
	if profile.UseFearGreed && s.fearGreed != nil {
		if reading, ok := s.fearGreed.On(day); ok {
			ctx.FearGreed = reading
		}
	}
	if profile.UseNews && s.newsCache != nil {
		ctx.NewsItems = s.newsCache.On(day)
	}

	return ctx
}

func (s *Simulator) writeReports() error {
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output dir")
	}

	data, err := json.MarshalIndent(s.dailyResults, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal daily results")
	}
	resultsPath := filepath.Join(s.cfg.OutputDir, "daily_results.json")
	if err := os.WriteFile(resultsPath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write daily results")
	}
	s.logger.Info("daily results saved", zap.String("path", resultsPath))

	for id, p := range s.portfolios {
		csv, err := p.ExportTradesCSV()
		if err != nil {
			return errors.Wrapf(err, "failed to export trades for %s", id)
		}
		csvPath := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("transactions_%s.csv", id))
		if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
			return errors.Wrapf(err, "failed to write trades for %s", id)
		}
		s.logger.Info("trade log saved", zap.String("path", csvPath))
	}

	report := s.orchestrator.Summary()
	reportData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal decision report")
	}
	reportPath := filepath.Join(s.cfg.OutputDir, "decision_stats.json")
	if err := os.WriteFile(reportPath, reportData, 0o644); err != nil {
		return errors.Wrap(err, "failed to write decision report")
	}

	return nil
}

func (s *Simulator) logSummary() {
	if len(s.dailyResults) == 0 {
		return
	}

	first := s.dailyResults[0]
	last := s.dailyResults[len(s.dailyResults)-1]

	btcReturn := 0.0
	if first.BTCPrice.IsPositive() {
		btcReturn, _ = last.BTCPrice.Sub(first.BTCPrice).
			Div(first.BTCPrice).Mul(decimal.NewFromInt(100)).Float64()
	}

	s.logger.Info("backtest finished",
		zap.String("period", fmt.Sprintf("%s .. %s", first.Date, last.Date)),
		zap.String("btc", fmt.Sprintf("$%s -> $%s (%+.2f%%)",
			first.BTCPrice.StringFixed(0), last.BTCPrice.StringFixed(0), btcReturn)))

	if s.cfg.Mode == domain.ModeAI {
		report := s.orchestrator.Summary()
		s.logger.Info("decision statistics",
			zap.Int64("total", report.Total),
			zap.Int64("ai_success", report.AIDecisions),
			zap.Int64("rule_decisions", report.RuleDecisions),
			zap.Int64("timeout_fallbacks", report.TimeoutFallbacks),
			zap.Int64("error_fallbacks", report.ErrorFallbacks),
			zap.String("ai_percentage", fmt.Sprintf("%.1f%%", report.AIPercentage)))
	}

	type ranked struct {
		id        string
		value     decimal.Decimal
		returnPct float64
		beatBTC   bool
	}

	var ranking []ranked
	for _, id := range s.registry.IDs() {
		p := s.portfolios[id]
		returnPct := p.ReturnPct(last.BTCPrice)
		ranking = append(ranking, ranked{
			id:        id,
			value:     p.TotalValue(last.BTCPrice),
			returnPct: returnPct,
			beatBTC:   returnPct > btcReturn,
		})
	}
	sort.Slice(ranking, func(i, j int) bool {
		return ranking[i].returnPct > ranking[j].returnPct
	})

	for i, r := range ranking {
		s.logger.Info("investor result",
			zap.Int("rank", i+1),
			zap.String("investor", r.id),
			zap.String("final_value", r.value.StringFixed(0)),
			zap.String("return", fmt.Sprintf("%+.2f%%", r.returnPct)),
			zap.Bool("beat_btc", r.beatBTC))
	}
}

// Portfolios exposes the per-investor portfolios, used by reports and tests.
func (s *Simulator) Portfolios() map[string]*portfolio.Portfolio {
	return s.portfolios
}

// DailyResults returns the recorded day-by-day outcomes.
func (s *Simulator) DailyResults() []DailyResult {
	return s.dailyResults
}
