// Package personas defines the simulated investor characters. Each persona
// carries an investment philosophy expressed twice: as LLM prompts for the
// AI path and as a deterministic rule policy used when the AI is disabled
// or unavailable.
package personas

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/projectchronos/chronos/internal/domain"
)

// Profile static configuration of one investor persona.
type Profile struct {
	ID            string
	Name          string
	Style         string
	Philosophy    string
	RiskTolerance string

	// information subscriptions
	UseNews      bool
	UseTechnical bool
	UseFearGreed bool

	MaxPositionPct float64
	MinTradePct    float64
}

// Persona one simulated investor.
type Persona interface {
	Profile() Profile
	// SystemPrompt builds the LLM system prompt for the given simulated date.
	SystemPrompt(date string) string
	// RuleDecision produces the deterministic decision for the day.
	RuleDecision(ctx domain.MarketContext) (*domain.TradeDecision, error)
}

// ChatClient is the LLM surface personas need for AI decisions.
type ChatClient interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Registry holds all personas of a run in stable order.
type Registry struct {
	order    []string
	personas map[string]Persona
}

// NewRegistry creates a registry with the standard four investors.
func NewRegistry() *Registry {
	all := []Persona{&Guardian{}, &Degen{}, &Quant{}, &Strategist{}}

	reg := &Registry{personas: make(map[string]Persona, len(all))}
	for _, p := range all {
		reg.order = append(reg.order, p.Profile().ID)
		reg.personas[p.Profile().ID] = p
	}

	return reg
}

// IDs returns persona IDs in registration order.
func (r *Registry) IDs() []string {
	return r.order
}

// Get returns the persona with the given ID.
func (r *Registry) Get(id string) (Persona, bool) {
	p, ok := r.personas[id]
	return p, ok
}

// Investor returns the domain identity of the persona with the given ID.
func (r *Registry) Investor(id string) domain.Investor {
	p, ok := r.personas[id]
	if !ok {
		return domain.Investor{ID: id, Name: id}
	}
	return domain.Investor{ID: p.Profile().ID, Name: p.Profile().Name}
}

// RulePolicy exposes the registry as a deterministic decision policy,
// dispatching each request to its investor's rules.
func (r *Registry) RulePolicy() *RegistryRules {
	return &RegistryRules{reg: r}
}

// Oracle exposes the registry as an AI oracle: it builds persona prompts
// and forwards them to the LLM client.
func (r *Registry) Oracle(client ChatClient) *RegistryOracle {
	return &RegistryOracle{reg: r, client: client}
}

// RegistryRules dispatches rule decisions by investor ID.
type RegistryRules struct {
	reg *Registry
}

// Decide runs the investor's rule policy.
func (rr *RegistryRules) Decide(req domain.DecisionRequest) (*domain.TradeDecision, error) {
	p, ok := rr.reg.Get(req.Investor.ID)
	if !ok {
		return nil, errors.Errorf("unknown investor: %s", req.Investor.ID)
	}
	return p.RuleDecision(req.Context)
}

// RegistryOracle asks the LLM for a decision using persona prompts.
type RegistryOracle struct {
	reg    *Registry
	client ChatClient
}

// Decide builds the persona's prompts and forwards them to the LLM.
func (ro *RegistryOracle) Decide(ctx context.Context, req domain.DecisionRequest) (string, error) {
	p, ok := ro.reg.Get(req.Investor.ID)
	if !ok {
		return "", errors.Errorf("unknown investor: %s", req.Investor.ID)
	}

	systemPrompt := p.SystemPrompt(req.Context.Date)
	userPrompt := BuildDecisionPrompt(p.Profile(), req.Context)

	return ro.client.Chat(ctx, systemPrompt, userPrompt)
}

// BuildDecisionPrompt renders the daily decision request for the LLM,
// including only the information the persona subscribes to. The prompt is
// kept compact to reduce latency on slow models.
func BuildDecisionPrompt(profile Profile, ctx domain.MarketContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Make today's investment decision from the following data:\n\n")
	fmt.Fprintf(&b, "Date: %s\n", ctx.Date)
	fmt.Fprintf(&b, "BTC price: $%s\n", ctx.Price.StringFixed(2))
	fmt.Fprintf(&b, "Daily change: %+.2f%%\n", ctx.ChangePct)

	if profile.UseTechnical && ctx.Technical != nil {
		tech := ctx.Technical
		b.WriteString("\nTechnical indicators:\n")
		if tech.RSI14 != nil {
			fmt.Fprintf(&b, "- RSI(14): %.1f (%s)\n", *tech.RSI14, orNA(string(tech.RSISignal)))
		}
		fmt.Fprintf(&b, "- MACD signal: %s\n", orNA(string(tech.MACDSignal)))
		if tech.MA50 != nil {
			fmt.Fprintf(&b, "- MA50: $%s\n", tech.MA50.StringFixed(2))
		}
		if tech.MA200 != nil {
			fmt.Fprintf(&b, "- MA200: $%s\n", tech.MA200.StringFixed(2))
		}
		fmt.Fprintf(&b, "- Bollinger position: %s\n", orNA(string(tech.BandPosition)))
		fmt.Fprintf(&b, "- Overall signal: %s\n", orNA(string(tech.OverallSignal)))
	}

	if profile.UseFearGreed && ctx.FearGreed != nil {
		fmt.Fprintf(&b, "\nMarket sentiment:\n- Fear & Greed Index: %d (%s)\n",
			ctx.FearGreed.Value, ctx.FearGreed.Classification)
	}

	if profile.UseNews && len(ctx.NewsItems) > 0 {
		b.WriteString("\nToday's news:\n")
		items := ctx.NewsItems
		if len(items) > 5 {
			items = items[:5]
		}
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item.Title)
		}
	}

	fmt.Fprintf(&b, "\nYour portfolio:\n")
	fmt.Fprintf(&b, "- Total value: $%s\n", ctx.Portfolio.TotalValue.StringFixed(2))
	fmt.Fprintf(&b, "- USD balance: $%s\n", ctx.Portfolio.USDBalance.StringFixed(2))
	fmt.Fprintf(&b, "- BTC holdings: %s BTC\n", ctx.Portfolio.BTCQuantity.StringFixed(6))
	fmt.Fprintf(&b, "- Cumulative return: %+.2f%%\n", ctx.Portfolio.ReturnPct)

	b.WriteString(`
Reply with JSON only:
` + "```json" + `
{
    "action": "BUY" | "SELL" | "HOLD",
    "amount_pct": 0-100,
    "reason": "short reasoning (max 50 words)",
    "confidence": 0-100
}
` + "```" + `

amount_pct is a percentage of available USD for BUY, of held BTC for SELL.
`)

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

const timeAnchorPrompt = `## Time setting
Today is %s. You do not know anything about tomorrow or the future.
You may only reason over today's and earlier information.`
