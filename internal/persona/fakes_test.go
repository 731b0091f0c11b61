// AngelaMos | 2026
// fakes_test.go

package persona

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/angelamos/personaforge/internal/core"
)

// memRepo is an in-memory Repository with the same conditional-update
// semantics as the SQL implementation.
type memRepo struct {
	mu      sync.Mutex
	rows    map[string]*Persona
	buyers  map[string][]BuyerPersona
	failOps map[string]error
}

func newMemRepo() *memRepo {
	return &memRepo{
		rows:    make(map[string]*Persona),
		buyers:  make(map[string][]BuyerPersona),
		failOps: make(map[string]error),
	}
}

func (r *memRepo) failOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOps[op] = err
}

func (r *memRepo) injected(op string) error {
	return r.failOps[op]
}

func (r *memRepo) Create(_ context.Context, p *Persona) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.injected("create"); err != nil {
		return err
	}

	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Persona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("get persona: %w", core.ErrNotFound)
	}

	cp := *p
	return &cp, nil
}

func (r *memRepo) MarkUnlocked(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.injected("unlock"); err != nil {
		return err
	}

	p, ok := r.rows[id]
	if !ok || p.IsUnlocked {
		return fmt.Errorf("mark unlocked: %w", core.ErrConflict)
	}

	p.IsUnlocked = true
	return nil
}

func (r *memRepo) Relock(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.injected("relock"); err != nil {
		return err
	}

	p, ok := r.rows[id]
	if !ok || !p.IsUnlocked {
		return fmt.Errorf("relock persona: %w", core.ErrNotFound)
	}

	p.IsUnlocked = false
	return nil
}

func (r *memRepo) ListForUser(
	_ context.Context,
	userID string,
	limit, offset int,
) ([]Persona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []Persona
	for _, p := range r.rows {
		if p.UserID != nil && *p.UserID == userID {
			all = append(all, *p)
		}
	}

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *memRepo) CountForUser(
	_ context.Context,
	userID string,
) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, p := range r.rows {
		if p.UserID != nil && *p.UserID == userID {
			n++
		}
	}
	return n, nil
}

// CreateWithBuyer mirrors the SQL implementation's all-or-nothing write.
func (r *memRepo) CreateWithBuyer(
	_ context.Context,
	p *Persona,
	bp *BuyerPersona,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.injected("create"); err != nil {
		return err
	}
	if err := r.injected("create_buyer"); err != nil {
		return err
	}

	cp := *p
	r.rows[p.ID] = &cp
	r.buyers[bp.CompanyProfileID] = append(
		r.buyers[bp.CompanyProfileID], *bp)
	return nil
}

// CreateBuyerPersona seeds buyer rows directly; production code writes
// them through CreateWithBuyer.
func (r *memRepo) CreateBuyerPersona(
	_ context.Context,
	bp *BuyerPersona,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buyers[bp.CompanyProfileID] = append(
		r.buyers[bp.CompanyProfileID], *bp)
	return nil
}

func (r *memRepo) ListBuyerPersonasForCompany(
	_ context.Context,
	companyProfileID string,
) ([]BuyerPersona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]BuyerPersona(nil), r.buyers[companyProfileID]...), nil
}

func (r *memRepo) Counts(_ context.Context) (map[PersonaType]int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[PersonaType]int)
	unlocked := 0
	for _, p := range r.rows {
		counts[p.Type]++
		if p.IsUnlocked {
			unlocked++
		}
	}
	return counts, unlocked, nil
}

func (r *memRepo) CountUnlocked(ctx context.Context) (int, error) {
	_, n, err := r.Counts(ctx)
	return n, err
}

func (r *memRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

var _ Repository = (*memRepo)(nil)

// memCredits mirrors the conditional credit writes of the user store.
// staleRead makes FreeCreditUsed report an unspent credit regardless of
// state, modelling a read that raced a concurrent spend.
type memCredits struct {
	mu          sync.Mutex
	used        map[string]bool
	staleRead   bool
	consumeErr  error
	consumedCnt int
}

func newMemCredits() *memCredits {
	return &memCredits{used: make(map[string]bool)}
}

func (c *memCredits) FreeCreditUsed(
	_ context.Context,
	userID string,
) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.staleRead {
		return false, nil
	}
	return c.used[userID], nil
}

func (c *memCredits) ConsumeFreeCredit(
	_ context.Context,
	userID string,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consumeErr != nil {
		return c.consumeErr
	}

	if c.used[userID] {
		return fmt.Errorf("consume free credit: %w", core.ErrConflict)
	}

	c.used[userID] = true
	c.consumedCnt++
	return nil
}

var _ UserCredits = (*memCredits)(nil)

// stubClient returns a canned completion and counts calls, so tests can
// assert that authorization failures never reach the model.
type stubClient struct {
	response string
	err      error
	calls    atomic.Int32
}

func (c *stubClient) Complete(
	_ context.Context,
	_, _ string,
	_ int,
) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

// disconnectingClient plays a caller that goes away while the model call
// is in flight: it cancels the request context mid-completion, then only
// answers if the context it was handed is still live.
type disconnectingClient struct {
	response string
	cancel   context.CancelFunc
}

func (c *disconnectingClient) Complete(
	ctx context.Context,
	_, _ string,
	_ int,
) (string, error) {
	c.cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.response, nil
}

type allowAllDepthGate struct{}

func (allowAllDepthGate) AllowsDepth(context.Context, string) bool {
	return true
}

const validIndividualJSON = `{
	"name": "Maren Kofoed",
	"age": 34,
	"occupation": "Operations lead",
	"summary": "A pragmatic operations lead who buys to save time.",
	"demographics": {
		"age_range": "30-40",
		"gender": "female",
		"location": "Copenhagen",
		"income": "upper-middle",
		"education": "MSc",
		"occupation": "Operations lead"
	},
	"psychographics": {
		"traits": ["pragmatic", "data-driven"],
		"interests": ["cycling", "productivity tools"],
		"lifestyle": "busy urban professional"
	},
	"pain_points": ["manual reporting", "tool sprawl"],
	"motivations": {
		"core_values": ["efficiency", "reliability"],
		"drivers": ["time savings"],
		"fears": ["vendor lock-in"]
	},
	"buying_journey": {
		"trigger_events": ["quarter-end crunch"],
		"research_habits": ["peer recommendations"],
		"decision_criteria": ["integration depth"],
		"objections": ["migration effort"]
	},
	"personality_type": {
		"archetype": "The Analyst",
		"summary": "Methodical and skeptical of claims.",
		"communication_style": "direct, numbers first"
	},
	"psychological_depth": {
		"hidden_motivators": ["fear of looking wasteful"],
		"cognitive_biases": ["status quo bias"],
		"emotional_triggers": ["loss of control"],
		"decision_shortcuts": ["social proof"]
	}
}`

const validCompanyJSON = `{
	"company_name": "Nordvik Logistics",
	"industry": "Freight forwarding",
	"company_size": "200-500",
	"summary": "A regional freight forwarder modernizing its operations.",
	"culture": "Consensus-driven, cost-conscious, slow to adopt new vendors.",
	"buying_process": {
		"stages": ["problem framing", "shortlist", "pilot", "procurement"],
		"cycle_length": "4-6 months",
		"approval_chain": ["ops director", "CFO"]
	},
	"challenges": ["margin pressure", "driver shortage"],
	"goals": ["automate dispatch", "cut fuel costs"],
	"motivations": {
		"core_values": ["dependability", "cost control"],
		"drivers": ["operational efficiency"],
		"fears": ["downtime during rollout"]
	},
	"buyer_roles": [
		{
			"role": "Operations Director",
			"description": "Owns dispatch and fleet utilization.",
			"challenges": ["legacy TMS"]
		}
	],
	"psychological_depth": {
		"hidden_motivators": ["board pressure"],
		"cognitive_biases": ["sunk cost"],
		"emotional_triggers": ["missed SLAs"],
		"decision_shortcuts": ["reference customers"]
	}
}`

func testBusinessContext() BusinessContext {
	return BusinessContext{
		Name:          "RouteMate",
		Sector:        "Logistics software",
		PricePosition: "mid-market",
		ProblemSolved: "Manual dispatch planning wastes hours daily",
		USP:           "One-click dispatch optimization",
	}
}
