// AngelaMos | 2026
// service.go

package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/angelamos/personaforge/internal/core"
	"github.com/angelamos/personaforge/internal/genai"
)

var (
	ErrInvalidRequest      = errors.New("invalid generation request")
	ErrUpstreamUnavailable = errors.New("generation upstream unavailable")
	ErrMalformedGeneration = errors.New("generation produced a malformed document")
	ErrPersistenceFailure  = errors.New("generated persona could not be saved")
)

// Actor is the caller identity attached to a request. A zero UserID means
// anonymous.
type Actor struct {
	UserID string
	Role   string
	Tier   string
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// personaSink is the single persistence capability the orchestrator
// writes through. The branch between durable and preview storage happens
// once, when the sink is chosen, never inside the pipeline.
type personaSink interface {
	Save(ctx context.Context, p *Persona) error
}

type repositorySink struct {
	repo Repository
}

func (s repositorySink) Save(ctx context.Context, p *Persona) error {
	return s.repo.Create(ctx, p)
}

type previewSink struct {
	store *PreviewStore
}

func (s previewSink) Save(_ context.Context, p *Persona) error {
	s.store.Put(p)
	return nil
}

type GenerateInput struct {
	Type            PersonaType
	BusinessContext BusinessContext
	CompanyID       string
	BuyerRole       BuyerRole
}

type GenerationResult struct {
	PersonaID string
	Document  *Document
	IsPreview bool
}

// Service drives the generation pipeline: format -> complete -> parse ->
// persist. It never writes partial records; a persona row exists only if
// parsing succeeded.
type Service struct {
	repo      Repository
	previews  *PreviewStore
	client    genai.Client
	maxTokens int
	logger    *slog.Logger
}

func NewService(
	repo Repository,
	previews *PreviewStore,
	client genai.Client,
	maxTokens int,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		previews:  previews,
		client:    client,
		maxTokens: maxTokens,
		logger:    logger.With("component", "persona"),
	}
}

func (s *Service) Generate(
	ctx context.Context,
	actor Actor,
	input GenerateInput,
) (*GenerationResult, error) {
	// Completions are billable. A caller that disconnects mid-flight must
	// not abort the upstream call or lose the result, so the pipeline is
	// detached from the request context; the genai client's own timeout
	// remains the bound.
	ctx = context.WithoutCancel(ctx)

	if err := validateInput(actor, input); err != nil {
		return nil, err
	}

	// Buyer generation references an existing company persona. Ownership
	// is verified before the model is called so an authorization failure
	// never spends model cost.
	var companyDoc *CompanyDocument
	if input.Type == TypeB2BBuyer {
		company, err := s.authorizeCompany(ctx, actor, input.CompanyID)
		if err != nil {
			return nil, err
		}
		companyDoc = company
	}

	userPrompt := buildUserPrompt(
		input.Type,
		input.BusinessContext,
		companyDoc,
		input.BuyerRole,
	)

	completion, err := s.client.Complete(ctx, systemPrompt, userPrompt, s.maxTokens)
	if err != nil {
		s.logger.Warn("generation upstream failed",
			"type", input.Type,
			"error", err,
		)
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	doc, err := ParseDocument(completion, input.Type)
	if err != nil {
		// Syntax and schema failures are the same outcome for the caller
		// but different signals for operators.
		if errors.Is(err, ErrSyntaxInvalid) {
			s.logger.Warn("completion was not valid JSON",
				"type", input.Type,
				"error", err,
			)
		} else {
			s.logger.Warn("completion failed schema validation",
				"type", input.Type,
				"error", err,
			)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedGeneration, err)
	}

	p, err := buildPersona(actor, input, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	// Buyer personas are always durable (authorization already required a
	// signed-in owner) and land with their buyer_personas row atomically.
	if input.Type == TypeB2BBuyer {
		bp := &BuyerPersona{
			ID:               uuid.New().String(),
			CompanyProfileID: input.CompanyID,
			PersonaData:      p.PersonaData,
		}
		if err := s.repo.CreateWithBuyer(ctx, p, bp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
	} else {
		sink := s.chooseSink(actor)
		if err := sink.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
	}

	core.AddSpanEvent(ctx, "persona.generated",
		attribute.String("persona.type", string(input.Type)),
		attribute.Bool("persona.preview", p.IsPreview()),
	)

	s.logger.Info("persona generated",
		"persona_id", p.ID,
		"type", input.Type,
		"preview", p.IsPreview(),
	)

	return &GenerationResult{
		PersonaID: p.ID,
		Document:  doc,
		IsPreview: p.IsPreview(),
	}, nil
}

func (s *Service) chooseSink(actor Actor) personaSink {
	if actor.Authenticated() {
		return repositorySink{repo: s.repo}
	}
	return previewSink{store: s.previews}
}

func (s *Service) authorizeCompany(
	ctx context.Context,
	actor Actor,
	companyID string,
) (*CompanyDocument, error) {
	if !actor.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	company, err := s.repo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if company.Type != TypeB2BCompany {
		return nil, fmt.Errorf(
			"%w: %s is not a company persona", ErrInvalidRequest, companyID)
	}

	if !company.IsOwnedBy(actor.UserID) && actor.Role != "admin" {
		return nil, ErrNotOwner
	}

	doc, err := company.Document()
	if err != nil {
		return nil, fmt.Errorf("load company profile: %w", err)
	}

	return doc.Company, nil
}

func validateInput(actor Actor, input GenerateInput) error {
	if !input.Type.Valid() {
		return fmt.Errorf("%w: unknown persona type %q", ErrInvalidRequest, input.Type)
	}

	bc := input.BusinessContext
	if strings.TrimSpace(bc.Name) == "" ||
		strings.TrimSpace(bc.Sector) == "" ||
		strings.TrimSpace(bc.ProblemSolved) == "" {
		return fmt.Errorf(
			"%w: business context requires name, sector and problem_solved",
			ErrInvalidRequest,
		)
	}

	if input.Type == TypeB2BBuyer {
		if input.CompanyID == "" {
			return fmt.Errorf(
				"%w: buyer personas require company_id", ErrInvalidRequest)
		}
		if strings.TrimSpace(input.BuyerRole.Role) == "" {
			return fmt.Errorf(
				"%w: buyer personas require buyer_role.role", ErrInvalidRequest)
		}
	}

	_ = actor
	return nil
}

func buildPersona(
	actor Actor,
	input GenerateInput,
	doc *Document,
) (*Persona, error) {
	p := &Persona{
		ID:              uuid.New().String(),
		Type:            input.Type,
		BusinessContext: input.BusinessContext,
		IsUnlocked:      false,
		IsComplete:      true,
	}

	if actor.Authenticated() {
		userID := actor.UserID
		p.UserID = &userID
	}

	if input.Type == TypeB2BBuyer {
		companyID := input.CompanyID
		p.CompanyID = &companyID
	}

	if doc.Individual != nil {
		raw, err := json.Marshal(doc.Individual)
		if err != nil {
			return nil, fmt.Errorf("encode individual payload: %w", err)
		}
		p.PersonaData = raw
	} else {
		raw, err := json.Marshal(doc.Company)
		if err != nil {
			return nil, fmt.Errorf("encode company payload: %w", err)
		}
		p.CompanyProfile = raw
	}

	return p, nil
}

// PersonaView is the redacted read model returned to callers.
type PersonaView struct {
	PersonaID  string
	Type       PersonaType
	Document   map[string]any
	IsUnlocked bool
	IsOwner    bool
	IsPreview  bool
}

// GetPersona resolves a persona from durable storage first, then the
// preview store, and redacts it for the calling actor before it leaves
// the service.
func (s *Service) GetPersona(
	ctx context.Context,
	actor Actor,
	depthGate DepthGate,
	personaID string,
) (*PersonaView, error) {
	p, err := s.repo.GetByID(ctx, personaID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		preview, ok := s.previews.Get(personaID)
		if !ok {
			return nil, fmt.Errorf("get persona: %w", core.ErrNotFound)
		}
		p = preview
	}

	doc, err := p.Document()
	if err != nil {
		return nil, fmt.Errorf("decode persona: %w", err)
	}

	isOwner := p.IsOwnedBy(actor.UserID)

	// Unlocked content is the owner's: other users get the preview view
	// even for an unlocked persona. Admins see everything.
	effectiveUnlock := p.IsUnlocked && (isOwner || actor.Role == "admin")

	visible := VisibleSections(effectiveUnlock, actor.Role)
	if depthGate != nil && actor.Authenticated() &&
		depthGate.AllowsDepth(ctx, actor.UserID) && isOwner {
		visible[SectionPsychologicalDepth] = struct{}{}
	}

	return &PersonaView{
		PersonaID:  p.ID,
		Type:       p.Type,
		Document:   Redact(doc, visible),
		IsUnlocked: p.IsUnlocked,
		IsOwner:    isOwner,
		IsPreview:  p.IsPreview(),
	}, nil
}

// ListForUser pages through a user's durable personas and reports the
// total matching count alongside the page.
func (s *Service) ListForUser(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]Persona, int, error) {
	total, err := s.repo.CountForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	personas, err := s.repo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return personas, total, nil
}

// ListBuyers returns the buyer personas generated against a company
// persona. Authorization resolves through the parent company's owner.
func (s *Service) ListBuyers(
	ctx context.Context,
	actor Actor,
	companyID string,
) ([]BuyerPersona, error) {
	if !actor.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	company, err := s.repo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if company.Type != TypeB2BCompany {
		return nil, fmt.Errorf("get company: %w", core.ErrNotFound)
	}

	if !company.IsOwnedBy(actor.UserID) && actor.Role != "admin" {
		return nil, ErrNotOwner
	}

	return s.repo.ListBuyerPersonasForCompany(ctx, companyID)
}

// Stats feeds the admin surface.
type Stats struct {
	ByType   map[PersonaType]int
	Unlocked int
	Previews int
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	byType, unlocked, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		ByType:   byType,
		Unlocked: unlocked,
		Previews: s.previews.Len(),
	}, nil
}
