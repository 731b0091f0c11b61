// AngelaMos | 2026
// handler.go

package persona

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/personaforge/internal/core"
	"github.com/angelamos/personaforge/internal/middleware"
)

type Handler struct {
	service     *Service
	entitlement *EntitlementService
	depthGate   DepthGate
	validate    *validator.Validate
}

func NewHandler(
	service *Service,
	entitlement *EntitlementService,
	depthGate DepthGate,
) *Handler {
	return &Handler{
		service:     service,
		entitlement: entitlement,
		depthGate:   depthGate,
		validate:    validator.New(),
	}
}

// Routes mounts the persona surface. Generation and reads accept
// anonymous callers (previews); unlock and buyer listing require auth.
func (h *Handler) Routes(
	requireAuth func(http.Handler) http.Handler,
	optionalAuth func(http.Handler) http.Handler,
	generationLimit func(http.Handler) http.Handler,
) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.With(generationLimit).Post("/", h.Generate)
		r.Get("/{personaID}", h.GetPersona)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.ListMine)
		r.Post("/{personaID}/unlock", h.Unlock)
		r.Get("/{personaID}/buyers", h.ListBuyers)
	})

	return r
}

func actorFrom(r *http.Request) Actor {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		return Actor{}
	}
	return Actor{
		UserID: claims.UserID,
		Role:   claims.Role,
		Tier:   claims.Tier,
	}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	actor := actorFrom(r)

	result, err := h.service.Generate(r.Context(), actor, req.toInput())
	if err != nil {
		writePersonaError(w, err)
		return
	}

	visible := VisibleSections(false, actor.Role)

	core.Created(w, GenerateResponse{
		PersonaID: result.PersonaID,
		Type:      req.Type,
		Document:  Redact(result.Document, visible),
		IsPreview: result.IsPreview,
	})
}

func (h *Handler) GetPersona(w http.ResponseWriter, r *http.Request) {
	personaID := chi.URLParam(r, "personaID")
	if personaID == "" {
		core.BadRequest(w, "persona id is required")
		return
	}

	view, err := h.service.GetPersona(
		r.Context(),
		actorFrom(r),
		h.depthGate,
		personaID,
	)
	if err != nil {
		writePersonaError(w, err)
		return
	}

	core.OK(w, PersonaResponse{
		PersonaID:  view.PersonaID,
		Type:       string(view.Type),
		Document:   view.Document,
		IsUnlocked: view.IsUnlocked,
		IsOwner:    view.IsOwner,
		IsPreview:  view.IsPreview,
	})
}

func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	personaID := chi.URLParam(r, "personaID")
	if personaID == "" {
		core.BadRequest(w, "persona id is required")
		return
	}

	userID := middleware.GetUserID(r.Context())

	err := h.entitlement.UnlockWithFreeCredit(r.Context(), userID, personaID)
	if err != nil {
		writePersonaError(w, err)
		return
	}

	core.OK(w, UnlockResponse{PersonaID: personaID, IsUnlocked: true})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	page, pageSize := paginationParams(r)

	personas, total, err := h.service.ListForUser(
		r.Context(),
		userID,
		pageSize,
		(page-1)*pageSize,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	summaries := make([]PersonaSummary, 0, len(personas))
	for _, p := range personas {
		summaries = append(summaries, PersonaSummary{
			PersonaID:  p.ID,
			Type:       string(p.Type),
			Business:   p.BusinessContext.Name,
			IsUnlocked: p.IsUnlocked,
			CreatedAt:  p.CreatedAt,
		})
	}

	core.Paginated(w, summaries, page, pageSize, total)
}

func paginationParams(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 20

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil &&
		v > 0 && v <= 100 {
		pageSize = v
	}

	return page, pageSize
}

func (h *Handler) ListBuyers(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "personaID")
	if companyID == "" {
		core.BadRequest(w, "persona id is required")
		return
	}

	buyers, err := h.service.ListBuyers(r.Context(), actorFrom(r), companyID)
	if err != nil {
		writePersonaError(w, err)
		return
	}

	responses := make([]BuyerPersonaResponse, 0, len(buyers))
	for _, b := range buyers {
		var doc map[string]any
		if err := json.Unmarshal(b.PersonaData, &doc); err != nil {
			core.InternalServerError(w, err)
			return
		}
		responses = append(responses, BuyerPersonaResponse{
			BuyerPersonaID: b.ID,
			CompanyID:      b.CompanyProfileID,
			Document:       doc,
			CreatedAt:      b.CreatedAt,
		})
	}

	core.OK(w, responses)
}

// writePersonaError maps domain errors to the stable wire codes clients
// key off. Anything unmapped falls through as an internal error.
func writePersonaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		core.JSONError(w, core.BadRequestError(err.Error()))
	case errors.Is(err, ErrNotAuthenticated):
		core.JSONError(w, core.UnauthorizedError("authentication required"))
	case errors.Is(err, ErrNotOwner):
		core.JSONError(w, core.NewAppError(
			"NOT_OWNER",
			"persona is not owned by the caller",
			http.StatusForbidden,
		))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "persona")
	case errors.Is(err, ErrAlreadyUnlocked):
		core.JSONError(w, core.ConflictError(
			"ALREADY_UNLOCKED",
			"persona is already unlocked",
		))
	case errors.Is(err, ErrCreditAlreadyUsed):
		core.JSONError(w, core.ConflictError(
			"CREDIT_ALREADY_USED",
			"free persona credit has already been used",
		))
	case errors.Is(err, ErrUpstreamUnavailable):
		core.JSONError(w, core.NewAppError(
			"UPSTREAM_UNAVAILABLE",
			"persona generation is temporarily unavailable",
			http.StatusBadGateway,
		))
	case errors.Is(err, ErrMalformedGeneration):
		core.JSONError(w, core.NewAppError(
			"MALFORMED_GENERATION",
			"persona generation produced an unusable result",
			http.StatusBadGateway,
		))
	case errors.Is(err, ErrCompensationFailed):
		core.JSONError(w, core.NewAppError(
			"COMPENSATION_FAILED",
			"unlock could not be completed or rolled back",
			http.StatusInternalServerError,
		))
	case errors.Is(err, ErrPersistenceFailure):
		core.JSONError(w, core.NewAppError(
			"PERSISTENCE_FAILURE",
			"generated persona could not be saved",
			http.StatusInternalServerError,
		))
	default:
		core.InternalServerError(w, err)
	}
}
