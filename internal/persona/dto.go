// AngelaMos | 2026
// dto.go

package persona

import "time"

type BusinessContextRequest struct {
	Name               string   `json:"name" validate:"required,min=1,max=200"`
	Sector             string   `json:"sector" validate:"required,min=1,max=200"`
	PricePosition      string   `json:"price_position" validate:"omitempty,max=200"`
	TargetLocation     string   `json:"target_location" validate:"omitempty,max=200"`
	ProblemSolved      string   `json:"problem_solved" validate:"required,min=1,max=2000"`
	USP                string   `json:"usp" validate:"omitempty,max=2000"`
	CompanySize        string   `json:"company_size" validate:"omitempty,max=200"`
	Industry           string   `json:"industry" validate:"omitempty,max=200"`
	DecisionMakerRoles []string `json:"decision_maker_roles" validate:"omitempty,dive,max=200"`
}

type BuyerRoleRequest struct {
	Role        string   `json:"role" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"omitempty,max=2000"`
	Challenges  []string `json:"challenges" validate:"omitempty,dive,max=500"`
}

type GenerateRequest struct {
	Type            string                 `json:"type" validate:"required,oneof=b2c_individual b2b_company b2b_buyer"`
	BusinessContext BusinessContextRequest `json:"business_context" validate:"required"`
	CompanyID       string                 `json:"company_id" validate:"omitempty,uuid"`
	BuyerRole       *BuyerRoleRequest      `json:"buyer_role" validate:"omitempty"`
}

func (r GenerateRequest) toInput() GenerateInput {
	input := GenerateInput{
		Type: PersonaType(r.Type),
		BusinessContext: BusinessContext{
			Name:               r.BusinessContext.Name,
			Sector:             r.BusinessContext.Sector,
			PricePosition:      r.BusinessContext.PricePosition,
			TargetLocation:     r.BusinessContext.TargetLocation,
			ProblemSolved:      r.BusinessContext.ProblemSolved,
			USP:                r.BusinessContext.USP,
			CompanySize:        r.BusinessContext.CompanySize,
			Industry:           r.BusinessContext.Industry,
			DecisionMakerRoles: r.BusinessContext.DecisionMakerRoles,
		},
		CompanyID: r.CompanyID,
	}

	if r.BuyerRole != nil {
		input.BuyerRole = BuyerRole{
			Role:        r.BuyerRole.Role,
			Description: r.BuyerRole.Description,
			Challenges:  r.BuyerRole.Challenges,
		}
	}

	return input
}

type GenerateResponse struct {
	PersonaID string         `json:"persona_id"`
	Type      string         `json:"type"`
	Document  map[string]any `json:"document"`
	IsPreview bool           `json:"is_preview"`
}

type PersonaResponse struct {
	PersonaID  string         `json:"persona_id"`
	Type       string         `json:"type"`
	Document   map[string]any `json:"document"`
	IsUnlocked bool           `json:"is_unlocked"`
	IsOwner    bool           `json:"is_owner"`
	IsPreview  bool           `json:"is_preview"`
}

type UnlockResponse struct {
	PersonaID  string `json:"persona_id"`
	IsUnlocked bool   `json:"is_unlocked"`
}

type PersonaSummary struct {
	PersonaID  string    `json:"persona_id"`
	Type       string    `json:"type"`
	Business   string    `json:"business"`
	IsUnlocked bool      `json:"is_unlocked"`
	CreatedAt  time.Time `json:"created_at"`
}

type BuyerPersonaResponse struct {
	BuyerPersonaID string         `json:"buyer_persona_id"`
	CompanyID      string         `json:"company_id"`
	Document       map[string]any `json:"document"`
	CreatedAt      time.Time      `json:"created_at"`
}
