// AngelaMos | 2026
// entity.go

package persona

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type PersonaType string

const (
	TypeB2CIndividual PersonaType = "b2c_individual"
	TypeB2BCompany    PersonaType = "b2b_company"
	TypeB2BBuyer      PersonaType = "b2b_buyer"
)

func (t PersonaType) Valid() bool {
	switch t {
	case TypeB2CIndividual, TypeB2BCompany, TypeB2BBuyer:
		return true
	}
	return false
}

// HoldsIndividualPayload reports whether personas of this type carry an
// individual-style document. b2b_buyer personas store an individual payload
// but are generated against a company profile.
func (t PersonaType) HoldsIndividualPayload() bool {
	return t == TypeB2CIndividual || t == TypeB2BBuyer
}

// BusinessContext is the structured input a persona is generated from.
// It is immutable once the persona row exists.
type BusinessContext struct {
	Name               string   `json:"name"`
	Sector             string   `json:"sector"`
	PricePosition      string   `json:"price_position"`
	TargetLocation     string   `json:"target_location"`
	ProblemSolved      string   `json:"problem_solved"`
	USP                string   `json:"usp"`
	CompanySize        string   `json:"company_size,omitempty"`
	Industry           string   `json:"industry,omitempty"`
	DecisionMakerRoles []string `json:"decision_maker_roles,omitempty"`
}

func (c BusinessContext) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *BusinessContext) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = BusinessContext{}
		return nil
	default:
		return fmt.Errorf("scan business context: unsupported type %T", src)
	}
}

// BuyerRole narrows buyer-persona generation to one role inside the
// target company's buying centre.
type BuyerRole struct {
	Role        string   `json:"role"`
	Description string   `json:"description,omitempty"`
	Challenges  []string `json:"challenges,omitempty"`
}

type Demographics struct {
	AgeRange   string `json:"age_range"`
	Gender     string `json:"gender,omitempty"`
	Location   string `json:"location"`
	Income     string `json:"income,omitempty"`
	Education  string `json:"education,omitempty"`
	Occupation string `json:"occupation,omitempty"`
}

type Psychographics struct {
	Traits    []string `json:"traits"`
	Interests []string `json:"interests,omitempty"`
	Lifestyle string   `json:"lifestyle,omitempty"`
}

type Motivations struct {
	CoreValues []string `json:"core_values"`
	Drivers    []string `json:"drivers"`
	Fears      []string `json:"fears,omitempty"`
}

type BuyingJourney struct {
	TriggerEvents    []string `json:"trigger_events"`
	ResearchHabits   []string `json:"research_habits,omitempty"`
	DecisionCriteria []string `json:"decision_criteria"`
	Objections       []string `json:"objections,omitempty"`
}

type PersonalityType struct {
	Archetype          string `json:"archetype"`
	Summary            string `json:"summary,omitempty"`
	CommunicationStyle string `json:"communication_style,omitempty"`
}

// PsychologicalDepth is the field-level tier above ordinary unlock. It is
// never revealed by a free unlock; only an admin or the paid depth gate
// can expose it.
type PsychologicalDepth struct {
	HiddenMotivators  []string `json:"hidden_motivators"`
	CognitiveBiases   []string `json:"cognitive_biases,omitempty"`
	EmotionalTriggers []string `json:"emotional_triggers,omitempty"`
	DecisionShortcuts []string `json:"decision_shortcuts,omitempty"`
}

// IndividualDocument is the content payload for b2c_individual and
// b2b_buyer personas.
type IndividualDocument struct {
	Name               string              `json:"name"`
	Age                int                 `json:"age,omitempty"`
	Occupation         string              `json:"occupation,omitempty"`
	Summary            string              `json:"summary,omitempty"`
	Demographics       Demographics        `json:"demographics"`
	Psychographics     Psychographics      `json:"psychographics"`
	PainPoints         []string            `json:"pain_points"`
	Motivations        Motivations         `json:"motivations"`
	BuyingJourney      BuyingJourney       `json:"buying_journey"`
	PersonalityType    PersonalityType     `json:"personality_type"`
	PsychologicalDepth *PsychologicalDepth `json:"psychological_depth,omitempty"`
}

type CompanyBuyerRole struct {
	Role        string   `json:"role"`
	Description string   `json:"description,omitempty"`
	Challenges  []string `json:"challenges,omitempty"`
}

type BuyingProcess struct {
	Stages        []string `json:"stages"`
	CycleLength   string   `json:"cycle_length,omitempty"`
	ApprovalChain []string `json:"approval_chain,omitempty"`
}

// CompanyDocument is the content payload for b2b_company personas: a
// synthetic target company that buyer personas are generated against.
type CompanyDocument struct {
	CompanyName        string              `json:"company_name"`
	Industry           string              `json:"industry"`
	CompanySize        string              `json:"company_size,omitempty"`
	Summary            string              `json:"summary,omitempty"`
	Culture            string              `json:"culture"`
	BuyingProcess      BuyingProcess       `json:"buying_process"`
	Challenges         []string            `json:"challenges"`
	Goals              []string            `json:"goals"`
	Motivations        Motivations         `json:"motivations"`
	BuyerRoles         []CompanyBuyerRole  `json:"buyer_roles"`
	PsychologicalDepth *PsychologicalDepth `json:"psychological_depth,omitempty"`
}

// Document is the tagged union of the two content payloads. Exactly one of
// Individual/Company is non-nil, decided by the persona type.
type Document struct {
	Type       PersonaType
	Individual *IndividualDocument
	Company    *CompanyDocument
}

func NewDocument(
	t PersonaType,
	individual *IndividualDocument,
	company *CompanyDocument,
) (*Document, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("new document: invalid persona type %q", t)
	}

	if t.HoldsIndividualPayload() {
		if individual == nil || company != nil {
			return nil, fmt.Errorf(
				"new document: type %q requires exactly the individual payload",
				t,
			)
		}
	} else {
		if company == nil || individual != nil {
			return nil, fmt.Errorf(
				"new document: type %q requires exactly the company payload",
				t,
			)
		}
	}

	return &Document{Type: t, Individual: individual, Company: company}, nil
}

// Persona is the durable record. Preview personas (nil UserID) never reach
// the database; they live in the PreviewStore only.
type Persona struct {
	ID              string          `db:"id"`
	UserID          *string         `db:"user_id"`
	Type            PersonaType     `db:"type"`
	BusinessContext BusinessContext `db:"business_context"`
	PersonaData     []byte          `db:"persona_data"`
	CompanyProfile  []byte          `db:"company_profile"`
	CompanyID       *string         `db:"company_id"`
	IsUnlocked      bool            `db:"is_unlocked"`
	IsComplete      bool            `db:"is_complete"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (p *Persona) IsPreview() bool {
	return p.UserID == nil
}

func (p *Persona) IsOwnedBy(userID string) bool {
	return p.UserID != nil && *p.UserID == userID && userID != ""
}

// Document decodes the stored payload back into the tagged union.
func (p *Persona) Document() (*Document, error) {
	if p.Type.HoldsIndividualPayload() {
		if len(p.PersonaData) == 0 {
			return nil, fmt.Errorf(
				"persona %s: missing individual payload", p.ID)
		}
		var doc IndividualDocument
		if err := json.Unmarshal(p.PersonaData, &doc); err != nil {
			return nil, fmt.Errorf("persona %s: decode payload: %w", p.ID, err)
		}
		return NewDocument(p.Type, &doc, nil)
	}

	if len(p.CompanyProfile) == 0 {
		return nil, fmt.Errorf("persona %s: missing company payload", p.ID)
	}
	var doc CompanyDocument
	if err := json.Unmarshal(p.CompanyProfile, &doc); err != nil {
		return nil, fmt.Errorf("persona %s: decode payload: %w", p.ID, err)
	}
	return NewDocument(p.Type, nil, &doc)
}

// BuyerPersona links a generated buyer document to its parent company
// persona. It has no owner column: authorization always resolves through
// the parent's user_id.
type BuyerPersona struct {
	ID               string    `db:"id"`
	CompanyProfileID string    `db:"company_profile_id"`
	PersonaData      []byte    `db:"persona_data"`
	CreatedAt        time.Time `db:"created_at"`
}
