// AngelaMos | 2026
// visibility.go

package persona

import (
	"context"
)

// Section is the unit of visibility gating: one named subdivision of a
// persona document.
type Section string

const (
	SectionIdentity           Section = "identity"
	SectionDemographics       Section = "demographics"
	SectionPsychographics     Section = "psychographics"
	SectionPainPoints         Section = "pain_points"
	SectionMotivations        Section = "motivations"
	SectionBuyingJourney      Section = "buying_journey"
	SectionPersonalityType    Section = "personality_type"
	SectionCulture            Section = "culture"
	SectionBuyingProcess      Section = "buying_process"
	SectionChallenges         Section = "challenges"
	SectionGoals              Section = "goals"
	SectionBuyerRoles         Section = "buyer_roles"
	SectionPsychologicalDepth Section = "psychological_depth"
)

var allSections = []Section{
	SectionIdentity,
	SectionDemographics,
	SectionPsychographics,
	SectionPainPoints,
	SectionMotivations,
	SectionBuyingJourney,
	SectionPersonalityType,
	SectionCulture,
	SectionBuyingProcess,
	SectionChallenges,
	SectionGoals,
	SectionBuyerRoles,
	SectionPsychologicalDepth,
}

// previewSections is the fixed set shown before unlock: basic identity
// plus the motivations/values section.
var previewSections = []Section{
	SectionIdentity,
	SectionMotivations,
}

// VisibleSections is the pure visibility resolver. It reads nothing but
// its two inputs so it serves rendering and server-side redaction alike.
// psychological_depth sits above ordinary unlock: only admins see it here.
func VisibleSections(isUnlocked bool, role string) map[Section]struct{} {
	if role == "admin" {
		return sectionSet(allSections)
	}

	if !isUnlocked {
		return sectionSet(previewSections)
	}

	visible := make(map[Section]struct{}, len(allSections)-1)
	for _, s := range allSections {
		if s == SectionPsychologicalDepth {
			continue
		}
		visible[s] = struct{}{}
	}
	return visible
}

func sectionSet(sections []Section) map[Section]struct{} {
	set := make(map[Section]struct{}, len(sections))
	for _, s := range sections {
		set[s] = struct{}{}
	}
	return set
}

// DepthGate is the extension point for the paid tier that reveals
// psychological_depth. Grant mechanics live with the billing
// collaborator, not in this core; the default gate denies everyone.
type DepthGate interface {
	AllowsDepth(ctx context.Context, userID string) bool
}

type denyAllDepthGate struct{}

func (denyAllDepthGate) AllowsDepth(context.Context, string) bool {
	return false
}

func NewDenyAllDepthGate() DepthGate {
	return denyAllDepthGate{}
}

// Redact filters a document down to the visible sections. It runs before
// the document leaves the service, so locked content never crosses the
// trust boundary regardless of how the response is rendered.
func Redact(doc *Document, visible map[Section]struct{}) map[string]any {
	out := make(map[string]any)

	show := func(s Section) bool {
		_, ok := visible[s]
		return ok
	}

	if doc.Individual != nil {
		d := doc.Individual
		if show(SectionIdentity) {
			out["name"] = d.Name
			if d.Age > 0 {
				out["age"] = d.Age
			}
			if d.Occupation != "" {
				out["occupation"] = d.Occupation
			}
			if d.Summary != "" {
				out["summary"] = d.Summary
			}
		}
		if show(SectionDemographics) {
			out["demographics"] = d.Demographics
		}
		if show(SectionPsychographics) {
			out["psychographics"] = d.Psychographics
		}
		if show(SectionPainPoints) {
			out["pain_points"] = d.PainPoints
		}
		if show(SectionMotivations) {
			out["motivations"] = d.Motivations
		}
		if show(SectionBuyingJourney) {
			out["buying_journey"] = d.BuyingJourney
		}
		if show(SectionPersonalityType) {
			out["personality_type"] = d.PersonalityType
		}
		if show(SectionPsychologicalDepth) && d.PsychologicalDepth != nil {
			out["psychological_depth"] = d.PsychologicalDepth
		}
		return out
	}

	d := doc.Company
	if show(SectionIdentity) {
		out["company_name"] = d.CompanyName
		out["industry"] = d.Industry
		if d.CompanySize != "" {
			out["company_size"] = d.CompanySize
		}
		if d.Summary != "" {
			out["summary"] = d.Summary
		}
	}
	if show(SectionCulture) {
		out["culture"] = d.Culture
	}
	if show(SectionBuyingProcess) {
		out["buying_process"] = d.BuyingProcess
	}
	if show(SectionChallenges) {
		out["challenges"] = d.Challenges
	}
	if show(SectionGoals) {
		out["goals"] = d.Goals
	}
	if show(SectionMotivations) {
		out["motivations"] = d.Motivations
	}
	if show(SectionBuyerRoles) {
		out["buyer_roles"] = d.BuyerRoles
	}
	if show(SectionPsychologicalDepth) && d.PsychologicalDepth != nil {
		out["psychological_depth"] = d.PsychologicalDepth
	}

	return out
}
