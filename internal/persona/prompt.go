// AngelaMos | 2026
// prompt.go

package persona

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a senior consumer-insight strategist. You build vivid, evidence-grounded customer personas from short business descriptions.

Rules:
- Respond with ONLY a single JSON object. No prose before or after it.
- Do not invent brand names or real people; the persona is synthetic.
- Ground every trait in the business context you are given. If the context does not support a claim, choose the most plausible option for the sector and price position.
- Keep list items short (one clause each), concrete, and non-repetitive.`

const individualTask = `Create one customer persona for the business described below. The persona is the single most valuable target customer.

%s

Return a JSON object with exactly these top-level keys:
- "name" (string): a plausible full name
- "age" (number)
- "occupation" (string)
- "summary" (string): 2-3 sentences introducing the persona
- "demographics" (object): "age_range", "gender", "location", "income", "education", "occupation"
- "psychographics" (object): "traits" (array of strings), "interests" (array of strings), "lifestyle" (string)
- "pain_points" (array of strings)
- "motivations" (object): "core_values" (array), "drivers" (array), "fears" (array)
- "buying_journey" (object): "trigger_events" (array), "research_habits" (array), "decision_criteria" (array), "objections" (array)
- "personality_type" (object): "archetype" (string), "summary" (string), "communication_style" (string)
- "psychological_depth" (object): "hidden_motivators" (array), "cognitive_biases" (array), "emotional_triggers" (array), "decision_shortcuts" (array)`

const companyTask = `Create a profile of the ideal target company (a buying centre) for the B2B business described below.

%s

Return a JSON object with exactly these top-level keys:
- "company_name" (string): a plausible but fictional company name
- "industry" (string)
- "company_size" (string)
- "summary" (string): 2-3 sentences introducing the company
- "culture" (string): how the company works and decides
- "buying_process" (object): "stages" (array), "cycle_length" (string), "approval_chain" (array)
- "challenges" (array of strings)
- "goals" (array of strings)
- "motivations" (object): "core_values" (array), "drivers" (array), "fears" (array)
- "buyer_roles" (array of objects): each with "role", "description", "challenges" (array)
- "psychological_depth" (object): "hidden_motivators" (array), "cognitive_biases" (array), "emotional_triggers" (array), "decision_shortcuts" (array)`

const buyerTask = `Create one buyer persona inside the target company described below. The persona fills the stated buying-centre role and evaluates the vendor's offering.

%s

%s

Return a JSON object with exactly these top-level keys:
- "name" (string): a plausible full name
- "age" (number)
- "occupation" (string): their role at the company
- "summary" (string): 2-3 sentences introducing the persona
- "demographics" (object): "age_range", "gender", "location", "income", "education", "occupation"
- "psychographics" (object): "traits" (array of strings), "interests" (array of strings), "lifestyle" (string)
- "pain_points" (array of strings)
- "motivations" (object): "core_values" (array), "drivers" (array), "fears" (array)
- "buying_journey" (object): "trigger_events" (array), "research_habits" (array), "decision_criteria" (array), "objections" (array)
- "personality_type" (object): "archetype" (string), "summary" (string), "communication_style" (string)
- "psychological_depth" (object): "hidden_motivators" (array), "cognitive_biases" (array), "emotional_triggers" (array), "decision_shortcuts" (array)`

// Fixed section headers for the business-context block. Every header is
// always emitted so the downstream prompt structure stays stable; absent
// optional fields render as "Not specified".
const (
	headerBusinessName   = "Business Name"
	headerSector         = "Sector"
	headerPricePosition  = "Price Position"
	headerTargetLocation = "Target Location"
	headerProblemSolved  = "Problem Solved"
	headerUSP            = "Unique Selling Proposition"
	headerCompanySize    = "Company Size"
	headerIndustry       = "Industry"
	headerDecisionRoles  = "Decision-Maker Roles"
)

const notSpecified = "Not specified"

// FormatBusinessContext renders the typed business context as the
// natural-language block consumed by the model. Pure formatting; it never
// fails for well-typed input.
func FormatBusinessContext(bc BusinessContext) string {
	var b strings.Builder

	writeField(&b, headerBusinessName, bc.Name)
	writeField(&b, headerSector, bc.Sector)
	writeField(&b, headerPricePosition, bc.PricePosition)
	writeField(&b, headerTargetLocation, bc.TargetLocation)
	writeField(&b, headerProblemSolved, bc.ProblemSolved)
	writeField(&b, headerUSP, bc.USP)
	writeField(&b, headerCompanySize, bc.CompanySize)
	writeField(&b, headerIndustry, bc.Industry)
	writeField(&b, headerDecisionRoles, strings.Join(bc.DecisionMakerRoles, ", "))

	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, header, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = notSpecified
	}
	fmt.Fprintf(b, "%s: %s\n", header, value)
}

// FormatCompanyContext renders the stored company profile plus the
// requested buyer role for buyer-persona generation.
func FormatCompanyContext(company *CompanyDocument, role BuyerRole) string {
	var b strings.Builder

	writeField(&b, "Target Company", company.CompanyName)
	writeField(&b, "Company Industry", company.Industry)
	writeField(&b, "Company Culture", company.Culture)
	writeField(&b, "Buying Process", strings.Join(company.BuyingProcess.Stages, " -> "))
	writeField(&b, "Company Challenges", strings.Join(company.Challenges, "; "))
	writeField(&b, "Company Goals", strings.Join(company.Goals, "; "))
	writeField(&b, "Buyer Role", role.Role)
	writeField(&b, "Role Description", role.Description)
	writeField(&b, "Role Challenges", strings.Join(role.Challenges, "; "))

	return strings.TrimRight(b.String(), "\n")
}

func buildUserPrompt(
	t PersonaType,
	bc BusinessContext,
	company *CompanyDocument,
	role BuyerRole,
) string {
	contextBlock := FormatBusinessContext(bc)

	switch t {
	case TypeB2BCompany:
		return fmt.Sprintf(companyTask, contextBlock)
	case TypeB2BBuyer:
		return fmt.Sprintf(buyerTask, contextBlock, FormatCompanyContext(company, role))
	default:
		return fmt.Sprintf(individualTask, contextBlock)
	}
}
