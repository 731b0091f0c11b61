// AngelaMos | 2026
// parser.go

package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntaxInvalid: the completion was not a single well-formed JSON value.
	ErrSyntaxInvalid = errors.New("completion is not valid JSON")
	// ErrSchemaInvalid: valid JSON, but required keys are missing or of the
	// wrong kind for the requested document shape.
	ErrSchemaInvalid = errors.New("completion does not match document schema")
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindArray
	kindObject
)

func (k fieldKind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindArray:
		return "array"
	default:
		return "object"
	}
}

var individualSchema = map[string]fieldKind{
	"name":             kindString,
	"demographics":     kindObject,
	"psychographics":   kindObject,
	"pain_points":      kindArray,
	"motivations":      kindObject,
	"buying_journey":   kindObject,
	"personality_type": kindObject,
}

var companySchema = map[string]fieldKind{
	"company_name":   kindString,
	"industry":       kindString,
	"culture":        kindString,
	"buying_process": kindObject,
	"challenges":     kindArray,
	"goals":          kindArray,
	"motivations":    kindObject,
	"buyer_roles":    kindArray,
}

// ParseDocument extracts and validates a structured document from a raw
// model completion. The model is told to return bare JSON but routinely
// wraps it in markdown fences; fences are stripped, anything else is not
// recovered.
func ParseDocument(raw string, t PersonaType) (*Document, error) {
	cleaned := stripCodeFences(raw)

	var value any
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntaxInvalid, err)
	}
	// Exactly one JSON value: trailing tokens mean the model kept talking.
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing content after JSON value", ErrSyntaxInvalid)
	}

	// A well-formed array or scalar is a schema failure, not a syntax one.
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf(
			"%w: top-level value is not an object", ErrSchemaInvalid)
	}

	schema := companySchema
	if t.HoldsIndividualPayload() {
		schema = individualSchema
	}

	if err := validateShape(obj, schema); err != nil {
		return nil, err
	}

	if t.HoldsIndividualPayload() {
		var doc IndividualDocument
		if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
		}
		return NewDocument(t, &doc, nil)
	}

	var doc CompanyDocument
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	return NewDocument(t, nil, &doc)
}

func validateShape(obj map[string]any, schema map[string]fieldKind) error {
	var problems []string

	for key, want := range schema {
		val, ok := obj[key]
		if !ok || val == nil {
			problems = append(problems, fmt.Sprintf("missing %q", key))
			continue
		}

		if !matchesKind(val, want) {
			problems = append(problems, fmt.Sprintf(
				"%q must be a %s", key, want))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaInvalid, strings.Join(problems, ", "))
	}

	return nil
}

func matchesKind(val any, want fieldKind) bool {
	switch want {
	case kindString:
		s, ok := val.(string)
		return ok && strings.TrimSpace(s) != ""
	case kindArray:
		_, ok := val.([]any)
		return ok
	default:
		_, ok := val.(map[string]any)
		return ok
	}
}

// stripCodeFences removes a leading ```json (or bare ```) line and a
// trailing ``` line, tolerating their absence.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
	}

	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}

	return strings.TrimSpace(s)
}
