// AngelaMos | 2026
// visibility_test.go

package persona

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibleSectionsLocked(t *testing.T) {
	visible := VisibleSections(false, "user")

	assert.Len(t, visible, 2)
	assert.Contains(t, visible, SectionIdentity)
	assert.Contains(t, visible, SectionMotivations)
}

func TestVisibleSectionsUnlockedExcludesDepth(t *testing.T) {
	visible := VisibleSections(true, "user")

	assert.NotContains(t, visible, SectionPsychologicalDepth)
	assert.Contains(t, visible, SectionPainPoints)
	assert.Contains(t, visible, SectionBuyingJourney)
	assert.Len(t, visible, len(allSections)-1)
}

func TestVisibleSectionsAdminSeesEverything(t *testing.T) {
	for _, unlocked := range []bool{false, true} {
		visible := VisibleSections(unlocked, "admin")
		assert.Len(t, visible, len(allSections))
		assert.Contains(t, visible, SectionPsychologicalDepth)
	}
}

func TestVisibleSectionsLockedIsSubsetOfUnlocked(t *testing.T) {
	locked := VisibleSections(false, "user")
	unlocked := VisibleSections(true, "user")

	for s := range locked {
		assert.Contains(t, unlocked, s,
			"every preview section must survive unlock")
	}
}

func TestRedactIndividualLocked(t *testing.T) {
	doc := mustIndividualDoc(t)

	out := Redact(doc, VisibleSections(false, "user"))

	assert.Equal(t, "Maren Kofoed", out["name"])
	assert.Contains(t, out, "motivations")
	assert.NotContains(t, out, "pain_points")
	assert.NotContains(t, out, "demographics")
	assert.NotContains(t, out, "buying_journey")
	assert.NotContains(t, out, "psychological_depth")
}

func TestRedactIndividualUnlocked(t *testing.T) {
	doc := mustIndividualDoc(t)

	out := Redact(doc, VisibleSections(true, "user"))

	assert.Contains(t, out, "pain_points")
	assert.Contains(t, out, "demographics")
	assert.Contains(t, out, "personality_type")
	assert.NotContains(t, out, "psychological_depth")
}

func TestRedactAdminGetsDepth(t *testing.T) {
	doc := mustIndividualDoc(t)

	out := Redact(doc, VisibleSections(false, "admin"))

	require.Contains(t, out, "psychological_depth")
	depth, ok := out["psychological_depth"].(*PsychologicalDepth)
	require.True(t, ok)
	assert.Equal(t, []string{"fear of looking wasteful"},
		depth.HiddenMotivators)
}

func TestRedactCompanyLocked(t *testing.T) {
	doc := mustCompanyDoc(t)

	out := Redact(doc, VisibleSections(false, "user"))

	assert.Equal(t, "Nordvik Logistics", out["company_name"])
	assert.Equal(t, "Freight forwarding", out["industry"])
	assert.Contains(t, out, "motivations")
	assert.NotContains(t, out, "buying_process")
	assert.NotContains(t, out, "challenges")
	assert.NotContains(t, out, "buyer_roles")
}

func TestRedactCompanyUnlocked(t *testing.T) {
	doc := mustCompanyDoc(t)

	out := Redact(doc, VisibleSections(true, "user"))

	assert.Contains(t, out, "buying_process")
	assert.Contains(t, out, "buyer_roles")
	assert.NotContains(t, out, "psychological_depth")
}

func TestDenyAllDepthGate(t *testing.T) {
	gate := NewDenyAllDepthGate()
	assert.False(t, gate.AllowsDepth(t.Context(), "any-user"))
}

func mustIndividualDoc(t *testing.T) *Document {
	t.Helper()

	var payload IndividualDocument
	require.NoError(t, json.Unmarshal([]byte(validIndividualJSON), &payload))

	doc, err := NewDocument(TypeB2CIndividual, &payload, nil)
	require.NoError(t, err)
	return doc
}

func mustCompanyDoc(t *testing.T) *Document {
	t.Helper()

	var payload CompanyDocument
	require.NoError(t, json.Unmarshal([]byte(validCompanyJSON), &payload))

	doc, err := NewDocument(TypeB2BCompany, nil, &payload)
	require.NoError(t, err)
	return doc
}
