// AngelaMos | 2026
// parser_test.go

package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentBareJSON(t *testing.T) {
	doc, err := ParseDocument(validIndividualJSON, TypeB2CIndividual)
	require.NoError(t, err)
	require.NotNil(t, doc.Individual)
	assert.Nil(t, doc.Company)

	assert.Equal(t, "Maren Kofoed", doc.Individual.Name)
	assert.Equal(t, 34, doc.Individual.Age)
	assert.Equal(t, []string{"manual reporting", "tool sprawl"},
		doc.Individual.PainPoints)
	assert.Equal(t, []string{"efficiency", "reliability"},
		doc.Individual.Motivations.CoreValues)
	require.NotNil(t, doc.Individual.PsychologicalDepth)
	assert.Equal(t, []string{"fear of looking wasteful"},
		doc.Individual.PsychologicalDepth.HiddenMotivators)
}

func TestParseDocumentStripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + validIndividualJSON + "\n```"

	doc, err := ParseDocument(fenced, TypeB2CIndividual)
	require.NoError(t, err)
	assert.Equal(t, "Maren Kofoed", doc.Individual.Name)

	bareFence := "```\n" + validCompanyJSON + "\n```"

	doc, err = ParseDocument(bareFence, TypeB2BCompany)
	require.NoError(t, err)
	require.NotNil(t, doc.Company)
	assert.Equal(t, "Nordvik Logistics", doc.Company.CompanyName)
}

func TestParseDocumentProseIsSyntaxInvalid(t *testing.T) {
	_, err := ParseDocument(
		`Sure! Here's your persona: {not json`,
		TypeB2CIndividual,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntaxInvalid)
	assert.NotErrorIs(t, err, ErrSchemaInvalid)
}

func TestParseDocumentTrailingContentIsSyntaxInvalid(t *testing.T) {
	_, err := ParseDocument(
		validIndividualJSON+"\nHope this helps!",
		TypeB2CIndividual,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntaxInvalid)
}

func TestParseDocumentNonObjectIsSchemaInvalid(t *testing.T) {
	for name, completion := range map[string]string{
		"array":  `[{"name": "Maren Kofoed"}]`,
		"string": `"here is your persona"`,
		"number": `42`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument(completion, TypeB2CIndividual)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaInvalid,
				"well-formed JSON of the wrong shape is a schema failure")
			assert.NotErrorIs(t, err, ErrSyntaxInvalid)
		})
	}
}

func TestParseDocumentMissingKeysIsSchemaInvalid(t *testing.T) {
	_, err := ParseDocument(
		`{"name": "Maren Kofoed", "demographics": {}}`,
		TypeB2CIndividual,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaInvalid)
	assert.NotErrorIs(t, err, ErrSyntaxInvalid)
	assert.Contains(t, err.Error(), `missing "pain_points"`)
}

func TestParseDocumentWrongKindIsSchemaInvalid(t *testing.T) {
	_, err := ParseDocument(`{
		"name": "Maren Kofoed",
		"demographics": "30-40 in Copenhagen",
		"psychographics": {},
		"pain_points": [],
		"motivations": {},
		"buying_journey": {},
		"personality_type": {}
	}`, TypeB2CIndividual)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaInvalid)
	assert.Contains(t, err.Error(), `"demographics" must be a object`)
}

func TestParseDocumentEmptyStringFailsStringKind(t *testing.T) {
	_, err := ParseDocument(`{
		"name": "   ",
		"demographics": {},
		"psychographics": {},
		"pain_points": [],
		"motivations": {},
		"buying_journey": {},
		"personality_type": {}
	}`, TypeB2CIndividual)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaInvalid)
}

func TestParseDocumentCompanySchema(t *testing.T) {
	doc, err := ParseDocument(validCompanyJSON, TypeB2BCompany)
	require.NoError(t, err)
	require.NotNil(t, doc.Company)
	assert.Nil(t, doc.Individual)

	assert.Equal(t, "Nordvik Logistics", doc.Company.CompanyName)
	assert.Equal(t,
		[]string{"problem framing", "shortlist", "pilot", "procurement"},
		doc.Company.BuyingProcess.Stages)
	require.Len(t, doc.Company.BuyerRoles, 1)
	assert.Equal(t, "Operations Director", doc.Company.BuyerRoles[0].Role)

	// The individual schema must reject a company payload outright.
	_, err = ParseDocument(validCompanyJSON, TypeB2CIndividual)
	assert.ErrorIs(t, err, ErrSchemaInvalid)
}

func TestParseDocumentBuyerUsesIndividualSchema(t *testing.T) {
	doc, err := ParseDocument(validIndividualJSON, TypeB2BBuyer)
	require.NoError(t, err)
	require.NotNil(t, doc.Individual)
	assert.Equal(t, TypeB2BBuyer, doc.Type)
}
