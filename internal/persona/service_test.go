// AngelaMos | 2026
// service_test.go

package persona

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/personaforge/internal/core"
)

func newTestService(
	repo *memRepo,
	previews *PreviewStore,
	client *stubClient,
) *Service {
	return NewService(repo, previews, client, 4096, discardLogger())
}

func TestGenerateAnonymousGoesToPreviewStore(t *testing.T) {
	repo := newMemRepo()
	previews := NewPreviewStore()
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, previews, client)

	result, err := svc.Generate(t.Context(), Actor{}, GenerateInput{
		Type:            TypeB2CIndividual,
		BusinessContext: testBusinessContext(),
	})
	require.NoError(t, err)

	assert.True(t, result.IsPreview)
	assert.Equal(t, 0, repo.len(), "anonymous personas never reach storage")

	stored, ok := previews.Get(result.PersonaID)
	require.True(t, ok)
	assert.True(t, stored.IsPreview())
}

func TestGenerateAuthenticatedPersists(t *testing.T) {
	repo := newMemRepo()
	previews := NewPreviewStore()
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, previews, client)

	actor := Actor{UserID: "u1", Role: "user"}

	result, err := svc.Generate(t.Context(), actor, GenerateInput{
		Type:            TypeB2CIndividual,
		BusinessContext: testBusinessContext(),
	})
	require.NoError(t, err)

	assert.False(t, result.IsPreview)
	assert.Equal(t, 0, previews.Len())

	stored, err := repo.GetByID(t.Context(), result.PersonaID)
	require.NoError(t, err)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, "u1", *stored.UserID)
	assert.False(t, stored.IsUnlocked, "new personas start locked")
	assert.True(t, stored.IsComplete)
}

func TestGenerateSurvivesCallerDisconnect(t *testing.T) {
	repo := newMemRepo()
	previews := NewPreviewStore()

	ctx, cancel := context.WithCancel(t.Context())
	client := &disconnectingClient{
		response: validIndividualJSON,
		cancel:   cancel,
	}
	svc := NewService(repo, previews, client, 4096, discardLogger())

	result, err := svc.Generate(ctx, Actor{UserID: "u1"}, GenerateInput{
		Type:            TypeB2CIndividual,
		BusinessContext: testBusinessContext(),
	})
	require.NoError(t, err,
		"a disconnecting caller must not abort a billable completion")

	stored, err := repo.GetByID(t.Context(), result.PersonaID)
	require.NoError(t, err, "the completed persona must still be persisted")
	assert.True(t, stored.IsComplete)
}

func TestGenerateRejectsBadInputBeforeModelCall(t *testing.T) {
	repo := newMemRepo()
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, NewPreviewStore(), client)

	cases := map[string]GenerateInput{
		"unknown type": {
			Type:            PersonaType("b2c_alien"),
			BusinessContext: testBusinessContext(),
		},
		"missing name": {
			Type: TypeB2CIndividual,
			BusinessContext: BusinessContext{
				Sector:        "Logistics",
				ProblemSolved: "x",
			},
		},
		"buyer without company": {
			Type:            TypeB2BBuyer,
			BusinessContext: testBusinessContext(),
			BuyerRole:       BuyerRole{Role: "CFO"},
		},
		"buyer without role": {
			Type:            TypeB2BBuyer,
			BusinessContext: testBusinessContext(),
			CompanyID:       "c1",
		},
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Generate(
				t.Context(),
				Actor{UserID: "u1"},
				input,
			)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	assert.Equal(t, int32(0), client.calls.Load(),
		"invalid requests must never spend a model call")
}

func TestGenerateBuyerChecksOwnershipBeforeModelCall(t *testing.T) {
	repo := newMemRepo()
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, NewPreviewStore(), client)

	ownerID := "owner"
	require.NoError(t, repo.Create(t.Context(), &Persona{
		ID:              "c1",
		UserID:          &ownerID,
		Type:            TypeB2BCompany,
		BusinessContext: testBusinessContext(),
		CompanyProfile:  []byte(validCompanyJSON),
		IsComplete:      true,
	}))

	buyerInput := GenerateInput{
		Type:            TypeB2BBuyer,
		BusinessContext: testBusinessContext(),
		CompanyID:       "c1",
		BuyerRole:       BuyerRole{Role: "Operations Director"},
	}

	t.Run("foreign company", func(t *testing.T) {
		_, err := svc.Generate(
			t.Context(),
			Actor{UserID: "intruder"},
			buyerInput,
		)
		assert.ErrorIs(t, err, ErrNotOwner)
		assert.Equal(t, int32(0), client.calls.Load())
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := svc.Generate(t.Context(), Actor{}, buyerInput)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		assert.Equal(t, int32(0), client.calls.Load())
	})

	t.Run("owner succeeds", func(t *testing.T) {
		result, err := svc.Generate(
			t.Context(),
			Actor{UserID: ownerID},
			buyerInput,
		)
		require.NoError(t, err)
		assert.Equal(t, int32(1), client.calls.Load())

		stored, err := repo.GetByID(t.Context(), result.PersonaID)
		require.NoError(t, err)
		require.NotNil(t, stored.CompanyID)
		assert.Equal(t, "c1", *stored.CompanyID)

		buyers, err := repo.ListBuyerPersonasForCompany(t.Context(), "c1")
		require.NoError(t, err)
		assert.Len(t, buyers, 1)
	})
}

func TestGenerateBuyerAgainstNonCompanyPersona(t *testing.T) {
	repo := newMemRepo()
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, NewPreviewStore(), client)

	ownerID := "u1"
	require.NoError(t, repo.Create(t.Context(), &Persona{
		ID:              "p1",
		UserID:          &ownerID,
		Type:            TypeB2CIndividual,
		BusinessContext: testBusinessContext(),
		PersonaData:     []byte(validIndividualJSON),
	}))

	_, err := svc.Generate(t.Context(), Actor{UserID: ownerID}, GenerateInput{
		Type:            TypeB2BBuyer,
		BusinessContext: testBusinessContext(),
		CompanyID:       "p1",
		BuyerRole:       BuyerRole{Role: "CFO"},
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, int32(0), client.calls.Load())
}

func TestGenerateUpstreamFailureWritesNothing(t *testing.T) {
	repo := newMemRepo()
	previews := NewPreviewStore()
	client := &stubClient{err: errors.New("upstream 503")}
	svc := newTestService(repo, previews, client)

	_, err := svc.Generate(
		t.Context(),
		Actor{UserID: "u1"},
		GenerateInput{
			Type:            TypeB2CIndividual,
			BusinessContext: testBusinessContext(),
		},
	)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 0, repo.len())
	assert.Equal(t, 0, previews.Len())
}

func TestGenerateMalformedCompletionWritesNothing(t *testing.T) {
	repo := newMemRepo()
	previews := NewPreviewStore()

	for name, completion := range map[string]string{
		"prose":        "I'd be happy to help! Here is a persona: ...",
		"missing keys": `{"name": "Someone"}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := &stubClient{response: completion}
			svc := newTestService(repo, previews, client)

			_, err := svc.Generate(
				t.Context(),
				Actor{UserID: "u1"},
				GenerateInput{
					Type:            TypeB2CIndividual,
					BusinessContext: testBusinessContext(),
				},
			)
			assert.ErrorIs(t, err, ErrMalformedGeneration)
		})
	}

	assert.Equal(t, 0, repo.len(), "malformed generations leave no rows")
	assert.Equal(t, 0, previews.Len())
}

func TestGeneratePersistenceFailureSurfaces(t *testing.T) {
	repo := newMemRepo()
	repo.failOn("create", errors.New("connection reset"))
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, NewPreviewStore(), client)

	_, err := svc.Generate(
		t.Context(),
		Actor{UserID: "u1"},
		GenerateInput{
			Type:            TypeB2CIndividual,
			BusinessContext: testBusinessContext(),
		},
	)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
}

func TestGetPersonaRedactsForNonOwner(t *testing.T) {
	repo := newMemRepo()
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, NewPreviewStore(), client)

	ownerID := "owner"
	require.NoError(t, repo.Create(t.Context(), &Persona{
		ID:              "p1",
		UserID:          &ownerID,
		Type:            TypeB2CIndividual,
		BusinessContext: testBusinessContext(),
		PersonaData:     []byte(validIndividualJSON),
		IsUnlocked:      true,
	}))

	gate := NewDenyAllDepthGate()

	t.Run("owner sees unlocked view", func(t *testing.T) {
		view, err := svc.GetPersona(
			t.Context(), Actor{UserID: ownerID}, gate, "p1")
		require.NoError(t, err)
		assert.True(t, view.IsOwner)
		assert.Contains(t, view.Document, "pain_points")
		assert.NotContains(t, view.Document, "psychological_depth")
	})

	t.Run("stranger sees preview view despite unlock", func(t *testing.T) {
		view, err := svc.GetPersona(
			t.Context(), Actor{UserID: "stranger"}, gate, "p1")
		require.NoError(t, err)
		assert.False(t, view.IsOwner)
		assert.NotContains(t, view.Document, "pain_points")
		assert.Contains(t, view.Document, "motivations")
	})

	t.Run("admin sees everything", func(t *testing.T) {
		view, err := svc.GetPersona(
			t.Context(), Actor{UserID: "a1", Role: "admin"}, gate, "p1")
		require.NoError(t, err)
		assert.Contains(t, view.Document, "psychological_depth")
	})

	t.Run("depth gate opens depth for owner", func(t *testing.T) {
		view, err := svc.GetPersona(
			t.Context(), Actor{UserID: ownerID}, allowAllDepthGate{}, "p1")
		require.NoError(t, err)
		assert.Contains(t, view.Document, "psychological_depth")
	})
}

func TestGetPersonaFallsBackToPreviewStore(t *testing.T) {
	repo := newMemRepo()
	previews := NewPreviewStore()
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, previews, client)

	result, err := svc.Generate(t.Context(), Actor{}, GenerateInput{
		Type:            TypeB2CIndividual,
		BusinessContext: testBusinessContext(),
	})
	require.NoError(t, err)

	view, err := svc.GetPersona(
		t.Context(), Actor{}, NewDenyAllDepthGate(), result.PersonaID)
	require.NoError(t, err)
	assert.True(t, view.IsPreview)
	assert.NotContains(t, view.Document, "pain_points")

	_, err = svc.GetPersona(
		t.Context(), Actor{}, NewDenyAllDepthGate(), "does-not-exist")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListBuyersAuthorizesThroughParent(t *testing.T) {
	repo := newMemRepo()
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, NewPreviewStore(), client)

	ownerID := "owner"
	require.NoError(t, repo.Create(t.Context(), &Persona{
		ID:              "c1",
		UserID:          &ownerID,
		Type:            TypeB2BCompany,
		BusinessContext: testBusinessContext(),
		CompanyProfile:  []byte(validCompanyJSON),
	}))
	require.NoError(t, repo.CreateBuyerPersona(t.Context(), &BuyerPersona{
		ID:               "b1",
		CompanyProfileID: "c1",
		PersonaData:      []byte(validIndividualJSON),
	}))

	buyers, err := svc.ListBuyers(t.Context(), Actor{UserID: ownerID}, "c1")
	require.NoError(t, err)
	assert.Len(t, buyers, 1)

	_, err = svc.ListBuyers(t.Context(), Actor{UserID: "stranger"}, "c1")
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.ListBuyers(t.Context(), Actor{}, "c1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	buyers, err = svc.ListBuyers(
		t.Context(), Actor{UserID: "a1", Role: "admin"}, "c1")
	require.NoError(t, err)
	assert.Len(t, buyers, 1)
}

func TestServiceListForUserPages(t *testing.T) {
	repo := newMemRepo()
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, NewPreviewStore(), client)

	ownerID := "u1"
	for i := range 3 {
		require.NoError(t, repo.Create(t.Context(), &Persona{
			ID:              fmt.Sprintf("p%d", i),
			UserID:          &ownerID,
			Type:            TypeB2CIndividual,
			BusinessContext: testBusinessContext(),
			PersonaData:     []byte(validIndividualJSON),
		}))
	}
	otherID := "u2"
	require.NoError(t, repo.Create(t.Context(), &Persona{
		ID:              "foreign",
		UserID:          &otherID,
		Type:            TypeB2CIndividual,
		BusinessContext: testBusinessContext(),
		PersonaData:     []byte(validIndividualJSON),
	}))

	personas, total, err := svc.ListForUser(t.Context(), ownerID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total, "total counts every row, not the page")
	assert.Len(t, personas, 2)

	personas, total, err = svc.ListForUser(t.Context(), ownerID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, personas, 1)
}

func TestServiceStats(t *testing.T) {
	repo := newMemRepo()
	previews := NewPreviewStore()
	client := &stubClient{response: validIndividualJSON}
	svc := newTestService(repo, previews, client)

	ownerID := "u1"
	require.NoError(t, repo.Create(t.Context(), &Persona{
		ID:              "p1",
		UserID:          &ownerID,
		Type:            TypeB2CIndividual,
		BusinessContext: testBusinessContext(),
		PersonaData:     []byte(validIndividualJSON),
		IsUnlocked:      true,
	}))
	previews.Put(&Persona{ID: "preview-1", Type: TypeB2CIndividual})

	stats, err := svc.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ByType[TypeB2CIndividual])
	assert.Equal(t, 1, stats.Unlocked)
	assert.Equal(t, 1, stats.Previews)
}
