// AngelaMos | 2026
// preview_test.go

package persona

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewStorePutGet(t *testing.T) {
	store := NewPreviewStore()

	p := &Persona{ID: "p1", Type: TypeB2CIndividual}
	store.Put(p)

	got, ok := store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, 1, store.Len())

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestPreviewStoreDelete(t *testing.T) {
	store := NewPreviewStore()

	store.Put(&Persona{ID: "p1"})
	store.Delete("p1")

	_, ok := store.Get("p1")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestPreviewStoreExpiredEntryIsInvisible(t *testing.T) {
	store := NewPreviewStore()

	store.Put(&Persona{ID: "p1"})

	store.mu.Lock()
	entry := store.entries["p1"]
	entry.storedAt = time.Now().Add(-2 * previewTTL)
	store.entries["p1"] = entry
	store.mu.Unlock()

	_, ok := store.Get("p1")
	assert.False(t, ok, "entries past TTL must not be returned")
}

func TestPreviewStoreOverwriteRefreshes(t *testing.T) {
	store := NewPreviewStore()

	store.Put(&Persona{ID: "p1", Type: TypeB2CIndividual})
	store.Put(&Persona{ID: "p1", Type: TypeB2BCompany})

	got, ok := store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, TypeB2BCompany, got.Type)
	assert.Equal(t, 1, store.Len())
}
