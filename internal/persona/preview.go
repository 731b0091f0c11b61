// AngelaMos | 2026
// preview.go

package persona

import (
	"sync"
	"time"
)

const (
	previewTTL             = 1 * time.Hour
	previewCleanupInterval = 5 * time.Minute
)

type previewEntry struct {
	persona  *Persona
	storedAt time.Time
}

// PreviewStore holds personas generated for unauthenticated callers.
// Process-local and non-durable by contract: previews are lost on restart
// and are never visible to other instances.
type PreviewStore struct {
	mu      sync.RWMutex
	entries map[string]previewEntry
	ttl     time.Duration
}

func NewPreviewStore() *PreviewStore {
	s := &PreviewStore{
		entries: make(map[string]previewEntry),
		ttl:     previewTTL,
	}
	go s.cleanup()
	return s
}

func (s *PreviewStore) Put(p *Persona) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[p.ID] = previewEntry{persona: p, storedAt: time.Now()}
}

func (s *PreviewStore) Get(id string) (*Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}

	if time.Since(entry.storedAt) > s.ttl {
		return nil, false
	}

	return entry.persona, true
}

func (s *PreviewStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
}

func (s *PreviewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

func (s *PreviewStore) cleanup() {
	ticker := time.NewTicker(previewCleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-s.ttl)

		s.mu.Lock()
		for id, entry := range s.entries {
			if entry.storedAt.Before(cutoff) {
				delete(s.entries, id)
			}
		}
		s.mu.Unlock()
	}
}
