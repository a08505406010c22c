// Package annotations holds user-written metadata keyed by transaction
// identity key. Annotations are advisory; the core never requires one to
// exist and treats absence as {flagged:false, note:""}.
package annotations

import (
	"context"
	"sync"
)

// Annotation is a user's flag and note for one transaction.
type Annotation struct {
	Flagged bool   `json:"flagged"`
	Note    string `json:"note"`
}

// Patch is a partial annotation update. Nil fields keep the stored value.
type Patch struct {
	Flagged *bool   `json:"flagged,omitempty"`
	Note    *string `json:"note,omitempty"`
}

// Store is the annotation persistence port.
type Store interface {
	Get(ctx context.Context, key string) (Annotation, bool, error)
	Upsert(ctx context.Context, key string, patch Patch) (Annotation, error)
}

// MemoryStore keeps annotations in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	annotations map[string]Annotation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{annotations: make(map[string]Annotation)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Annotation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ann, ok := s.annotations[key]
	return ann, ok, nil
}

func (s *MemoryStore) Upsert(_ context.Context, key string, patch Patch) (Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ann := s.annotations[key]
	if patch.Flagged != nil {
		ann.Flagged = *patch.Flagged
	}
	if patch.Note != nil {
		ann.Note = *patch.Note
	}
	s.annotations[key] = ann
	return ann, nil
}
