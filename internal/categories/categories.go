// Package categories classifies category parents as essential or not,
// from a fixed base set extended by user overrides.
package categories

import (
	"context"
	"sync"
)

// Fixed is the base set of essential category parents.
var Fixed = []string{
	"Alimentation",
	"Logement",
	"Santé",
	"Voyages & Transports",
	"Carburant",
	"Assurances",
	"Impôts",
	"Services publics",
}

// Overrides is the persistence port for user-added essential categories.
// Overrides extend the fixed set; they never remove from it.
type Overrides interface {
	List(ctx context.Context) ([]string, error)
	Set(ctx context.Context, custom []string) error
}

// Set is a point-in-time merged view of fixed plus custom categories.
type Set struct {
	members map[string]struct{}
	custom  []string
}

// Load merges the fixed set with the stored overrides.
func Load(ctx context.Context, overrides Overrides) (*Set, error) {
	var custom []string
	if overrides != nil {
		var err error
		custom, err = overrides.List(ctx)
		if err != nil {
			return nil, err
		}
	}

	members := make(map[string]struct{}, len(Fixed)+len(custom))
	for _, c := range Fixed {
		members[c] = struct{}{}
	}
	for _, c := range custom {
		members[c] = struct{}{}
	}
	return &Set{members: members, custom: custom}, nil
}

// IsEssential reports whether a category parent belongs to the set.
func (s *Set) IsEssential(categoryParent string) bool {
	_, ok := s.members[categoryParent]
	return ok
}

// Custom returns the user-added categories, without the fixed ones.
func (s *Set) Custom() []string {
	return s.custom
}

// MemoryOverrides keeps custom categories in process memory.
type MemoryOverrides struct {
	mu     sync.RWMutex
	custom []string
}

func NewMemoryOverrides() *MemoryOverrides {
	return &MemoryOverrides{}
}

func (m *MemoryOverrides) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.custom))
	copy(out, m.custom)
	return out, nil
}

func (m *MemoryOverrides) Set(_ context.Context, custom []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.custom = make([]string, len(custom))
	copy(m.custom, custom)
	return nil
}
