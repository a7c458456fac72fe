package mappingstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and deployments
// without a database.
type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*StoredMapping
	idByName map[string]uuid.UUID
}

// NewMemoryRepository creates an empty in-memory mapping repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[uuid.UUID]*StoredMapping),
		idByName: make(map[string]uuid.UUID),
	}
}

// Save inserts or updates a mapping, keyed by name
func (r *MemoryRepository) Save(ctx context.Context, m *StoredMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existingID, ok := r.idByName[m.Name]; ok {
		existing := r.byID[existingID]
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	} else {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	stored := *m
	r.byID[m.ID] = &stored
	r.idByName[m.Name] = m.ID
	return nil
}

// GetByID retrieves a mapping by ID
func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*StoredMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *m
	return &out, nil
}

// GetByName retrieves a mapping by its unique name
func (r *MemoryRepository) GetByName(ctx context.Context, name string) (*StoredMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idByName[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

// List returns all saved mappings, most recently updated first
func (r *MemoryRepository) List(ctx context.Context) ([]*StoredMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mappings := make([]*StoredMapping, 0, len(r.byID))
	for _, m := range r.byID {
		out := *m
		mappings = append(mappings, &out)
	}
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].UpdatedAt.After(mappings[j].UpdatedAt)
	})
	return mappings, nil
}

// Delete removes a mapping by ID
func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.idByName, m.Name)
	return nil
}
