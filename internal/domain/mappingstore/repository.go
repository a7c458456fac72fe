// Package mappingstore persists saved column mappings so a buyer uploading
// the same supplier file next week does not have to remap it.
package mappingstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/autoorder/autoorder/internal/domain/convert/mapping"
)

// ErrNotFound is returned when no stored mapping matches the lookup.
var ErrNotFound = errors.New("mapping not found")

// StoredMapping is a saved column mapping for a known supplier file shape.
type StoredMapping struct {
	ID           uuid.UUID           `json:"id"`
	Name         string              `json:"name"`
	TemplateName string              `json:"template_name"`
	Spec         *mapping.Spec       `json:"spec"`
	FixedValues  mapping.FixedValues `json:"fixed_values,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Repository defines storage operations for saved mappings.
type Repository interface {
	// Save inserts or updates a mapping, keyed by name.
	Save(ctx context.Context, m *StoredMapping) error

	// GetByID retrieves a mapping by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*StoredMapping, error)

	// GetByName retrieves a mapping by its unique name.
	GetByName(ctx context.Context, name string) (*StoredMapping, error)

	// List returns all saved mappings, most recently updated first.
	List(ctx context.Context) ([]*StoredMapping, error)

	// Delete removes a mapping by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}
