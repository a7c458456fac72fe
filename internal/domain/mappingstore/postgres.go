package mappingstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/autoorder/autoorder/internal/domain/convert/mapping"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock
// implements it too.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a new PostgreSQL mapping repository
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts or updates a mapping, keyed by name
func (r *PostgresRepository) Save(ctx context.Context, m *StoredMapping) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	specJSON, err := json.Marshal(m.Spec)
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}
	fixedJSON, err := json.Marshal(m.FixedValues)
	if err != nil {
		return fmt.Errorf("failed to marshal fixed values: %w", err)
	}

	query := `
		INSERT INTO saved_mappings (id, name, template_name, spec, fixed_values)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET template_name = EXCLUDED.template_name,
		    spec = EXCLUDED.spec,
		    fixed_values = EXCLUDED.fixed_values,
		    updated_at = now()
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		m.ID,
		m.Name,
		m.TemplateName,
		specJSON,
		fixedJSON,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}

// GetByID retrieves a mapping by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*StoredMapping, error) {
	query := `
		SELECT id, name, template_name, spec, fixed_values, created_at, updated_at
		FROM saved_mappings
		WHERE id = $1`

	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetByName retrieves a mapping by its unique name
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*StoredMapping, error) {
	query := `
		SELECT id, name, template_name, spec, fixed_values, created_at, updated_at
		FROM saved_mappings
		WHERE name = $1`

	return r.scanOne(r.db.QueryRow(ctx, query, name))
}

// List returns all saved mappings, most recently updated first
func (r *PostgresRepository) List(ctx context.Context) ([]*StoredMapping, error) {
	query := `
		SELECT id, name, template_name, spec, fixed_values, created_at, updated_at
		FROM saved_mappings
		ORDER BY updated_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*StoredMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

// Delete removes a mapping by ID
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM saved_mappings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*StoredMapping, error) {
	m, err := scanMapping(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMapping(row scannable) (*StoredMapping, error) {
	var (
		m         StoredMapping
		specJSON  []byte
		fixedJSON []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&m.ID, &m.Name, &m.TemplateName, &specJSON, &fixedJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan mapping: %w", err)
	}

	m.Spec = mapping.NewSpec()
	if len(specJSON) > 0 {
		if err := json.Unmarshal(specJSON, m.Spec); err != nil {
			return nil, fmt.Errorf("failed to parse stored spec: %w", err)
		}
	}
	if len(fixedJSON) > 0 {
		if err := json.Unmarshal(fixedJSON, &m.FixedValues); err != nil {
			return nil, fmt.Errorf("failed to parse stored fixed values: %w", err)
		}
	}
	m.CreatedAt = createdAt
	m.UpdatedAt = updatedAt
	return &m, nil
}
