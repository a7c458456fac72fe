package mappingstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoorder/autoorder/internal/domain/convert/mapping"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func specJSON(t *testing.T, spec *mapping.Spec) []byte {
	t.Helper()
	data, err := spec.MarshalJSON()
	require.NoError(t, err)
	return data
}

func TestPostgresRepositorySave(t *testing.T) {
	repo, mock := newMockRepo(t)

	spec := mapping.NewSpec()
	spec.Set("상품명", mapping.Directive{Kind: mapping.Passthrough, Source: "품목"})

	m := &StoredMapping{
		Name:         "supplier-a",
		TemplateName: "template.xlsx",
		Spec:         spec,
		FixedValues:  mapping.FixedValues{"비고": "정기발주"},
	}

	now := time.Now()
	returnedID := uuid.New()
	mock.ExpectQuery(`INSERT INTO saved_mappings`).
		WithArgs(pgxmock.AnyArg(), "supplier-a", "template.xlsx", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(returnedID, now, now))

	require.NoError(t, repo.Save(context.Background(), m))
	assert.Equal(t, returnedID, m.ID)
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, now, m.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryGetByName(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	spec := mapping.NewSpec()
	spec.Set("수량", mapping.Directive{Kind: mapping.Passthrough, Source: "개수"})

	t.Run("found", func(t *testing.T) {
		id := uuid.New()
		now := time.Now()
		mock.ExpectQuery(`SELECT id, name, template_name, spec, fixed_values`).
			WithArgs("supplier-a").
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "name", "template_name", "spec", "fixed_values", "created_at", "updated_at",
			}).AddRow(
				id, "supplier-a", "template.xlsx",
				specJSON(t, spec), []byte(`{"비고":"정기발주"}`), now, now,
			))

		m, err := repo.GetByName(ctx, "supplier-a")
		require.NoError(t, err)
		assert.Equal(t, id, m.ID)
		assert.Equal(t, "supplier-a", m.Name)

		d, ok := m.Spec.Get("수량")
		require.True(t, ok)
		assert.Equal(t, "개수", d.Source)
		assert.Equal(t, "정기발주", m.FixedValues["비고"])
	})

	t.Run("missing maps to ErrNotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, name, template_name, spec, fixed_values`).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByName(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryList(t *testing.T) {
	repo, mock := newMockRepo(t)

	spec := mapping.NewSpec()
	spec.Set("상품명", mapping.Directive{Kind: mapping.Fixed, Literal: "고정상품"})

	newer := time.Now()
	older := newer.Add(-time.Hour)
	mock.ExpectQuery(`SELECT id, name, template_name, spec, fixed_values`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "template_name", "spec", "fixed_values", "created_at", "updated_at",
		}).AddRow(
			uuid.New(), "supplier-b", "b.xlsx", specJSON(t, spec), []byte(`{}`), older, newer,
		).AddRow(
			uuid.New(), "supplier-a", "a.xlsx", specJSON(t, spec), []byte(`{}`), older, older,
		))

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "supplier-b", all[0].Name)

	d, ok := all[0].Spec.Get("상품명")
	require.True(t, ok)
	assert.Equal(t, mapping.Fixed, d.Kind)
	assert.Equal(t, "고정상품", d.Literal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryDelete(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	t.Run("deleted", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec(`DELETE FROM saved_mappings`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(ctx, id))
	})

	t.Run("missing maps to ErrNotFound", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec(`DELETE FROM saved_mappings`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(ctx, id), ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
