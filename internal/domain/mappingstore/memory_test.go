package mappingstore

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoorder/autoorder/internal/domain/convert/mapping"
)

func fakeMapping(faker *gofakeit.Faker) *StoredMapping {
	spec := mapping.NewSpec()
	spec.Set("상품명", mapping.Directive{Kind: mapping.Passthrough, Source: faker.Word()})
	spec.Set("수량", mapping.Directive{Kind: mapping.Passthrough, Source: faker.Word()})
	return &StoredMapping{
		Name:         faker.AppName() + "-" + faker.UUID(),
		TemplateName: faker.Word() + ".xlsx",
		Spec:         spec,
		FixedValues:  mapping.FixedValues{"비고": faker.BuzzWord()},
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	faker := gofakeit.New(42)

	t.Run("save assigns ID and timestamps", func(t *testing.T) {
		repo := NewMemoryRepository()
		m := fakeMapping(faker)

		require.NoError(t, repo.Save(ctx, m))
		assert.NotEqual(t, uuid.Nil, m.ID)
		assert.False(t, m.CreatedAt.IsZero())
		assert.Equal(t, m.CreatedAt, m.UpdatedAt)
	})

	t.Run("get by id and name return copies", func(t *testing.T) {
		repo := NewMemoryRepository()
		m := fakeMapping(faker)
		require.NoError(t, repo.Save(ctx, m))

		byID, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.Name, byID.Name)

		byName, err := repo.GetByName(ctx, m.Name)
		require.NoError(t, err)
		assert.Equal(t, m.ID, byName.ID)

		byID.Name = "mutated"
		again, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.Name, again.Name)
	})

	t.Run("save upserts by name", func(t *testing.T) {
		repo := NewMemoryRepository()
		m := fakeMapping(faker)
		require.NoError(t, repo.Save(ctx, m))
		originalID := m.ID
		originalCreated := m.CreatedAt

		updated := fakeMapping(faker)
		updated.Name = m.Name
		updated.TemplateName = "replacement.xlsx"
		require.NoError(t, repo.Save(ctx, updated))

		assert.Equal(t, originalID, updated.ID)
		assert.Equal(t, originalCreated, updated.CreatedAt)

		got, err := repo.GetByID(ctx, originalID)
		require.NoError(t, err)
		assert.Equal(t, "replacement.xlsx", got.TemplateName)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("list orders by most recent update", func(t *testing.T) {
		repo := NewMemoryRepository()
		first := fakeMapping(faker)
		second := fakeMapping(faker)

		require.NoError(t, repo.Save(ctx, first))
		time.Sleep(2 * time.Millisecond)
		require.NoError(t, repo.Save(ctx, second))

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.Name, all[0].Name)
		assert.Equal(t, first.Name, all[1].Name)
	})

	t.Run("delete removes id and name", func(t *testing.T) {
		repo := NewMemoryRepository()
		m := fakeMapping(faker)
		require.NoError(t, repo.Save(ctx, m))

		require.NoError(t, repo.Delete(ctx, m.ID))

		_, err := repo.GetByID(ctx, m.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetByName(ctx, m.Name)
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, m.ID), ErrNotFound)
	})

	t.Run("lookups on empty store", func(t *testing.T) {
		repo := NewMemoryRepository()
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetByName(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
