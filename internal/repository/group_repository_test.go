package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

func TestGroupRepository(t *testing.T) {
	f := setupFixture(t)

	t.Run("upsert refreshes title and keeps created_at", func(t *testing.T) {
		before, err := f.groups.GetByID(f.ctx, testGroupID)
		require.NoError(t, err)
		require.Equal(t, "Flat 4B", before.Title)

		g := &models.Group{ID: testGroupID, Title: "Flat 4B (2026)"}
		require.NoError(t, f.groups.UpsertGroup(f.ctx, g))
		require.True(t, g.CreatedAt.Equal(before.CreatedAt))

		after, err := f.groups.GetByID(f.ctx, testGroupID)
		require.NoError(t, err)
		require.Equal(t, "Flat 4B (2026)", after.Title)
	})

	t.Run("missing group", func(t *testing.T) {
		_, err := f.groups.GetByID(f.ctx, -999)
		require.ErrorIs(t, err, ErrGroupNotFound)
	})

	t.Run("list ids", func(t *testing.T) {
		require.NoError(t, f.groups.UpsertGroup(f.ctx, &models.Group{ID: -100501, Title: "Trip"}))

		ids, err := f.groups.ListIDs(f.ctx)
		require.NoError(t, err)
		require.Contains(t, ids, testGroupID)
		require.Contains(t, ids, int64(-100501))
	})
}
