package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/scanflow/internal/testutil"
)

func TestArchiveRepo_AddIsIdempotent(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteArchiveRepo(database)

	added, err := repo.Add(ctx, "Solo", "01", testutil.FixedNow)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Add(ctx, "Solo", "01", testutil.FixedNow)
	require.NoError(t, err)
	assert.False(t, added)

	entries, err := repo.ListByTitle(ctx, "Solo")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "01", entries[0].Chapter)

	ok, err := repo.Contains(ctx, "Solo", "01")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Contains(ctx, "Solo", "02")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveRepo_TitlesInFirstArchivedOrder(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteArchiveRepo(database)

	for _, e := range [][2]string{{"Solo", "02"}, {"Naruto", "01"}, {"Solo", "01"}} {
		_, err := repo.Add(ctx, e[0], e[1], testutil.FixedNow)
		require.NoError(t, err)
	}

	titles, err := repo.Titles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Solo", "Naruto"}, titles)

	solo, err := repo.ListByTitle(ctx, "Solo")
	require.NoError(t, err)
	assert.Equal(t, "02", solo[0].Chapter, "entries keep insertion order")

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
