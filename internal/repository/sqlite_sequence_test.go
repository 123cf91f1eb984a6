package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/testutil"
)

func TestSequenceRepo_StartsAtOne(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	seq := NewSQLiteSequenceRepo(database)

	first, err := seq.NextTaskID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := seq.NextTaskID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
}

func TestSequenceRepo_ReseedAfterExplicitIDs(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	seq := NewSQLiteSequenceRepo(database)
	tasks := NewSQLiteTaskRepo(database)

	require.NoError(t, tasks.Create(ctx, testutil.NewTestTask("Solo", "01", domain.StageEdit, testutil.WithTaskID(57))))
	require.NoError(t, seq.Reseed(ctx))

	next, err := seq.NextTaskID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(58), next)

	// Reseeding never moves the allocator backwards.
	require.NoError(t, seq.Reseed(ctx))
	next, err = seq.NextTaskID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(59), next)
}

func TestSequenceRepo_SeedsMissingRow(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	tasks := NewSQLiteTaskRepo(database)

	require.NoError(t, tasks.Create(ctx, testutil.NewTestTask("Solo", "01", domain.StageEdit, testutil.WithTaskID(9))))
	_, err := database.Exec(`DELETE FROM task_sequence`)
	require.NoError(t, err)

	next, err := NewSQLiteSequenceRepo(database).NextTaskID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), next)
}
