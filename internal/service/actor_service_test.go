package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
	"github.com/alexanderramin/scanflow/internal/testutil"
)

func newActorFixture(t *testing.T) (ActorService, *pipelineFixture) {
	t.Helper()
	f := newPipelineFixture(t)
	svc := NewActorService(stagegraph.Default(), repository.NewSQLiteActorRepo(f.db), f.events, testutil.NewTestUoW(f.db))
	return svc, f
}

func TestActorService_GrantCreatesActor(t *testing.T) {
	svc, _ := newActorFixture(t)
	ctx := context.Background()

	changed, err := svc.GrantRole(ctx, "42", domain.Role(domain.StageEdit))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.GrantRole(ctx, "42", domain.Role(domain.StageEdit))
	require.NoError(t, err)
	assert.False(t, changed, "granting twice is a no-op")

	actor, err := svc.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []domain.Stage{domain.StageEdit}, actor.Stages())
}

func TestActorService_RevokeRole(t *testing.T) {
	svc, _ := newActorFixture(t)
	ctx := context.Background()

	_, err := svc.GrantRole(ctx, "7", domain.RoleCoordinator)
	require.NoError(t, err)
	_, err = svc.GrantRole(ctx, "7", domain.Role(domain.StageClean))
	require.NoError(t, err)

	changed, err := svc.RevokeRole(ctx, "7", domain.RoleCoordinator)
	require.NoError(t, err)
	assert.True(t, changed)

	coordinators, err := svc.ListByRole(ctx, domain.RoleCoordinator)
	require.NoError(t, err)
	assert.Empty(t, coordinators)

	cleaners, err := svc.ListByRole(ctx, domain.Role(domain.StageClean))
	require.NoError(t, err)
	require.Len(t, cleaners, 1)
	assert.Equal(t, "7", cleaners[0].ID)
}

func TestActorService_RejectsUnknownRole(t *testing.T) {
	svc, _ := newActorFixture(t)

	_, err := svc.GrantRole(context.Background(), "7", "lettering")
	require.ErrorIs(t, err, app.ErrUnknownRole)
}

func TestActorService_Ensure(t *testing.T) {
	svc, _ := newActorFixture(t)
	ctx := context.Background()

	actor, err := svc.Ensure(ctx, "9", "Oksana")
	require.NoError(t, err)
	assert.Equal(t, "Oksana", actor.Name())
	assert.Empty(t, actor.Roles)

	_, err = svc.GrantRole(ctx, "9", domain.Role(domain.StageReview))
	require.NoError(t, err)

	actor, err = svc.Ensure(ctx, "9", "")
	require.NoError(t, err)
	assert.Equal(t, "Oksana", actor.DisplayName, "empty name keeps the stored one")
	assert.True(t, actor.HasRole(domain.Role(domain.StageReview)))

	_, err = svc.Ensure(ctx, " ", "x")
	require.Error(t, err)
}

func TestActorService_History(t *testing.T) {
	svc, f := newActorFixture(t)
	ctx := context.Background()

	_, err := f.svc.Intake(ctx, app.IntakeRequest{Title: "Solo", RawChapters: "1-2", EntryStage: domain.StageClean, Actor: "coord"})
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, app.AdvanceRequest{Title: "Solo", Chapter: "01", Stage: domain.StageClean, Actor: "cleaner"})
	require.NoError(t, err)

	events, err := svc.History(ctx, "cleaner", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCompleted, events[0].Kind)

	events, err = svc.History(ctx, "coord", 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
