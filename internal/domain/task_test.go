package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestMarkDone_FromActive(t *testing.T) {
	task := &Task{Status: TaskActive}
	assert.True(t, task.MarkDone(testNow))
	assert.Equal(t, TaskDone, task.Status)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, testNow, *task.CompletedAt)
}

func TestMarkDone_AlreadyDone(t *testing.T) {
	earlier := testNow.Add(-time.Hour)
	task := &Task{Status: TaskDone, CompletedAt: &earlier}
	assert.False(t, task.MarkDone(testNow))
	assert.Equal(t, earlier, *task.CompletedAt, "should not overwrite existing CompletedAt")
}

func TestTaskKey(t *testing.T) {
	task := &Task{ID: 7, Title: "Solo", Chapter: "01", Stage: StageEdit}
	assert.Equal(t, TaskKey{Title: "Solo", Chapter: "01", Stage: StageEdit}, task.Key())
}

func TestPartitionChapters(t *testing.T) {
	added, dups := PartitionChapters([]string{"01", "02"}, []string{"02", "03", "03", "01", "04"})
	assert.Equal(t, []string{"03", "04"}, added)
	assert.Equal(t, []string{"02", "03", "01"}, dups)
}

func TestPartitionChapters_Empty(t *testing.T) {
	added, dups := PartitionChapters(nil, nil)
	assert.Empty(t, added)
	assert.Empty(t, dups)
}

func TestSectionHas(t *testing.T) {
	s := &Section{Title: "Solo", Chapters: []string{"01", "02"}}
	assert.True(t, s.Has("02"))
	assert.False(t, s.Has("2"))
}

func TestActorRoles(t *testing.T) {
	a := &Actor{ID: "42"}
	assert.True(t, a.AddRole(StageRole(StageEdit)))
	assert.False(t, a.AddRole(StageRole(StageEdit)))
	assert.True(t, a.AddRole(RoleCoordinator))
	assert.True(t, a.AddRole(StageRole(StageClean)))

	assert.True(t, a.IsCoordinator())
	assert.Equal(t, []Stage{StageEdit, StageClean}, a.Stages())

	assert.True(t, a.RemoveRole(RoleCoordinator))
	assert.False(t, a.RemoveRole(RoleCoordinator))
	assert.False(t, a.IsCoordinator())
}

func TestNormalizeTitle(t *testing.T) {
	cases := map[string]string{
		"  Solo  Leveling ": "Solo Leveling",
		"One\tPiece":        "One Piece",
		// decomposed "й" (и + combining breve) composes to U+0439
		"Мій \u0438\u0306": "Мій \u0439",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTitle(in), "input=%q", in)
	}
}
