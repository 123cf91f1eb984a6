package testutil

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/scanflow/internal/domain"
)

var testTaskIDCounter atomic.Int64

// FixedNow is a deterministic clock value for tests.
var FixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// Task options
type TaskOption func(*domain.Task)

func WithTaskID(id int64) TaskOption {
	return func(t *domain.Task) {
		t.ID = id
	}
}

func WithTaskDone(at time.Time) TaskOption {
	return func(t *domain.Task) {
		t.Status = domain.TaskDone
		t.CompletedAt = &at
	}
}

func WithCreatedAt(at time.Time) TaskOption {
	return func(t *domain.Task) {
		t.CreatedAt = at
	}
}

// NewTestTask builds an active task with a process-unique id.
func NewTestTask(title, chapter string, stage domain.Stage, opts ...TaskOption) *domain.Task {
	t := &domain.Task{
		ID:        testTaskIDCounter.Add(1),
		Title:     title,
		Chapter:   chapter,
		Stage:     stage,
		Status:    domain.TaskActive,
		CreatedAt: FixedNow,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Actor options
type ActorOption func(*domain.Actor)

func WithRoles(roles ...domain.Role) ActorOption {
	return func(a *domain.Actor) {
		a.Roles = append(a.Roles, roles...)
	}
}

func WithDisplayName(name string) ActorOption {
	return func(a *domain.Actor) {
		a.DisplayName = name
	}
}

func NewTestActor(id string, opts ...ActorOption) *domain.Actor {
	a := &domain.Actor{ID: id, CreatedAt: FixedNow}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func NewTestEvent(task *domain.Task, kind domain.EventKind, actor string) *domain.TaskEvent {
	return &domain.TaskEvent{
		ID:      uuid.NewString(),
		TaskID:  task.ID,
		Kind:    kind,
		Title:   task.Title,
		Chapter: task.Chapter,
		Stage:   task.Stage,
		Actor:   actor,
		At:      FixedNow,
	}
}
