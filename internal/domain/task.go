package domain

import "time"

// Task is one unit of work: a single stage applied to a single chapter of a
// title. At most one task exists per (Title, Chapter, Stage).
type Task struct {
	ID          int64
	Title       string
	Chapter     string
	Stage       Stage
	Status      TaskStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// TaskKey is the natural identity of a task.
type TaskKey struct {
	Title   string
	Chapter string
	Stage   Stage
}

func (t *Task) Key() TaskKey {
	return TaskKey{Title: t.Title, Chapter: t.Chapter, Stage: t.Stage}
}

func (t *Task) IsActive() bool {
	return t.Status == TaskActive
}

// MarkDone transitions an active task to done and reports whether the status
// changed. Completing a done task is a no-op and keeps the original CompletedAt.
func (t *Task) MarkDone(now time.Time) bool {
	if t.Status == TaskDone {
		return false
	}
	t.Status = TaskDone
	t.CompletedAt = &now
	return true
}
