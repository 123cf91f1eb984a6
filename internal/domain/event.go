package domain

import "time"

// TaskEvent is an append-only history record for a task transition.
type TaskEvent struct {
	ID      string
	TaskID  int64
	Kind    EventKind
	Title   string
	Chapter string
	Stage   Stage
	Actor   string
	At      time.Time
}
