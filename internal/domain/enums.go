package domain

// Stage identifies one step of the chapter pipeline. The default topology
// uses the constants below; a stage graph file may declare additional keys.
type Stage string

const (
	StageTranslate Stage = "translate"
	StageClean     Stage = "clean"
	StageEdit      Stage = "edit"
	StageTypeset   Stage = "typeset"
	StageReview    Stage = "review"
)

// DefaultStages lists the built-in stages in pipeline order.
var DefaultStages = []Stage{StageTranslate, StageClean, StageEdit, StageTypeset, StageReview}

func (s Stage) String() string { return string(s) }

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskActive TaskStatus = "active"
	TaskDone   TaskStatus = "done"
)

// ValidTaskStatuses is the canonical set of accepted task status strings.
var ValidTaskStatuses = map[string]bool{
	"active": true, "done": true,
}

// Role is a capability held by an actor: either a stage key or RoleCoordinator.
type Role string

// RoleCoordinator may register titles and chapters (intake).
const RoleCoordinator Role = "coordinator"

// StageRole returns the role that allows completing tasks of stage s.
func StageRole(s Stage) Role { return Role(s) }

// EventKind names what happened to a task.
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventCompleted EventKind = "completed"
	EventArchived  EventKind = "archived"
)
