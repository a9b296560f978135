package models

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Initial is the leading letter of an abbreviation: N, M or H.
func (p Priority) Initial() string {
	if !p.Valid() {
		return ""
	}
	return strings.ToUpper(string(p)[:1])
}

// Status tags as they are stored in the tasks.status column.
const (
	StatusTagOnHold    = "on_hold"
	StatusTagCompleted = "completed"
)

type stateKind uint8

const (
	stateOpen stateKind = iota
	stateOnHold
	stateCompleted
)

// TaskState is the closed set of task states. The zero value is Open.
// A reason is carried only by the OnHold state.
type TaskState struct {
	kind   stateKind
	reason string
}

func OpenState() TaskState {
	return TaskState{kind: stateOpen}
}

func OnHoldState(reason string) TaskState {
	return TaskState{kind: stateOnHold, reason: reason}
}

func CompletedState() TaskState {
	return TaskState{kind: stateCompleted}
}

func (s TaskState) IsOpen() bool      { return s.kind == stateOpen }
func (s TaskState) IsOnHold() bool    { return s.kind == stateOnHold }
func (s TaskState) IsCompleted() bool { return s.kind == stateCompleted }

// OnHoldReason is empty unless the state is OnHold.
func (s TaskState) OnHoldReason() string {
	if s.kind != stateOnHold {
		return ""
	}
	return s.reason
}

// Completed returns the value of the tasks.completed column.
func (s TaskState) Completed() bool {
	return s.kind == stateCompleted
}

// StatusTag returns the value of the nullable tasks.status column.
func (s TaskState) StatusTag() *string {
	var tag string
	switch s.kind {
	case stateOnHold:
		tag = StatusTagOnHold
	case stateCompleted:
		tag = StatusTagCompleted
	default:
		return nil
	}
	return &tag
}

// StateFromColumns rebuilds a state from stored columns. Rows that
// violate the column constraints are read in the most advanced state
// they describe: completed wins over on hold.
func StateFromColumns(completed bool, status, onHoldReason *string) TaskState {
	if completed || (status != nil && *status == StatusTagCompleted) {
		return CompletedState()
	}
	if status != nil && *status == StatusTagOnHold {
		var reason string
		if onHoldReason != nil {
			reason = *onHoldReason
		}
		return OnHoldState(reason)
	}
	return OpenState()
}

// PendingExtension is an assignee proposal for a new due date.
type PendingExtension struct {
	Date   time.Time
	Reason string
}

type File struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type Task struct {
	ID           int64
	Abbreviation string
	Description  string
	AssigneeID   string
	CreatorID    string
	DueDate      time.Time
	Priority     Priority
	State        TaskState
	Extension    *PendingExtension
	// ExtensionApproved is nil until a creator has answered a request.
	ExtensionApproved *bool
	Remarks           string
	Files             []File
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (t *Task) IsAssignee(userID string) bool {
	return t.AssigneeID == userID
}

func (t *Task) IsCreator(userID string) bool {
	return t.CreatorID == userID
}

// Counterpart is the party that should hear about a change made by actorID.
func (t *Task) Counterpart(actorID string) string {
	if t.AssigneeID == actorID {
		return t.CreatorID
	}
	return t.AssigneeID
}

// IsOverdue reports whether the task is not completed and its due
// date is a calendar day before now's.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.State.IsCompleted() {
		return false
	}
	return DateOnly(t.DueDate).Before(DateOnly(now))
}

// DateOnly keeps the calendar date of t and drops the clock and zone.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (t *Task) FileByName(name string) (File, int, bool) {
	for i, f := range t.Files {
		if f.Name == name {
			return f, i, true
		}
	}
	return File{}, -1, false
}

type TaskFilter string

const (
	TaskFilterAll           TaskFilter = "all"
	TaskFilterPending       TaskFilter = "pending"
	TaskFilterCompleted     TaskFilter = "completed"
	TaskFilterOverdue       TaskFilter = "overdue"
	TaskFilterDateExtension TaskFilter = "date_extension"
	TaskFilterOnHold        TaskFilter = "on_hold"
)

func (f TaskFilter) Valid() bool {
	switch f {
	case TaskFilterAll, TaskFilterPending, TaskFilterCompleted,
		TaskFilterOverdue, TaskFilterDateExtension, TaskFilterOnHold:
		return true
	}
	return false
}
