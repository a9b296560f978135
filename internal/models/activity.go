package models

import "time"

type ActivityAction string

const (
	ActionCreate    ActivityAction = "create"
	ActionUpdate    ActivityAction = "update"
	ActionDelete    ActivityAction = "delete"
	ActionCompleted ActivityAction = "completed"
)

type ActivityLog struct {
	ID     int64
	UserID string
	// TaskID is nil for entries whose task was deleted.
	TaskID           *int64
	TaskAbbreviation string
	Action           ActivityAction
	CreatedAt        time.Time
}
