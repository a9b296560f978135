package models

import "time"

type NotificationKind string

const (
	NotificationTaskCreated        NotificationKind = "task_created"
	NotificationTaskUpdated        NotificationKind = "task_updated"
	NotificationTaskCompleted      NotificationKind = "task_completed"
	NotificationTaskDeleted        NotificationKind = "task_deleted"
	NotificationTaskDelegated      NotificationKind = "task_delegated"
	NotificationExtensionRequested NotificationKind = "task_extension_requested"
	NotificationExtensionApproved  NotificationKind = "task_extension_approved"
	NotificationExtensionRejected  NotificationKind = "task_extension_rejected"
)

// Notification is transient. It is never persisted.
type Notification struct {
	Kind         NotificationKind `json:"kind"`
	TaskID       int64            `json:"taskId"`
	Abbreviation string           `json:"abbreviation"`
	Title        string           `json:"title"`
	ActorID      string           `json:"actorId"`
	TargetUserID string           `json:"targetUserId"`
	Message      string           `json:"message"`
	Timestamp    time.Time        `json:"timestamp"`
}
