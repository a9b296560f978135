package services

import (
	"context"
	"time"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

// Transactor runs fn inside a transaction carried by the context
// passed to fn. Repositories called with that context join it.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, offset, limit int) ([]*models.User, int, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)
	GetSessionByRefreshToken(ctx context.Context, refreshToken, fingerprint string) (*models.Session, error)
	UpdateSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteSessionsByUserID(ctx context.Context, userID string) (int64, error)
	DeleteSessionsByFingerprint(ctx context.Context, userID, fingerprint string) (int64, error)
}

type TaskQuery struct {
	// VisibleTo limits the result to tasks the user is assigned to
	// or created. Nil means all tasks.
	VisibleTo *string
	Filter    models.TaskFilter
	Today     time.Time
	Offset    int
	Limit     int
}

type TaskRepository interface {
	// NextSequence atomically increments and returns the counter
	// of the given priority and YYMM period, starting at 1.
	NextSequence(ctx context.Context, priority models.Priority, period string) (int, error)
	CreateTask(ctx context.Context, task *models.Task) error
	GetTaskByID(ctx context.Context, taskID int64) (*models.Task, error)
	// LockTaskByID is GetTaskByID that also locks the row until the
	// transaction in ctx ends.
	LockTaskByID(ctx context.Context, taskID int64) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, taskID int64) error
	ListTasks(ctx context.Context, query TaskQuery) ([]*models.Task, int, error)
	// ExistingTaskIDs returns the subset of ids that still exist.
	ExistingTaskIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
}

type ActivityRepository interface {
	CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error
	DeleteActivityLogsByTaskID(ctx context.Context, taskID int64) (int64, error)
	// ListActivityLogs lists entries of userID, or of everyone when nil.
	ListActivityLogs(ctx context.Context, userID *string, offset, limit int) ([]*models.ActivityLog, int, error)
}

type CronjobRepository interface {
	CreateCronjob(ctx context.Context, job *models.Cronjob) error
	GetCronjobByID(ctx context.Context, cronjobID int64) (*models.Cronjob, error)
	UpdateCronjob(ctx context.Context, job *models.Cronjob) error
	DeleteCronjob(ctx context.Context, cronjobID int64) error
	ListCronjobs(ctx context.Context, offset, limit int) ([]*models.Cronjob, int, error)
	ListCronjobsByTimeOfDay(ctx context.Context, tod models.TimeOfDay) ([]*models.Cronjob, error)
}
