package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")
	ErrUserDisabled         = errors.New("user disabled")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrTaskNotFound         = errors.New("task not found")
	ErrCronjobNotFound      = errors.New("cronjob not found")
	ErrFileNotFound         = errors.New("file not found")

	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")

	ErrInvalidTransition = fmt.Errorf("%w: transition not allowed in the current state", ErrConflict)
	ErrExtensionPending  = fmt.Errorf("%w: extension request already pending", ErrConflict)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Actor is the authenticated user a service call is made on behalf of.
type Actor struct {
	UserID  string
	IsAdmin bool
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page struct {
	Page int
	Size int
}

// Normalize defaults page to 1 and size to DefaultPageSize
// and clamps size to MaxPageSize.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Size
}

type PageResult[T any] struct {
	Items []T
	Total int
	Page  int
	Size  int
}

type AuthService interface {
	// Login authenticates the user by email and password.
	//
	// It deletes the sessions of the user that carry the same
	// fingerprint, creates a new session and generates a new
	// JWT token pair.
	//
	// It returns ErrUserNotFound if the user with the given
	// email doesn't exist, ErrUserPasswordMismatch if the
	// given password doesn't match the user's password or
	// ErrUserDisabled if an admin has disabled the account.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Refresh updates the session with the given refresh token.
	//
	// It returns ErrSessionNotFound if the session with the
	// given refresh token doesn't exist or ErrSessionExpired
	// if the session is expired.
	Refresh(ctx context.Context, params RefreshParams) (*LoginResult, error)

	// Register a user with the given profile and password.
	//
	// It hashes the password, generates a unique ID and creates a
	// session with the given fingerprint and a fresh JWT token pair.
	//
	// It returns ErrUserAlreadyExists if the user
	// with the given email already exists.
	Register(ctx context.Context, params RegisterParams) (*LoginResult, error)

	// Logout invalidates the session with the given ID.
	Logout(ctx context.Context, sessionID string) error

	// ParseJWTToken parses the given JWT token and returns the registered
	// claims or jwt.ErrTokenExpired if the token is expired.
	ParseJWTToken(token string) (*jwt.RegisteredClaims, error)
}

type SessionService interface {
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)
}

type UserService interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*models.User, error)

	// ListUsers and UpdateUser are admin operations. Disabling a user
	// through UpdateUser also drops all of their sessions.
	ListUsers(ctx context.Context, page Page) (*PageResult[*models.User], error)
	UpdateUser(ctx context.Context, userID string, params UpdateUserParams) (*models.User, error)
}

// TaskService is the single writer of task rows. Every successful
// mutation records one activity log entry and emits one notification.
// A failed call changes nothing.
type TaskService interface {
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)
	GetTask(ctx context.Context, actor Actor, taskID int64) (*models.Task, error)
	ListTasks(ctx context.Context, actor Actor, params ListTasksParams) (*PageResult[*models.Task], error)
	UpdateTask(ctx context.Context, actor Actor, taskID int64, params UpdateTaskParams) (*models.Task, error)
	DeleteTask(ctx context.Context, actor Actor, taskID int64) error

	PutOnHold(ctx context.Context, actor Actor, taskID int64, reason string) (*models.Task, error)
	Resume(ctx context.Context, actor Actor, taskID int64) (*models.Task, error)
	MarkComplete(ctx context.Context, actor Actor, taskID int64) (*models.Task, error)
	MarkIncomplete(ctx context.Context, actor Actor, taskID int64) (*models.Task, error)

	RequestExtension(ctx context.Context, actor Actor, taskID int64, params RequestExtensionParams) (*models.Task, error)
	ApproveExtension(ctx context.Context, actor Actor, taskID int64) (*models.Task, error)
	RejectExtension(ctx context.Context, actor Actor, taskID int64) (*models.Task, error)

	Delegate(ctx context.Context, actor Actor, taskID int64, assigneeID string) (*models.Task, error)

	AttachFiles(ctx context.Context, actor Actor, taskID int64, uploads []FileUpload) (*models.Task, error)
	DetachFile(ctx context.Context, actor Actor, taskID int64, name string) (*models.Task, error)

	// SweepOrphanFiles removes stored file directories of tasks
	// that no longer exist and returns how many were removed.
	SweepOrphanFiles(ctx context.Context) (int, error)
}

type CronjobService interface {
	CreateCronjob(ctx context.Context, params CronjobParams) (*models.Cronjob, error)
	GetCronjob(ctx context.Context, cronjobID int64) (*models.Cronjob, error)
	ListCronjobs(ctx context.Context, page Page) (*PageResult[*models.Cronjob], error)
	UpdateCronjob(ctx context.Context, cronjobID int64, params CronjobParams) (*models.Cronjob, error)
	DeleteCronjob(ctx context.Context, cronjobID int64) error

	// DueCronjobs returns the templates whose time of day equals now
	// truncated to seconds and whose repeat interval includes now's day.
	DueCronjobs(ctx context.Context, now time.Time) ([]*models.Cronjob, error)
}

// ActivityService is the append-only audit trail.
type ActivityService interface {
	Record(ctx context.Context, entry *models.ActivityLog) error
	ListActivity(ctx context.Context, actor Actor, page Page) (*PageResult[*models.ActivityLog], error)
}

// Notifier delivers a best-effort event to the active sessions of a user.
type Notifier interface {
	Notify(userID string, n models.Notification)
}

// FileStore keeps uploaded bytes in a directory per task.
type FileStore interface {
	Save(taskID int64, name, contentType string, r io.Reader) (models.File, error)
	Remove(path string) error
	RemoveTask(taskID int64) error
	TaskIDs() ([]int64, error)
}

type LoginParams struct {
	Email       string
	Password    string
	Fingerprint string
}

type RegisterParams struct {
	Name          string
	Email         string
	ContactNumber string
	Password      string
	Fingerprint   string
}

type LoginResult struct {
	UserID                string
	SessionID             string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

type RefreshParams struct {
	RefreshToken string
	Fingerprint  string
}

type UpdateProfileParams struct {
	Name          *string
	ContactNumber *string
}

type UpdateUserParams struct {
	Name          *string
	ContactNumber *string
	IsAdmin       *bool
	IsEnabled     *bool
}

type CreateTaskParams struct {
	CreatorID   string
	AssigneeID  string
	Description string
	Priority    models.Priority
	// DueDate defaults to today.
	DueDate *time.Time
	Remarks string
	// Abbreviation overrides the generated code. Only used by the
	// recurring task poller.
	Abbreviation string
}

type UpdateTaskParams struct {
	Description *string
	DueDate     *time.Time
	Priority    *models.Priority
	Remarks     *string
}

type ListTasksParams struct {
	Filter models.TaskFilter
	Page   Page
}

type RequestExtensionParams struct {
	Date   time.Time
	Reason string
}

type FileUpload struct {
	Name        string
	ContentType string
	Content     io.Reader
}

type CronjobParams struct {
	Description string
	UserID      string
	TimeOfDay   string
	Repeat      models.RepeatInterval
	Priority    models.Priority
}
