package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/adanyl0v/go-taskdesk/internal/models"
	"github.com/adanyl0v/go-taskdesk/internal/services"
)

type TaskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id,
       abbreviation,
       description,
       assigned_user_id,
       created_by_id,
       due_date,
       priority,
       completed,
       status,
       on_hold_reason,
       requested_date,
       request_date_extension_reason,
       is_request_date_extension_approved,
       remarks,
       files,
       created_at,
       updated_at`

func (r *TaskRepository) NextSequence(ctx context.Context, priority models.Priority, period string) (int, error) {
	const nextSequenceQuery = `
INSERT INTO task_sequences (priority, period, value)
VALUES ($1, $2, 1)
ON CONFLICT (priority, period) DO UPDATE SET value = task_sequences.value + 1
RETURNING value
`
	var seq int
	err := r.db.conn(ctx).QueryRow(ctx, nextSequenceQuery, priority, period).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *TaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (abbreviation,
                   description,
                   assigned_user_id,
                   created_by_id,
                   due_date,
                   priority,
                   completed,
                   status,
                   on_hold_reason,
                   requested_date,
                   request_date_extension_reason,
                   is_request_date_extension_approved,
                   remarks,
                   files,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING id
`
	row := newTaskRow(task)
	err := r.db.conn(ctx).QueryRow(
		ctx,
		insertTaskQuery,
		task.Abbreviation,
		task.Description,
		task.AssigneeID,
		task.CreatorID,
		task.DueDate,
		task.Priority,
		row.completed,
		row.status,
		row.onHoldReason,
		row.requestedDate,
		row.requestedReason,
		task.ExtensionApproved,
		task.Remarks,
		row.files,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)
	return translate(err, nil, nil)
}

func (r *TaskRepository) GetTaskByID(ctx context.Context, taskID int64) (*models.Task, error) {
	const selectTaskByIDQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE id = $1
`
	task, err := scanTask(r.db.conn(ctx).QueryRow(ctx, selectTaskByIDQuery, taskID))
	if err != nil {
		return nil, translate(err, services.ErrTaskNotFound, nil)
	}
	return task, nil
}

func (r *TaskRepository) LockTaskByID(ctx context.Context, taskID int64) (*models.Task, error) {
	const lockTaskByIDQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE id = $1
FOR UPDATE
`
	task, err := scanTask(r.db.conn(ctx).QueryRow(ctx, lockTaskByIDQuery, taskID))
	if err != nil {
		return nil, translate(err, services.ErrTaskNotFound, nil)
	}
	return task, nil
}

// UpdateTask writes every mutable column. The abbreviation and the
// creator never change after insert.
func (r *TaskRepository) UpdateTask(ctx context.Context, task *models.Task) error {
	const updateTaskQuery = `
UPDATE tasks
SET description                        = $1,
    assigned_user_id                   = $2,
    due_date                           = $3,
    priority                           = $4,
    completed                          = $5,
    status                             = $6,
    on_hold_reason                     = $7,
    requested_date                     = $8,
    request_date_extension_reason      = $9,
    is_request_date_extension_approved = $10,
    remarks                            = $11,
    files                              = $12,
    updated_at                         = $13
WHERE id = $14
`
	row := newTaskRow(task)
	tag, err := r.db.conn(ctx).Exec(
		ctx,
		updateTaskQuery,
		task.Description,
		task.AssigneeID,
		task.DueDate,
		task.Priority,
		row.completed,
		row.status,
		row.onHoldReason,
		row.requestedDate,
		row.requestedReason,
		task.ExtensionApproved,
		task.Remarks,
		row.files,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return translate(err, nil, nil)
	}
	return affectedOrNotFound(tag, services.ErrTaskNotFound)
}

func (r *TaskRepository) DeleteTask(ctx context.Context, taskID int64) error {
	const deleteTaskQuery = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.db.conn(ctx).Exec(ctx, deleteTaskQuery, taskID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(tag, services.ErrTaskNotFound)
}

func (r *TaskRepository) ListTasks(ctx context.Context, query services.TaskQuery) ([]*models.Task, int, error) {
	where, args := taskWhereClause(query)
	args = append(args, query.Limit, query.Offset)

	selectTasksQuery := fmt.Sprintf(`
SELECT %s,
       COUNT(*) OVER ()
FROM tasks
%s
ORDER BY id DESC
LIMIT $%d OFFSET $%d
`, taskColumns, where, len(args)-1, len(args))

	rows, err := r.db.conn(ctx).Query(ctx, selectTasksQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var total int
	tasks := make([]*models.Task, 0, query.Limit)
	for rows.Next() {
		task, err := scanTask(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *TaskRepository) ExistingTaskIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	const selectExistingTaskIDsQuery = `SELECT id FROM tasks WHERE id = ANY ($1)`
	rows, err := r.db.conn(ctx).Query(ctx, selectExistingTaskIDsQuery, ids)
	if err != nil {
		return nil, err
	}

	existing, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}

	out := make(map[int64]bool, len(existing))
	for _, id := range existing {
		out[id] = true
	}
	return out, nil
}

// taskWhereClause renders the visibility and filter conditions of
// query. The returned args are numbered from $1.
func taskWhereClause(query services.TaskQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if query.VisibleTo != nil {
		args = append(args, *query.VisibleTo)
		conds = append(conds, fmt.Sprintf("(assigned_user_id = $%d OR created_by_id = $%d)", len(args), len(args)))
	}

	switch query.Filter {
	case models.TaskFilterPending:
		conds = append(conds, "completed = FALSE AND status IS NULL")
	case models.TaskFilterCompleted:
		conds = append(conds, "completed = TRUE")
	case models.TaskFilterOverdue:
		args = append(args, query.Today)
		conds = append(conds, fmt.Sprintf("completed = FALSE AND due_date < $%d", len(args)))
	case models.TaskFilterDateExtension:
		conds = append(conds, "requested_date IS NOT NULL")
	case models.TaskFilterOnHold:
		conds = append(conds, fmt.Sprintf("status = '%s'", models.StatusTagOnHold))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// taskRow holds the column values derived from the task state.
type taskRow struct {
	completed       bool
	status          *string
	onHoldReason    *string
	requestedDate   *time.Time
	requestedReason *string
	files           []models.File
}

func newTaskRow(task *models.Task) taskRow {
	row := taskRow{
		completed: task.State.Completed(),
		status:    task.State.StatusTag(),
		files:     task.Files,
	}
	if task.State.IsOnHold() {
		reason := task.State.OnHoldReason()
		row.onHoldReason = &reason
	}
	if task.Extension != nil {
		date, reason := task.Extension.Date, task.Extension.Reason
		row.requestedDate = &date
		row.requestedReason = &reason
	}
	if row.files == nil {
		row.files = []models.File{}
	}
	return row
}

func scanTask(row pgx.Row, extra ...any) (*models.Task, error) {
	var (
		task            models.Task
		status          *string
		onHoldReason    *string
		requestedDate   *time.Time
		requestedReason *string
	)
	dest := []any{
		&task.ID,
		&task.Abbreviation,
		&task.Description,
		&task.AssigneeID,
		&task.CreatorID,
		&task.DueDate,
		&task.Priority,
		new(bool),
		&status,
		&onHoldReason,
		&requestedDate,
		&requestedReason,
		&task.ExtensionApproved,
		&task.Remarks,
		&task.Files,
		&task.CreatedAt,
		&task.UpdatedAt,
	}
	completed := dest[7].(*bool)

	err := row.Scan(append(dest, extra...)...)
	if err != nil {
		return nil, err
	}

	task.State = models.StateFromColumns(*completed, status, onHoldReason)
	if requestedDate != nil && requestedReason != nil {
		task.Extension = &models.PendingExtension{
			Date:   *requestedDate,
			Reason: *requestedReason,
		}
	}
	return &task, nil
}
