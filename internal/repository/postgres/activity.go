package postgres

import (
	"context"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

type ActivityRepository struct {
	db *DB
}

func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	const insertActivityLogQuery = `
INSERT INTO activity_logs (user_id,
                           task_id,
                           task_abbreviation,
                           action,
                           created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	err := r.db.conn(ctx).QueryRow(
		ctx,
		insertActivityLogQuery,
		entry.UserID,
		entry.TaskID,
		entry.TaskAbbreviation,
		entry.Action,
		entry.CreatedAt,
	).Scan(&entry.ID)
	return translate(err, nil, nil)
}

func (r *ActivityRepository) DeleteActivityLogsByTaskID(ctx context.Context, taskID int64) (int64, error) {
	const deleteActivityLogsByTaskIDQuery = `DELETE FROM activity_logs WHERE task_id = $1`
	tag, err := r.db.conn(ctx).Exec(ctx, deleteActivityLogsByTaskIDQuery, taskID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ActivityRepository) ListActivityLogs(ctx context.Context, userID *string, offset, limit int) ([]*models.ActivityLog, int, error) {
	const selectActivityLogsQuery = `
SELECT id,
       user_id,
       task_id,
       task_abbreviation,
       action,
       created_at,
       COUNT(*) OVER ()
FROM activity_logs
WHERE $1::uuid IS NULL
   OR user_id = $1::uuid
ORDER BY id DESC
LIMIT $2 OFFSET $3
`
	rows, err := r.db.conn(ctx).Query(ctx, selectActivityLogsQuery, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var total int
	entries := make([]*models.ActivityLog, 0, limit)
	for rows.Next() {
		entry := &models.ActivityLog{}
		err = rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.TaskID,
			&entry.TaskAbbreviation,
			&entry.Action,
			&entry.CreatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
