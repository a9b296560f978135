package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/adanyl0v/go-taskdesk/internal/models"
	"github.com/adanyl0v/go-taskdesk/internal/services"
)

type CronjobRepository struct {
	db *DB
}

func NewCronjobRepository(db *DB) *CronjobRepository {
	return &CronjobRepository{db: db}
}

// time_of_day is read back as text so it maps onto models.TimeOfDay
// without going through pgtype.Time.
const cronjobColumns = `id,
       description,
       user_id,
       to_char(time_of_day, 'HH24:MI:SS'),
       repeat_interval,
       priority,
       created_at,
       updated_at`

func (r *CronjobRepository) CreateCronjob(ctx context.Context, job *models.Cronjob) error {
	const insertCronjobQuery = `
INSERT INTO cronjobs (description,
                      user_id,
                      time_of_day,
                      repeat_interval,
                      priority,
                      created_at,
                      updated_at)
VALUES ($1, $2, $3::time, $4, $5, $6, $7)
RETURNING id
`
	err := r.db.conn(ctx).QueryRow(
		ctx,
		insertCronjobQuery,
		job.Description,
		job.UserID,
		job.TimeOfDay.String(),
		job.Repeat,
		job.Priority,
		job.CreatedAt,
		job.UpdatedAt,
	).Scan(&job.ID)
	return translate(err, nil, nil)
}

func (r *CronjobRepository) GetCronjobByID(ctx context.Context, cronjobID int64) (*models.Cronjob, error) {
	const selectCronjobByIDQuery = `
SELECT ` + cronjobColumns + `
FROM cronjobs
WHERE id = $1
`
	job, err := scanCronjob(r.db.conn(ctx).QueryRow(ctx, selectCronjobByIDQuery, cronjobID))
	if err != nil {
		return nil, translate(err, services.ErrCronjobNotFound, nil)
	}
	return job, nil
}

func (r *CronjobRepository) UpdateCronjob(ctx context.Context, job *models.Cronjob) error {
	const updateCronjobQuery = `
UPDATE cronjobs
SET description     = $1,
    user_id         = $2,
    time_of_day     = $3::time,
    repeat_interval = $4,
    priority        = $5,
    updated_at      = $6
WHERE id = $7
`
	tag, err := r.db.conn(ctx).Exec(
		ctx,
		updateCronjobQuery,
		job.Description,
		job.UserID,
		job.TimeOfDay.String(),
		job.Repeat,
		job.Priority,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return translate(err, nil, nil)
	}
	return affectedOrNotFound(tag, services.ErrCronjobNotFound)
}

func (r *CronjobRepository) DeleteCronjob(ctx context.Context, cronjobID int64) error {
	const deleteCronjobQuery = `DELETE FROM cronjobs WHERE id = $1`
	tag, err := r.db.conn(ctx).Exec(ctx, deleteCronjobQuery, cronjobID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(tag, services.ErrCronjobNotFound)
}

func (r *CronjobRepository) ListCronjobs(ctx context.Context, offset, limit int) ([]*models.Cronjob, int, error) {
	const selectCronjobsQuery = `
SELECT ` + cronjobColumns + `,
       COUNT(*) OVER ()
FROM cronjobs
ORDER BY time_of_day, id
LIMIT $1 OFFSET $2
`
	rows, err := r.db.conn(ctx).Query(ctx, selectCronjobsQuery, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var total int
	jobs := make([]*models.Cronjob, 0, limit)
	for rows.Next() {
		job, err := scanCronjob(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}

	err = rows.Err()
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (r *CronjobRepository) ListCronjobsByTimeOfDay(ctx context.Context, tod models.TimeOfDay) ([]*models.Cronjob, error) {
	const selectCronjobsByTimeOfDayQuery = `
SELECT ` + cronjobColumns + `
FROM cronjobs
WHERE time_of_day = $1::time
ORDER BY id
`
	rows, err := r.db.conn(ctx).Query(ctx, selectCronjobsByTimeOfDayQuery, tod.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Cronjob
	for rows.Next() {
		job, err := scanCronjob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanCronjob(row pgx.Row, extra ...any) (*models.Cronjob, error) {
	var (
		job       models.Cronjob
		timeOfDay string
	)
	dest := []any{
		&job.ID,
		&job.Description,
		&job.UserID,
		&timeOfDay,
		&job.Repeat,
		&job.Priority,
		&job.CreatedAt,
		&job.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	if err != nil {
		return nil, err
	}

	job.TimeOfDay, err = models.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
