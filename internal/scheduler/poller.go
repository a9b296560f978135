// Package scheduler runs the periodic jobs of the service: the recurring
// task poller and the orphaned file sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/models"
	"github.com/adanyl0v/go-taskdesk/internal/services"
)

const AutoAbbreviationPrefix = "AUTO-"

type CronjobSource interface {
	DueCronjobs(ctx context.Context, now time.Time) ([]*models.Cronjob, error)
}

type TaskCreator interface {
	CreateTask(ctx context.Context, params services.CreateTaskParams) (*models.Task, error)
}

// Poller materializes one task per due recurring template. It fires
// at most once per matching second and never catches up on ticks that
// were missed while the process was down.
type Poller struct {
	logger   zerolog.Logger
	cronjobs CronjobSource
	tasks    TaskCreator
	location *time.Location
	timeout  time.Duration
	now      func() time.Time

	running sync.Mutex
}

func NewPoller(
	logger zerolog.Logger,
	cronjobs CronjobSource,
	tasks TaskCreator,
	location *time.Location,
	timeout time.Duration,
) *Poller {
	if location == nil {
		location = time.Local
	}
	return &Poller{
		logger:   logger,
		cronjobs: cronjobs,
		tasks:    tasks,
		location: location,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Run implements cron.Job.
func (p *Poller) Run() {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	_, _ = p.Tick(ctx, p.now())
}

// Tick creates the tasks of the templates due at now, read in the
// poller's location. A tick that
// starts while another one is running is skipped. Failures of single
// templates are logged and counted, they never stop the tick.
func (p *Poller) Tick(ctx context.Context, now time.Time) (int, error) {
	if !p.running.TryLock() {
		p.logger.Warn().
			Time("now", now).
			Msg("previous poll is still running, skipping tick")
		return 0, nil
	}
	defer p.running.Unlock()

	now = now.In(p.location).Truncate(time.Second)
	jobs, err := p.cronjobs.DueCronjobs(ctx, now)
	if err != nil {
		p.logger.Error().
			Err(err).
			Time("now", now).
			Msg("failed to select due cronjobs")
		return 0, err
	}

	created, failed := 0, 0
	for _, job := range jobs {
		task, err := p.tasks.CreateTask(ctx, services.CreateTaskParams{
			CreatorID:    job.UserID,
			AssigneeID:   job.UserID,
			Description:  job.Description,
			Priority:     job.Priority,
			DueDate:      &now,
			Abbreviation: AutoAbbreviation(job.ID, now),
		})
		if err != nil {
			failed++
			p.logger.Error().
				Err(err).
				Int64("cronjob_id", job.ID).
				Str("user_id", job.UserID).
				Msg("failed to create task from cronjob")
			continue
		}
		created++
		p.logger.Debug().
			Int64("cronjob_id", job.ID).
			Int64("task_id", task.ID).
			Str("abbreviation", task.Abbreviation).
			Msg("created task from cronjob")
	}

	if len(jobs) > 0 {
		p.logger.Info().
			Time("now", now).
			Int("due", len(jobs)).
			Int("created", created).
			Int("failed", failed).
			Msg("polled cronjobs")
	}
	return created, nil
}

// AutoAbbreviation is AUTO-{cronjobID}-{YYYYMMDDHHMMSS}. The timestamp
// makes the code unique per firing.
func AutoAbbreviation(cronjobID int64, at time.Time) string {
	return fmt.Sprintf("%s%d-%s", AutoAbbreviationPrefix, cronjobID, at.Format("20060102150405"))
}
