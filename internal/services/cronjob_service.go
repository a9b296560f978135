package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

type cronjobServiceImpl struct {
	logger    zerolog.Logger
	cronjobs  CronjobRepository
	users     UserRepository
	reachable func(models.TimeOfDay) bool
	now       func() time.Time
}

// NewCronjobService validates templates against reachable, the times of
// day the poller ticks at. A nil reachable accepts every time of day.
func NewCronjobService(
	logger zerolog.Logger,
	cronjobs CronjobRepository,
	users UserRepository,
	reachable func(models.TimeOfDay) bool,
) CronjobService {
	if reachable == nil {
		reachable = func(models.TimeOfDay) bool { return true }
	}
	return &cronjobServiceImpl{
		logger:    logger,
		cronjobs:  cronjobs,
		users:     users,
		reachable: reachable,
		now:       time.Now,
	}
}

func (s *cronjobServiceImpl) CreateCronjob(ctx context.Context, params CronjobParams) (*models.Cronjob, error) {
	job := &models.Cronjob{}
	err := s.apply(ctx, job, params)
	if err != nil {
		return nil, err
	}

	now := s.now()
	job.CreatedAt = now
	job.UpdatedAt = now

	err = s.cronjobs.CreateCronjob(ctx, job)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", job.UserID).
			Msg("failed to insert cronjob")
		return nil, err
	}
	s.logger.Info().
		Int64("cronjob_id", job.ID).
		Str("time_of_day", job.TimeOfDay.String()).
		Str("repeat", string(job.Repeat)).
		Msg("created cronjob")
	return job, nil
}

func (s *cronjobServiceImpl) GetCronjob(ctx context.Context, cronjobID int64) (*models.Cronjob, error) {
	job, err := s.cronjobs.GetCronjobByID(ctx, cronjobID)
	if err != nil {
		if errors.Is(err, ErrCronjobNotFound) {
			s.logger.Warn().
				Int64("cronjob_id", cronjobID).
				Msg("cronjob not found")
			return nil, ErrCronjobNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("cronjob_id", cronjobID).
			Msg("failed to select cronjob by id")
		return nil, err
	}
	return job, nil
}

func (s *cronjobServiceImpl) ListCronjobs(ctx context.Context, page Page) (*PageResult[*models.Cronjob], error) {
	page = page.Normalize()
	jobs, total, err := s.cronjobs.ListCronjobs(ctx, page.Offset(), page.Size)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to list cronjobs")
		return nil, err
	}

	return &PageResult[*models.Cronjob]{
		Items: jobs,
		Total: total,
		Page:  page.Page,
		Size:  page.Size,
	}, nil
}

func (s *cronjobServiceImpl) UpdateCronjob(ctx context.Context, cronjobID int64, params CronjobParams) (*models.Cronjob, error) {
	job, err := s.GetCronjob(ctx, cronjobID)
	if err != nil {
		return nil, err
	}

	err = s.apply(ctx, job, params)
	if err != nil {
		return nil, err
	}
	job.UpdatedAt = s.now()

	err = s.cronjobs.UpdateCronjob(ctx, job)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("cronjob_id", cronjobID).
			Msg("failed to update cronjob")
		return nil, err
	}
	s.logger.Info().
		Int64("cronjob_id", cronjobID).
		Msg("updated cronjob")
	return job, nil
}

func (s *cronjobServiceImpl) DeleteCronjob(ctx context.Context, cronjobID int64) error {
	err := s.cronjobs.DeleteCronjob(ctx, cronjobID)
	if err != nil {
		if errors.Is(err, ErrCronjobNotFound) {
			return ErrCronjobNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("cronjob_id", cronjobID).
			Msg("failed to delete cronjob")
		return err
	}
	s.logger.Info().
		Int64("cronjob_id", cronjobID).
		Msg("deleted cronjob")
	return nil
}

func (s *cronjobServiceImpl) DueCronjobs(ctx context.Context, now time.Time) ([]*models.Cronjob, error) {
	now = now.Truncate(time.Second)
	jobs, err := s.cronjobs.ListCronjobsByTimeOfDay(ctx, models.TimeOfDayOf(now))
	if err != nil {
		s.logger.Error().
			Err(err).
			Time("now", now).
			Msg("failed to select cronjobs by time of day")
		return nil, err
	}

	due := jobs[:0:0]
	for _, job := range jobs {
		if job.DueOn(now) {
			due = append(due, job)
		}
	}
	s.logger.Debug().
		Time("now", now).
		Int("matched", len(jobs)).
		Int("due", len(due)).
		Msg("selected due cronjobs")
	return due, nil
}

// apply validates params and copies them onto job.
func (s *cronjobServiceImpl) apply(ctx context.Context, job *models.Cronjob, params CronjobParams) error {
	description := strings.TrimSpace(params.Description)
	switch {
	case description == "":
		return validationError("description is required")
	case params.UserID == "":
		return validationError("user is required")
	case !params.Repeat.Valid():
		return validationError("invalid repeat interval %q", params.Repeat)
	case !params.Priority.Valid():
		return validationError("invalid priority %q", params.Priority)
	}
	tod, err := models.ParseTimeOfDay(params.TimeOfDay)
	if err != nil {
		return validationError("invalid time of day %q, want HH:MM:SS", params.TimeOfDay)
	}
	if !s.reachable(tod) {
		return validationError("time of day %s is never polled, pick one the poller schedule ticks at (usually second 00)", tod)
	}

	_, err = s.users.GetUserByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return validationError("user %s does not exist", params.UserID)
		}
		s.logger.Error().
			Err(err).
			Str("user_id", params.UserID).
			Msg("failed to select user by id")
		return err
	}

	job.Description = description
	job.UserID = params.UserID
	job.TimeOfDay = tod
	job.Repeat = params.Repeat
	job.Priority = params.Priority
	return nil
}
