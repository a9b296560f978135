package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

type activityServiceImpl struct {
	logger   zerolog.Logger
	activity ActivityRepository
	now      func() time.Time
}

func NewActivityService(
	logger zerolog.Logger,
	activity ActivityRepository,
) ActivityService {
	return &activityServiceImpl{
		logger:   logger,
		activity: activity,
		now:      time.Now,
	}
}

func (s *activityServiceImpl) Record(ctx context.Context, entry *models.ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	err := s.activity.CreateActivityLog(ctx, entry)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", entry.UserID).
			Str("action", string(entry.Action)).
			Str("task", entry.TaskAbbreviation).
			Msg("failed to insert activity log")
		return err
	}
	s.logger.Debug().
		Int64("activity_id", entry.ID).
		Str("action", string(entry.Action)).
		Str("task", entry.TaskAbbreviation).
		Msg("recorded activity")
	return nil
}

// ListActivity shows admins every entry and other users their own.
func (s *activityServiceImpl) ListActivity(ctx context.Context, actor Actor, page Page) (*PageResult[*models.ActivityLog], error) {
	page = page.Normalize()

	var userID *string
	if !actor.IsAdmin {
		userID = &actor.UserID
	}

	entries, total, err := s.activity.ListActivityLogs(ctx, userID, page.Offset(), page.Size)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", actor.UserID).
			Msg("failed to list activity logs")
		return nil, err
	}

	return &PageResult[*models.ActivityLog]{
		Items: entries,
		Total: total,
		Page:  page.Page,
		Size:  page.Size,
	}, nil
}
