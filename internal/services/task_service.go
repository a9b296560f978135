package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

const maxTitleLength = 80

type taskServiceImpl struct {
	logger   zerolog.Logger
	tx       Transactor
	tasks    TaskRepository
	users    UserRepository
	logs     ActivityRepository
	activity ActivityService
	notifier Notifier
	files    FileStore
	now      func() time.Time
}

func NewTaskService(
	logger zerolog.Logger,
	tx Transactor,
	tasks TaskRepository,
	users UserRepository,
	logs ActivityRepository,
	activity ActivityService,
	notifier Notifier,
	files FileStore,
) TaskService {
	return &taskServiceImpl{
		logger:   logger,
		tx:       tx,
		tasks:    tasks,
		users:    users,
		logs:     logs,
		activity: activity,
		notifier: notifier,
		files:    files,
		now:      time.Now,
	}
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	description := strings.TrimSpace(params.Description)
	switch {
	case description == "":
		return nil, validationError("description is required")
	case params.AssigneeID == "":
		return nil, validationError("assignee is required")
	case params.CreatorID == "":
		return nil, validationError("creator is required")
	case !params.Priority.Valid():
		return nil, validationError("invalid priority %q", params.Priority)
	}

	err := s.requireEnabledUser(ctx, params.AssigneeID, "assignee")
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		Abbreviation: params.Abbreviation,
		Description:  description,
		AssigneeID:   params.AssigneeID,
		CreatorID:    params.CreatorID,
		DueDate:      models.DateOnly(now),
		Priority:     params.Priority,
		State:        models.OpenState(),
		Remarks:      strings.TrimSpace(params.Remarks),
		Files:        []models.File{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if params.DueDate != nil && !params.DueDate.IsZero() {
		task.DueDate = models.DateOnly(*params.DueDate)
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if task.Abbreviation == "" {
			seq, err := s.tasks.NextSequence(ctx, task.Priority, sequencePeriod(now))
			if err != nil {
				s.logger.Error().
					Err(err).
					Str("priority", string(task.Priority)).
					Msg("failed to increment task sequence")
				return err
			}
			task.Abbreviation = formatAbbreviation(task.Priority, now, seq)
		}

		err := s.tasks.CreateTask(ctx, task)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("abbreviation", task.Abbreviation).
				Msg("failed to insert task")
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Int64("task_id", task.ID).
		Str("abbreviation", task.Abbreviation).
		Msg("inserted task")

	s.publish(ctx, params.CreatorID, task, models.ActionCreate,
		models.NotificationTaskCreated, task.AssigneeID,
		fmt.Sprintf("New task %s was assigned to you", task.Abbreviation))

	s.logger.Info().
		Int64("task_id", task.ID).
		Str("abbreviation", task.Abbreviation).
		Str("assignee_id", task.AssigneeID).
		Str("creator_id", task.CreatorID).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, actor Actor, taskID int64) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, task) {
		s.logger.Warn().
			Int64("task_id", taskID).
			Str("user_id", actor.UserID).
			Msg("task is not visible to user")
		return nil, fmt.Errorf("%w: task is not visible to you", ErrPermissionDenied)
	}
	return task, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, actor Actor, params ListTasksParams) (*PageResult[*models.Task], error) {
	filter := params.Filter
	if filter == "" {
		filter = models.TaskFilterAll
	}
	if !filter.Valid() {
		return nil, validationError("invalid filter %q", params.Filter)
	}
	page := params.Page.Normalize()

	query := TaskQuery{
		Filter: filter,
		Today:  models.DateOnly(s.now()),
		Offset: page.Offset(),
		Limit:  page.Size,
	}
	if !actor.IsAdmin {
		query.VisibleTo = &actor.UserID
	}

	tasks, total, err := s.tasks.ListTasks(ctx, query)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", actor.UserID).
			Str("filter", string(filter)).
			Msg("failed to list tasks")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Int("total", total).
		Str("filter", string(filter)).
		Msg("listed tasks")

	return &PageResult[*models.Task]{
		Items: tasks,
		Total: total,
		Page:  page.Page,
		Size:  page.Size,
	}, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, actor Actor, taskID int64, params UpdateTaskParams) (*models.Task, error) {
	if params.Description == nil && params.DueDate == nil &&
		params.Priority == nil && params.Remarks == nil {
		return nil, validationError("no fields to update")
	}
	if params.Description != nil && strings.TrimSpace(*params.Description) == "" {
		return nil, validationError("description must not be empty")
	}
	if params.Priority != nil && !params.Priority.Valid() {
		return nil, validationError("invalid priority %q", *params.Priority)
	}
	if params.DueDate != nil && params.DueDate.IsZero() {
		return nil, validationError("due date must not be empty")
	}

	task, err := s.mutate(ctx, actor, taskID, "update", func(ctx context.Context, task *models.Task) error {
		if !task.IsAssignee(actor.UserID) && !task.IsCreator(actor.UserID) {
			return fmt.Errorf("%w: only the assignee or the creator may edit the task", ErrPermissionDenied)
		}
		if task.State.IsCompleted() {
			return fmt.Errorf("%w: completed tasks cannot be edited", ErrInvalidTransition)
		}

		if params.Description != nil {
			task.Description = strings.TrimSpace(*params.Description)
		}
		if params.DueDate != nil {
			task.DueDate = models.DateOnly(*params.DueDate)
		}
		if params.Priority != nil {
			task.Priority = *params.Priority
		}
		if params.Remarks != nil {
			task.Remarks = strings.TrimSpace(*params.Remarks)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor.UserID, task, models.ActionUpdate,
		models.NotificationTaskUpdated, task.Counterpart(actor.UserID),
		fmt.Sprintf("Task %s was updated", task.Abbreviation))
	return task, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, actor Actor, taskID int64) error {
	var task *models.Task
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.lockTask(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.IsAssignee(actor.UserID) && !task.IsCreator(actor.UserID) {
			s.logger.Warn().
				Int64("task_id", taskID).
				Str("user_id", actor.UserID).
				Msg("user may not delete task")
			return fmt.Errorf("%w: only the assignee or the creator may delete the task", ErrPermissionDenied)
		}
		if task.State.IsCompleted() {
			return fmt.Errorf("%w: completed tasks cannot be deleted", ErrInvalidTransition)
		}

		affected, err := s.logs.DeleteActivityLogsByTaskID(ctx, taskID)
		if err != nil {
			s.logger.Error().
				Err(err).
				Int64("task_id", taskID).
				Msg("failed to delete activity logs of task")
			return err
		}
		s.logger.Debug().
			Int64("task_id", taskID).
			Int64("affected", affected).
			Msg("deleted activity logs of task")

		err = s.tasks.DeleteTask(ctx, taskID)
		if err != nil {
			s.logger.Error().
				Err(err).
				Int64("task_id", taskID).
				Msg("failed to delete task")
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Leftover directories are collected by SweepOrphanFiles.
	err = s.files.RemoveTask(taskID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int64("task_id", taskID).
			Msg("failed to remove stored files of deleted task")
	}

	s.publish(ctx, actor.UserID, task, models.ActionDelete,
		models.NotificationTaskDeleted, task.Counterpart(actor.UserID),
		fmt.Sprintf("Task %s was deleted", task.Abbreviation))

	s.logger.Info().
		Int64("task_id", taskID).
		Str("user_id", actor.UserID).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) PutOnHold(ctx context.Context, actor Actor, taskID int64, reason string) (*models.Task, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationError("on hold reason is required")
	}

	task, err := s.mutate(ctx, actor, taskID, "hold", func(ctx context.Context, task *models.Task) error {
		err := requireAssignee(actor, task, "put the task on hold")
		if err != nil {
			return err
		}
		switch {
		case task.State.IsCompleted():
			return fmt.Errorf("%w: completed tasks cannot be put on hold", ErrInvalidTransition)
		case task.State.IsOnHold():
			return fmt.Errorf("%w: task is already on hold", ErrInvalidTransition)
		}
		task.State = models.OnHoldState(reason)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor.UserID, task, models.ActionUpdate,
		models.NotificationTaskUpdated, task.Counterpart(actor.UserID),
		fmt.Sprintf("Task %s was put on hold: %s", task.Abbreviation, reason))
	return task, nil
}

func (s *taskServiceImpl) Resume(ctx context.Context, actor Actor, taskID int64) (*models.Task, error) {
	task, err := s.mutate(ctx, actor, taskID, "resume", func(ctx context.Context, task *models.Task) error {
		err := requireAssignee(actor, task, "resume the task")
		if err != nil {
			return err
		}
		if !task.State.IsOnHold() {
			return fmt.Errorf("%w: task is not on hold", ErrInvalidTransition)
		}
		task.State = models.OpenState()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor.UserID, task, models.ActionUpdate,
		models.NotificationTaskUpdated, task.Counterpart(actor.UserID),
		fmt.Sprintf("Task %s was resumed", task.Abbreviation))
	return task, nil
}

func (s *taskServiceImpl) MarkComplete(ctx context.Context, actor Actor, taskID int64) (*models.Task, error) {
	task, err := s.mutate(ctx, actor, taskID, "complete", func(ctx context.Context, task *models.Task) error {
		err := requireAssignee(actor, task, "complete the task")
		if err != nil {
			return err
		}
		if task.State.IsCompleted() {
			return fmt.Errorf("%w: task is already completed", ErrInvalidTransition)
		}
		task.State = models.CompletedState()
		// A completed task has no use for a pending due date change.
		task.Extension = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor.UserID, task, models.ActionCompleted,
		models.NotificationTaskCompleted, task.Counterpart(actor.UserID),
		fmt.Sprintf("Task %s was completed", task.Abbreviation))
	return task, nil
}

func (s *taskServiceImpl) MarkIncomplete(ctx context.Context, actor Actor, taskID int64) (*models.Task, error) {
	task, err := s.mutate(ctx, actor, taskID, "incomplete", func(ctx context.Context, task *models.Task) error {
		err := requireAssignee(actor, task, "reopen the task")
		if err != nil {
			return err
		}
		if !task.State.IsCompleted() {
			return fmt.Errorf("%w: task is not completed", ErrInvalidTransition)
		}
		task.State = models.OpenState()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor.UserID, task, models.ActionUpdate,
		models.NotificationTaskUpdated, task.Counterpart(actor.UserID),
		fmt.Sprintf("Task %s was reopened", task.Abbreviation))
	return task, nil
}

func (s *taskServiceImpl) RequestExtension(ctx context.Context, actor Actor, taskID int64, params RequestExtensionParams) (*models.Task, error) {
	reason := strings.TrimSpace(params.Reason)
	switch {
	case params.Date.IsZero():
		return nil, validationError("requested date is required")
	case reason == "":
		return nil, validationError("extension reason is required")
	case models.DateOnly(params.Date).Before(models.DateOnly(s.now())):
		return nil, validationError("requested date must not be in the past")
	}

	task, err := s.mutate(ctx, actor, taskID, "request_extension", func(ctx context.Context, task *models.Task) error {
		err := requireAssignee(actor, task, "request an extension")
		if err != nil {
			return err
		}
		switch {
		case task.State.IsCompleted():
			return fmt.Errorf("%w: completed tasks cannot be extended", ErrInvalidTransition)
		case task.State.IsOnHold():
			return fmt.Errorf("%w: tasks on hold cannot be extended", ErrInvalidTransition)
		case task.Extension != nil:
			return ErrExtensionPending
		}
		task.Extension = &models.PendingExtension{
			Date:   models.DateOnly(params.Date),
			Reason: reason,
		}
		task.ExtensionApproved = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor.UserID, task, models.ActionUpdate,
		models.NotificationExtensionRequested, task.CreatorID,
		fmt.Sprintf("Extension of task %s until %s was requested: %s",
			task.Abbreviation, task.Extension.Date.Format(time.DateOnly), reason))
	return task, nil
}

func (s *taskServiceImpl) ApproveExtension(ctx context.Context, actor Actor, taskID int64) (*models.Task, error) {
	task, err := s.mutate(ctx, actor, taskID, "approve_extension", func(ctx context.Context, task *models.Task) error {
		err := requireCreator(actor, task, "approve an extension")
		if err != nil {
			return err
		}
		if task.Extension == nil {
			return fmt.Errorf("%w: no extension request is pending", ErrInvalidTransition)
		}
		task.DueDate = task.Extension.Date
		task.Extension = nil
		approved := true
		task.ExtensionApproved = &approved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor.UserID, task, models.ActionUpdate,
		models.NotificationExtensionApproved, task.AssigneeID,
		fmt.Sprintf("Extension of task %s was approved, new due date is %s",
			task.Abbreviation, task.DueDate.Format(time.DateOnly)))
	return task, nil
}

func (s *taskServiceImpl) RejectExtension(ctx context.Context, actor Actor, taskID int64) (*models.Task, error) {
	task, err := s.mutate(ctx, actor, taskID, "reject_extension", func(ctx context.Context, task *models.Task) error {
		err := requireCreator(actor, task, "reject an extension")
		if err != nil {
			return err
		}
		if task.Extension == nil {
			return fmt.Errorf("%w: no extension request is pending", ErrInvalidTransition)
		}
		task.Extension = nil
		approved := false
		task.ExtensionApproved = &approved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor.UserID, task, models.ActionUpdate,
		models.NotificationExtensionRejected, task.AssigneeID,
		fmt.Sprintf("Extension of task %s was rejected", task.Abbreviation))
	return task, nil
}

func (s *taskServiceImpl) Delegate(ctx context.Context, actor Actor, taskID int64, assigneeID string) (*models.Task, error) {
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return nil, validationError("assignee is required")
	}

	task, err := s.mutate(ctx, actor, taskID, "delegate", func(ctx context.Context, task *models.Task) error {
		err := requireAssignee(actor, task, "delegate the task")
		if err != nil {
			return err
		}
		if task.State.IsOnHold() {
			return fmt.Errorf("%w: tasks on hold cannot be delegated", ErrInvalidTransition)
		}
		if assigneeID == task.AssigneeID {
			return validationError("task is already assigned to you")
		}
		err = s.requireEnabledUser(ctx, assigneeID, "assignee")
		if err != nil {
			return err
		}
		task.AssigneeID = assigneeID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor.UserID, task, models.ActionUpdate,
		models.NotificationTaskDelegated, task.AssigneeID,
		fmt.Sprintf("Task %s was delegated to you", task.Abbreviation))
	return task, nil
}

func (s *taskServiceImpl) AttachFiles(ctx context.Context, actor Actor, taskID int64, uploads []FileUpload) (*models.Task, error) {
	if len(uploads) == 0 {
		return nil, validationError("at least one file is required")
	}
	names := make(map[string]struct{}, len(uploads))
	for i := range uploads {
		name, err := cleanFileName(uploads[i].Name)
		if err != nil {
			return nil, err
		}
		if uploads[i].Content == nil {
			return nil, validationError("file %q has no content", name)
		}
		if _, dup := names[name]; dup {
			return nil, validationError("file %q is given twice", name)
		}
		names[name] = struct{}{}
		uploads[i].Name = name
	}

	// Bytes go to storage before the metadata, and are removed again
	// when the metadata change does not commit.
	var saved []models.File
	task, err := s.mutate(ctx, actor, taskID, "attach_files", func(ctx context.Context, task *models.Task) error {
		err := fileGuard(actor, task, "attach files")
		if err != nil {
			return err
		}
		for _, u := range uploads {
			if _, _, exists := task.FileByName(u.Name); exists {
				return fmt.Errorf("%w: file %q is already attached", ErrConflict, u.Name)
			}
		}

		for _, u := range uploads {
			file, err := s.files.Save(task.ID, u.Name, u.ContentType, u.Content)
			if err != nil {
				s.logger.Error().
					Err(err).
					Int64("task_id", task.ID).
					Str("file", u.Name).
					Msg("failed to store file")
				return err
			}
			saved = append(saved, file)
		}
		s.logger.Debug().
			Int64("task_id", task.ID).
			Int("count", len(saved)).
			Msg("stored files")

		task.Files = append(task.Files, saved...)
		return nil
	})
	if err != nil {
		s.discardFiles(saved)
		return nil, err
	}

	s.publish(ctx, actor.UserID, task, models.ActionUpdate,
		models.NotificationTaskUpdated, task.Counterpart(actor.UserID),
		fmt.Sprintf("%d file(s) were attached to task %s", len(saved), task.Abbreviation))
	return task, nil
}

func (s *taskServiceImpl) DetachFile(ctx context.Context, actor Actor, taskID int64, name string) (*models.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("file name is required")
	}

	var removed models.File
	task, err := s.mutate(ctx, actor, taskID, "detach_file", func(ctx context.Context, task *models.Task) error {
		err := fileGuard(actor, task, "detach files")
		if err != nil {
			return err
		}
		file, i, ok := task.FileByName(name)
		if !ok {
			return ErrFileNotFound
		}
		removed = file
		task.Files = append(task.Files[:i:i], task.Files[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.files.Remove(removed.Path)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int64("task_id", task.ID).
			Str("path", removed.Path).
			Msg("failed to remove detached file")
	}

	s.publish(ctx, actor.UserID, task, models.ActionUpdate,
		models.NotificationTaskUpdated, task.Counterpart(actor.UserID),
		fmt.Sprintf("File %s was removed from task %s", removed.Name, task.Abbreviation))
	return task, nil
}

func (s *taskServiceImpl) SweepOrphanFiles(ctx context.Context) (int, error) {
	ids, err := s.files.TaskIDs()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to list stored task directories")
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	existing, err := s.tasks.ExistingTaskIDs(ctx, ids)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to check task existence")
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		if existing[id] {
			continue
		}
		err = s.files.RemoveTask(id)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int64("task_id", id).
				Msg("failed to remove orphaned task directory")
			continue
		}
		removed++
	}

	s.logger.Info().
		Int("scanned", len(ids)).
		Int("removed", removed).
		Msg("swept orphaned files")
	return removed, nil
}

// mutate locks the task, lets apply validate and change it and writes
// the result in one transaction. Nothing is written when apply fails.
func (s *taskServiceImpl) mutate(
	ctx context.Context,
	actor Actor,
	taskID int64,
	op string,
	apply func(ctx context.Context, task *models.Task) error,
) (*models.Task, error) {
	var task *models.Task
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.lockTask(ctx, taskID)
		if err != nil {
			return err
		}

		err = apply(ctx, task)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int64("task_id", taskID).
				Str("user_id", actor.UserID).
				Str("op", op).
				Msg("rejected task change")
			return err
		}

		task.UpdatedAt = s.now()
		err = s.tasks.UpdateTask(ctx, task)
		if err != nil {
			s.logger.Error().
				Err(err).
				Int64("task_id", taskID).
				Str("op", op).
				Msg("failed to update task")
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("task_id", taskID).
		Str("user_id", actor.UserID).
		Str("op", op).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) loadTask(ctx context.Context, taskID int64) (*models.Task, error) {
	return s.selectTask(ctx, taskID, s.tasks.GetTaskByID)
}

// lockTask loads the task and holds its row until the transaction in
// ctx ends, so concurrent changes of one task run one after another.
func (s *taskServiceImpl) lockTask(ctx context.Context, taskID int64) (*models.Task, error) {
	return s.selectTask(ctx, taskID, s.tasks.LockTaskByID)
}

func (s *taskServiceImpl) selectTask(
	ctx context.Context,
	taskID int64,
	get func(ctx context.Context, taskID int64) (*models.Task, error),
) (*models.Task, error) {
	task, err := get(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			s.logger.Warn().
				Int64("task_id", taskID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", taskID).
			Msg("failed to select task")
		return nil, err
	}
	return task, nil
}

// publish records the activity and notifies the target. Neither
// failure is returned: the task change has already been stored.
func (s *taskServiceImpl) publish(
	ctx context.Context,
	actorID string,
	task *models.Task,
	action models.ActivityAction,
	kind models.NotificationKind,
	targetUserID string,
	message string,
) {
	now := s.now()

	entry := &models.ActivityLog{
		UserID:           actorID,
		TaskAbbreviation: task.Abbreviation,
		Action:           action,
		CreatedAt:        now,
	}
	if action != models.ActionDelete {
		taskID := task.ID
		entry.TaskID = &taskID
	}
	err := s.activity.Record(ctx, entry)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int64("task_id", task.ID).
			Str("action", string(action)).
			Msg("activity was not recorded")
	}

	s.notifier.Notify(targetUserID, models.Notification{
		Kind:         kind,
		TaskID:       task.ID,
		Abbreviation: task.Abbreviation,
		Title:        taskTitle(task.Description),
		ActorID:      actorID,
		TargetUserID: targetUserID,
		Message:      message,
		Timestamp:    now,
	})
}

func (s *taskServiceImpl) requireEnabledUser(ctx context.Context, userID, role string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fmt.Errorf("%w: %s %s", ErrUserNotFound, role, userID)
		}
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select user by id")
		return err
	}
	if !user.IsEnabled {
		return validationError("%s %s is disabled", role, userID)
	}
	return nil
}

func (s *taskServiceImpl) discardFiles(files []models.File) {
	for _, f := range files {
		err := s.files.Remove(f.Path)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("path", f.Path).
				Msg("failed to discard stored file")
		}
	}
}

func canView(actor Actor, task *models.Task) bool {
	return actor.IsAdmin || task.IsAssignee(actor.UserID) || task.IsCreator(actor.UserID)
}

func requireAssignee(actor Actor, task *models.Task, what string) error {
	if !task.IsAssignee(actor.UserID) {
		return fmt.Errorf("%w: only the assignee may %s", ErrPermissionDenied, what)
	}
	return nil
}

func requireCreator(actor Actor, task *models.Task, what string) error {
	if !task.IsCreator(actor.UserID) {
		return fmt.Errorf("%w: only the creator may %s", ErrPermissionDenied, what)
	}
	return nil
}

func fileGuard(actor Actor, task *models.Task, what string) error {
	err := requireAssignee(actor, task, what)
	if err != nil {
		return err
	}
	switch {
	case task.State.IsCompleted():
		return fmt.Errorf("%w: files of completed tasks cannot change", ErrInvalidTransition)
	case task.State.IsOnHold():
		return fmt.Errorf("%w: files of tasks on hold cannot change", ErrInvalidTransition)
	}
	return nil
}

func cleanFileName(name string) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return "", validationError("invalid file name")
	}
	return name, nil
}

func taskTitle(description string) string {
	title, _, _ := strings.Cut(description, "\n")
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= maxTitleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxTitleLength-1]) + "…"
}
