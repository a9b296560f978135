package v1

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskdesk/internal/models"
	"github.com/adanyl0v/go-taskdesk/internal/services"
)

type fileResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type getTaskResponse struct {
	ID                             int64          `json:"id"`
	Abbreviation                   string         `json:"abbreviation"`
	Description                    string         `json:"description"`
	AssignedUserID                 string         `json:"assigned_user_id"`
	CreatedByID                    string         `json:"created_by_id"`
	DueDate                        string         `json:"due_date"`
	Priority                       string         `json:"priority"`
	Completed                      bool           `json:"completed"`
	Status                         *string        `json:"status"`
	OnHoldReason                   *string        `json:"on_hold_reason"`
	RequestedDate                  *string        `json:"requested_date"`
	RequestDateExtensionReason     *string        `json:"request_date_extension_reason"`
	IsRequestDateExtensionApproved *bool          `json:"is_request_date_extension_approved"`
	Remarks                        string         `json:"remarks"`
	Files                          []fileResponse `json:"files"`
	CreatedAt                      time.Time      `json:"created_at"`
	UpdatedAt                      time.Time      `json:"updated_at"`
}

func newGetTaskResponse(task *models.Task) getTaskResponse {
	resp := getTaskResponse{
		ID:                             task.ID,
		Abbreviation:                   task.Abbreviation,
		Description:                    task.Description,
		AssignedUserID:                 task.AssigneeID,
		CreatedByID:                    task.CreatorID,
		DueDate:                        task.DueDate.Format(time.DateOnly),
		Priority:                       string(task.Priority),
		Completed:                      task.State.Completed(),
		Status:                         task.State.StatusTag(),
		IsRequestDateExtensionApproved: task.ExtensionApproved,
		Remarks:                        task.Remarks,
		Files:                          make([]fileResponse, len(task.Files)),
		CreatedAt:                      task.CreatedAt,
		UpdatedAt:                      task.UpdatedAt,
	}
	if task.State.IsOnHold() {
		reason := task.State.OnHoldReason()
		resp.OnHoldReason = &reason
	}
	if task.Extension != nil {
		date := task.Extension.Date.Format(time.DateOnly)
		reason := task.Extension.Reason
		resp.RequestedDate = &date
		resp.RequestDateExtensionReason = &reason
	}
	for i, f := range task.Files {
		resp.Files[i] = fileResponse(f)
	}
	return resp
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}

func newListResponse[M, T any](result *services.PageResult[M], convert func(M) T) listResponse[T] {
	items := make([]T, len(result.Items))
	for i, item := range result.Items {
		items[i] = convert(item)
	}
	return listResponse[T]{
		Items: items,
		Total: result.Total,
		Page:  result.Page,
		Size:  result.Size,
	}
}

type pageQuery struct {
	Page int `form:"page" binding:"omitempty,min=1"`
	Size int `form:"size" binding:"omitempty,min=1,max=100"`
}

func (q pageQuery) page() services.Page {
	return services.Page{Page: q.Page, Size: q.Size}
}

type listTasksQuery struct {
	pageQuery
	Filter string `form:"filter" binding:"omitempty,oneof=all pending completed overdue date_extension on_hold"`
}

type createTaskRequest struct {
	Description    string `json:"description" binding:"required,max=4096"`
	AssignedUserID string `json:"assigned_user_id" binding:"omitempty,uuid"`
	Priority       string `json:"priority" binding:"required,oneof=normal medium high"`
	DueDate        string `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Remarks        string `json:"remarks" binding:"omitempty,max=4096"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	actor := actorFromContext(c)

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	params := services.CreateTaskParams{
		CreatorID:   actor.UserID,
		AssigneeID:  req.AssignedUserID,
		Description: req.Description,
		Priority:    models.Priority(req.Priority),
		Remarks:     req.Remarks,
	}
	if params.AssigneeID == "" {
		params.AssigneeID = actor.UserID
	}
	if req.DueDate != "" {
		dueDate, _ := time.Parse(time.DateOnly, req.DueDate)
		params.DueDate = &dueDate
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), params)
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusCreated, newGetTaskResponse(task))
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	var query listTasksQuery
	err := c.ShouldBindQuery(&query)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind query")
		abort(c, newBadRequestError(errInvalidQuery.Error()))
		return
	}

	result, err := h.tasks.ListTasks(c.Request.Context(), actorFromContext(c), services.ListTasksParams{
		Filter: models.TaskFilter(query.Filter),
		Page:   query.page(),
	})
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newListResponse(result, newGetTaskResponse))
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), actorFromContext(c), taskID)
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newGetTaskResponse(task))
}

type updateTaskRequest struct {
	Description *string `json:"description,omitempty" binding:"omitempty,max=4096"`
	DueDate     *string `json:"due_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
	Priority    *string `json:"priority,omitempty" binding:"omitempty,oneof=normal medium high"`
	Remarks     *string `json:"remarks,omitempty" binding:"omitempty,max=4096"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	params := services.UpdateTaskParams{
		Description: req.Description,
		Remarks:     req.Remarks,
	}
	if req.DueDate != nil {
		dueDate, _ := time.Parse(time.DateOnly, *req.DueDate)
		params.DueDate = &dueDate
	}
	if req.Priority != nil {
		priority := models.Priority(*req.Priority)
		params.Priority = &priority
	}

	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.UpdateTask(ctx, actor, taskID, params)
	})
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	err := h.tasks.DeleteTask(c.Request.Context(), actorFromContext(c), taskID)
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleCompleteTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}
	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.MarkComplete(ctx, actor, taskID)
	})
}

func (h *handlerImpl) HandleIncompleteTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}
	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.MarkIncomplete(ctx, actor, taskID)
	})
}

type holdTaskRequest struct {
	Reason string `json:"on_hold_reason" binding:"required,max=1024"`
}

func (h *handlerImpl) HandleHoldTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	var req holdTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.PutOnHold(ctx, actor, taskID, req.Reason)
	})
}

func (h *handlerImpl) HandleResumeTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}
	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.Resume(ctx, actor, taskID)
	})
}

type requestExtensionRequest struct {
	RequestedDate string `json:"requested_date" binding:"required,datetime=2006-01-02"`
	Reason        string `json:"request_date_extension_reason" binding:"required,max=1024"`
}

func (h *handlerImpl) HandleRequestExtension(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	var req requestExtensionRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}
	date, _ := time.Parse(time.DateOnly, req.RequestedDate)

	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.RequestExtension(ctx, actor, taskID, services.RequestExtensionParams{
			Date:   date,
			Reason: req.Reason,
		})
	})
}

func (h *handlerImpl) HandleApproveExtension(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}
	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.ApproveExtension(ctx, actor, taskID)
	})
}

func (h *handlerImpl) HandleRejectExtension(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}
	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.RejectExtension(ctx, actor, taskID)
	})
}

type delegateTaskRequest struct {
	AssignedUserID string `json:"assigned_user_id" binding:"required,uuid"`
}

func (h *handlerImpl) HandleDelegateTask(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	var req delegateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.Delegate(ctx, actor, taskID, req.AssignedUserID)
	})
}

func (h *handlerImpl) HandleAttachFiles(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to parse multipart form")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, newAPIError(http.StatusRequestEntityTooLarge, "upload too large"))
			return
		}
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	headers := form.File["files"]
	uploads := make([]services.FileUpload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.logger.Error().
				Err(err).
				Str("file", fh.Filename).
				Msg("failed to open uploaded file")
			abort(c, newBadRequestError(errInvalidRequestBody.Error()))
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, services.FileUpload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.AttachFiles(ctx, actor, taskID, uploads)
	})
}

func (h *handlerImpl) HandleDetachFile(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}
	name := c.Param("name")

	h.respondTask(c, func(ctx context.Context, actor services.Actor) (*models.Task, error) {
		return h.tasks.DetachFile(ctx, actor, taskID, name)
	})
}

func (h *handlerImpl) HandleDownloadFile(c *gin.Context) {
	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}
	name := c.Param("name")

	task, err := h.tasks.GetTask(c.Request.Context(), actorFromContext(c), taskID)
	if err != nil {
		abort(c, serviceError(err))
		return
	}

	file, _, ok := task.FileByName(name)
	if !ok {
		abort(c, newNotFoundError(services.ErrFileNotFound.Error()))
		return
	}

	f, err := h.files.Open(file.Path)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("task_id", taskID).
			Str("path", file.Path).
			Msg("failed to open stored file")
		abort(c, newNotFoundError(services.ErrFileNotFound.Error()))
		return
	}
	defer f.Close()

	c.DataFromReader(http.StatusOK, file.Size, file.Type, f, map[string]string{
		"Content-Disposition": "attachment; filename=" + strconv.Quote(file.Name),
	})
}

// respondTask runs a task operation on behalf of the authenticated
// user and writes the resulting task.
func (h *handlerImpl) respondTask(c *gin.Context, op func(ctx context.Context, actor services.Actor) (*models.Task, error)) {
	task, err := op(c.Request.Context(), actorFromContext(c))
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newGetTaskResponse(task))
}

func (h *handlerImpl) taskIDParam(c *gin.Context) (int64, bool) {
	return h.int64Param(c, "id")
}

func (h *handlerImpl) int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.logger.Warn().
			Str(name, c.Param(name)).
			Msg("invalid id parameter")
		abort(c, newBadRequestError(errInvalidID.Error()))
		return 0, false
	}
	return id, true
}
