package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/spf13/afero"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/notifications"
	"github.com/adanyl0v/go-taskdesk/internal/services"
)

type Handler interface {
	HandleLogin(c *gin.Context)
	HandleRefresh(c *gin.Context)
	HandleRegister(c *gin.Context)
	HandleLogout(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)
	HandleAdminMiddleware(c *gin.Context)

	HandleGetMe(c *gin.Context)
	HandleUpdateMe(c *gin.Context)
	HandleListUsers(c *gin.Context)
	HandleUpdateUser(c *gin.Context)

	HandleCreateTask(c *gin.Context)
	HandleGetTasks(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
	HandleCompleteTask(c *gin.Context)
	HandleIncompleteTask(c *gin.Context)
	HandleHoldTask(c *gin.Context)
	HandleResumeTask(c *gin.Context)
	HandleRequestExtension(c *gin.Context)
	HandleApproveExtension(c *gin.Context)
	HandleRejectExtension(c *gin.Context)
	HandleDelegateTask(c *gin.Context)
	HandleAttachFiles(c *gin.Context)
	HandleDetachFile(c *gin.Context)
	HandleDownloadFile(c *gin.Context)

	HandleListCronjobs(c *gin.Context)
	HandleCreateCronjob(c *gin.Context)
	HandleUpdateCronjob(c *gin.Context)
	HandleDeleteCronjob(c *gin.Context)

	HandleListActivity(c *gin.Context)

	HandleListNotifications(c *gin.Context)
	HandleNotificationsSocket(c *gin.Context)
}

type Services struct {
	Auth     services.AuthService
	Sessions services.SessionService
	Users    services.UserService
	Tasks    services.TaskService
	Cronjobs services.CronjobService
	Activity services.ActivityService
	Files    FileOpener
}

// FileOpener reads back stored task files by their storage path.
type FileOpener interface {
	Open(path string) (afero.File, error)
}

type handlerImpl struct {
	logger         zerolog.Logger
	auth           services.AuthService
	sessions       services.SessionService
	users          services.UserService
	tasks          services.TaskService
	cronjobs       services.CronjobService
	activity       services.ActivityService
	files          FileOpener
	hub            *notifications.Hub
	upgrader       websocket.Upgrader
	maxUploadBytes int64
}

func New(
	logger zerolog.Logger,
	svc Services,
	hub *notifications.Hub,
	maxUploadBytes int64,
) Handler {
	return &handlerImpl{
		logger:         logger,
		auth:           svc.Auth,
		sessions:       svc.Sessions,
		users:          svc.Users,
		tasks:          svc.Tasks,
		cronjobs:       svc.Cronjobs,
		activity:       svc.Activity,
		files:          svc.Files,
		hub:            hub,
		maxUploadBytes: maxUploadBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}
