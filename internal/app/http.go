package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/adanyl0v/go-taskdesk/internal/config"
	"github.com/adanyl0v/go-taskdesk/internal/delivery/http/v1"
)

// MustRun serves HTTP and runs the scheduler until SIGINT or SIGTERM,
// then shuts both down gracefully.
func MustRun() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	httpCfg := cfg.HTTP

	c := mustBuildComponents()

	router := gin.New()
	router.Use(v1.AccessLog(globalLogger.With().Str("component", "http").Logger()))
	router.Use(gin.Recovery())
	router.Use(v1.RequestTimeout(httpCfg.RequestTimeout))
	registerRoutes(router, v1.New(globalLogger, c.services, c.hub, httpCfg.MaxUploadBytes))

	server := &http.Server{
		Addr:         net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler:      router,
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
	}

	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			return err
		}
		return nil
	})

	c.scheduler.Start()

	g.Go(func() error {
		<-gCtx.Done()
		globalLogger.Info().
			Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
		defer cancel()

		// Sockets are hijacked connections, server.Shutdown does not wait for them.
		c.hub.Close()

		err := c.scheduler.Stop(shutdownCtx)
		if err != nil {
			globalLogger.Error().
				Err(err).
				Msg("failed to stop scheduler")
		}

		err = server.Shutdown(shutdownCtx)
		if err != nil {
			globalLogger.Error().
				Err(err).
				Msg("failed to shutdown http server")
			return err
		}
		globalLogger.Info().Msg("shut down http server")
		return nil
	})

	err := g.Wait()
	if err != nil {
		panic(err)
	}
}

func registerRoutes(router gin.IRouter, h v1.Handler) {
	router.GET("/healthz", handleHealth)

	router = router.Group("/api/v1")

	authRouter := router.Group("/auth")
	authRouter.POST("/login", h.HandleLogin)
	authRouter.POST("/refresh", h.HandleRefresh)
	authRouter.POST("/register", h.HandleRegister)
	authRouter.POST("/logout", h.HandleAuthMiddleware, h.HandleLogout)

	authed := router.Group("", h.HandleAuthMiddleware)

	authed.GET("/users/me", h.HandleGetMe)
	authed.PATCH("/users/me", h.HandleUpdateMe)

	tasksRouter := authed.Group("/tasks")
	tasksRouter.GET("", h.HandleGetTasks)
	tasksRouter.POST("", h.HandleCreateTask)
	tasksRouter.GET("/:id", h.HandleGetTask)
	tasksRouter.PATCH("/:id", h.HandleUpdateTask)
	tasksRouter.DELETE("/:id", h.HandleDeleteTask)
	tasksRouter.POST("/:id/complete", h.HandleCompleteTask)
	tasksRouter.POST("/:id/incomplete", h.HandleIncompleteTask)
	tasksRouter.POST("/:id/hold", h.HandleHoldTask)
	tasksRouter.POST("/:id/resume", h.HandleResumeTask)
	tasksRouter.POST("/:id/extension", h.HandleRequestExtension)
	tasksRouter.POST("/:id/extension/approve", h.HandleApproveExtension)
	tasksRouter.POST("/:id/extension/reject", h.HandleRejectExtension)
	tasksRouter.POST("/:id/delegate", h.HandleDelegateTask)
	tasksRouter.POST("/:id/files", h.HandleAttachFiles)
	tasksRouter.GET("/:id/files/:name", h.HandleDownloadFile)
	tasksRouter.DELETE("/:id/files/:name", h.HandleDetachFile)

	authed.GET("/activity", h.HandleListActivity)

	authed.GET("/notifications", h.HandleListNotifications)
	authed.GET("/notifications/ws", h.HandleNotificationsSocket)

	adminRouter := authed.Group("/admin", h.HandleAdminMiddleware)
	adminRouter.GET("/users", h.HandleListUsers)
	adminRouter.PATCH("/users/:id", h.HandleUpdateUser)
	adminRouter.GET("/cronjobs", h.HandleListCronjobs)
	adminRouter.POST("/cronjobs", h.HandleCreateCronjob)
	adminRouter.PUT("/cronjobs/:id", h.HandleUpdateCronjob)
	adminRouter.DELETE("/cronjobs/:id", h.HandleDeleteCronjob)
}

func handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.Global().Postgres.PingTimeout)
	defer cancel()

	err := globalPostgresPool.Ping(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
