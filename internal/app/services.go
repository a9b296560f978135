package app

import (
	"time"

	"github.com/adanyl0v/go-taskdesk/internal/config"
	"github.com/adanyl0v/go-taskdesk/internal/delivery/http/v1"
	"github.com/adanyl0v/go-taskdesk/internal/notifications"
	"github.com/adanyl0v/go-taskdesk/internal/repository/postgres"
	"github.com/adanyl0v/go-taskdesk/internal/scheduler"
	"github.com/adanyl0v/go-taskdesk/internal/services"
	"github.com/adanyl0v/go-taskdesk/internal/storage/files"
)

// components is everything the HTTP server and the scheduler share.
type components struct {
	hub       *notifications.Hub
	services  v1.Services
	scheduler *scheduler.Scheduler
}

func mustBuildComponents() *components {
	cfg := config.Global()

	db := postgres.NewDB(globalPostgresPool)
	users := postgres.NewUserRepository(db)
	sessions := postgres.NewSessionRepository(db)
	tasks := postgres.NewTaskRepository(db)
	activityLogs := postgres.NewActivityRepository(db)
	cronjobs := postgres.NewCronjobRepository(db)

	fileStore, err := files.NewOsStore(cfg.Storage.Root)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Str("root", cfg.Storage.Root).
			Msg("failed to open file storage")
		panic(err)
	}

	hub := notifications.NewHub(
		globalLogger.With().Str("component", "notifications").Logger(),
		notifications.DefaultRecentLimit,
	)

	jwtCfg := cfg.JWT
	activityService := services.NewActivityService(globalLogger, activityLogs)
	taskService := services.NewTaskService(
		globalLogger,
		db,
		tasks,
		users,
		activityLogs,
		activityService,
		hub,
		fileStore,
	)
	schedulerCfg := cfg.Scheduler
	reachable, err := scheduler.ReachableTimes(schedulerCfg.PollerSchedule)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to parse poller schedule")
		panic(err)
	}
	cronjobService := services.NewCronjobService(globalLogger, cronjobs, users, reachable)

	svc := v1.Services{
		Auth: services.NewAuthService(
			globalLogger,
			db,
			users,
			sessions,
			jwtCfg.Issuer,
			[]byte(jwtCfg.SigningKey),
			jwtCfg.AccessTokenTTL,
			jwtCfg.RefreshTokenTTL,
		),
		Sessions: services.NewSessionService(globalLogger, sessions),
		Users:    services.NewUserService(globalLogger, db, users, sessions),
		Tasks:    taskService,
		Cronjobs: cronjobService,
		Activity: activityService,
		Files:    fileStore,
	}

	location, err := time.LoadLocation(schedulerCfg.Location)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Str("location", schedulerCfg.Location).
			Msg("failed to load scheduler location")
		panic(err)
	}

	schedulerLogger := globalLogger.With().Str("component", "scheduler").Logger()
	poller := scheduler.NewPoller(schedulerLogger, cronjobService, taskService, location, time.Minute)
	sched, err := scheduler.New(schedulerLogger, scheduler.Params{
		Location:       location,
		PollerSchedule: schedulerCfg.PollerSchedule,
		SweepSchedule:  schedulerCfg.SweepSchedule,
		JobTimeout:     10 * time.Minute,
	}, poller, taskService)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to create scheduler")
		panic(err)
	}

	return &components{
		hub:       hub,
		services:  svc,
		scheduler: sched,
	}
}
