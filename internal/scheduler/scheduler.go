package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

type OrphanSweeper interface {
	SweepOrphanFiles(ctx context.Context) (int, error)
}

// specParser reads six-field specs with a leading seconds field, and
// descriptors such as @hourly.
var specParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ReachableTimes reports which times of day a poller running on spec
// can ever observe. Interval specs such as "@every 90s" drift across
// the clock, for them every time of day is reachable.
func ReachableTimes(spec string) (func(models.TimeOfDay) bool, error) {
	schedule, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid poller schedule %q: %w", spec, err)
	}
	fields, ok := schedule.(*cron.SpecSchedule)
	if !ok {
		return func(models.TimeOfDay) bool { return true }, nil
	}
	return func(t models.TimeOfDay) bool {
		return fields.Second&(1<<uint(t.Second)) != 0 &&
			fields.Minute&(1<<uint(t.Minute)) != 0 &&
			fields.Hour&(1<<uint(t.Hour)) != 0
	}, nil
}

// Scheduler owns the cron runner of the periodic jobs.
type Scheduler struct {
	logger zerolog.Logger
	cron   *cron.Cron
}

type Params struct {
	Location       *time.Location
	PollerSchedule string
	SweepSchedule  string
	// JobTimeout bounds a single run of the sweep.
	JobTimeout time.Duration
}

func New(
	logger zerolog.Logger,
	params Params,
	poller *Poller,
	sweeper OrphanSweeper,
) (*Scheduler, error) {
	if params.Location == nil {
		params.Location = time.Local
	}
	cronLogger := newCronLogger(logger)

	c := cron.New(
		cron.WithParser(specParser),
		cron.WithLocation(params.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		),
	)

	_, err := c.AddJob(params.PollerSchedule, poller)
	if err != nil {
		return nil, fmt.Errorf("invalid poller schedule %q: %w", params.PollerSchedule, err)
	}

	_, err = c.AddFunc(params.SweepSchedule, func() {
		ctx := context.Background()
		if params.JobTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, params.JobTimeout)
			defer cancel()
		}
		_, _ = sweeper.SweepOrphanFiles(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", params.SweepSchedule, err)
	}

	return &Scheduler{
		logger: logger,
		cron:   c,
	}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().
		Int("jobs", len(s.cron.Entries())).
		Msg("started scheduler")
}

// Stop prevents new runs and waits for the running ones or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info().Msg("stopped scheduler")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for running jobs: %w", ctx.Err())
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func newCronLogger(logger zerolog.Logger) cron.Logger {
	return cronLogger{logger: logger}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().
		Fields(keysAndValues).
		Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().
		Err(err).
		Fields(keysAndValues).
		Msg(msg)
}
