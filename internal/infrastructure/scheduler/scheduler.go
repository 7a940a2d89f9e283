package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
)

type Logger interface {
	Warnf(template string, args ...interface{})
}

type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	onError func(error)
}

// New creates a seconds-resolution scheduler. Jobs receive ctx, and a tick
// that arrives while the previous run is still going is skipped and reported
// to log. log and onError may be nil.
func New(ctx context.Context, log Logger, onError func(error)) *Scheduler {
	if onError == nil {
		onError = func(error) {}
	}

	var skipLog cron.Logger = cron.DiscardLogger
	if log != nil {
		skipLog = skipLogger{log: log}
	}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(skipLog)),
		),
		ctx:     ctx,
		onError: onError,
	}
}

// skipLogger receives the messages of cron's SkipIfStillRunning wrapper,
// whose only Info message is the skip notice.
type skipLogger struct {
	log Logger
}

func (l skipLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Warnf("Scheduled backup skipped, previous run still in progress")
}

func (l skipLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Warnf("Scheduler: %s: %v", msg, err)
}

func (s *Scheduler) AddJob(spec string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if s.ctx.Err() != nil {
			return
		}
		if err := job(s.ctx); err != nil {
			s.onError(err)
		}
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running job to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
