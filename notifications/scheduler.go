package notifications

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs job every interval until the returned cancel func is
// called.
type Scheduler interface {
	Every(interval time.Duration, job func()) (cancel func())
}

// CronScheduler runs jobs on a robfig/cron runner. A job that is still
// running when its next tick fires is skipped.
type CronScheduler struct {
	c *cron.Cron
}

func NewCronScheduler() *CronScheduler {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Start()
	return &CronScheduler{c: c}
}

// Every schedules job. cron.Every rounds intervals below one second up to
// one second.
func (s *CronScheduler) Every(interval time.Duration, job func()) func() {
	id := s.c.Schedule(cron.Every(interval), cron.FuncJob(job))
	return func() { s.c.Remove(id) }
}

// Close stops the runner and waits for running jobs.
func (s *CronScheduler) Close() {
	<-s.c.Stop().Done()
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
