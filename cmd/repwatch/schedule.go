package main

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger routes scheduler messages through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// scheduleWrappers make a tick that fires while the previous run is still
// going a no-op, and turn a panicking run into a logged error.
func scheduleWrappers(l cron.Logger) []cron.JobWrapper {
	return []cron.JobWrapper{cron.SkipIfStillRunning(l), cron.Recover(l)}
}

func newScheduler(log *zap.Logger) *cron.Cron {
	l := cronLogger{log: log.Sugar()}
	return cron.New(cron.WithLogger(l), cron.WithChain(scheduleWrappers(l)...))
}
