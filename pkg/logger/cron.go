package logger

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts Logger to cron.Logger. cron's routine Info messages
// (schedule, wake, run) go to debug level.
type cronLogger struct {
	l *Logger
}

// CronLogger returns a cron.Logger backed by l.
func CronLogger(l *Logger) cron.Logger {
	return cronLogger{l: l.With(String("component", "cron"))}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(kvFields(keysAndValues), Error(err))...)
}

func kvFields(kv []interface{}) []Field {
	fields := make([]Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, Any(key, kv[i+1]))
	}
	return fields
}
