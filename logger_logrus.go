package chatws

import (
	"github.com/sirupsen/logrus"
)

// logrusLogger adapts a logrus entry to Logger.
type logrusLogger struct {
	*logrus.Entry
}

func (l logrusLogger) WithField(key string, value any) Logger {
	return logrusLogger{Entry: l.Entry.WithField(key, value)}
}

// NewLogrusLogger wraps a logrus logger. A nil logger falls back to the logrus standard logger.
func NewLogrusLogger(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return logrusLogger{Entry: logrus.NewEntry(l)}
}

func defaultLogger() Logger {
	return NewLogrusLogger(nil)
}
