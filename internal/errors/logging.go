package errors

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Logger decorates logrus with AppError-aware field extraction, so a
// classified error's code and context land as structured fields instead
// of being flattened into the message.
type Logger struct {
	*logrus.Logger
}

// NewLogger builds the process logger with JSON output.
func NewLogger() *Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	return &Logger{Logger: logger}
}

// WithError returns an entry carrying the error plus, for AppErrors,
// its code and context fields.
func (l *Logger) WithError(err error) *logrus.Entry {
	entry := l.Logger.WithError(err)
	if appErr, ok := asAppError(err); ok {
		entry = entry.WithField("error_code", appErr.Code)
		for k, v := range appErr.Context {
			entry = entry.WithField(k, v)
		}
	}
	return entry
}

// LogError logs err at error level with its structured fields.
func (l *Logger) LogError(err error, message string, fields ...logrus.Fields) {
	entry := l.WithError(err)
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Error(message)
}

// LogWarn logs err at warning level with its structured fields.
func (l *Logger) LogWarn(err error, message string, fields ...logrus.Fields) {
	entry := l.WithError(err)
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Warn(message)
}
