// Package log wraps the process-wide structured logger
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/navikt/zmeet/internal/utils"
)

// Logger is the process-wide logger. It is usable before Init with logrus defaults.
var Logger = logrus.New()

// Fields is an alias so callers need not import logrus
type Fields = logrus.Fields

// Init configures the logger for JSON output at the given level
func Init(level string) {
	InitWithOutput(os.Stdout, level)
}

// InitWithOutput is Init with an explicit writer, used by tests
func InitWithOutput(w io.Writer, level string) {
	Logger.SetOutput(w)
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	Logger.SetLevel(logLevel)
}

// WithRoom returns an entry tagged with a sanitised room name
func WithRoom(roomName string) *logrus.Entry {
	return Logger.WithField("room", utils.SanitizeLogString(roomName))
}

// WithUser returns an entry tagged with a sanitised user identity
func WithUser(user string) *logrus.Entry {
	return Logger.WithField("user", utils.SanitizeLogString(user))
}

// WithFields returns an entry with the given fields; string values are sanitised
func WithFields(fields Fields) *logrus.Entry {
	clean := make(logrus.Fields, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			v = utils.SanitizeLogString(s)
		}
		clean[k] = v
	}
	return Logger.WithFields(clean)
}

// Infof logs at info level
func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

// Warnf logs at warning level
func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

// Errorf logs at error level
func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}

// Fatalf logs at fatal level and exits the process
func Fatalf(format string, args ...interface{}) {
	Logger.Fatalf(format, args...)
}
