package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry so call sites can chain structured fields.
type Logger struct {
	*logrus.Entry
}

// New builds a logger configured from the environment. Local runs get a
// readable text format; everything else emits JSON for log aggregation.
func New() *Logger {
	base := logrus.New()

	env := os.Getenv("ENV")
	if env == "" || env == "local" || env == "dev" {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	base.SetOutput(os.Stdout)

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		base.SetLevel(logrus.DebugLevel)
	case "warn":
		base.SetLevel(logrus.WarnLevel)
	case "error":
		base.SetLevel(logrus.ErrorLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Entry: logrus.NewEntry(base)}
}

// Component returns an entry tagged with a component name.
func (l *Logger) Component(name string) *logrus.Entry {
	return l.WithField("component", name)
}

// WithError standardizes error logging.
func (l *Logger) WithError(err error) *logrus.Entry {
	if err == nil {
		return l.Entry
	}
	return l.Entry.WithField("error", err.Error())
}
