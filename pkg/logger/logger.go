package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	l.SetLevel(logrus.InfoLevel)

	// Read LOG_LEVEL from environment
	if env := strings.TrimSpace(os.Getenv("LOG_LEVEL")); env != "" {
		if level, err := logrus.ParseLevel(env); err == nil {
			l.SetLevel(level)
		}
	}
	return l
}

// SetLevel parses and applies a level name: panic, fatal, error, warn, info,
// debug or trace
func SetLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	std.SetLevel(level)
	return nil
}

// SetOutput redirects log output
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// New returns an entry on the shared logger for injection into components
func New(fields logrus.Fields) *logrus.Entry {
	return logrus.NewEntry(std).WithFields(fields)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return std.IsLevelEnabled(logrus.DebugLevel)
}
