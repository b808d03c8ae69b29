// Package logger holds the process-wide logrus logger. Every package logs
// through Get() so that the level and JSON format set at startup apply
// everywhere.
package logger

import (
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Init builds the logger with a JSON formatter. An unknown level string
// falls back to info.
func Init(level string) {
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
}

// Get returns the shared logger, initialising it at info level on first use.
func Get() *logrus.Logger {
	once.Do(func() {
		if logger == nil {
			Init("info")
		}
	})
	return logger
}

// SetOutput redirects the shared logger, mostly so tests can keep quiet.
func SetOutput(w io.Writer) {
	Get().SetOutput(w)
}
