package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// LevelFor maps the CLI debug level to a logrus level.
func LevelFor(debug int) logrus.Level {
	switch {
	case debug <= 0:
		return logrus.WarnLevel
	case debug == 1:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// New returns a text logger writing to w at the level selected by debug.
func New(debug int, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(LevelFor(debug))
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: debug < 2,
		FullTimestamp:    true,
	})
	return log
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
