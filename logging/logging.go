package logging

import (
	"io"
	"os"
	"strings"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

// New returns the logger both binaries share. debug wins over level; an empty
// or unknown level means Info.
func New(debug bool, level string) *logrus.Logger {
	return NewWithWriter(os.Stderr, debug, level)
}

func NewWithWriter(w io.Writer, debug bool, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		FieldsOrder:     []string{"component", "category"},
		TimestampFormat: "02-Jan-06 15:04:05",
	})

	lvl, ok := ParseLevel(level)
	if !ok {
		lvl = logrus.InfoLevel
	}
	if debug {
		lvl = logrus.DebugLevel
	}
	log.SetLevel(lvl)
	return log
}

func ParseLevel(raw string) (logrus.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return logrus.InfoLevel, false
	case "trace":
		return logrus.TraceLevel, true
	case "debug":
		return logrus.DebugLevel, true
	case "info":
		return logrus.InfoLevel, true
	case "warn", "warning":
		return logrus.WarnLevel, true
	case "error":
		return logrus.ErrorLevel, true
	default:
		return logrus.InfoLevel, false
	}
}
