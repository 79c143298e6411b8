package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	isVerbose bool
	logger    = newLogger(os.Stderr)
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000000",
	})
	return l
}

func SetVerbose(verbose bool) {
	isVerbose = verbose
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if logger.GetLevel() == logrus.DebugLevel {
		logger.SetLevel(logrus.InfoLevel)
	}
}

func IsVerbose() bool {
	return isVerbose
}

// SetOutput redirects all log output, mostly useful for tests
func SetOutput(out io.Writer) {
	logger.SetOutput(out)
}

// ConfigureLogging applies a level ("debug", "info", "warn", "error") and a
// format ("text" or "json"). Verbose mode always wins over the configured level.
func ConfigureLogging(level, format string) error {
	if level != "" {
		lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		if !isVerbose {
			logger.SetLevel(lvl)
		}
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000000",
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unsupported log format %q", format)
	}

	return nil
}

// WithFields returns an entry carrying structured context, e.g. the device serial
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return logger.WithFields(logrus.Fields(fields))
}

func Verbose(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}
