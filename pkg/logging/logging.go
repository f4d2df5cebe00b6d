package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

func newLogger(level logrus.Level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(out)
	if format == FormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// ConsoleLogger writes to stderr so stdout stays reserved for command output.
func ConsoleLogger(level logrus.Level, format string) *logrus.Logger {
	return newLogger(level, format, os.Stderr)
}

// FileLogger writes to both stderr and the file at logPath. The caller owns the returned file.
func FileLogger(level logrus.Level, format, logPath string) (*os.File, *logrus.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, newLogger(level, format, io.MultiWriter(os.Stderr, f)), nil
}
