// Package logging configures the global logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yourorg/funding-rate-ranker/internal/config"
)

// Setup applies the format, level and optional rotating file from cfg. The
// returned closer releases the log file and is safe to call when none is open.
func Setup(cfg config.LogConfig) io.Closer {
	logrus.SetFormatter(Formatter(cfg.Format))
	logrus.SetLevel(Level(cfg.Level))

	if cfg.File == "" {
		logrus.SetOutput(os.Stderr)
		return nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, file))
	logrus.WithField("file", cfg.File).Info("Logging to rotating file")
	return file
}

// Formatter returns the JSON formatter for "json" and a full-timestamp text
// formatter otherwise.
func Formatter(format string) logrus.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return &logrus.JSONFormatter{}
	default:
		return &logrus.TextFormatter{
			FullTimestamp: true,
		}
	}
}

// Level maps a level name to logrus, defaulting to info.
func Level(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
