package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"vendorsales-backend/internal/config"
)

var logg = logrus.New()

// Get returns the process logger. It writes JSON to stdout until Init runs.
func Get() *logrus.Logger {
	return logg
}

func init() {
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logrus.InfoLevel)
	logg.SetOutput(os.Stdout)
}

// Init configures the process logger from cfg. A LOG_FILE adds a rotated
// file next to stdout.
func Init(cfg config.LogConfig) *logrus.Logger {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logg.SetFormatter(&logrus.JSONFormatter{})
	}

	writers := []io.Writer{os.Stdout}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	logg.SetOutput(io.MultiWriter(writers...))
	return logg
}

func LogError(logger logrus.FieldLogger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}

// LogAnomaly records a data-integrity anomaly: something that did not abort
// the operation but indicates corrupt or unavailable data.
func LogAnomaly(logger logrus.FieldLogger, moduleName string, kind string, data any, detail string) {
	fields := logrus.Fields{
		"module":       moduleName,
		"anomaly":      true,
		"anomaly_kind": kind,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Warn(detail)
}
