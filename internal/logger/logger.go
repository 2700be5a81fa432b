// Package logger configures the process-wide logrus logger.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/homestaff/household-engine/internal/config"
)

// Log is the global logger instance.
var Log = logrus.New()

// Init sets level and formatter from the configuration: JSON in
// production and staging, colored text otherwise.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		Log.SetLevel(logrus.InfoLevel)
	} else {
		Log.SetLevel(level)
	}

	if cfg.IsProduction() {
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	Log.WithFields(logrus.Fields{"level": Log.GetLevel().String(), "environment": cfg.Environment}).Debug("logger initialized")
}

// Get returns the configured global logger.
func Get() *logrus.Logger {
	return Log
}
