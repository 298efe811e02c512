package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger. An empty format picks JSON in production.
func Setup(level, format string, production bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stdout)

	if format == "" {
		format = "text"
		if production {
			format = "json"
		}
	}

	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
