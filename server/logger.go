package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

// logger is the process-wide structured logger
var logger = logrus.New()

// initLogger applies config, letting LOG_LEVEL and LOG_FORMAT override it
func initLogger(cfg LogConfig) {
	level, format := cfg.Level, cfg.Format
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		format = v
	}

	logger.SetOutput(os.Stdout)
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		logger.WithField("level", level).Warn("unknown log level, using info")
	}
	logger.SetLevel(lvl)
}
