package loggerfx

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/yurykabanov/logrotate/internal/configfx"
)

var logger *logrus.Logger

func init() {
	logger = logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{})
	logger.SetLevel(logrus.WarnLevel)
}

func Logger() *logrus.Logger {
	return logger
}

func FieldLogger(logger *logrus.Logger) logrus.FieldLogger {
	return logger
}

func ConfigureLogger(logger *logrus.Logger, v *viper.Viper, options *configfx.Options) {
	logLevel := v.GetString(configfx.ConfigLogLevel)
	logFormat := v.GetString(configfx.ConfigLogFormat)

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.WarnLevel
	}

	// command line flags only ever raise verbosity
	if options.Verbose && level < logrus.InfoLevel {
		level = logrus.InfoLevel
	}

	if options.Debug && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}

	logger.SetLevel(level)

	switch logFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		fallthrough
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{})
	}
}
