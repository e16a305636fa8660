// Package logging builds the logrus logger for an environment.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/fentz26/taskclock/internal/config"
	"github.com/sirupsen/logrus"
)

// New returns a logger configured for env. local logs debug with colors,
// dev logs info as plain text, prod logs warnings as JSON. cfg.Level and
// cfg.File override the level and the output.
// The returned closer releases the log file, if any.
func New(cfg config.LogConfig, env string) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()

	switch env {
	case config.EnvLocal:
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{
			ForceColors:   true,
			FullTimestamp: true,
		})
	case config.EnvDev:
		log.SetLevel(logrus.InfoLevel)
		log.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	default:
		log.SetLevel(logrus.WarnLevel)
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		log.SetLevel(level)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		if tf, ok := log.Formatter.(*logrus.TextFormatter); ok {
			tf.ForceColors = false
			tf.DisableColors = true
		}
		closer = f
	}
	return log, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
