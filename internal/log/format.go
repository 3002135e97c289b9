// Package log configures the logrus logger of the stylemap command.
package log

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// RawFormatter does nothing with the message, it just prints it.
type RawFormatter struct{}

// Format renders a single log entry
func (f RawFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

// SetFormat sets the formatter of logger for one of the raw, json or text
// formats. An empty format is text.
func SetFormat(logger *logrus.Logger, format string, forceColors, noColor bool) error {
	switch format {
	case "raw":
		logger.SetFormatter(&RawFormatter{})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{ForceColors: forceColors, DisableColors: noColor})
	default:
		return fmt.Errorf("unsupported log format '%s'", format)
	}
	logger.Debugf("Logger format: %s", format)
	return nil
}

// SetLevel parses level and sets it on logger. Verbose wins over level.
func SetLevel(logger *logrus.Logger, level string, verbose bool) error {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return nil
	}
	if level == "" {
		return nil
	}
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}
