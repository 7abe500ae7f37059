// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Formatter names.
const (
	FormatPrefixed = "prefixed"
	FormatText     = "text"
	FormatJSON     = "json"
)

// NewFormatter returns the formatter for name. Unknown names fall back to prefixed.
func NewFormatter(name string) logrus.Formatter {
	switch strings.ToLower(name) {
	case FormatText:
		return &logrus.TextFormatter{FullTimestamp: true}
	case FormatJSON:
		return &logrus.JSONFormatter{}
	}
	return &prefixed.TextFormatter{FullTimestamp: true}
}

// Setup applies level and format to the standard logger.
func Setup(level, format string) error {
	return Configure(logrus.StandardLogger(), level, format)
}

// Configure applies level and format to logger.
func Configure(logger *logrus.Logger, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(NewFormatter(format))
	return nil
}
