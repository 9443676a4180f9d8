// Package logging builds the zap-backed abstractlogger used by the CLI.
package logging

import (
	"fmt"
	"strings"

	"github.com/jensneuse/abstractlogger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing at level or above. Development mode uses
// zap's console encoder; otherwise records are JSON.
func New(level string, development bool) (abstractlogger.Logger, error) {
	lvl, zl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zl)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return abstractlogger.NewZapLogger(logger, lvl), nil
}

// ParseLevel maps a level name to its abstractlogger and zap values.
func ParseLevel(level string) (abstractlogger.Level, zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return abstractlogger.DebugLevel, zapcore.DebugLevel, nil
	case "", "info":
		return abstractlogger.InfoLevel, zapcore.InfoLevel, nil
	case "warn", "warning":
		return abstractlogger.WarnLevel, zapcore.WarnLevel, nil
	case "error":
		return abstractlogger.ErrorLevel, zapcore.ErrorLevel, nil
	}
	return 0, 0, fmt.Errorf("unknown log level %q", level)
}
