// Package logging builds the zap logger shared by the binaries.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the logger level and encoding
type Options struct {
	Level   string // debug, info, warn, error
	Format  string // console, json
	Verbose bool   // forces debug
	Outputs []string
}

// New builds a logger writing to stderr unless Outputs says otherwise
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	config := zap.NewProductionConfig()
	switch opts.Format {
	case "", "console":
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "json":
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.Sampling = nil
	config.OutputPaths = []string{"stderr"}
	if len(opts.Outputs) > 0 {
		config.OutputPaths = opts.Outputs
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
