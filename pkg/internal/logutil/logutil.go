package logutil

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects level and encoding of the process logger.
type Options struct {
	Level  string // debug|info|warn|error
	Format string // console|json
}

// jsonFromEnv mirrors the ZKPING_LOG_JSON=1 / ZKPING_LOG_FORMAT=json switches.
func jsonFromEnv() bool {
	return os.Getenv("ZKPING_LOG_JSON") == "1" || strings.EqualFold(os.Getenv("ZKPING_LOG_FORMAT"), "json")
}

// New builds a zap logger writing to stderr. Stdout is reserved for report lines.
func New(o Options) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if o.Level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(o.Level))); err != nil {
			return nil, fmt.Errorf("log level %q: %w", o.Level, err)
		}
	}
	format := strings.ToLower(o.Format)
	if format == "" {
		format = "console"
	}
	if jsonFromEnv() {
		format = "json"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format %q: want console or json", o.Format)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = format
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return cfg.Build()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Printf adapts a zap logger to the Printf-style logger interface used by
// client libraries. Messages are emitted at debug level.
type Printf struct{ S *zap.SugaredLogger }

func (p Printf) Printf(f string, args ...interface{}) { p.S.Debugf(f, args...) }
