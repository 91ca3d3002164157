// Package logx builds the process-wide zerolog logger.
//
// It keeps only what a single-binary worker needs: a console writer with
// short timestamps for interactive use, an optional JSON file sink, and a
// forgiving level parser. Components receive a zerolog.Logger and derive
// sub-loggers with With().
package logx

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

type Config struct {
	Level   string `json:"level"`
	Console bool   `json:"console"`
	File    string `json:"file"`
}

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New builds a logger from cfg. If a file sink is configured its directory
// is created; file open failure falls back to console-only rather than
// failing process start.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = consoleTimeFormat
	zerolog.ErrorFieldName = "err"

	var sinks []io.Writer
	if cfg.Console || cfg.File == "" {
		sinks = append(sinks, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: consoleTimeFormat})
	}
	if cfg.File != "" {
		if f, err := openLogFile(cfg.File); err == nil {
			sinks = append(sinks, f)
		}
	}

	var out io.Writer
	if len(sinks) == 1 {
		out = sinks[0]
	} else {
		out = zerolog.MultiLevelWriter(sinks...)
	}
	return zerolog.New(out).Level(ParseLevel(cfg.Level, zerolog.InfoLevel)).With().Timestamp().Logger()
}

// Nop returns a logger that never writes. Useful in tests.
func Nop() zerolog.Logger { return zerolog.Nop() }

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// ParseLevel maps a config string to a zerolog level, falling back to def
// for anything it does not recognize.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return def
	default:
		return def
	}
}
