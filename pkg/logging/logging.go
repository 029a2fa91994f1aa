// Package logging routes the module's log output to a host-registered
// callback. Until a callback is set, everything is dropped, so the
// module is silent by default no matter how chatty its components are.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/raehik/loot-api/pkg/metadata"
)

// Level identifies the severity of a line handed to the callback.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return fmt.Sprintf("level(%d)", int8(l))
	}
}

// ParseLevel converts a level name as used in configuration.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("%w: unknown log level %q", metadata.ErrInvalidArgument, s)
	}
}

// Callback receives each emitted log event. line is the event encoded
// as JSON without a trailing newline; feeding it to a
// zerolog.ConsoleWriter renders it human-readable.
type Callback func(level Level, line string)

// dispatcher sits behind every logger this package hands out and
// consults the currently registered callback at write time, so loggers
// created before SetCallback still reach it.
type dispatcher struct {
	mu  sync.RWMutex
	cb  Callback
	min zerolog.Level
}

func (d *dispatcher) Write(p []byte) (int, error) {
	return d.WriteLevel(zerolog.NoLevel, p)
}

func (d *dispatcher) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	d.mu.RLock()
	cb, min := d.cb, d.min
	d.mu.RUnlock()

	if cb == nil || (level != zerolog.NoLevel && level < min) {
		return len(p), nil
	}
	cb(fromZerolog(level), strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

var std = &dispatcher{min: zerolog.TraceLevel}

var base = zerolog.New(std).With().Timestamp().Logger()

// SetCallback registers the function that receives log events. A nil
// callback silences the module again.
func SetCallback(cb Callback) {
	std.mu.Lock()
	std.cb = cb
	std.mu.Unlock()
}

// SetLevel drops events below the given severity before they reach the
// callback. The default is LevelTrace (everything).
func SetLevel(l Level) {
	std.mu.Lock()
	std.min = toZerolog(l)
	std.mu.Unlock()
}

// Logger returns the process-level logger.
func Logger() zerolog.Logger {
	return base
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

func toZerolog(l Level) zerolog.Level {
	switch l {
	case LevelTrace:
		return zerolog.TraceLevel
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func fromZerolog(l zerolog.Level) Level {
	switch l {
	case zerolog.TraceLevel:
		return LevelTrace
	case zerolog.DebugLevel:
		return LevelDebug
	case zerolog.InfoLevel:
		return LevelInfo
	case zerolog.WarnLevel:
		return LevelWarn
	case zerolog.ErrorLevel:
		return LevelError
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return LevelFatal
	default:
		return LevelInfo
	}
}
