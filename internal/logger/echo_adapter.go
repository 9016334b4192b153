package logger

import (
	"fmt"
	"io"
	"sync/atomic"

	echolog "github.com/labstack/gommon/log"
)

// EchoAdapter routes echo's internal logging into a module Logger. Messages
// below the configured gommon level are dropped.
//
//	e := echo.New()
//	e.Logger = logger.NewEchoAdapter(logger.Global().Module("http"), echolog.WARN)
type EchoAdapter struct {
	log   Logger
	level atomic.Uint32
}

// NewEchoAdapter wraps log at level.
func NewEchoAdapter(log Logger, level echolog.Lvl) *EchoAdapter {
	a := &EchoAdapter{log: log}
	a.level.Store(uint32(level))
	return a
}

// EchoLevel maps a textual level to gommon's; unknown values read as INFO.
func EchoLevel(level string) echolog.Lvl {
	switch level {
	case "debug", "trace":
		return echolog.DEBUG
	case "warn", "warning":
		return echolog.WARN
	case "error":
		return echolog.ERROR
	case "off":
		return echolog.OFF
	default:
		return echolog.INFO
	}
}

func (a *EchoAdapter) enabled(l echolog.Lvl) bool {
	return l >= echolog.Lvl(a.level.Load())
}

func (a *EchoAdapter) Output() io.Writer         { return io.Discard }
func (a *EchoAdapter) SetOutput(io.Writer)       {}
func (a *EchoAdapter) Prefix() string            { return "" }
func (a *EchoAdapter) SetPrefix(string)          {}
func (a *EchoAdapter) SetHeader(string)          {}
func (a *EchoAdapter) Level() echolog.Lvl        { return echolog.Lvl(a.level.Load()) }
func (a *EchoAdapter) SetLevel(l echolog.Lvl)    { a.level.Store(uint32(l)) }
func (a *EchoAdapter) Print(i ...any)            { a.Info(i...) }
func (a *EchoAdapter) Printf(f string, v ...any) { a.Infof(f, v...) }
func (a *EchoAdapter) Printj(j echolog.JSON)     { a.Infoj(j) }

func (a *EchoAdapter) Debug(i ...any) {
	if a.enabled(echolog.DEBUG) {
		a.log.Debug(fmt.Sprint(i...))
	}
}

func (a *EchoAdapter) Debugf(format string, args ...any) {
	if a.enabled(echolog.DEBUG) {
		a.log.Debug(fmt.Sprintf(format, args...))
	}
}

func (a *EchoAdapter) Debugj(j echolog.JSON) {
	if a.enabled(echolog.DEBUG) {
		a.log.Debug("echo", Any("data", j))
	}
}

func (a *EchoAdapter) Info(i ...any) {
	if a.enabled(echolog.INFO) {
		a.log.Info(fmt.Sprint(i...))
	}
}

func (a *EchoAdapter) Infof(format string, args ...any) {
	if a.enabled(echolog.INFO) {
		a.log.Info(fmt.Sprintf(format, args...))
	}
}

func (a *EchoAdapter) Infoj(j echolog.JSON) {
	if a.enabled(echolog.INFO) {
		a.log.Info("echo", Any("data", j))
	}
}

func (a *EchoAdapter) Warn(i ...any) {
	if a.enabled(echolog.WARN) {
		a.log.Warn(fmt.Sprint(i...))
	}
}

func (a *EchoAdapter) Warnf(format string, args ...any) {
	if a.enabled(echolog.WARN) {
		a.log.Warn(fmt.Sprintf(format, args...))
	}
}

func (a *EchoAdapter) Warnj(j echolog.JSON) {
	if a.enabled(echolog.WARN) {
		a.log.Warn("echo", Any("data", j))
	}
}

func (a *EchoAdapter) Error(i ...any) {
	if a.enabled(echolog.ERROR) {
		a.log.Error(fmt.Sprint(i...))
	}
}

func (a *EchoAdapter) Errorf(format string, args ...any) {
	if a.enabled(echolog.ERROR) {
		a.log.Error(fmt.Sprintf(format, args...))
	}
}

func (a *EchoAdapter) Errorj(j echolog.JSON) {
	if a.enabled(echolog.ERROR) {
		a.log.Error("echo", Any("data", j))
	}
}

// Fatal and Panic log at error level and panic; the server's recover
// middleware turns that into a 500 instead of exiting the process.
func (a *EchoAdapter) Fatal(i ...any) { a.Panic(i...) }

func (a *EchoAdapter) Fatalf(format string, args ...any) { a.Panicf(format, args...) }

func (a *EchoAdapter) Fatalj(j echolog.JSON) { a.Panicj(j) }

func (a *EchoAdapter) Panic(i ...any) {
	msg := fmt.Sprint(i...)
	a.log.Error(msg)
	panic(msg)
}

func (a *EchoAdapter) Panicf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.log.Error(msg)
	panic(msg)
}

func (a *EchoAdapter) Panicj(j echolog.JSON) {
	a.log.Error("echo", Any("data", j))
	panic(fmt.Sprint(j))
}
