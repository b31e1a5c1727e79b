// log.go

// Package log provides the structured, rotating logger used across mavguide.

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the name of the active log file inside the log directory.
const FileName = "mavguide.slog"

// Logger is a slog.Logger whose methods may be called on a nil receiver.
// Through nil, Debug and Info records vanish; Warn and Error records go to
// slog's default logger.
type Logger struct {
	*slog.Logger
	LogFile string // empty unless the logger writes to a file
}

// ParseLevel converts a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%s: invalid log level", level)
}

// New opens a rotating JSON log in dir ("mavguide-logs" when empty). An
// unknown level is reported on stderr and info is used.
func New(level string, dir string) *Logger {
	if dir == "" {
		dir = "mavguide-logs"
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	rot := &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    32, // MB
		MaxBackups: 4,
		Compress:   true,
	}
	if lvl <= slog.LevelDebug {
		rot.MaxSize = 256
	}

	l := NewWithWriter(rot, lvl)
	l.LogFile = rot.Filename
	l.Info("Logger opened",
		slog.String("level", lvl.String()),
		slog.Group("host",
			slog.String("os", runtime.GOOS),
			slog.String("arch", runtime.GOARCH),
			slog.Int("cpus", runtime.NumCPU())),
		slog.String("go", runtime.Version()))
	return l
}

// NewWithWriter returns a Logger writing JSON records at lvl and above to w.
func NewWithWriter(w io.Writer, lvl slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))}
}

func (l *Logger) emit(lvl slog.Level, msg string, args []any) {
	if l == nil {
		if lvl >= slog.LevelWarn {
			slog.Log(context.Background(), lvl, msg, args...)
		}
		return
	}
	l.Logger.Log(context.Background(), lvl, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.emit(slog.LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.emit(slog.LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.emit(slog.LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.emit(slog.LevelError, msg, args) }

// The f variants format msg with args and log it without attributes.
func (l *Logger) Debugf(msg string, args ...any) { l.emitf(slog.LevelDebug, msg, args) }
func (l *Logger) Infof(msg string, args ...any)  { l.emitf(slog.LevelInfo, msg, args) }
func (l *Logger) Warnf(msg string, args ...any)  { l.emitf(slog.LevelWarn, msg, args) }
func (l *Logger) Errorf(msg string, args ...any) { l.emitf(slog.LevelError, msg, args) }

func (l *Logger) emitf(lvl slog.Level, msg string, args []any) {
	if l != nil && !l.Logger.Enabled(context.Background(), lvl) {
		return
	}
	l.emit(lvl, fmt.Sprintf(msg, args...), nil)
}

// With returns a Logger adding args to every record, or nil for a nil l.
func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{Logger: l.Logger.With(args...), LogFile: l.LogFile}
}
