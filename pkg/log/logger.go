// Copyright 2019 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides a small leveled, per-source logger used by the
// node-selection core for its diagnostic output (info/debug/debug2/debug3/
// error in the terminology of the evaluator this package backs).
package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Level is the severity of a log message.
type Level int32

const (
	// LevelDebug is the severity for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the severity for informational messages.
	LevelInfo
	// LevelWarn is the severity for warnings.
	LevelWarn
	// LevelError is the severity for errors.
	LevelError
)

// Logger is the interface for producing log messages for/from a particular source.
type Logger interface {
	// Debug formats and emits a debug message, if debugging is enabled for this source.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})
	// Fatal formats and emits an error message and os.Exit()'s with status 1.
	Fatal(format string, args ...interface{})
	// Panic formats and emits an error message, and panics with the same.
	Panic(format string, args ...interface{})

	// EnableDebug enables or disables debug messages for this source.
	EnableDebug(bool) bool
	// DebugEnabled checks if debug messages are enabled for this source.
	DebugEnabled() bool

	// Source returns the source name of this Logger.
	Source() string
}

// logger implements Logger for a single named source.
type logger struct {
	source string
}

var _ Logger = &logger{}

// registry is the process-wide state behind all loggers.
type registry struct {
	sync.RWMutex
	level   Level
	debug   map[string]bool // per-source debug override
	allDbg  bool            // debug forced on for every source
	loggers map[string]*logger
}

var reg = &registry{
	level:   LevelInfo,
	debug:   make(map[string]bool),
	loggers: make(map[string]*logger),
}

// NewLogger creates, or returns the already existing, Logger for source.
func NewLogger(source string) Logger {
	source = strings.Trim(source, "[] ")

	reg.Lock()
	defer reg.Unlock()

	if l, ok := reg.loggers[source]; ok {
		return l
	}

	l := &logger{source: source}
	reg.loggers[source] = l

	return l
}

// Get is an alias for NewLogger, for symmetry with EnableDebug/DebugEnabled lookups.
func Get(source string) Logger {
	return NewLogger(source)
}

// SetLevel sets the process-wide lowest unsuppressed severity.
func SetLevel(l Level) {
	reg.Lock()
	defer reg.Unlock()
	reg.level = l
}

// EnableDebug enables/disables debug logging for this source, returning the old state.
func (l *logger) EnableDebug(state bool) bool {
	reg.Lock()
	defer reg.Unlock()

	old := reg.debug[l.source]
	reg.debug[l.source] = state

	return old
}

// DebugEnabled checks if debug logging is enabled for this source.
func (l *logger) DebugEnabled() bool {
	reg.RLock()
	defer reg.RUnlock()

	if reg.allDbg {
		return true
	}

	return reg.debug[l.source]
}

// Source returns the source name for this logger.
func (l *logger) Source() string {
	return l.source
}

func (l *logger) emit(level Level, prefix, format string, args ...interface{}) {
	tag := map[Level]string{
		LevelDebug: "D",
		LevelInfo:  "I",
		LevelWarn:  "W",
		LevelError: "E",
	}[level]

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s: [%s] %s%s\n", tag, l.source, prefix, msg)
}

func (l *logger) passes(level Level) bool {
	reg.RLock()
	defer reg.RUnlock()

	if level == LevelDebug {
		return reg.allDbg || reg.debug[l.source]
	}

	return level >= reg.level
}

// Debug emits a debug message.
func (l *logger) Debug(format string, args ...interface{}) {
	if l.passes(LevelDebug) {
		l.emit(LevelDebug, "", format, args...)
	}
}

// Info emits an informational message.
func (l *logger) Info(format string, args ...interface{}) {
	if l.passes(LevelInfo) {
		l.emit(LevelInfo, "", format, args...)
	}
}

// Warn emits a warning message.
func (l *logger) Warn(format string, args ...interface{}) {
	if l.passes(LevelWarn) {
		l.emit(LevelWarn, "", format, args...)
	}
}

// Error emits an error message.
func (l *logger) Error(format string, args ...interface{}) {
	if l.passes(LevelError) {
		l.emit(LevelError, "", format, args...)
	}
}

// Fatal emits an error message then os.Exit(1)'s.
func (l *logger) Fatal(format string, args ...interface{}) {
	l.emit(LevelError, "FATAL: ", format, args...)
	os.Exit(1)
}

// Panic emits an error message then panics.
func (l *logger) Panic(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.emit(LevelError, "PANIC: ", "%s", msg)
	panic(l.source + ": " + msg)
}
