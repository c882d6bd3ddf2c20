// Package sdklog re-exports the structured logging contract that every
// resilience, token, and webhook component accepts as an optional field.
// A nil Logger is always safe to pass - every call site in this module
// guards on it before logging, the same nil-is-a-no-op convention the
// teacher codebase uses for its own Logger field.
package sdklog

import glog "github.com/goliatone/go-logger/glog"

// Logger is the structured logging interface threaded through the
// substrate: Debug/Info/Warn/Error(msg string, args ...any).
type Logger = glog.Logger

// LoggerProvider resolves a Logger by name, mirroring the teacher's
// multi-logger wiring for per-component log streams.
type LoggerProvider = glog.LoggerProvider

// FieldsLogger is the optional capability a Logger may additionally
// implement to attach structured fields ahead of a message.
type FieldsLogger = glog.FieldsLogger
