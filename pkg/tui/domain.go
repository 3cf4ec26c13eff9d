package tui

import "time"

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// EventLogEntry is one line in the TUI event log.
type EventLogEntry struct {
	At     time.Time `json:"at"`
	Source string    `json:"source"`
	Level  LogLevel  `json:"level"`
	Text   string    `json:"text"`
}
