package tui

import "github.com/go-go-golems/bootgate/pkg/events"

type RunSnapshotMsg struct {
	Snapshot events.RunSnapshot
}

type EventLogAppendMsg struct {
	Entry EventLogEntry
}

type NavigateToLogsMsg struct {
	Role string
}

type NavigateBackMsg struct{}
