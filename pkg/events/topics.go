package events

const (
	TopicBootEvents = "bootgate.events"
	TopicUIMessages = "bootgate.ui.msgs"
)

const (
	DomainTypePhaseChanged   = "boot.phase.changed"
	DomainTypeProbeAttempt   = "boot.probe.attempt"
	DomainTypeProcessStarted = "boot.process.started"
	DomainTypeProcessExited  = "boot.process.exited"
	DomainTypeRunFinished    = "boot.run.finished"
	DomainTypeRunSnapshot    = "run.snapshot"
)

const (
	UITypeRunSnapshot = "tui.run.snapshot"
	UITypeEventAppend = "tui.event.append"
)
