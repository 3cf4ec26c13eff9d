package styles

// Status icons
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "⚠"
	IconInfo    = "ℹ"
	IconRunning = "▶"
	IconPending = "○"
	IconGear    = "⚙"
	IconBullet  = "•"
	IconSystem  = "●"
)

// StatusIcon returns the icon for a process liveness state.
func StatusIcon(alive bool) string {
	if alive {
		return IconSuccess
	}
	return IconError
}

// PhaseIcon returns the icon for a boot phase.
func PhaseIcon(phase string) string {
	switch phase {
	case "init":
		return IconPending
	case "primary_starting", "dependent_running":
		return IconRunning
	case "waiting_for_ready":
		return IconGear
	case "done":
		return IconSuccess
	case "aborted":
		return IconError
	default:
		return IconBullet
	}
}

// LogLevelIcon returns the icon for a log level.
func LogLevelIcon(level string) string {
	switch level {
	case "error":
		return IconError
	case "warn", "warning":
		return IconWarning
	case "info":
		return IconInfo
	default:
		return IconBullet
	}
}
