package tui

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/bootgate/pkg/events"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/pkg/errors"
)

// RegisterDomainToUITransformer turns boot events into UI messages: run
// snapshots pass through, everything else becomes event log text.
func RegisterDomainToUITransformer(bus *events.Bus) {
	bus.AddHandler("bootgate-domain-to-ui", events.TopicBootEvents, func(msg *message.Message) error {
		defer msg.Ack()

		var env events.Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return errors.Wrap(err, "unmarshal domain envelope")
		}

		appendEvent := func(at time.Time, source string, level LogLevel, text string) error {
			entry := EventLogEntry{At: at, Source: source, Level: level, Text: text}
			return bus.PublishEnvelope(events.TopicUIMessages, events.UITypeEventAppend, entry)
		}

		switch env.Type {
		case events.DomainTypeRunSnapshot:
			var snap events.RunSnapshot
			if err := json.Unmarshal(env.Payload, &snap); err != nil {
				return errors.Wrap(err, "unmarshal run snapshot")
			}
			// Snapshots arrive every tick; forward them without echoing
			// into the event log.
			return bus.PublishEnvelope(events.TopicUIMessages, events.UITypeRunSnapshot, snap)

		case events.DomainTypePhaseChanged:
			var ev events.PhaseChanged
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return errors.Wrap(err, "unmarshal phase change")
			}
			text := fmt.Sprintf("phase: %s -> %s", ev.From, ev.To)
			if ev.Cause != "" {
				text = fmt.Sprintf("%s (%s)", text, ev.Cause)
			}
			level := LogLevelInfo
			if ev.Cause != "" {
				level = LogLevelError
			}
			return appendEvent(ev.At, "boot", level, text)

		case events.DomainTypeProbeAttempt:
			var ev events.ProbeAttempt
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return errors.Wrap(err, "unmarshal probe attempt")
			}
			text := fmt.Sprintf("probe #%d: %s", ev.Attempt, ev.Status)
			if ev.Reason != "" {
				text = fmt.Sprintf("%s (%s)", text, ev.Reason)
			}
			level := LogLevelDebug
			if ev.Status == string(probe.StatusReady) {
				level = LogLevelInfo
			}
			return appendEvent(ev.At, "probe", level, text)

		case events.DomainTypeProcessStarted:
			var ev events.ProcessStarted
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return errors.Wrap(err, "unmarshal process start")
			}
			return appendEvent(ev.At, ev.Role, LogLevelInfo,
				fmt.Sprintf("started %s pid=%d", ev.Name, ev.PID))

		case events.DomainTypeProcessExited:
			var ev events.ProcessExited
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return errors.Wrap(err, "unmarshal process exit")
			}
			var text string
			switch {
			case ev.Signaled:
				text = fmt.Sprintf("%s pid=%d killed by %s", ev.Name, ev.PID, ev.Signal)
			case ev.Code >= 0:
				text = fmt.Sprintf("%s pid=%d exited code=%d", ev.Name, ev.PID, ev.Code)
			default:
				text = fmt.Sprintf("%s pid=%d gone", ev.Name, ev.PID)
			}
			level := LogLevelWarn
			if !ev.Signaled && ev.Code == 0 {
				level = LogLevelInfo
			}
			return appendEvent(ev.At, ev.Role, level, text)

		case events.DomainTypeRunFinished:
			var ev events.RunFinished
			if err := json.Unmarshal(env.Payload, &ev); err != nil {
				return errors.Wrap(err, "unmarshal run finished")
			}
			text := fmt.Sprintf("run finished: %s (exit %d)", ev.Phase, ev.ExitCode)
			if ev.Cause != "" {
				text = fmt.Sprintf("run aborted: %s (exit %d)", ev.Cause, ev.ExitCode)
			}
			level := LogLevelInfo
			if ev.Cause != "" {
				level = LogLevelError
			}
			return appendEvent(ev.At, "boot", level, text)

		default:
			return nil
		}
	})
}
