package tui

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/bootgate/pkg/events"
	"github.com/pkg/errors"
)

// RegisterUIForwarder feeds UI messages from the bus into the bubbletea
// program.
func RegisterUIForwarder(bus *events.Bus, p *tea.Program) {
	bus.AddHandler("bootgate-ui-forward", events.TopicUIMessages, func(msg *message.Message) error {
		defer msg.Ack()

		var env events.Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return errors.Wrap(err, "unmarshal ui envelope")
		}

		switch env.Type {
		case events.UITypeRunSnapshot:
			var snap events.RunSnapshot
			if err := json.Unmarshal(env.Payload, &snap); err != nil {
				return errors.Wrap(err, "unmarshal snapshot payload")
			}
			p.Send(RunSnapshotMsg{Snapshot: snap})
		case events.UITypeEventAppend:
			var entry EventLogEntry
			if err := json.Unmarshal(env.Payload, &entry); err != nil {
				return errors.Wrap(err, "unmarshal event payload")
			}
			p.Send(EventLogAppendMsg{Entry: entry})
		}
		return nil
	})
}
