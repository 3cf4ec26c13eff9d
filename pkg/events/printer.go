package events

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

// RegisterNDJSONPrinter subscribes to the boot event topic and writes
// each envelope as one JSON line to w. Register before Bus.Run.
func RegisterNDJSONPrinter(bus *Bus, w io.Writer) {
	enc := json.NewEncoder(w)
	var mu sync.Mutex

	bus.AddHandler("bootgate-ndjson-printer", TopicBootEvents, func(msg *message.Message) error {
		defer msg.Ack()

		var env Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return errors.Wrap(err, "unmarshal envelope")
		}

		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(env); err != nil {
			return errors.Wrap(err, "encode event")
		}
		return nil
	})
}
