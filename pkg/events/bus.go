// Package events carries the boot run's progress over an in-memory
// watermill bus: phase transitions, probe attempts and process exits are
// published as JSON envelopes that the NDJSON printer and the TUI both
// consume.
package events

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	gochannel "github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
)

type Bus struct {
	Router     *message.Router
	Publisher  message.Publisher
	Subscriber message.Subscriber

	runOnce sync.Once
}

func NewInMemoryBus() (*Bus, error) {
	logger := watermill.NopLogger{}
	// Publishers are synchronous hooks on the boot loop; blocking until the
	// subscriber acks keeps events in publish order on the wire.
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            1024,
		BlockPublishUntilSubscriberAck: true,
	}, logger)

	r, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "new watermill router")
	}
	return &Bus{
		Router:     r,
		Publisher:  pubsub,
		Subscriber: pubsub,
	}, nil
}

func (b *Bus) AddHandler(name, topic string, handler func(*message.Message) error) {
	b.Router.AddConsumerHandler(name, topic, b.Subscriber, handler)
}

// PublishEnvelope wraps payload in an Envelope and publishes it on topic.
func (b *Bus) PublishEnvelope(topic, typ string, payload any) error {
	env, err := NewEnvelope(typ, payload)
	if err != nil {
		return err
	}
	bts, err := env.MarshalJSONBytes()
	if err != nil {
		return err
	}
	if err := b.Publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), bts)); err != nil {
		return errors.Wrapf(err, "publish %s", typ)
	}
	return nil
}

// Run blocks until ctx is cancelled, then closes the router. Handlers
// must be registered before calling Run.
func (b *Bus) Run(ctx context.Context) error {
	var runErr error
	b.runOnce.Do(func() {
		go func() {
			<-ctx.Done()
			_ = b.Router.Close()
		}()
		runErr = b.Router.Run(ctx)
	})
	return runErr
}
