// Package memqueue is a channel-based events.Stream, used by tests in
// place of NATS JetStream. Grounded on the teacher's pkg/events/stream.Chan.
package memqueue

import (
	"go-micro.dev/v4/events"
)

// Chan is an in-process events.Stream backed by one buffered channel
// (capacity 64) per topic: each published message is received by exactly
// one Consume-registered reader of that topic, not by all of them. Distinct
// topics get distinct channels from a map so multiple streams
// (NAS_FILE_SYNC, NAS_FOLDER_SYNC, ...) don't cross-talk in tests.
type Chan struct {
	topics map[string]chan []byte
}

// New returns an empty Chan stream.
func New() *Chan {
	return &Chan{topics: map[string]chan []byte{}}
}

func (c *Chan) topic(name string) chan []byte {
	ch, ok := c.topics[name]
	if !ok {
		ch = make(chan []byte, 64)
		c.topics[name] = ch
	}
	return ch
}

// Publish implements events.Stream.
func (c *Chan) Publish(topic string, msg interface{}, _ ...events.PublishOption) error {
	b, _ := msg.([]byte)
	go func() { c.topic(topic) <- b }()
	return nil
}

// Consume implements events.Stream.
func (c *Chan) Consume(topic string, _ ...events.ConsumeOption) (<-chan events.Event, error) {
	src := c.topic(topic)
	out := make(chan events.Event)
	go func() {
		for b := range src {
			out <- events.Event{Payload: b}
		}
	}()
	return out, nil
}
