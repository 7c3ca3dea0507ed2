package pubsub

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/flarexio/core/pubsub"
)

var ErrPubSubClosed = errors.New("pubsub closed")

// LocalPubSub delivers messages to subscribers in the same process. It backs
// the event store when no NATS server is configured.
//
// Topic wildcards follow the NATS flavour of the event bus:
// * matches exactly one word, # matches zero or more words.
type LocalPubSub struct {
	subscriptions map[string][]pubsub.MessageHandler
	closed        bool
	sync.RWMutex
}

func NewLocalPubSub() *LocalPubSub {
	return &LocalPubSub{
		subscriptions: make(map[string][]pubsub.MessageHandler),
	}
}

// Publish calls every matching subscriber in turn. Subscriber errors are not
// reported back to the publisher.
func (ps *LocalPubSub) Publish(topic string, data []byte) error {
	ps.RLock()
	if ps.closed {
		ps.RUnlock()
		return ErrPubSubClosed
	}

	handlers := make([]pubsub.MessageHandler, 0)
	for pattern, callbacks := range ps.subscriptions {
		if matchTopic(pattern, topic) {
			handlers = append(handlers, callbacks...)
		}
	}
	ps.RUnlock()

	ctx := context.Background()
	for _, handler := range handlers {
		msg := &pubsub.Message{
			Topic: topic,
			Data:  data,
		}

		handler(ctx, msg)
	}

	return nil
}

func (ps *LocalPubSub) Subscribe(topic string, callback pubsub.MessageHandler) error {
	ps.Lock()
	defer ps.Unlock()

	if ps.closed {
		return ErrPubSubClosed
	}

	ps.subscriptions[topic] = append(ps.subscriptions[topic], callback)
	return nil
}

func (ps *LocalPubSub) Close() error {
	ps.Lock()
	defer ps.Unlock()

	ps.closed = true
	ps.subscriptions = make(map[string][]pubsub.MessageHandler)
	return nil
}

func matchTopic(pattern string, topic string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(topic, "."))
}

func matchWords(pattern []string, topic []string) bool {
	if len(pattern) == 0 {
		return len(topic) == 0
	}

	switch pattern[0] {
	case "#":
		for i := 0; i <= len(topic); i++ {
			if matchWords(pattern[1:], topic[i:]) {
				return true
			}
		}
		return false

	case "*":
		return len(topic) > 0 && matchWords(pattern[1:], topic[1:])

	default:
		return len(topic) > 0 && pattern[0] == topic[0] && matchWords(pattern[1:], topic[1:])
	}
}
