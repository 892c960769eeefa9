package bus

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("message bus closed")

const defaultBuffer = 100

type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
	done     chan struct{}
	once     sync.Once
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, defaultBuffer),
		outbound: make(chan OutboundMessage, defaultBuffer),
		done:     make(chan struct{}),
	}
}

// PublishInbound queues msg for the concierge loop. It blocks while the
// buffer is full, until ctx is done or the bus is closed.
func (mb *MessageBus) PublishInbound(ctx context.Context, msg InboundMessage) error {
	select {
	case <-mb.done:
		return ErrClosed
	default:
	}
	select {
	case mb.inbound <- msg:
		return nil
	case <-mb.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsumeInbound returns the next inbound message. The bool is false when
// ctx is cancelled or the bus is closed.
func (mb *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-mb.inbound:
		return msg, true
	case <-mb.done:
		return InboundMessage{}, false
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

func (mb *MessageBus) PublishOutbound(ctx context.Context, msg OutboundMessage) error {
	select {
	case <-mb.done:
		return ErrClosed
	default:
	}
	select {
	case mb.outbound <- msg:
		return nil
	case <-mb.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubscribeOutbound returns the next outbound message. The bool is false
// when ctx is cancelled or the bus is closed.
func (mb *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg := <-mb.outbound:
		return msg, true
	case <-mb.done:
		return OutboundMessage{}, false
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

// Close wakes every blocked publisher and consumer. Later publishes fail
// with ErrClosed.
func (mb *MessageBus) Close() {
	mb.once.Do(func() {
		close(mb.done)
	})
}
