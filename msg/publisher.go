package msg

import (
	"context"
)

// MsgPublisher is used to publish messages reliably, e.g. at least once delivery.
type MsgPublisher interface {
	// Publish publishes a message to the given topic. It returns nil if success.
	Publish(ctx context.Context, topic Topic, m *Message) error
}

// MsgPublisherFunc is an adapter to allow the use of ordinary functions as MsgPublisher.
type MsgPublisherFunc func(context.Context, Topic, *Message) error

// MsgPublisherMiddleware wraps MsgPublisherFunc into another one.
type MsgPublisherMiddleware func(MsgPublisherFunc) MsgPublisherFunc

// TopicValidator is optionally implemented by publishers to check a topic
// before any message is published.
type TopicValidator interface {
	ValidateTopic(ctx context.Context, topic Topic) error
}

var (
	_ MsgPublisher = (MsgPublisherFunc)(nil)
)

// Publish implements MsgPublisher interface.
func (fn MsgPublisherFunc) Publish(ctx context.Context, topic Topic, m *Message) error {
	return fn(ctx, topic, m)
}

// NewMsgPublisherWithMWs wraps a MsgPublisher with middlewares.
func NewMsgPublisherWithMWs(publisher MsgPublisher, mws ...MsgPublisherMiddleware) MsgPublisherFunc {
	p := publisher.Publish
	for i := len(mws) - 1; i >= 0; i-- {
		p = mws[i](p)
	}
	return MsgPublisherFunc(p)
}
