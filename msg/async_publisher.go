package msg

import (
	"context"
)

// MsgAsyncPublisher is similar to MsgPublisher but in async manner. It's trivial
// to implement MsgPublisher, see MsgAsyncPublisherFunc.
type MsgAsyncPublisher interface {
	// PublishAsync publishes a message to the given topic asynchronously.
	// The final result is returned by `cb` if PublishAsync returns nil.
	// `cb` must be called exactly once in this case.
	PublishAsync(ctx context.Context, topic Topic, m *Message, cb func(error)) error
}

// MsgAsyncPublisherFunc is an adapter to allow the use of ordinary functions as MsgAsyncPublisher.
type MsgAsyncPublisherFunc func(context.Context, Topic, *Message, func(error)) error

// MsgAsyncPublisherMiddleware wraps MsgAsyncPublisherFunc into another one.
type MsgAsyncPublisherMiddleware func(MsgAsyncPublisherFunc) MsgAsyncPublisherFunc

var (
	_ MsgPublisher      = (MsgAsyncPublisherFunc)(nil)
	_ MsgAsyncPublisher = (MsgAsyncPublisherFunc)(nil)
)

// Publish implements MsgPublisher interface.
func (fn MsgAsyncPublisherFunc) Publish(ctx context.Context, topic Topic, m *Message) error {
	var (
		err  error
		errc = make(chan struct{})
	)
	if err1 := fn(ctx, topic, m, func(err2 error) {
		err = err2
		close(errc)
	}); err1 != nil {
		return err1
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-errc:
		return err
	}
}

// PublishAsync implements MsgAsyncPublisher interface.
func (fn MsgAsyncPublisherFunc) PublishAsync(ctx context.Context, topic Topic, m *Message, cb func(error)) error {
	return fn(ctx, topic, m, cb)
}

// NewMsgAsyncPublisherWithMWs wraps a MsgAsyncPublisher with middlewares.
func NewMsgAsyncPublisherWithMWs(publisher MsgAsyncPublisher, mws ...MsgAsyncPublisherMiddleware) MsgAsyncPublisherFunc {
	p := publisher.PublishAsync
	for i := len(mws) - 1; i >= 0; i-- {
		p = mws[i](p)
	}
	return MsgAsyncPublisherFunc(p)
}

// SyncAsyncPublisher turns a MsgPublisher into a MsgAsyncPublisher by running
// each Publish in its own goroutine.
func SyncAsyncPublisher(publisher MsgPublisher) MsgAsyncPublisherFunc {
	return func(ctx context.Context, topic Topic, m *Message, cb func(error)) error {
		go func() {
			cb(publisher.Publish(ctx, topic, m))
		}()
		return nil
	}
}
