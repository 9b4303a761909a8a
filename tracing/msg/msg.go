// Package msgtracing adds opentracing support to publishers.
package msgtracing

import (
	"context"

	ot "github.com/opentracing/opentracing-go"
	otext "github.com/opentracing/opentracing-go/ext"

	"github.com/huangjunwen/rowpub/msg"
	"github.com/huangjunwen/rowpub/tracing"
)

// WrapMsgPublisher adds opentracing support for MsgPublisher: a producer span
// (child of the span in ctx) per message, its context is injected into message
// attributes. Nothing is traced if ctx has no span.
func WrapMsgPublisher(tracer ot.Tracer) msg.MsgPublisherMiddleware {
	return func(next msg.MsgPublisherFunc) msg.MsgPublisherFunc {
		return func(ctx context.Context, topic msg.Topic, m *msg.Message) (err error) {
			parentSpanCtx := tracing.SpanCtxFromCtx(ctx)
			if parentSpanCtx == nil {
				return next(ctx, topic, m)
			}

			span := tracer.StartSpan(
				PublisherOpName(topic),
				ot.ChildOf(parentSpanCtx),
				otext.SpanKindProducer,
				PublisherComponentTag,
			)
			defer func() {
				tracing.SetSpanError(span, err)
				span.Finish()
			}()

			m.Attributes, err = tracing.InjectSpanCtx(tracer, span.Context(), m.Attributes)
			if err != nil {
				return
			}

			err = next(ot.ContextWithSpan(ctx, span), topic, m)
			return
		}
	}
}

// WrapMsgAsyncPublisher adds opentracing support for MsgAsyncPublisher. The
// span follows the span in ctx since this is an async op, and finishes when
// the publish result is known.
func WrapMsgAsyncPublisher(tracer ot.Tracer) msg.MsgAsyncPublisherMiddleware {
	return func(next msg.MsgAsyncPublisherFunc) msg.MsgAsyncPublisherFunc {
		return func(ctx context.Context, topic msg.Topic, m *msg.Message, cb func(error)) (err error) {
			parentSpanCtx := tracing.SpanCtxFromCtx(ctx)
			if parentSpanCtx == nil {
				return next(ctx, topic, m, cb)
			}

			span := tracer.StartSpan(
				AsyncPublisherOpName(topic),
				ot.FollowsFrom(parentSpanCtx),
				otext.SpanKindProducer,
				AsyncPublisherComponentTag,
			)
			fin := func(err error) {
				tracing.SetSpanError(span, err)
				span.Finish()
			}

			m.Attributes, err = tracing.InjectSpanCtx(tracer, span.Context(), m.Attributes)
			if err != nil {
				fin(err)
				return
			}

			if err = next(ot.ContextWithSpan(ctx, span), topic, m, func(cbErr error) {
				fin(cbErr)
				cb(cbErr)
			}); err != nil {
				fin(err)
			}
			return
		}
	}
}
