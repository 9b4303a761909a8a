package msgtracing

import (
	"context"
	"errors"
	"testing"

	ot "github.com/opentracing/opentracing-go"
	otext "github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"

	"github.com/huangjunwen/rowpub/msg"
	"github.com/huangjunwen/rowpub/tracing"
)

func TestWrapMsgAsyncPublisher(t *testing.T) {
	assert := assert.New(t)

	tracer := mocktracer.New()
	topic := msg.MustParseTopic("projects/my-project/topics/rows")
	errPublish := errors.New("publish failed")

	for i, testCase := range []*struct {
		WithParent  bool
		PublishErr  error
		ExpectSpans int
	}{
		{true, nil, 1},
		{true, errPublish, 1},
		{false, nil, 0},
	} {
		tracer.Reset()

		var got *msg.Message
		base := msg.MsgAsyncPublisherFunc(func(ctx context.Context, topic msg.Topic, m *msg.Message, cb func(error)) error {
			got = m
			go cb(testCase.PublishErr)
			return nil
		})
		p := msg.NewMsgAsyncPublisherWithMWs(base, WrapMsgAsyncPublisher(tracer))

		ctx := context.Background()
		var parent ot.Span
		if testCase.WithParent {
			parent = tracer.StartSpan("run")
			ctx = ot.ContextWithSpan(ctx, parent)
		}

		m := &msg.Message{Data: []byte("{}")}
		m.SetAttribute("rowpub-id", "x")
		err := p.Publish(ctx, topic, m)
		assert.Equal(testCase.PublishErr, err, "test case %d", i)

		spans := tracer.FinishedSpans()
		assert.Len(spans, testCase.ExpectSpans, "test case %d", i)
		assert.Equal("x", got.Attribute("rowpub-id"), "test case %d", i)
		if testCase.ExpectSpans == 0 {
			assert.Len(got.Attributes, 1, "test case %d", i)
			continue
		}

		span := spans[0]
		assert.Equal(AsyncPublisherOpName(topic), span.OperationName, "test case %d", i)
		assert.Equal(otext.SpanKindProducer.Value, span.Tag("span.kind"), "test case %d", i)
		assert.Equal(parent.(*mocktracer.MockSpan).SpanContext.SpanID, span.ParentID, "test case %d", i)
		if testCase.PublishErr != nil {
			assert.Equal(true, span.Tag("error"), "test case %d", i)
		} else {
			assert.Nil(span.Tag("error"), "test case %d", i)
		}

		// The injected span context is the publish span.
		spanCtx, err := tracing.ExtractSpanCtx(tracer, got.Attributes)
		assert.NoError(err, "test case %d", i)
		assert.Equal(span.SpanContext.SpanID, spanCtx.(mocktracer.MockSpanContext).SpanID, "test case %d", i)
	}
}

func TestWrapMsgPublisher(t *testing.T) {
	assert := assert.New(t)

	tracer := mocktracer.New()
	topic := msg.MustParseTopic("projects/my-project/topics/rows")

	var got *msg.Message
	p := msg.NewMsgPublisherWithMWs(
		msg.MsgPublisherFunc(func(ctx context.Context, topic msg.Topic, m *msg.Message) error {
			got = m
			return nil
		}),
		WrapMsgPublisher(tracer),
	)

	parent := tracer.StartSpan("run")
	ctx := ot.ContextWithSpan(context.Background(), parent)
	assert.NoError(p.Publish(ctx, topic, &msg.Message{}))

	spans := tracer.FinishedSpans()
	assert.Len(spans, 1)
	assert.Equal(PublisherOpName(topic), spans[0].OperationName)
	assert.Equal("rowpub.publisher", spans[0].Tag("component"))
	assert.NotEmpty(got.Attributes)
}

func TestExtractSpanCtx(t *testing.T) {
	assert := assert.New(t)
	tracer := mocktracer.New()

	spanCtx, err := tracing.ExtractSpanCtx(tracer, nil)
	assert.NoError(err)
	assert.Nil(spanCtx)

	spanCtx, err = tracing.ExtractSpanCtx(tracer, map[string]string{"a": "b"})
	assert.NoError(err)
	assert.Nil(spanCtx)
}
