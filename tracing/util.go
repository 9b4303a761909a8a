// Package tracing contains opentracing helpers. Span contexts travel in
// message attributes.
package tracing

import (
	"context"

	ot "github.com/opentracing/opentracing-go"
	otext "github.com/opentracing/opentracing-go/ext"
)

// SpanCtxFromCtx gets span context from context. Returns nil if there is no span set.
func SpanCtxFromCtx(ctx context.Context) ot.SpanContext {
	if span := ot.SpanFromContext(ctx); span != nil {
		return span.Context()
	}
	return nil
}

// InjectSpanCtx adds span context to attributes. A new map is created if `attrs` is nil.
func InjectSpanCtx(tracer ot.Tracer, spanCtx ot.SpanContext, attrs map[string]string) (map[string]string, error) {
	if attrs == nil {
		attrs = make(map[string]string)
	}
	if err := tracer.Inject(spanCtx, ot.TextMap, ot.TextMapCarrier(attrs)); err != nil {
		return nil, err
	}
	return attrs, nil
}

// ExtractSpanCtx extracts span context from attributes or nil if not found.
func ExtractSpanCtx(tracer ot.Tracer, attrs map[string]string) (ot.SpanContext, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	spanCtx, err := tracer.Extract(ot.TextMap, ot.TextMapCarrier(attrs))
	if err == ot.ErrSpanContextNotFound {
		return nil, nil
	}
	return spanCtx, err
}

// SetSpanError set error on the span. If `err` is nil, then nop.
func SetSpanError(span ot.Span, err error) {
	if err != nil {
		otext.Error.Set(span, true)
		span.SetTag("error.message", err.Error())
	}
}
