// Package otel turns eventbus telemetry events into OpenTelemetry spans.
package otel

import (
	"context"
	"strconv"
	"sync"

	cachemeta "github.com/hanpama/sdlresolver/internal/cachemeta"
	eventbus "github.com/hanpama/sdlresolver/internal/eventbus"
	events "github.com/hanpama/sdlresolver/internal/events"
	reqid "github.com/hanpama/sdlresolver/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures an OTLP exporter and attaches span subscribers to the
// global bus. If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	detach := Attach(nil, otel.Tracer("sdlresolver"))
	return func(ctx context.Context) error {
		detach()
		return tp.Shutdown(ctx)
	}, nil
}

// Attach subscribes span handlers to b, or to the global bus when b is nil.
func Attach(b *eventbus.Bus, tracer trace.Tracer) (detach func()) {
	s := &subscriber{tracer: tracer}
	return s.register(b)
}

type subscriber struct {
	tracer        trace.Tracer
	httpSpans     sync.Map // rid -> trace.Span
	gqlSpans      sync.Map // rid -> trace.Span
	producerSpans sync.Map // invocation -> trace.Span
}

func on[T any](b *eventbus.Bus, h eventbus.Handler[T]) func() {
	if b == nil {
		return eventbus.Subscribe(h)
	}
	return eventbus.On(b, h)
}

// parent returns ctx carrying the innermost open span of its request.
func (s *subscriber) parent(ctx context.Context) context.Context {
	rid, _ := reqid.FromContext(ctx)
	if v, ok := s.gqlSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	if v, ok := s.httpSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func cacheAttributes(m cachemeta.Metadata) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("cache.max_age", m.MaxAge),
		attribute.StringSlice("cache.tags", m.Tags),
		attribute.StringSlice("cache.contexts", m.Contexts),
	}
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *subscriber) register(b *eventbus.Bus) func() {
	unsubs := []func(){
		on(b, func(ctx context.Context, e events.RequestStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Method),
				attribute.String("http.target", e.Path),
				attribute.String("http.request_id", reqid.Format(rid)),
			)
			s.httpSpans.Store(rid, span)
		}),

		on(b, func(ctx context.Context, e events.RequestFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			span.SetAttributes(cacheAttributes(e.Cache)...)
			span.End()
		}),

		on(b, func(ctx context.Context, e events.OperationStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx), "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
				attribute.String("graphql.document.hash", strconv.FormatUint(e.Document, 16)),
			)
			s.gqlSpans.Store(rid, span)
		}),

		on(b, func(ctx context.Context, e events.OperationFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.gqlSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
			span.SetAttributes(cacheAttributes(e.Cache)...)
			if len(e.Errors) > 0 {
				span.SetStatus(codes.Error, e.Errors[0].Error())
			}
			span.End()
		}),

		on(b, func(ctx context.Context, e events.ProducerStart) {
			_, span := s.tracer.Start(s.parent(ctx), "producer."+e.Producer)
			span.SetAttributes(
				attribute.String("producer.id", e.Producer),
				attribute.String("graphql.field", e.Type+"."+e.Field),
			)
			s.producerSpans.Store(e.Invocation, span)
		}),

		on(b, func(ctx context.Context, e events.ProducerFinish) {
			v, ok := s.producerSpans.LoadAndDelete(e.Invocation)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Bool("producer.deferred", e.Deferred))
			finish(span, e.Err)
		}),

		on(b, func(ctx context.Context, e events.LoaderFlush) {
			_, span := s.tracer.Start(s.parent(ctx), "loader.flush", trace.WithTimestamp(e.Start))
			span.SetAttributes(
				attribute.String("loader.entity_type", e.EntityType),
				attribute.Int("loader.requested", e.Requested),
				attribute.Int("loader.found", e.Found),
			)
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End(trace.WithTimestamp(e.Start.Add(e.Duration)))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
