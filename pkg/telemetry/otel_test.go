package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/logflow/bpmnctx/pkg/config"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func TestSpans(t *testing.T) {
	recorder := recordSpans(t)

	ctx, span := Start(context.Background(), "map", attribute.String("document", "order.json"))
	SetSpanAttributes(ctx, attribute.Int("activities", 12))
	End(span, nil)

	_, failed := Start(ctx, "resolve")
	End(failed, errors.New("Unknown activity type acme:Robot"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "map", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("document", "order.json"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("activities", 12))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "resolve", spans[1].Name())
	assert.Equal(t, spans[0].SpanContext().TraceID(), spans[1].Parent().TraceID())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.Len(t, spans[1].Events(), 1)
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), FromConfig(config.Default().Telemetry, "dev"))
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}
