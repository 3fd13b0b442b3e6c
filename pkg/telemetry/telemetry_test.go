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
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	return recorder
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestWithSpan_Success(t *testing.T) {
	recorder := installRecorder(t)

	err := WithSpan(context.Background(), "skills.list", func(ctx context.Context) error {
		SetAttributes(ctx, attribute.Int("skills.count", 3))
		return nil
	}, attribute.String("skills.owner", "anthropics"))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "skills.list", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("skills.owner", "anthropics"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("skills.count", 3))
}

func TestWithSpan_Error(t *testing.T) {
	recorder := installRecorder(t)

	want := errors.New("skill folder missing")
	err := WithSpan(context.Background(), "skills.files", func(context.Context) error {
		return want
	})
	assert.Equal(t, want, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "skill folder missing", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestRecordError(t *testing.T) {
	recorder := installRecorder(t)

	ctx, span := Tracer("").Start(context.Background(), "GET /api/download/{id}")
	RecordError(ctx, errors.New("zip write failed"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name          string
		config        Config
		description   string
		expectedError string
	}{
		{name: "always", config: Config{SamplerType: "always"}, description: sdktrace.AlwaysSample().Description()},
		{name: "never", config: Config{SamplerType: "never"}, description: sdktrace.NeverSample().Description()},
		{name: "ratio", config: Config{SamplerType: "ratio", SamplerRatio: 0.5}, description: "TraceIDRatioBased{0.5}"},
		{name: "empty means ratio", config: Config{SamplerRatio: 0.25}, description: "TraceIDRatioBased{0.25}"},
		{name: "ratio out of range", config: Config{SamplerType: "ratio", SamplerRatio: 1.5}, expectedError: "tracing ratio must be between 0 and 1, got 1.5"},
		{name: "unknown", config: Config{SamplerType: "sometimes"}, expectedError: `unknown tracing sampler "sometimes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler, err := newSampler(tt.config)
			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
				assert.ErrorContains(t, tt.config.Validate(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, sampler.Description(), tt.description)
		})
	}
}

func TestInitTracer_RejectsBadSampler(t *testing.T) {
	_, err := InitTracer(context.Background(), Config{Enabled: true, SamplerType: "sometimes"})
	assert.ErrorContains(t, err, "unknown tracing sampler")
}
