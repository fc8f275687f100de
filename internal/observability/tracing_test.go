package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"quizengine/internal/config"
)

// Exporter construction must not require an insecure endpoint; OTLP
// exporters only contact the collector on export, so init succeeds for
// both transport security settings.
func TestInitStandardTracing_EndpointSecurity(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		insecure bool
	}{
		{name: "grpc secure", protocol: "grpc", insecure: false},
		{name: "grpc insecure", protocol: "grpc", insecure: true},
		{name: "http secure", protocol: "http", insecure: false},
		{name: "http insecure", protocol: "http", insecure: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.OpenTelemetryConfig{
				Endpoint:       "collector.example.com:4317",
				Protocol:       tt.protocol,
				Insecure:       tt.insecure,
				ServiceName:    "quiz-engine-test",
				ServiceVersion: "test",
				SamplingRate:   1.0,
			}

			tp, err := InitStandardTracing(cfg)
			require.NoError(t, err)
			require.NotNil(t, tp)

			sdkTP, ok := tp.(*sdktrace.TracerProvider)
			require.True(t, ok)
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			// No spans were recorded so shutdown has nothing to export
			_ = sdkTP.Shutdown(ctx)
		})
	}
}

func TestInitStandardTracing_UnsupportedProtocol(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		Endpoint:    "collector.example.com:4317",
		Protocol:    "udp",
		ServiceName: "quiz-engine-test",
	}

	tp, err := InitStandardTracing(cfg)
	assert.Error(t, err)
	assert.Nil(t, tp)
}
