package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit_Disabled(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")
	core, logs := observer.New(zap.InfoLevel)

	shutdown, err := Init(context.Background(), zap.New(core))
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	entries := logs.FilterMessage("tracing_configured").AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, false, entries[0].ContextMap()["tracing_enabled"])
	assert.Equal(t, "tracing", entries[0].ContextMap()["component"])
}

func TestInit_UnsupportedProtocolDegrades(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")
	core, logs := observer.New(zap.InfoLevel)

	shutdown, err := Init(context.Background(), zap.New(core))
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	entries := logs.FilterMessage("tracing_init_failed").AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "carrier-pigeon", entries[0].ContextMap()["otlp_protocol"])
	assert.Zero(t, logs.FilterMessage("tracing_configured").Len())
}

func TestNewExporter_Unsupported(t *testing.T) {
	exp, err := newExporter(context.Background(), "thrift")
	assert.Nil(t, exp)
	assert.ErrorContains(t, err, `"thrift"`)
}

func TestGetSampler(t *testing.T) {
	tests := []struct {
		name    string
		sampler string
		arg     string
		want    trace.Sampler
	}{
		{name: "always on", sampler: "always_on", want: trace.AlwaysSample()},
		{name: "always off", sampler: "always_off", want: trace.NeverSample()},
		{name: "ratio", sampler: "traceidratio", arg: "0.5", want: trace.TraceIDRatioBased(0.5)},
		{name: "ratio out of range", sampler: "traceidratio", arg: "7", want: trace.TraceIDRatioBased(1)},
		{name: "ratio garbage", sampler: "traceidratio", arg: "half", want: trace.TraceIDRatioBased(1)},
		{name: "parent based ratio", sampler: "parentbased_traceidratio", arg: "0.25", want: trace.ParentBased(trace.TraceIDRatioBased(0.25))},
		{name: "parent based off", sampler: "parentbased_always_off", want: trace.ParentBased(trace.NeverSample())},
		{name: "unset", want: trace.ParentBased(trace.AlwaysSample())},
		{name: "unknown", sampler: "jaeger_remote", want: trace.ParentBased(trace.AlwaysSample())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_TRACES_SAMPLER", tt.sampler)
			t.Setenv("OTEL_TRACES_SAMPLER_ARG", tt.arg)
			assert.Equal(t, tt.want.Description(), getSampler().Description())
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("FILEVAULT_TEST_SET", "x")
	t.Setenv("FILEVAULT_TEST_EMPTY", "")

	assert.Equal(t, "x", getEnv("FILEVAULT_TEST_SET", "d"))
	assert.Equal(t, "d", getEnv("FILEVAULT_TEST_EMPTY", "d"))
	assert.Equal(t, "d", getEnv("FILEVAULT_TEST_UNSET", "d"))
}
