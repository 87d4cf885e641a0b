package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Settings{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Enabled(t *testing.T) {
	// The gRPC exporter connects lazily, so no collector is needed here.
	shutdown, err := InitTracer(context.Background(), Settings{
		Enabled:     true,
		Endpoint:    "127.0.0.1:4317",
		ServiceName: "cinema-booking-core-test",
		Env:         "test",
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
