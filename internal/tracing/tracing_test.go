package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "", "lecture-indexer")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_WithEndpoint(t *testing.T) {
	// The exporter connects lazily, so no collector is needed here
	shutdown, err := InitTracer(context.Background(), "http://127.0.0.1:4318/v1/traces", "lecture-indexer")
	require.NoError(t, err)
	_ = shutdown(context.Background())
}
