package tracer

import (
	"context"
	"testing"

	"query-responder-be/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer_DisabledIsNoop(t *testing.T) {
	shutdown := InitTracer(config.TracingConfig{Enabled: false})
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		protocol string
		wantErr  bool
	}{
		{"stdout", false},
		{"http", false},
		{"grpc", false},
		{"carrier-pigeon", true},
	}
	for _, tt := range tests {
		t.Run(tt.protocol, func(t *testing.T) {
			exp, err := newExporter(context.Background(), config.TracingConfig{Protocol: tt.protocol, Endpoint: "localhost:4318"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, exp.Shutdown(context.Background()))
		})
	}
}
