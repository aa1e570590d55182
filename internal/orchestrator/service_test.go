package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/docgateway/internal/config"
	"stealthcompany.com/docgateway/internal/couchbase"
	"stealthcompany.com/docgateway/internal/docstore"
	"stealthcompany.com/docgateway/internal/docstore/memstore"
)

func TestNewConnector(t *testing.T) {
	tests := []struct {
		name      string
		driver    string
		expectErr bool
		check     func(t *testing.T, c docstore.Connector)
	}{
		{
			name:   "couchbase driver",
			driver: config.DriverCouchbase,
			check: func(t *testing.T, c docstore.Connector) {
				assert.IsType(t, &couchbase.Connector{}, c)
			},
		},
		{
			name:   "memory driver",
			driver: config.DriverMemory,
			check: func(t *testing.T, c docstore.Connector) {
				assert.IsType(t, &memstore.Connector{}, c)
			},
		},
		{name: "unknown driver", driver: "mongo", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConnector(config.Settings{Driver: tt.driver, ConnectTimeout: time.Second})
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestServiceMemoryRoundTrip(t *testing.T) {
	props := config.StaticProperties{
		config.KeyNodes:    "local",
		config.KeyUsername: "dev",
		config.KeyPassword: "dev",
	}
	svc, err := NewService(props, config.Settings{Driver: config.DriverMemory})
	require.NoError(t, err)
	defer svc.Close()

	svc.Warmup(context.Background(), time.Second)

	ctx := context.Background()
	_, err = svc.Gateway.Execute(ctx, "k", "b", map[string]any{"x": "y"}, docstore.OpUpsert)
	require.NoError(t, err)

	res, err := svc.Gateway.Execute(ctx, "k", "b", nil, docstore.OpGet)
	require.NoError(t, err)
	assert.Equal(t, "y", res.Document.Content["x"])
}

func TestHandleSignalsStopsWithParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := NewSignalHandler().HandleSignals(parent)
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with parent")
	}
}
