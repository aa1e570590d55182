package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/docgateway/internal/config"
	"stealthcompany.com/docgateway/internal/docstore"
	"stealthcompany.com/docgateway/internal/docstore/memstore"
)

func validProps() config.StaticProperties {
	return config.StaticProperties{
		config.KeyNodes:    "cb1;cb2",
		config.KeyUsername: "gateway",
		config.KeyPassword: "secret",
	}
}

func newGateway(t *testing.T) (*docstore.Gateway, *memstore.Connector) {
	t.Helper()
	conn := memstore.NewConnector(&docstore.Credentials{Username: "gateway", Password: "secret"})
	return docstore.NewGateway(docstore.NewRegistry(conn), validProps()), conn
}

func TestExecuteLifecycle(t *testing.T) {
	gw, _ := newGateway(t)
	ctx := context.Background()
	payload := map[string]any{"name": "Ada"}

	res, err := gw.Execute(ctx, "user::1", "users", payload, docstore.OpCreate)
	require.NoError(t, err)
	assert.True(t, res.Found())
	assert.Equal(t, "user::1", res.Document.ID)

	res, err = gw.Execute(ctx, "user::1", "users", nil, docstore.OpGet)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "Ada", res.Document.Content["name"])

	res, err = gw.Execute(ctx, "user::1", "users", map[string]any{"name": "Grace"}, docstore.OpUpsert)
	require.NoError(t, err)
	assert.Equal(t, docstore.StatusOK, res.Status)

	res, err = gw.Execute(ctx, "user::1", "users", payload, docstore.OpRemove)
	require.NoError(t, err)
	assert.Equal(t, docstore.StatusOK, res.Status)

	res, err = gw.Execute(ctx, "user::1", "users", nil, docstore.OpGet)
	require.NoError(t, err)
	assert.Equal(t, docstore.StatusNotFound, res.Status)
	assert.False(t, res.Found())
}

func TestExecuteCreateExistingFailsUpsertSucceeds(t *testing.T) {
	gw, _ := newGateway(t)
	ctx := context.Background()

	_, err := gw.Execute(ctx, "k", "b", map[string]any{"v": 1}, docstore.OpCreate)
	require.NoError(t, err)

	res, err := gw.Execute(ctx, "k", "b", map[string]any{"v": 2}, docstore.OpCreate)
	require.Error(t, err)
	assert.Equal(t, docstore.Result{}, res)
	assert.True(t, docstore.IsKind(err, docstore.KindDocumentExists))
	assert.ErrorIs(t, err, docstore.ErrDocumentExists)

	res, err = gw.Execute(ctx, "k", "b", map[string]any{"v": 2}, docstore.OpUpsert)
	require.NoError(t, err)
	assert.True(t, res.Found())
}

func TestExecuteMissingDocuments(t *testing.T) {
	gw, _ := newGateway(t)
	ctx := context.Background()

	tests := []struct {
		name string
		op   docstore.Operation
	}{
		{name: "get missing", op: docstore.OpGet},
		{name: "remove missing", op: docstore.OpRemove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := gw.Execute(ctx, "absent", "b", map[string]any{"ignored": true}, tt.op)
			require.NoError(t, err)
			assert.Equal(t, docstore.StatusNotFound, res.Status)
			assert.Equal(t, "absent", res.Document.ID)
		})
	}
}

func TestExecuteUnknownOperation(t *testing.T) {
	gw, _ := newGateway(t)

	res, err := gw.Execute(context.Background(), "k", "b", nil, docstore.Operation("PATCH"))
	assert.Equal(t, docstore.Result{}, res)
	assert.False(t, res.Found())
	assert.ErrorIs(t, err, docstore.ErrUnknownOperation)
	assert.True(t, docstore.IsKind(err, docstore.KindUnknownOperation))
}

func TestExecuteMissingConfigMakesNoNetworkCall(t *testing.T) {
	keys := []string{config.KeyNodes, config.KeyUsername, config.KeyPassword}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			props := validProps()
			delete(props, key)

			conn := memstore.NewConnector(nil)
			gw := docstore.NewGateway(docstore.NewRegistry(conn), props)

			_, err := gw.Execute(context.Background(), "k", "b", nil, docstore.OpGet)
			require.ErrorIs(t, err, config.ErrMissingProperty)
			assert.Contains(t, err.Error(), key)
			assert.Zero(t, conn.Connects())
			assert.Zero(t, conn.BucketOpens())
		})
	}
}

func TestExecuteReusesHandles(t *testing.T) {
	gw, conn := newGateway(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := gw.Execute(ctx, "k", "b", map[string]any{"i": i}, docstore.OpUpsert)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), conn.Connects())
	assert.Equal(t, int64(1), conn.BucketOpens())
}

func TestExecuteBucketOpenFailure(t *testing.T) {
	conn := memstore.NewConnector(nil)
	conn.FailBuckets = map[string]bool{"locked": true}
	gw := docstore.NewGateway(docstore.NewRegistry(conn), validProps())

	_, err := gw.Execute(context.Background(), "k", "locked", nil, docstore.OpGet)
	assert.True(t, docstore.IsKind(err, docstore.KindBucketOpen))
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		in        string
		expected  docstore.Operation
		expectErr bool
	}{
		{in: "create", expected: docstore.OpCreate},
		{in: "UPSERT", expected: docstore.OpUpsert},
		{in: " Remove ", expected: docstore.OpRemove},
		{in: "get", expected: docstore.OpGet},
		{in: "merge", expectErr: true},
		{in: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			op, err := docstore.ParseOperation(tt.in)
			if tt.expectErr {
				assert.ErrorIs(t, err, docstore.ErrUnknownOperation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, op)
		})
	}
}
