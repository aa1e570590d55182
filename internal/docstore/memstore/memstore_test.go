package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/docgateway/internal/docstore"
)

func openBucket(t *testing.T) docstore.Bucket {
	t.Helper()
	conn := NewConnector(nil)
	cluster, err := conn.Connect(context.Background(), []string{"node-a"}, docstore.Credentials{})
	require.NoError(t, err)
	b, err := cluster.OpenBucket(context.Background(), "orders")
	require.NoError(t, err)
	return b
}

func TestBucketSemantics(t *testing.T) {
	ctx := context.Background()
	b := openBucket(t)

	first, err := b.Insert(ctx, "o-1", map[string]any{"qty": 1})
	require.NoError(t, err)
	assert.NotZero(t, first.CAS)

	_, err = b.Insert(ctx, "o-1", map[string]any{"qty": 2})
	assert.ErrorIs(t, err, docstore.ErrDocumentExists)

	second, err := b.Upsert(ctx, "o-1", map[string]any{"qty": 3})
	require.NoError(t, err)
	assert.Greater(t, second.CAS, first.CAS)

	got, err := b.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, float64(3), got.Content["qty"])
	assert.Equal(t, second.CAS, got.CAS)

	_, err = b.Remove(ctx, "o-1")
	require.NoError(t, err)

	_, err = b.Get(ctx, "o-1")
	assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
	_, err = b.Remove(ctx, "o-1")
	assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
}

func TestStoredContentIsCopied(t *testing.T) {
	ctx := context.Background()
	b := openBucket(t)

	payload := map[string]any{"name": "before"}
	_, err := b.Upsert(ctx, "p-1", payload)
	require.NoError(t, err)
	payload["name"] = "after"

	got, err := b.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "before", got.Content["name"])
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	conn := NewConnector(&docstore.Credentials{Username: "admin", Password: "pw"})

	_, err := conn.Connect(context.Background(), []string{"node-a"}, docstore.Credentials{Username: "admin", Password: "nope"})
	assert.ErrorIs(t, err, ErrAuthenticationFailure)

	_, err = conn.Connect(context.Background(), []string{"node-a"}, docstore.Credentials{Username: "admin", Password: "pw"})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), conn.Connects())
}

func TestClustersShareDataPerNodeList(t *testing.T) {
	ctx := context.Background()
	conn := NewConnector(nil)

	c1, err := conn.Connect(ctx, []string{"node-a", "node-b"}, docstore.Credentials{})
	require.NoError(t, err)
	c2, err := conn.Connect(ctx, []string{"node-a", "node-b"}, docstore.Credentials{})
	require.NoError(t, err)
	other, err := conn.Connect(ctx, []string{"node-z"}, docstore.Credentials{})
	require.NoError(t, err)

	b1, err := c1.OpenBucket(ctx, "shared")
	require.NoError(t, err)
	_, err = b1.Upsert(ctx, "k", map[string]any{"v": true})
	require.NoError(t, err)

	b2, err := c2.OpenBucket(ctx, "shared")
	require.NoError(t, err)
	_, err = b2.Get(ctx, "k")
	assert.NoError(t, err)

	b3, err := other.OpenBucket(ctx, "shared")
	require.NoError(t, err)
	_, err = b3.Get(ctx, "k")
	assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
}

func TestFailBuckets(t *testing.T) {
	conn := NewConnector(nil)
	conn.FailBuckets = map[string]bool{"broken": true}

	cluster, err := conn.Connect(context.Background(), []string{"node-a"}, docstore.Credentials{})
	require.NoError(t, err)
	_, err = cluster.OpenBucket(context.Background(), "broken")
	assert.Error(t, err)
}
