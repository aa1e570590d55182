// Package memstore is an in-process document store with Couchbase-like key/value semantics.
// It backs local runs (STORE_DRIVER=memory) and the gateway tests.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"stealthcompany.com/docgateway/internal/docstore"
)

// ErrAuthenticationFailure is returned by Connect when credentials do not match
var ErrAuthenticationFailure = errors.New("authentication failure")

// Connector hands out clusters that share one in-memory data set per address list
type Connector struct {
	creds *docstore.Credentials

	// FailBuckets lists bucket names whose open always fails
	FailBuckets map[string]bool
	// Latency is added to every Connect and OpenBucket call
	Latency time.Duration

	connects    atomic.Int64
	bucketOpens atomic.Int64

	mu     sync.Mutex
	stores map[string]*store
}

// NewConnector creates a connector. When creds is non-nil, Connect rejects any other credentials.
func NewConnector(creds *docstore.Credentials) *Connector {
	return &Connector{
		creds:  creds,
		stores: make(map[string]*store),
	}
}

// Connects returns the number of Connect calls so far
func (c *Connector) Connects() int64 {
	return c.connects.Load()
}

// BucketOpens returns the number of OpenBucket calls so far across all clusters
func (c *Connector) BucketOpens() int64 {
	return c.bucketOpens.Load()
}

func (c *Connector) Connect(ctx context.Context, nodes []string, creds docstore.Credentials) (docstore.Cluster, error) {
	c.connects.Add(1)
	time.Sleep(c.Latency)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.creds != nil && *c.creds != creds {
		return nil, fmt.Errorf("user %q: %w", creds.Username, ErrAuthenticationFailure)
	}

	key := fmt.Sprint(nodes)
	c.mu.Lock()
	st, ok := c.stores[key]
	if !ok {
		st = &store{buckets: make(map[string]*Bucket)}
		c.stores[key] = st
	}
	c.mu.Unlock()

	return &Cluster{connector: c, store: st}, nil
}

type store struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

// Cluster is a connection to one in-memory data set
type Cluster struct {
	connector *Connector
	store     *store
	closed    atomic.Bool
}

func (c *Cluster) OpenBucket(ctx context.Context, name string) (docstore.Bucket, error) {
	c.connector.bucketOpens.Add(1)
	time.Sleep(c.connector.Latency)
	if c.closed.Load() {
		return nil, errors.New("cluster closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.connector.FailBuckets[name] {
		return nil, fmt.Errorf("bucket %s not accessible", name)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	b, ok := c.store.buckets[name]
	if !ok {
		b = &Bucket{name: name, docs: make(map[string]entry)}
		c.store.buckets[name] = b
	}
	return b, nil
}

func (c *Cluster) Close() error {
	c.closed.Store(true)
	return nil
}

type entry struct {
	raw []byte
	cas uint64
}

// Bucket stores JSON-encoded documents keyed by id
type Bucket struct {
	name string

	mu   sync.RWMutex
	docs map[string]entry
	cas  uint64
}

func (b *Bucket) Insert(ctx context.Context, id string, content map[string]any) (docstore.Document, error) {
	return b.write(ctx, id, content, false)
}

func (b *Bucket) Upsert(ctx context.Context, id string, content map[string]any) (docstore.Document, error) {
	return b.write(ctx, id, content, true)
}

func (b *Bucket) Remove(ctx context.Context, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[id]; !ok {
		return docstore.Document{}, fmt.Errorf("remove %s: %w", id, docstore.ErrDocumentNotFound)
	}
	delete(b.docs, id)
	b.cas++
	return docstore.Document{ID: id, CAS: b.cas}, nil
}

func (b *Bucket) Get(ctx context.Context, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}

	b.mu.RLock()
	e, ok := b.docs[id]
	b.mu.RUnlock()
	if !ok {
		return docstore.Document{}, fmt.Errorf("get %s: %w", id, docstore.ErrDocumentNotFound)
	}

	var content map[string]any
	if err := json.Unmarshal(e.raw, &content); err != nil {
		return docstore.Document{}, fmt.Errorf("decode %s: %w", id, err)
	}
	return docstore.Document{ID: id, Content: content, CAS: e.cas}, nil
}

// Len returns the number of stored documents
func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.docs)
}

func (b *Bucket) write(ctx context.Context, id string, content map[string]any, replace bool) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("encode %s: %w", id, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[id]; ok && !replace {
		return docstore.Document{}, fmt.Errorf("insert %s: %w", id, docstore.ErrDocumentExists)
	}
	b.cas++
	b.docs[id] = entry{raw: raw, cas: b.cas}
	return docstore.Document{ID: id, Content: content, CAS: b.cas}, nil
}
