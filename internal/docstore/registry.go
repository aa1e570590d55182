package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"stealthcompany.com/docgateway/internal/metrics"
)

// ClusterHandle is a cached, authenticated cluster together with the address list it was created for
type ClusterHandle struct {
	Cluster
	addresses string
}

// Addresses returns the raw semicolon-delimited node list the handle is cached under
func (h *ClusterHandle) Addresses() string {
	return h.addresses
}

// Registry owns the process-wide cluster and bucket handle caches.
// Handles are created lazily, at most once per key, and are never evicted.
type Registry struct {
	connector Connector

	mu       sync.RWMutex
	clusters map[string]*ClusterHandle
	buckets  map[bucketRef]Bucket

	clusterFlight singleflight.Group
	bucketFlight  singleflight.Group
}

// NewRegistry creates an empty registry backed by the given connector
func NewRegistry(connector Connector) *Registry {
	return &Registry{
		connector: connector,
		clusters:  make(map[string]*ClusterHandle),
		buckets:   make(map[bucketRef]Bucket),
	}
}

// SplitNodes splits a semicolon-delimited node list, dropping blanks
func SplitNodes(addresses string) []string {
	var nodes []string
	for _, n := range strings.Split(addresses, ";") {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Cluster returns the cached cluster for addresses, connecting and authenticating on first use.
// Concurrent first callers share a single connect, which runs detached from any one caller's
// cancellation. Each caller stops waiting when its own ctx is done. A failed connect is not cached.
func (r *Registry) Cluster(ctx context.Context, addresses, user, pass string) (*ClusterHandle, error) {
	if h, ok := r.lookupCluster(addresses); ok {
		metrics.RecordCacheLookup("cluster", "hit")
		return h, nil
	}
	metrics.RecordCacheLookup("cluster", "miss")

	flightCtx := context.WithoutCancel(ctx)
	ch := r.clusterFlight.DoChan(addresses, func() (any, error) {
		// another flight may have populated the cache after our fast path missed
		if h, ok := r.lookupCluster(addresses); ok {
			return h, nil
		}

		nodes := SplitNodes(addresses)
		if len(nodes) == 0 {
			return nil, fmt.Errorf("no cluster nodes in %q", addresses)
		}

		log.Info().Str("nodes", addresses).Msg("Attempting to connect to couchbase cluster")
		cluster, err := r.connector.Connect(flightCtx, nodes, Credentials{Username: user, Password: pass})
		if err != nil {
			metrics.RecordConnect("failure")
			log.Error().Err(err).Str("nodes", addresses).Msg("Failed to connect to couchbase cluster")
			return nil, fmt.Errorf("connect cluster [%s]: %w", addresses, err)
		}
		metrics.RecordConnect("success")
		log.Info().Str("nodes", addresses).Msg("Connected to couchbase cluster")

		h := &ClusterHandle{Cluster: cluster, addresses: addresses}
		r.mu.Lock()
		r.clusters[addresses] = h
		r.mu.Unlock()
		return h, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ClusterHandle), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Bucket returns the cached bucket of the given cluster, opening it on first use.
// Buckets are keyed by cluster address list and bucket name.
func (r *Registry) Bucket(ctx context.Context, cluster *ClusterHandle, name string) (Bucket, error) {
	key := bucketRef{addresses: cluster.Addresses(), name: name}
	if b, ok := r.lookupBucket(key); ok {
		metrics.RecordCacheLookup("bucket", "hit")
		return b, nil
	}
	metrics.RecordCacheLookup("bucket", "miss")

	flightCtx := context.WithoutCancel(ctx)
	ch := r.bucketFlight.DoChan(key.flightKey(), func() (any, error) {
		if b, ok := r.lookupBucket(key); ok {
			return b, nil
		}

		b, err := cluster.OpenBucket(flightCtx, name)
		if err != nil {
			log.Error().Err(err).Str("bucket", name).Str("nodes", cluster.Addresses()).Msg("Failed to open bucket")
			return nil, &TransactionError{
				Kind:   KindBucketOpen,
				Bucket: name,
				Err:    fmt.Errorf("%w: %w", ErrBucketOpen, err),
			}
		}
		if b == nil {
			return nil, &TransactionError{Kind: KindBucketOpen, Bucket: name, Err: ErrBucketOpen}
		}
		log.Info().Str("bucket", name).Str("nodes", cluster.Addresses()).Msg("Opened bucket")

		r.mu.Lock()
		r.buckets[key] = b
		r.mu.Unlock()
		return b, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Bucket), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close disconnects every cached cluster and empties the caches. It is meant for process shutdown only.
func (r *Registry) Close() error {
	r.mu.Lock()
	clusters := r.clusters
	r.clusters = make(map[string]*ClusterHandle)
	r.buckets = make(map[bucketRef]Bucket)
	r.mu.Unlock()

	var errs []error
	for addresses, h := range clusters {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cluster [%s]: %w", addresses, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) lookupCluster(addresses string) (*ClusterHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.clusters[addresses]
	return h, ok
}

func (r *Registry) lookupBucket(key bucketRef) (Bucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[key]
	return b, ok
}

// bucketRef identifies a bucket within the cluster created for an address list
type bucketRef struct {
	addresses string
	name      string
}

// flightKey encodes both parts quoted, so no pair of inputs maps to the same key
func (k bucketRef) flightKey() string {
	return strconv.Quote(k.addresses) + strconv.Quote(k.name)
}
