package couchbase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/docgateway/internal/docstore"
)

// Connector opens gocb clusters for the gateway registry
type Connector struct {
	connectTimeout time.Duration
	kvTimeout      time.Duration
}

// NewConnector returns a connector that waits up to connectTimeout for clusters and buckets to be ready
func NewConnector(connectTimeout time.Duration) *Connector {
	return &Connector{
		connectTimeout: connectTimeout,
		kvTimeout:      5 * time.Second,
	}
}

// ConnectionString builds a gocb connection string from a list of node addresses.
// http:// and https:// inputs are rewritten to couchbase:// and couchbases://.
func ConnectionString(nodes []string) string {
	scheme := "couchbase://"
	hosts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		n = strings.TrimSpace(n)
		switch {
		case strings.HasPrefix(n, "couchbases://"):
			scheme = "couchbases://"
			n = strings.TrimPrefix(n, "couchbases://")
		case strings.HasPrefix(n, "https://"):
			scheme = "couchbases://"
			n = strings.TrimPrefix(n, "https://")
		case strings.HasPrefix(n, "couchbase://"):
			n = strings.TrimPrefix(n, "couchbase://")
		case strings.HasPrefix(n, "http://"):
			n = strings.TrimPrefix(n, "http://")
		}
		n = strings.TrimSuffix(n, "/")
		if n != "" {
			hosts = append(hosts, n)
		}
	}
	return scheme + strings.Join(hosts, ",")
}

// Connect connects to the cluster and waits until it is ready, so bad credentials fail here
func (c *Connector) Connect(ctx context.Context, nodes []string, creds docstore.Credentials) (docstore.Cluster, error) {
	connectionString := ConnectionString(nodes)

	log.Info().
		Str("connection_string", connectionString).
		Str("user", creds.Username).
		Msg("Creating Couchbase connection")

	cluster, err := gocb.Connect(connectionString, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: creds.Username,
			Password: creds.Password,
		},
		TimeoutsConfig: gocb.TimeoutsConfig{
			ConnectTimeout: c.connectTimeout,
			KVTimeout:      c.kvTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	err = cluster.WaitUntilReady(c.connectTimeout, &gocb.WaitUntilReadyOptions{Context: ctx})
	if err != nil {
		cluster.Close(nil)
		return nil, fmt.Errorf("failed to wait for cluster: %w", err)
	}

	return &Cluster{cluster: cluster, readyTimeout: c.connectTimeout}, nil
}

// Cluster wraps a connected gocb cluster
type Cluster struct {
	cluster      *gocb.Cluster
	readyTimeout time.Duration
}

// OpenBucket opens name and waits for its key/value service
func (c *Cluster) OpenBucket(ctx context.Context, name string) (docstore.Bucket, error) {
	bucket := c.cluster.Bucket(name)

	err := bucket.WaitUntilReady(c.readyTimeout, &gocb.WaitUntilReadyOptions{
		Context:      ctx,
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue},
	})
	if err != nil {
		return nil, fmt.Errorf("bucket %q is not accessible: %w", name, err)
	}

	return &Bucket{
		name:       name,
		collection: bucket.DefaultCollection(),
	}, nil
}

// Close closes the Couchbase connection
func (c *Cluster) Close() error {
	return c.cluster.Close(nil)
}
