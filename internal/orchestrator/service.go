package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/docgateway/internal/config"
	"stealthcompany.com/docgateway/internal/couchbase"
	"stealthcompany.com/docgateway/internal/docstore"
	"stealthcompany.com/docgateway/internal/docstore/memstore"
)

// Service owns the gateway and the handle registry it runs on
type Service struct {
	Registry *docstore.Registry
	Gateway  *docstore.Gateway
}

// NewConnector returns the store connector selected by settings.Driver
func NewConnector(settings config.Settings) (docstore.Connector, error) {
	switch settings.Driver {
	case config.DriverCouchbase, "":
		return couchbase.NewConnector(settings.ConnectTimeout), nil
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory document store, data is lost on exit")
		return memstore.NewConnector(nil), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", settings.Driver)
}

// NewService wires a registry and gateway over the configured store driver
func NewService(props config.Properties, settings config.Settings) (*Service, error) {
	connector, err := NewConnector(settings)
	if err != nil {
		return nil, err
	}

	registry := docstore.NewRegistry(connector)
	return &Service{
		Registry: registry,
		Gateway:  docstore.NewGateway(registry, props),
	}, nil
}

// Warmup opens the configured cluster ahead of the first request.
// Failures are logged only; the next request retries the connect.
func (s *Service) Warmup(ctx context.Context, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := s.Gateway.OpenConnection(ctx); err != nil {
		log.Warn().Err(err).Msg("Cluster warm-up failed")
		return
	}
	log.Info().Msg("Cluster warm-up completed")
}

// Close disconnects every cached cluster
func (s *Service) Close() error {
	return s.Registry.Close()
}
