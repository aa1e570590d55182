package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/docgateway/internal/api"
	"stealthcompany.com/docgateway/internal/config"
	"stealthcompany.com/docgateway/internal/metrics"
	"stealthcompany.com/docgateway/internal/orchestrator"
	"stealthcompany.com/docgateway/pkg/zerolog_config"
)

func main() {
	props, err := config.Load(os.Getenv("GATEWAY_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	settings := props.Settings()

	zerolog_config.SetAppPrefix("docgateway")
	if err := zerolog_config.StartupWithEnv(settings.ElasticsearchURL, "logs", settings.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logging")
	}

	log.Info().Str("driver", settings.Driver).Msg("Starting document store gateway")

	ctx, cancel := orchestrator.NewSignalHandler().HandleSignals(context.Background())
	defer cancel()

	metrics.StartSystemMetrics(ctx, 15*time.Second)

	svc, err := orchestrator.NewService(props, settings)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create gateway service")
	}
	svc.Warmup(ctx, settings.ConnectTimeout)

	server := &http.Server{
		Addr:              ":" + settings.APIPort,
		Handler:           api.SetupRoutes(svc.Gateway),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", settings.APIPort).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Failed to start server")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Closing cluster connections...")
	if err := svc.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close cluster connections")
	}

	log.Info().Msg("Gateway shutdown complete")
}
