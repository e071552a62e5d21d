// RouteConsole — the control surface for per-teacher LLM request routing.
//
// It keeps a locally edited draft of the routing configuration reconciled
// with the authoritative server copy, drives the propose/review/rollback
// workflow, caches provider model discovery, and exposes everything to the
// browser UI over a local HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/classroute/routeconsole/internal/backend"
	"github.com/classroute/routeconsole/internal/config"
	"github.com/classroute/routeconsole/internal/console"
	"github.com/classroute/routeconsole/internal/draft"
	"github.com/classroute/routeconsole/internal/modelcache"
	"github.com/classroute/routeconsole/internal/prefs"
	"github.com/classroute/routeconsole/internal/proposal"
	"github.com/classroute/routeconsole/internal/syncer"
	"github.com/classroute/routeconsole/internal/telemetry"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()
	log.Info().Str("backend", cfg.Backend.BaseURL).Msg("RouteConsole starting...")

	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	prefStore, err := prefs.NewFileStore(cfg.Prefs.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Prefs.Path).Msg("Failed to open preferences")
	}

	identity := prefStore.Get(prefs.KeyIdentity)
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	client.SetIdentity(identity)

	engine := draft.NewEngine(identity)
	controller := syncer.New(client, engine, cfg.Sync.PollInterval)
	manager := proposal.NewManager(client, controller, engine)
	cache := modelcache.New(client, cfg.Sync.ModelCacheTTL)

	handlers := &console.Handlers{
		Engine:           engine,
		Syncer:           controller,
		Proposals:        manager,
		ModelCache:       cache,
		Backend:          client,
		Prefs:            prefStore,
		OnIdentityChange: client.SetIdentity,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial load plus the 30s silent background poll.
	controller.Start(ctx)
	defer controller.Stop()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      console.NewRouter(cfg, handlers),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()
		httpServer.Shutdown(shutdownCtx)
		shutdownTelemetry(shutdownCtx)
	}()

	log.Info().Int("port", cfg.Port).Msg("RouteConsole ready")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
