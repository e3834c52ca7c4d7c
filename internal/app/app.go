package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdnet "net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/FrogCounters/boatboat/internal/broadcast"
	"github.com/FrogCounters/boatboat/internal/config"
	"github.com/FrogCounters/boatboat/internal/hub"
	"github.com/FrogCounters/boatboat/internal/logging"
	servernet "github.com/FrogCounters/boatboat/internal/net"
	"github.com/FrogCounters/boatboat/internal/net/ws"
	"github.com/FrogCounters/boatboat/internal/observability"
	"github.com/FrogCounters/boatboat/internal/telemetry"
	"github.com/FrogCounters/boatboat/internal/world"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	// ConfigDir holds the optional boatboat.* config file and .env.
	ConfigDir string
	// Console receives human-readable logs. Defaults to stdout.
	Console io.Writer
	// Listener overrides the configured listen address.
	Listener stdnet.Listener
}

// Run loads configuration, serves until ctx is cancelled, then shuts down.
func Run(ctx context.Context, cfg Config) error {
	settings, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, sinks, err := logging.New(logging.Options{
		Level:          settings.Log.Level,
		File:           settings.Log.File,
		GraylogEnabled: settings.Log.Graylog.Enabled,
		GraylogAddress: settings.Log.Graylog.Address,
		Console:        cfg.Console,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer sinks.Close()
	logger.Info().Str("loglevel", logger.GetLevel().String()).Msg("logging set up")

	return serve(ctx, settings, logger, cfg.Listener)
}

func serve(ctx context.Context, settings config.Config, logger zerolog.Logger, listener stdnet.Listener) error {
	counters := &telemetry.Counters{}
	metrics := telemetry.NewOtelMetrics(counters)

	w := world.New(world.Config{
		HitRadius:     settings.World.HitRadius,
		HitDamage:     settings.World.HitDamage,
		InitialHealth: settings.World.InitialHealth,
		ProjectileTTL: settings.World.ProjectileTTL,
		MaxCrew:       settings.World.MaxCrew,
	}, world.Deps{})

	h := hub.New(w, hub.Config{
		IdleTimeout:  settings.Session.IdleTimeout,
		TicketTTL:    settings.Session.TicketTTL,
		Logger:       logging.Component(logger, "hub"),
		RouterLogger: telemetry.WrapZerolog(logging.Sampled(logging.Component(logger, "router")), zerolog.DebugLevel),
		Metrics:      metrics,
	})
	if err := metrics.ObserveSessions(h.Sessions().Count); err != nil {
		logger.Warn().Err(err).Msg("failed to register session gauge")
	}

	scheduler := broadcast.New(w, h.Sessions(), broadcast.Config{
		Interval: settings.Broadcast.Interval,
		Logger:   telemetry.WrapZerolog(logging.Component(logger, "broadcast"), zerolog.WarnLevel),
		Metrics:  metrics,
		Reap:     h.ReapStale,
	})

	handler := servernet.NewHTTPHandler(h, servernet.HTTPHandlerConfig{
		Logger: logging.Component(logger, "http"),
		WebSocket: ws.HandlerConfig{
			Logger:       logging.Component(logger, "ws"),
			Metrics:      metrics,
			WriteWait:    settings.Session.WriteWait,
			PingInterval: settings.Session.PingInterval,
			IdleTimeout:  settings.Session.IdleTimeout,
			SendQueue:    settings.Session.SendQueue,
			InboundRate:  settings.Session.InboundRate,
			InboundBurst: settings.Session.InboundBurst,
		},
		Observability:     observability.Config{EnablePprof: settings.Observability.Pprof},
		BroadcastInterval: scheduler.Interval(),
		Counters:          counters,
	})

	if listener == nil {
		var err error
		listener, err = stdnet.Listen("tcp", settings.ListenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", settings.ListenAddr, err)
		}
	}
	srv := &http.Server{Handler: handler}

	tickCtx, stopTicks := context.WithCancel(ctx)
	defer stopTicks()
	go scheduler.Run(tickCtx)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()
	logger.Info().Str("addr", listener.Addr().String()).Dur("broadcast", scheduler.Interval()).Msg("server listening")

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	stopTicks()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
