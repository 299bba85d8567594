package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mcdev12/cascade/go/internal/ack"
	"github.com/mcdev12/cascade/go/internal/engine"
	"github.com/mcdev12/cascade/go/internal/feed"
	"github.com/mcdev12/cascade/go/internal/render"
	"github.com/mcdev12/cascade/go/internal/status"
	"github.com/mcdev12/cascade/go/internal/timing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if getEnv("LOG_LEVEL", "") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := loadConfig(getEnv("CASCADE_CONFIG", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	timings := timing.Defaults()
	timings.ApplyOverrides(cfg.Timings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The ack channel over the feed connection is wired after dial; start
	// with whatever standalone channel is configured.
	var dispatcher ack.Dispatcher
	switch cfg.Acks.Channel {
	case "nats":
		natsDispatcher, err := ack.NewNATSDispatcher(cfg.Transport.NATS.URL, cfg.Acks.SubjectPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create NATS ack dispatcher")
		}
		defer natsDispatcher.Close()
		dispatcher = natsDispatcher
	case "log":
		dispatcher = ack.NewLogDispatcher()
	case "none", "feed", "":
		dispatcher = nil
	default:
		log.Fatal().Str("channel", cfg.Acks.Channel).Msg("unknown ack channel")
	}

	eng, err := engine.NewEngine(timings, render.NewLogRenderer(), dispatcher)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create sync engine")
	}
	defer eng.Close()
	eng.SetQuickMode(cfg.Session.QuickMode)

	router := feed.NewRouter(eng)

	errCh := make(chan error, 2)
	switch cfg.Transport.Kind {
	case "nats":
		consumerCfg := feed.DefaultConsumerConfig()
		consumerCfg.URL = cfg.Transport.NATS.URL
		consumerCfg.StreamName = cfg.Transport.NATS.Stream
		consumerCfg.SubjectFilter = cfg.Transport.NATS.SubjectFilter
		consumerCfg.ConsumerName = cfg.Transport.NATS.Consumer

		consumer, err := feed.NewConsumer(router, consumerCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create cascade feed consumer")
		}
		defer consumer.Close()
		go func() { errCh <- consumer.Run(ctx) }()

	case "websocket":
		client, err := feed.Dial(router, feed.DefaultClientConfig(cfg.Transport.Websocket.URL))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to dial cascade feed")
		}
		defer client.Close()
		if cfg.Acks.Channel == "feed" {
			eng.SetDispatcher(client)
		}
		go func() { errCh <- client.Run(ctx) }()

	case "none":
		log.Warn().Msg("no authority transport configured; engine runs standalone")

	default:
		log.Fatal().Str("kind", cfg.Transport.Kind).Msg("unknown transport kind")
	}

	statusServer := status.NewServer(cfg.Status.Addr, eng)
	go func() {
		log.Info().Str("addr", cfg.Status.Addr).Msg("status server listening")
		if err := statusServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info().
		Str("session_id", eng.SessionID()).
		Str("transport", cfg.Transport.Kind).
		Bool("quick_mode", cfg.Session.QuickMode).
		Msg("cascade sync client started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("transport failed")
		}
	}

	cancel()
	if err := statusServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("status server shutdown failed")
	}
}
