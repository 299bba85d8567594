package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const eventChannelBufferSize = 64

// ConsumerConfig holds configuration for the JetStream authority feed.
type ConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConsumerConfig returns the default JetStream feed configuration.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "CASCADE_EVENTS",
		ConsumerName:  "cascade-client",
		SubjectFilter: "cascade.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Consumer subscribes to the authority's event stream and routes each
// event into the engine.
type Consumer struct {
	router   *Router
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   ConsumerConfig
}

// NewConsumer connects to NATS and ensures the durable consumer exists.
func NewConsumer(router *Router, config ConsumerConfig) (*Consumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	c := &Consumer{
		router: router,
		nc:     nc,
		js:     js,
		config: config,
	}

	if err := c.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return c, nil
}

func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.Stream(ctx, c.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          c.config.ConsumerName,
		Durable:       c.config.ConsumerName,
		Description:   "Cascade client presentation feed",
		FilterSubject: c.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverLastPerSubjectPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.config.MaxDeliver,
		AckWait:       c.config.AckWait,
		MaxAckPending: c.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, c.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().Msg("created JetStream consumer for cascade feed")
	} else {
		log.Info().Msg("using existing JetStream consumer for cascade feed")
	}

	c.consumer = consumer
	return nil
}

// Run consumes authority events until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	log.Info().
		Str("stream", c.config.StreamName).
		Str("subject", c.config.SubjectFilter).
		Msg("cascade feed consumer started")

	eventCh := make(chan jetstream.Msg, eventChannelBufferSize)

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case eventCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start JetStream consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cascade feed consumer shutting down")
			return nil
		case msg := <-eventCh:
			if err := c.processMsg(ctx, msg); err != nil {
				log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process authority event")
				msg.Nak()
			} else {
				msg.Ack()
			}
		}
	}
}

func (c *Consumer) processMsg(ctx context.Context, msg jetstream.Msg) error {
	env, err := ParseEnvelope(msg.Data())
	if err != nil {
		return err
	}
	return c.router.HandleEnvelope(ctx, env)
}

// Close closes the underlying NATS connection.
func (c *Consumer) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}
