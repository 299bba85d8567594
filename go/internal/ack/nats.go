package ack

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	natsMaxReconnects = -1
	natsReconnectWait = 2 * time.Second
)

// NATSDispatcher publishes acknowledgments to a NATS subject, one subject
// segment per phase so the authority can subscribe selectively.
type NATSDispatcher struct {
	nc            *nats.Conn
	subjectPrefix string
}

// NewNATSDispatcher connects to NATS and returns a dispatcher publishing
// under subjectPrefix (e.g. "cascade.acks").
func NewNATSDispatcher(url, subjectPrefix string) (*NATSDispatcher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSDispatcher{nc: nc, subjectPrefix: subjectPrefix}, nil
}

func (d *NATSDispatcher) Dispatch(ctx context.Context, a Ack) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal acknowledgment: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", d.subjectPrefix, a.Phase)
	if err := d.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish acknowledgment: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("ack_id", a.ID).
		Int("size", len(data)).
		Msg("acknowledgment published")
	return nil
}

// Close closes the underlying connection.
func (d *NATSDispatcher) Close() {
	if d.nc != nil {
		d.nc.Close()
	}
}
