package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/cascade/go/internal/ack"
	"github.com/rs/zerolog/log"
)

// ClientConfig holds configuration for the WebSocket authority feed.
type ClientConfig struct {
	URL             string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	SendBufferSize  int
	HandshakeExpiry time.Duration
}

// DefaultClientConfig returns the default WebSocket feed configuration.
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:             url,
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  64 * 1024,
		SendBufferSize:  256,
		HandshakeExpiry: 10 * time.Second,
	}
}

// Client is the WebSocket alternative to the JetStream feed: it reads
// authority events off one connection and carries acknowledgments back on
// the same connection, so it doubles as an ack.Dispatcher.
type Client struct {
	router *Router
	conn   *websocket.Conn
	config ClientConfig
	send   chan []byte
	done   chan struct{}
}

// Dial connects to the authority's WebSocket endpoint.
func Dial(router *Router, config ClientConfig) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: config.HandshakeExpiry}
	conn, _, err := dialer.Dial(config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial authority feed: %w", err)
	}

	c := &Client{
		router: router,
		conn:   conn,
		config: config,
		send:   make(chan []byte, config.SendBufferSize),
		done:   make(chan struct{}),
	}

	log.Info().Str("url", config.URL).Msg("authority feed connected")
	return c, nil
}

// Run starts the read and write pumps and blocks until the connection
// closes or the context is cancelled.
func (c *Client) Run(ctx context.Context) error {
	go c.writePump(ctx)
	return c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) error {
	defer close(c.done)
	defer c.conn.Close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Msg("unexpected WebSocket close")
				return fmt.Errorf("read authority feed: %w", err)
			}
			return nil
		}
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		env, err := ParseEnvelope(message)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed authority event")
			continue
		}
		if err := c.router.HandleEnvelope(ctx, env); err != nil {
			log.Error().Err(err).Str("event_type", string(env.Type)).Msg("failed to handle authority event")
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Msg("failed to write to authority feed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Msg("failed to ping authority feed")
				return
			}
		}
	}
}

// Dispatch queues one acknowledgment on the write pump. A full buffer or
// closed connection is reported to the caller, who logs and moves on.
func (c *Client) Dispatch(ctx context.Context, a ack.Ack) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal acknowledgment: %w", err)
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errors.New("authority feed closed")
	default:
		return errors.New("acknowledgment buffer full")
	}
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.conn.Close()
}
