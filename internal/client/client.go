package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/noah-isme/slot-booking/internal/dto"
	"github.com/noah-isme/slot-booking/pkg/framing"
)

// Config tunes the client connection.
type Config struct {
	Addr    string
	Timeout time.Duration
	// MaxReplySize bounds received replies; zero selects the framing default.
	MaxReplySize int
}

// Client sends one request per TCP connection.
type Client struct {
	cfg    Config
	dialer net.Dialer
}

// New creates a client for cfg.Addr.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{cfg: cfg, dialer: net.Dialer{Timeout: cfg.Timeout}}
}

// Do sends env and waits for the reply.
func (c *Client) Do(ctx context.Context, env dto.Envelope) (dto.Reply, error) {
	payload, err := dto.EncodeEnvelope(env)
	if err != nil {
		return dto.Reply{}, fmt.Errorf("encode request: %w", err)
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return dto.Reply{}, fmt.Errorf("connect to %s: %w", c.cfg.Addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	transceiver := framing.NewTransceiver(conn, c.cfg.MaxReplySize)
	if err := transceiver.Send(payload); err != nil {
		return dto.Reply{}, err
	}
	raw, err := transceiver.Receive()
	if err != nil {
		return dto.Reply{}, fmt.Errorf("receive reply: %w", err)
	}

	reply, err := dto.DecodeReply(raw)
	if err != nil {
		return dto.Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}
