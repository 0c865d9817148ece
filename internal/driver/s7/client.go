// internal/driver/s7/client.go
package s7

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robinson/gos7"
)

// Config is minimal transport config.
type Config struct {
	Address string // host:port, ISO-on-TCP is 102
	Rack    int
	Slot    int
	Timeout time.Duration
}

// Client reads S7 data blocks over ISO-on-TCP.
// This adapter is geometry-only: block id is the DB number, offsets and
// lengths are bytes.
type Client struct {
	handler *gos7.TCPClientHandler
	client  gos7.Client
}

// Dial opens one connection. ONE attempt per call, no retries.
// The handler timeout is shaved down to the context deadline (best effort;
// the underlying transport does not take a context).
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("s7: address required")
	}

	handler := gos7.NewTCPClientHandler(cfg.Address, cfg.Rack, cfg.Slot)
	if cfg.Timeout > 0 {
		handler.Timeout = cfg.Timeout
	}
	if d, ok := ctx.Deadline(); ok {
		if remain := time.Until(d); remain > 0 && (handler.Timeout <= 0 || remain < handler.Timeout) {
			handler.Timeout = remain
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("s7: connect %s: %w", cfg.Address, err)
	}

	return &Client{handler: handler, client: gos7.NewClient(handler)}, nil
}

// ReadBlock reads length bytes from data block starting at offset.
func (c *Client) ReadBlock(ctx context.Context, block, offset, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, nil
	}

	buf := make([]byte, length)
	if err := c.client.AGReadDB(block, offset, length, buf); err != nil {
		return nil, fmt.Errorf("s7: read db%d: %w", block, err)
	}
	return buf, nil
}

// Close closes the TCP connection.
func (c *Client) Close() error {
	if c == nil || c.handler == nil {
		return nil
	}
	return c.handler.Close()
}
