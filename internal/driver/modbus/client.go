// internal/driver/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomodbus "github.com/goburrow/modbus"
)

// Config is minimal transport config.
type Config struct {
	Address string // host:port, Modbus TCP is 502
	UnitID  uint8
	Timeout time.Duration
}

// Client maps block reads onto Modbus holding registers.
// Block id is the base register address; offset and length are bytes over
// the big-endian register image, so the same tag geometry works for S7
// data blocks and Modbus register maps.
type Client struct {
	handler *gomodbus.TCPClientHandler
	client  gomodbus.Client
}

// Dial opens one connection. ONE attempt per call, no retries.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("modbus: address required")
	}

	handler := gomodbus.NewTCPClientHandler(cfg.Address)
	if cfg.Timeout > 0 {
		handler.Timeout = cfg.Timeout
	}
	if cfg.UnitID != 0 {
		handler.SlaveId = cfg.UnitID
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
		return nil, fmt.Errorf("modbus: connect %s: %w", cfg.Address, err)
	}

	return &Client{handler: handler, client: gomodbus.NewClient(handler)}, nil
}

// ReadBlock reads a byte window out of one block's register image.
func (c *Client) ReadBlock(ctx context.Context, block, offset, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, nil
	}
	return readWindow(c.client, block, offset, length)
}

// Close closes the TCP connection.
func (c *Client) Close() error {
	if c == nil || c.handler == nil {
		return nil
	}
	return c.handler.Close()
}

// readWindow converts a byte window into a register read.
// Registers are 16-bit big-endian; an odd offset slices into a register.
func readWindow(client gomodbus.Client, block, offset, length int) ([]byte, error) {
	startReg := block + offset/2
	pad := offset % 2
	qty := (pad + length + 1) / 2

	if block < 0 || offset < 0 || startReg > 0xFFFF || startReg+qty-1 > 0xFFFF {
		return nil, fmt.Errorf("modbus: window out of range: block=%d offset=%d length=%d", block, offset, length)
	}
	// Protocol limit for FC 3.
	if qty > 125 {
		return nil, fmt.Errorf("modbus: window too large: %d registers", qty)
	}

	raw, err := client.ReadHoldingRegisters(uint16(startReg), uint16(qty))
	if err != nil {
		return nil, err
	}
	if len(raw) < pad+length {
		return nil, fmt.Errorf("modbus: short read: got=%d want=%d bytes", len(raw), pad+length)
	}
	return raw[pad : pad+length], nil
}
