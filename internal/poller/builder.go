// internal/poller/builder.go
package poller

import (
	"context"
	"fmt"
	"log"
	"time"

	"plcview/internal/config"
	"plcview/internal/driver/modbus"
	"plcview/internal/driver/s7"
	"plcview/internal/driver/sim"
	"plcview/internal/tag"
)

// Build constructs the worker for one configured device.
// Driver selection happens here; the worker itself is transport-blind.
func Build(dev config.DeviceConfig, poll config.PollConfig, rec Recorder, logger *log.Logger) (*Worker, error) {
	bindings, err := buildBindings(dev)
	if err != nil {
		return nil, err
	}

	dial, err := dialFunc(dev, poll, bindings)
	if err != nil {
		return nil, err
	}

	return New(Config{
		Device:           dev.Name,
		Interval:         time.Duration(dev.IntervalMs) * time.Millisecond,
		ReadTimeout:      time.Duration(poll.ReadTimeoutMs) * time.Millisecond,
		FailureThreshold: poll.FailureThreshold,
		Bindings:         bindings,
	}, dial, rec, logger)
}

func buildBindings(dev config.DeviceConfig) ([]TagBinding, error) {
	out := make([]TagBinding, 0, len(dev.Tags))
	for _, t := range dev.Tags {
		kind, err := tag.ParseKind(t.Type)
		if err != nil {
			return nil, fmt.Errorf("poller: device %s: tag %s: %w", dev.Name, t.Name, err)
		}
		bit := 0
		if t.Bit != nil {
			bit = *t.Bit
		}
		out = append(out, TagBinding{
			Signal: config.SignalName(dev.Name, t.Name),
			Tag: tag.Tag{
				Name:   t.Name,
				Block:  t.Block,
				Offset: t.Offset,
				Kind:   kind,
				Bit:    bit,
			},
		})
	}
	return out, nil
}

// dialFunc wires the driver. Connection attempts happen per call so the
// retry policy stays with the caller.
func dialFunc(dev config.DeviceConfig, poll config.PollConfig, bindings []TagBinding) (DialFunc, error) {
	connectTimeout := time.Duration(poll.ConnectTimeoutMs) * time.Millisecond

	switch dev.Driver {
	case config.DriverS7:
		return func(ctx context.Context) (Conn, error) {
			return s7.Dial(ctx, s7.Config{
				Address: dev.Address,
				Rack:    dev.Rack,
				Slot:    dev.Slot,
				Timeout: connectTimeout,
			})
		}, nil

	case config.DriverModbus:
		return func(ctx context.Context) (Conn, error) {
			return modbus.Dial(ctx, modbus.Config{
				Address: dev.Address,
				UnitID:  dev.UnitID,
				Timeout: connectTimeout,
			})
		}, nil

	case config.DriverSim:
		tags := make([]tag.Tag, 0, len(bindings))
		for _, b := range bindings {
			tags = append(tags, b.Tag)
		}
		return func(ctx context.Context) (Conn, error) {
			return sim.Dial(tags), nil
		}, nil
	}

	return nil, fmt.Errorf("poller: device %s: unknown driver %q", dev.Name, dev.Driver)
}
