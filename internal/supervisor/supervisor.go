// internal/supervisor/supervisor.go
package supervisor

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"plcview/internal/config"
	"plcview/internal/metrics"
	"plcview/internal/poller"
	"plcview/internal/store"
)

// BuildFunc constructs the poll worker for one device.
type BuildFunc func(dev config.DeviceConfig, poll config.PollConfig) (*poller.Worker, error)

// Option adjusts supervisor construction.
type Option func(*Supervisor)

// WithBuild replaces the worker builder. Tests use it to run devices
// against scripted connections.
func WithBuild(build BuildFunc) Option {
	return func(s *Supervisor) { s.build = build }
}

// Supervisor owns one goroutine per device: connect, poll, and on
// failure reconnect with exponential backoff. It is the only writer of
// device health.
type Supervisor struct {
	poll    config.PollConfig
	devices []config.DeviceConfig
	build   BuildFunc
	log     *log.Logger

	mu     sync.RWMutex
	health map[string]Health

	wg sync.WaitGroup
}

// New wires the default builder to the store-backed poll pipeline.
func New(cfg *config.Config, st *store.Store, logger *log.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		poll:    cfg.Poll,
		devices: cfg.Devices,
		log:     logger,
		health:  make(map[string]Health, len(cfg.Devices)),
		build: func(dev config.DeviceConfig, poll config.PollConfig) (*poller.Worker, error) {
			return poller.Build(dev, poll, st, logger)
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the per-device loops. It does not block.
func (s *Supervisor) Start(ctx context.Context) {
	for _, dev := range s.devices {
		s.set(dev.Name, func(h *Health) { h.State = StateConnecting })

		s.wg.Add(1)
		go func(dev config.DeviceConfig) {
			defer s.wg.Done()
			s.runDevice(ctx, dev)
		}(dev)
	}
}

// Wait blocks until every device loop has exited.
func (s *Supervisor) Wait() { s.wg.Wait() }

// Health returns the current condition of one device.
func (s *Supervisor) Health(device string) (Health, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.health[device]
	return h, ok
}

// HealthAll returns every device's condition, sorted by device name.
func (s *Supervisor) HealthAll() []Health {
	s.mu.RLock()
	out := make([]Health, 0, len(s.health))
	for _, h := range s.health {
		out = append(out, h)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out
}

func (s *Supervisor) set(device string, mutate func(*Health)) {
	s.mu.Lock()
	h := s.health[device]
	h.Device = device
	mutate(&h)
	h.UpdatedAt = time.Now()
	s.health[device] = h
	s.mu.Unlock()
}

// runDevice is the restart loop for one device.
// Backoff doubles from backoff_min_ms to backoff_max_ms and resets once
// a connection delivers data again.
func (s *Supervisor) runDevice(ctx context.Context, dev config.DeviceConfig) {
	w, err := s.build(dev, s.poll)
	if err != nil {
		// Build failures are config-shaped: retrying cannot fix them.
		s.log.Printf("device %s: worker build failed: %v", dev.Name, err)
		s.set(dev.Name, func(h *Health) {
			h.State = StateDisconnected
			h.LastError = err.Error()
			h.RetryAt = nil
		})
		return
	}

	min := time.Duration(s.poll.BackoffMinMs) * time.Millisecond
	max := time.Duration(s.poll.BackoffMaxMs) * time.Millisecond
	wait := min
	attempts := 0

	for {
		if ctx.Err() != nil {
			s.setDisconnected(dev.Name, "")
			return
		}

		s.set(dev.Name, func(h *Health) {
			h.State = StateConnecting
			h.RetryAt = nil
		})

		before := w.Cycles()
		err := s.connectAndRun(ctx, dev.Name, w)
		if ctx.Err() != nil {
			s.setDisconnected(dev.Name, "")
			return
		}

		if w.Cycles() > before {
			// Data flowed since the last connect: this failure starts a
			// fresh incident.
			attempts = 0
			wait = min
		}
		attempts++

		msg := ""
		if err != nil {
			msg = err.Error()
		}

		if s.poll.MaxRetries > 0 && attempts > s.poll.MaxRetries {
			s.log.Printf("device %s: giving up after %d attempts: %v", dev.Name, attempts, err)
			s.setDisconnected(dev.Name, msg)
			return
		}

		retryAt := time.Now().Add(wait)
		s.set(dev.Name, func(h *Health) {
			h.State = StateDegraded
			h.LastError = msg
			h.Attempts = attempts
			h.RetryAt = &retryAt
		})
		s.log.Printf("device %s: %v (attempt %d, retry in %s)", dev.Name, err, attempts, wait)

		select {
		case <-ctx.Done():
			s.setDisconnected(dev.Name, "")
			return
		case <-time.After(wait):
		}

		// Double and cap.
		wait *= 2
		if wait > max {
			wait = max
		}
	}
}

// connectAndRun performs one connection lifetime: dial, then poll until
// the worker gives up or the context ends.
func (s *Supervisor) connectAndRun(ctx context.Context, device string, w *poller.Worker) error {
	connectTimeout := time.Duration(s.poll.ConnectTimeoutMs) * time.Millisecond
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	err := w.Connect(cctx)
	cancel()
	if err != nil {
		return err
	}

	s.set(device, func(h *Health) {
		h.State = StatePolling
		h.LastError = ""
		h.Attempts = 0
		h.RetryAt = nil
	})
	metrics.SetDeviceUp(device, true)

	err = w.Run(ctx)
	metrics.SetDeviceUp(device, false)
	return err
}

func (s *Supervisor) setDisconnected(device, msg string) {
	s.set(device, func(h *Health) {
		h.State = StateDisconnected
		if msg != "" {
			h.LastError = msg
		}
		h.RetryAt = nil
	})
}
