// internal/poller/worker.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"plcview/internal/metrics"
	"plcview/internal/tag"
)

// Conn abstracts the device operations the worker needs.
// The worker depends on block geometry only.
type Conn interface {
	ReadBlock(ctx context.Context, block, offset, length int) ([]byte, error)
	Close() error
}

// DialFunc opens a fresh connection. ONE attempt per call.
type DialFunc func(ctx context.Context) (Conn, error)

// Recorder accepts decoded samples. The worker is the only writer for
// its signals; readers go through the store's own API.
type Recorder interface {
	Append(signal string, smp tag.Sample) error
}

// TagBinding ties one decode geometry to its store signal name.
type TagBinding struct {
	Signal string // fully qualified "device.tag"
	Tag    tag.Tag
}

// Config is the minimal runtime config the worker needs.
type Config struct {
	Device           string
	Interval         time.Duration
	ReadTimeout      time.Duration
	FailureThreshold int
	Bindings         []TagBinding
}

// blockPlan is the read geometry for one data block: a single span from
// byte 0 to the end of the furthest tag, so offsets index it directly.
type blockPlan struct {
	block  int
	length int
	tags   []TagBinding
}

// Worker is a dumb, clock-driven reader for one device.
// Connect and Run are split so the caller owns the retry policy.
type Worker struct {
	cfg  Config
	dial DialFunc
	rec  Recorder
	log  *log.Logger

	plan []blockPlan

	conn     Conn
	failures int    // consecutive read failures, reset by any success
	cycles   uint64 // cycles that decoded at least one block
}

// New creates a worker with immutable config.
func New(cfg Config, dial DialFunc, rec Recorder, logger *log.Logger) (*Worker, error) {
	if cfg.Device == "" {
		return nil, errors.New("poller: device name required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return nil, errors.New("poller: read timeout must be > 0")
	}
	if cfg.FailureThreshold <= 0 {
		return nil, errors.New("poller: failure threshold must be > 0")
	}
	if len(cfg.Bindings) == 0 {
		return nil, errors.New("poller: at least one tag required")
	}
	if dial == nil {
		return nil, errors.New("poller: dial func required")
	}
	if rec == nil {
		return nil, errors.New("poller: recorder required")
	}

	return &Worker{
		cfg:  cfg,
		dial: dial,
		rec:  rec,
		log:  logger,
		plan: buildPlan(cfg.Bindings),
	}, nil
}

func buildPlan(bindings []TagBinding) []blockPlan {
	byBlock := make(map[int]*blockPlan)
	for _, b := range bindings {
		pl := byBlock[b.Tag.Block]
		if pl == nil {
			pl = &blockPlan{block: b.Tag.Block}
			byBlock[b.Tag.Block] = pl
		}
		if end := b.Tag.Offset + b.Tag.Kind.Width(); end > pl.length {
			pl.length = end
		}
		pl.tags = append(pl.tags, b)
	}

	out := make([]blockPlan, 0, len(byBlock))
	for _, pl := range byBlock {
		out = append(out, *pl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].block < out[j].block })
	return out
}

// Connect dials the device. It does not poll.
// A fresh connection starts with a clean failure counter.
func (w *Worker) Connect(ctx context.Context) error {
	conn, err := w.dial(ctx)
	if err != nil {
		return err
	}
	w.conn = conn
	w.failures = 0
	return nil
}

// Cycles reports how many cycles have decoded at least one block since
// the worker was built. The caller uses it to tell a fresh incident from
// a connection that never produced data.
func (w *Worker) Cycles() uint64 { return w.cycles }

// PollOnce performs exactly one poll cycle.
// Blocks are independent: one failing block does not stop the others.
// The error return is reserved for the consecutive-failure threshold,
// which tells the caller to drop the connection and redial.
func (w *Worker) PollOnce(ctx context.Context) error {
	if w.conn == nil {
		return errors.New("poller: not connected")
	}

	start := time.Now()
	okReads := 0
	failed := false

	for _, pl := range w.plan {
		rctx, cancel := context.WithTimeout(ctx, w.cfg.ReadTimeout)
		raw, err := w.conn.ReadBlock(rctx, pl.block, 0, pl.length)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil // shutting down, not a device fault
			}
			failed = true
			w.failures++
			metrics.IncReadError(w.cfg.Device)
			w.log.Printf("device %s: block %d read failed (%d/%d): %v",
				w.cfg.Device, pl.block, w.failures, w.cfg.FailureThreshold, err)
			if w.failures >= w.cfg.FailureThreshold {
				metrics.ObserveCycle(w.cfg.Device, metrics.ResultError, time.Since(start))
				return fmt.Errorf("poller: device %s: %d consecutive read failures: %w",
					w.cfg.Device, w.failures, err)
			}
			continue
		}

		w.failures = 0
		okReads++

		for _, b := range pl.tags {
			smp := tag.Decode(raw, b.Tag, start)
			if !smp.Valid() {
				metrics.IncDecodeFailure(w.cfg.Device)
			}
			if err := w.rec.Append(b.Signal, smp); err != nil {
				// Unknown signal here is a wiring bug, not a device fault.
				w.log.Printf("device %s: record %s: %v", w.cfg.Device, b.Signal, err)
			}
		}
		metrics.AddSamplesStored(w.cfg.Device, len(pl.tags))
	}

	if okReads > 0 {
		w.cycles++
	}

	result := metrics.ResultSuccess
	if failed {
		result = metrics.ResultError
	}
	metrics.ObserveCycle(w.cfg.Device, result, time.Since(start))
	return nil
}

// Run polls until the context is canceled or the failure threshold trips.
// The first cycle runs immediately: a freshly connected device should
// show data before the first tick. The connection is closed on exit.
func (w *Worker) Run(ctx context.Context) error {
	if w.conn == nil {
		return errors.New("poller: not connected")
	}
	defer func() {
		if err := w.conn.Close(); err != nil {
			w.log.Printf("device %s: close: %v", w.cfg.Device, err)
		}
		w.conn = nil
	}()

	if err := w.PollOnce(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.PollOnce(ctx); err != nil {
				return err
			}
		}
	}
}
