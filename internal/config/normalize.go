// internal/config/normalize.go
package config

import (
	"strings"

	"plcview/internal/tag"
)

// Defaults applied by Normalize.
const (
	DefaultListen           = ":8080"
	DefaultIntervalMs       = 1000
	DefaultHistory          = 500
	DefaultFailureThreshold = 3
	DefaultConnectTimeoutMs = 5000
	DefaultReadTimeoutMs    = 2000
	DefaultBackoffMinMs     = 1000
	DefaultBackoffMaxMs     = 60000
	DefaultStreamIntervalMs = 2000

	// DefaultModbusPort is appended to modbus addresses given without one.
	DefaultModbusPort = "502"
)

// Normalize applies post-validation defaulting.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	p := &cfg.Poll
	if p.IntervalMs == 0 {
		p.IntervalMs = DefaultIntervalMs
	}
	if p.History == 0 {
		p.History = DefaultHistory
	}
	if p.FailureThreshold == 0 {
		p.FailureThreshold = DefaultFailureThreshold
	}
	if p.ConnectTimeoutMs == 0 {
		p.ConnectTimeoutMs = DefaultConnectTimeoutMs
	}
	if p.ReadTimeoutMs == 0 {
		p.ReadTimeoutMs = DefaultReadTimeoutMs
	}
	if p.BackoffMinMs == 0 {
		p.BackoffMinMs = DefaultBackoffMinMs
	}
	if p.BackoffMaxMs == 0 {
		p.BackoffMaxMs = DefaultBackoffMaxMs
	}
	// MaxRetries keeps its zero value: retry forever.

	if cfg.Stream.IntervalMs == 0 {
		cfg.Stream.IntervalMs = DefaultStreamIntervalMs
	}

	for di := range cfg.Devices {
		d := &cfg.Devices[di]
		if d.IntervalMs == 0 {
			d.IntervalMs = p.IntervalMs
		}
		if d.Driver == DriverModbus && !strings.Contains(d.Address, ":") {
			d.Address += ":" + DefaultModbusPort
		}

		// Canonicalize type aliases (real, int, dint, word, dword) so
		// every downstream consumer sees one vocabulary.
		for ti := range d.Tags {
			t := &d.Tags[ti]
			if k, err := tag.ParseKind(t.Type); err == nil {
				t.Type = k.String()
			}
		}
	}
}
