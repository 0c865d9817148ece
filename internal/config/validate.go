// internal/config/validate.go
package config

import (
	"fmt"

	"plcview/internal/tag"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// GLOBAL TUNABLES
	// ------------------------------------------------------------

	p := cfg.Poll
	for _, f := range []struct {
		name string
		v    int
	}{
		{"poll.interval_ms", p.IntervalMs},
		{"poll.history", p.History},
		{"poll.failure_threshold", p.FailureThreshold},
		{"poll.connect_timeout_ms", p.ConnectTimeoutMs},
		{"poll.read_timeout_ms", p.ReadTimeoutMs},
		{"poll.backoff_min_ms", p.BackoffMinMs},
		{"poll.backoff_max_ms", p.BackoffMaxMs},
		{"poll.max_retries", p.MaxRetries},
		{"stream.interval_ms", cfg.Stream.IntervalMs},
	} {
		if f.v < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
	}

	// Zero means "use the default"; the check applies only when both are set.
	if p.BackoffMinMs > 0 && p.BackoffMaxMs > 0 && p.BackoffMinMs > p.BackoffMaxMs {
		return fmt.Errorf("poll.backoff_min_ms %d exceeds poll.backoff_max_ms %d",
			p.BackoffMinMs, p.BackoffMaxMs)
	}

	// ------------------------------------------------------------
	// DEVICES
	// ------------------------------------------------------------

	if len(cfg.Devices) == 0 {
		return fmt.Errorf("at least one device required")
	}

	deviceNames := make(map[string]bool)

	for _, d := range cfg.Devices {
		if d.Name == "" {
			return fmt.Errorf("device name required")
		}
		// "device.tag" is the signal naming scheme; a dot inside either
		// part would make names ambiguous.
		for i := 0; i < len(d.Name); i++ {
			if d.Name[i] == '.' {
				return fmt.Errorf("device %q: name must not contain '.'", d.Name)
			}
		}
		if deviceNames[d.Name] {
			return fmt.Errorf("duplicate device name %q", d.Name)
		}
		deviceNames[d.Name] = true

		switch d.Driver {
		case DriverS7:
			if d.Address == "" {
				return fmt.Errorf("device %q: address required", d.Name)
			}
			if d.Rack < 0 || d.Slot < 0 {
				return fmt.Errorf("device %q: rack and slot must not be negative", d.Name)
			}
		case DriverModbus:
			if d.Address == "" {
				return fmt.Errorf("device %q: address required", d.Name)
			}
		case DriverSim:
			// No transport: nothing to check.
		default:
			return fmt.Errorf("device %q: unknown driver %q", d.Name, d.Driver)
		}

		if d.IntervalMs < 0 {
			return fmt.Errorf("device %q: interval_ms must not be negative", d.Name)
		}

		if err := validateTags(d); err != nil {
			return err
		}
	}

	return nil
}

func validateTags(d DeviceConfig) error {
	if len(d.Tags) == 0 {
		return fmt.Errorf("device %q: at least one tag required", d.Name)
	}

	tagNames := make(map[string]bool)

	for _, t := range d.Tags {
		if t.Name == "" {
			return fmt.Errorf("device %q: tag name required", d.Name)
		}
		for i := 0; i < len(t.Name); i++ {
			if t.Name[i] == '.' {
				return fmt.Errorf("device %q: tag %q: name must not contain '.'", d.Name, t.Name)
			}
		}
		if tagNames[t.Name] {
			return fmt.Errorf("device %q: duplicate tag name %q", d.Name, t.Name)
		}
		tagNames[t.Name] = true

		if t.Block < 0 {
			return fmt.Errorf("device %q: tag %q: block must not be negative", d.Name, t.Name)
		}
		if t.Offset < 0 {
			return fmt.Errorf("device %q: tag %q: offset must not be negative", d.Name, t.Name)
		}

		kind, err := tag.ParseKind(t.Type)
		if err != nil {
			return fmt.Errorf("device %q: tag %q: %w", d.Name, t.Name, err)
		}

		if t.Bit != nil {
			if kind != tag.KindBool {
				return fmt.Errorf("device %q: tag %q: bit is only valid for bool tags", d.Name, t.Name)
			}
			if *t.Bit < 0 || *t.Bit > 7 {
				return fmt.Errorf("device %q: tag %q: bit must be 0..7, got %d", d.Name, t.Name, *t.Bit)
			}
		}
	}

	return nil
}
