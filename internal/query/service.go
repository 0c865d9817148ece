// internal/query/service.go
package query

import (
	"plcview/internal/config"
	"plcview/internal/supervisor"
	"plcview/internal/tag"
)

// SampleSource is the slice of the store the read API needs.
type SampleSource interface {
	Latest(signal string) (tag.Sample, error)
	History(signal string, max int) ([]tag.Sample, error)
	Signals() []string
}

// HealthSource reports device conditions.
type HealthSource interface {
	Health(device string) (supervisor.Health, bool)
	HealthAll() []supervisor.Health
}

// SignalInfo describes one configured signal.
type SignalInfo struct {
	Name   string `json:"name"` // fully qualified "device.tag"
	Type   string `json:"type"`
	Block  int    `json:"block"`
	Offset int    `json:"offset"`
	Bit    *int   `json:"bit,omitempty"`
}

// DeviceSignals groups a device's signals for catalog listings.
type DeviceSignals struct {
	Device  string       `json:"device"`
	Driver  string       `json:"driver"`
	Signals []SignalInfo `json:"signals"`
}

// Service is the read-only view handed to consumers.
// It cannot mutate the store and holds no state of its own; the catalog
// is fixed at construction, samples and health are live.
type Service struct {
	devices []DeviceSignals
	samples SampleSource
	health  HealthSource
}

func New(cfg *config.Config, samples SampleSource, health HealthSource) *Service {
	devices := make([]DeviceSignals, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		ds := DeviceSignals{Device: d.Name, Driver: d.Driver}
		for _, t := range d.Tags {
			ds.Signals = append(ds.Signals, SignalInfo{
				Name:   config.SignalName(d.Name, t.Name),
				Type:   t.Type,
				Block:  t.Block,
				Offset: t.Offset,
				Bit:    t.Bit,
			})
		}
		devices = append(devices, ds)
	}
	return &Service{devices: devices, samples: samples, health: health}
}

// Signals returns the configured signal catalog, grouped by device.
func (s *Service) Signals() []DeviceSignals {
	out := make([]DeviceSignals, len(s.devices))
	copy(out, s.devices)
	return out
}

// Latest returns the most recent sample for one signal.
// Store sentinels (unknown signal, no samples) pass through unchanged.
func (s *Service) Latest(signal string) (tag.Sample, error) {
	return s.samples.Latest(signal)
}

// SignalData is one signal's current value plus its recent window.
type SignalData struct {
	Latest  *tag.Sample // nil until something has been recorded
	History []tag.Sample
}

// Signal returns latest and history for one signal in a single call.
// Unknown signals yield the store's not-found sentinel; a known signal
// with no data yet is a valid empty result.
func (s *Service) Signal(name string, max int) (SignalData, error) {
	hist, err := s.samples.History(name, max)
	if err != nil {
		return SignalData{}, err
	}
	out := SignalData{History: hist}
	if smp, err := s.samples.Latest(name); err == nil {
		out.Latest = &smp
	}
	return out, nil
}

// Series returns up to max samples per requested signal, oldest first.
// An empty request means every configured signal.
func (s *Service) Series(signals []string, max int) (map[string][]tag.Sample, error) {
	if len(signals) == 0 {
		signals = s.samples.Signals()
	}

	out := make(map[string][]tag.Sample, len(signals))
	for _, name := range signals {
		hist, err := s.samples.History(name, max)
		if err != nil {
			return nil, err
		}
		out[name] = hist
	}
	return out, nil
}

// Health returns every device's condition, sorted by device name.
func (s *Service) Health() []supervisor.Health {
	return s.health.HealthAll()
}

// DeviceHealth returns one device's condition.
func (s *Service) DeviceHealth(device string) (supervisor.Health, bool) {
	return s.health.Health(device)
}
