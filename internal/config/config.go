// internal/config/config.go
package config

type Config struct {
	Listen  string         `yaml:"listen"`
	Poll    PollConfig     `yaml:"poll"`
	Stream  StreamConfig   `yaml:"stream"`
	Devices []DeviceConfig `yaml:"devices"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs       int `yaml:"interval_ms"`
	History          int `yaml:"history"` // samples retained per signal
	FailureThreshold int `yaml:"failure_threshold"`
	ConnectTimeoutMs int `yaml:"connect_timeout_ms"`
	ReadTimeoutMs    int `yaml:"read_timeout_ms"`
	BackoffMinMs     int `yaml:"backoff_min_ms"`
	BackoffMaxMs     int `yaml:"backoff_max_ms"`
	MaxRetries       int `yaml:"max_retries"` // 0 = retry forever
}

// ---- STREAM ----

type StreamConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- DEVICE ----

// Driver names accepted in DeviceConfig.Driver.
const (
	DriverS7     = "s7"
	DriverModbus = "modbus"
	DriverSim    = "sim"
)

type DeviceConfig struct {
	Name    string `yaml:"name"`
	Driver  string `yaml:"driver"`
	Address string `yaml:"address"`

	// S7 addressing
	Rack int `yaml:"rack"`
	Slot int `yaml:"slot"`

	// Modbus addressing
	UnitID uint8 `yaml:"unit_id"`

	IntervalMs int         `yaml:"interval_ms"` // 0 = poll.interval_ms
	Tags       []TagConfig `yaml:"tags"`
}

// ---- TAG ----

type TagConfig struct {
	Name   string `yaml:"name"`
	Block  int    `yaml:"block"`  // S7 DB number, Modbus base register
	Offset int    `yaml:"offset"` // byte offset inside the block
	Type   string `yaml:"type"`
	Bit    *int   `yaml:"bit"` // bool tags only, 0..7
}

// ---- NAMING ----

// SignalName is the fully qualified "device.tag" name used by the store
// and every read API.
func SignalName(device, tag string) string {
	return device + "." + tag
}

// SignalNames lists every configured signal, in config order.
func (c *Config) SignalNames() []string {
	var out []string
	for _, d := range c.Devices {
		for _, t := range d.Tags {
			out = append(out, SignalName(d.Name, t.Name))
		}
	}
	return out
}
