// internal/config/config.go
package config

import "time"

// Adapter names.
const (
	AdapterSim        = "sim"
	AdapterHardware   = "uav"
	AdapterMap        = "map"
	AdapterStatistics = "stats"
	AdapterMirror     = "mirror"
)

// AdapterNames lists every adapter in start order.
var AdapterNames = []string{AdapterSim, AdapterHardware, AdapterMap, AdapterStatistics, AdapterMirror}

type Config struct {
	Bus BusConfig `yaml:"bus"`

	// Adapters selects what this process runs; empty runs every configured section.
	Adapters []string `yaml:"adapters"`

	RetryDelayMs   int `yaml:"retry_delay_ms"`
	FaultBackoffMs int `yaml:"fault_backoff_ms"`

	Simulator  *SimulatorConfig  `yaml:"simulator"`
	Hardware   *HardwareConfig   `yaml:"hardware"`
	Map        *MapConfig        `yaml:"map"`
	Statistics *StatisticsConfig `yaml:"statistics"`
	Mirror     *MirrorConfig     `yaml:"mirror"`
	Metrics    *MetricsConfig    `yaml:"metrics"`
}

// ---- BUS ----

type BusConfig struct {
	URL              string `yaml:"url"` // nats://host:port or memory://
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
	ReconnectWaitMs  int    `yaml:"reconnect_wait_ms"`
	StreamPrefix     string `yaml:"stream_prefix"`
	RedeliveryMs     int    `yaml:"redelivery_ms"`
}

// ---- SIMULATOR ----

type SimulatorConfig struct {
	Transport string `yaml:"transport"` // telnet | udp

	// telnet
	Address       string         `yaml:"address"`
	DialTimeoutMs int            `yaml:"dial_timeout_ms"`
	Commands      map[int]string `yaml:"commands"`

	// udp
	Listen    string   `yaml:"listen"`
	Fields    []string `yaml:"fields"`
	Separator string   `yaml:"separator"`

	IOTimeoutMs int `yaml:"io_timeout_ms"`
	PeriodMs    int `yaml:"period_ms"`
}

// ---- HARDWARE ----

type HardwareConfig struct {
	Device string `yaml:"device"`

	// discovery, used when device is empty
	VendorID       string `yaml:"vendor_id"`
	ProductID      string `yaml:"product_id"`
	InterfaceClass string `yaml:"interface_class"`

	Baud     int    `yaml:"baud"`
	Checksum string `yaml:"checksum"` // literal | computed
	PeriodMs int    `yaml:"period_ms"`
}

// ---- MAP ----

type MapConfig struct {
	Listen   string `yaml:"listen"`
	PeriodMs int    `yaml:"period_ms"`
}

// ---- STATISTICS ----

type StatisticsConfig struct {
	Path     string `yaml:"path"`
	Durable  string `yaml:"durable"`
	PoolSize int    `yaml:"pool_size"`
}

// ---- MIRROR ----

type MirrorConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint16 `yaml:"unit_id"`
	Address   uint16 `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms"`
	PeriodMs  int    `yaml:"period_ms"`

	Fields []MirrorField  `yaml:"fields"`
	Status *MirrorStatus `yaml:"status"`
}

type MirrorField struct {
	Key   string  `yaml:"key"`
	Scale float64 `yaml:"scale"`
}

// MirrorStatus places one adapter status block per listed adapter.
type MirrorStatus struct {
	Address  uint16   `yaml:"address"`
	Adapters []string `yaml:"adapters"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Enabled returns the adapters this process runs.
func (c *Config) Enabled() []string {
	if len(c.Adapters) > 0 {
		return c.Adapters
	}

	var out []string
	for _, name := range AdapterNames {
		if c.configured(name) {
			out = append(out, name)
		}
	}
	return out
}

func (c *Config) configured(name string) bool {
	switch name {
	case AdapterSim:
		return c.Simulator != nil
	case AdapterHardware:
		return c.Hardware != nil
	case AdapterMap:
		return c.Map != nil
	case AdapterStatistics:
		return c.Statistics != nil
	case AdapterMirror:
		return c.Mirror != nil
	default:
		return false
	}
}

// Ms converts a millisecond setting.
func Ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
