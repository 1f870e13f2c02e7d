// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultRetryDelayMs   = 5000
	DefaultFaultBackoffMs = 5000
	DefaultSimPeriodMs    = 250
	DefaultUAVPeriodMs    = 500
	DefaultMapPeriodMs    = 100
	DefaultMirrorPeriodMs = 1000
	DefaultBaud           = 115200
	DefaultDurable        = "stats"
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	setDefault(&cfg.RetryDelayMs, DefaultRetryDelayMs)
	setDefault(&cfg.FaultBackoffMs, DefaultFaultBackoffMs)
	setDefault(&cfg.Bus.ConnectTimeoutMs, 5000)
	setDefault(&cfg.Bus.ReconnectWaitMs, 2000)
	setDefault(&cfg.Bus.RedeliveryMs, 1000)
	if cfg.Bus.StreamPrefix == "" {
		cfg.Bus.StreamPrefix = "UAVBRIDGE"
	}

	if s := cfg.Simulator; s != nil {
		if s.Transport == "" {
			s.Transport = "telnet"
		}
		if s.Separator == "" {
			s.Separator = ","
		}
		setDefault(&s.DialTimeoutMs, 5000)
		setDefault(&s.PeriodMs, DefaultSimPeriodMs)
		if s.Transport == "udp" {
			setDefault(&s.IOTimeoutMs, 5000)
		}
	}

	if h := cfg.Hardware; h != nil {
		setDefault(&h.Baud, DefaultBaud)
		setDefault(&h.PeriodMs, DefaultUAVPeriodMs)
		if h.Checksum == "" {
			h.Checksum = "literal"
		}
	}

	if m := cfg.Map; m != nil {
		setDefault(&m.PeriodMs, DefaultMapPeriodMs)
	}

	if st := cfg.Statistics; st != nil {
		if st.Durable == "" {
			st.Durable = DefaultDurable
		}
	}

	if m := cfg.Mirror; m != nil {
		setDefault(&m.TimeoutMs, 2000)
		setDefault(&m.PeriodMs, DefaultMirrorPeriodMs)
		for i := range m.Fields {
			if m.Fields[i].Scale == 0 {
				m.Fields[i].Scale = 1
			}
		}
		// adapter names: ASCII already validated, truncate to the register width
		if m.Status != nil {
			for i, name := range m.Status.Adapters {
				if len(name) > 16 {
					m.Status.Adapters[i] = name[:16]
				}
			}
		}
	}
}

func setDefault(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}
