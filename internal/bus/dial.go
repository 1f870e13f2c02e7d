// internal/bus/dial.go
package bus

import (
	"log/slog"
	"strings"
	"time"
)

// MemoryScheme selects the in-process router.
const MemoryScheme = "memory://"

// NewDialer picks the router implementation from the URL scheme.
// memory:// URLs share hub; anything else is a NATS server URL.
func NewDialer(cfg NATSConfig, hub *Hub, logger *slog.Logger) Dialer {
	if strings.HasPrefix(cfg.URL, MemoryScheme) {
		if hub == nil {
			hub = NewHub(time.Second, logger)
		}
		return hub.Dialer()
	}
	return NATSDialer(cfg, logger)
}
