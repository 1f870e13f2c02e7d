// internal/relay/fakes_test.go
package relay

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tamzrod/uavbridge/internal/fgfs"
	"github.com/tamzrod/uavbridge/internal/status"
	"github.com/tamzrod/uavbridge/internal/telemetry"
)

// ---- simulator ----

type fakeSim struct {
	mu        sync.Mutex
	snap      telemetry.Snapshot
	connects  int
	closes    int
	commands  []string
	positions [][2]string
}

var (
	_ fgfs.TelemetrySource = (*fakeSim)(nil)
	_ fgfs.Commander       = (*fakeSim)(nil)
)

func (s *fakeSim) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	return nil
}

func (s *fakeSim) ReadTelemetry(context.Context) (telemetry.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

func (s *fakeSim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeSim) SendCommand(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, line)
	return nil
}

func (s *fakeSim) WriteProperty(string, string) error { return nil }

func (s *fakeSim) SetPosition(lat, lon string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, [2]string{lat, lon})
	return nil
}

func (s *fakeSim) recorded() ([]string, [][2]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...), append([][2]string(nil), s.positions...)
}

// readOnlySim exposes only the telemetry side.
type readOnlySim struct {
	sim *fakeSim
}

func (r readOnlySim) Connect(ctx context.Context) error { return r.sim.Connect(ctx) }
func (r readOnlySim) ReadTelemetry(ctx context.Context) (telemetry.Snapshot, error) {
	return r.sim.ReadTelemetry(ctx)
}
func (r readOnlySim) Close() error { return r.sim.Close() }

// ---- serial device ----

type fakeDevice struct {
	mu      sync.Mutex
	lines   []string
	written []string
	closed  bool
}

func (d *fakeDevice) WriteLine(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.written = append(d.written, text)
	return nil
}

func (d *fakeDevice) PollReadable() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lines) > 0, nil
}

func (d *fakeDevice) ReadLine(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	line := d.lines[0]
	d.lines = d.lines[1:]
	return line, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) feed(lines ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, lines...)
}

func (d *fakeDevice) sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.written...)
}

// serialPort is a serialport.Port that hands out fed bytes and otherwise
// behaves like a read timeout.
type serialPort struct {
	mu      sync.Mutex
	input   []byte
	written strings.Builder
}

func (p *serialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	n := copy(b, p.input)
	p.input = p.input[n:]
	p.mu.Unlock()

	if n == 0 {
		time.Sleep(time.Millisecond)
	}
	return n, nil
}

func (p *serialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *serialPort) Close() error                       { return nil }
func (p *serialPort) SetReadTimeout(time.Duration) error { return nil }

func (p *serialPort) feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.input = append(p.input, s...)
}

func (p *serialPort) output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// ---- register mirror ----

type fakeWriter struct {
	mu   sync.Mutex
	got  []telemetry.Snapshot
	errs []error
}

func (w *fakeWriter) Write(s telemetry.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.errs) > 0 {
		err := w.errs[0]
		w.errs = w.errs[1:]
		return err
	}
	w.got = append(w.got, s)
	return nil
}

func (w *fakeWriter) writes() []telemetry.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]telemetry.Snapshot(nil), w.got...)
}

type fakeStatusWriter struct {
	mu   sync.Mutex
	last *status.Snapshot
}

func (w *fakeStatusWriter) WriteStatus(s status.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = &s
	return nil
}

func (w *fakeStatusWriter) latest() *status.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// riga is a complete telemetry sample over Riga.
func riga() map[string]any {
	return map[string]any{
		"dt":             1700000000.0,
		"altitude-ft":    1000.0,
		"latitude-deg":   56.9,
		"longitude-deg":  24.18,
		"heading-deg":    90.0,
		"roll-deg":       0.0,
		"pitch-deg":      2.0,
		"groundspeed-kt": 45.0,
		"airspeed-kt":    50.0,
	}
}
