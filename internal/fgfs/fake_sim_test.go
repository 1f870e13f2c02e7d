// internal/fgfs/fake_sim_test.go
package fgfs

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSim speaks enough of the property server protocol for the client:
// `ls <path>` answers with a canned listing, `set <name> <value>` is recorded.
type fakeSim struct {
	ln       net.Listener
	listings map[string]string

	mu      sync.Mutex
	sets    []string
	accepts int
	hangup  string // close the connection when a request starts with this
}

func newFakeSim(t *testing.T, listings map[string]string) *fakeSim {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSim{ln: ln, listings: listings}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeSim) addr() string { return s.ln.Addr().String() }

func (s *fakeSim) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.accepts++
		s.mu.Unlock()
		go s.handle(conn)
	}
}

func (s *fakeSim) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		s.mu.Lock()
		hangup := s.hangup != "" && strings.HasPrefix(line, s.hangup)
		s.mu.Unlock()
		if hangup {
			return
		}

		switch {
		case strings.HasPrefix(line, "ls "):
			_, _ = conn.Write([]byte(s.listings[strings.TrimPrefix(line, "ls ")] + prompt))
		case strings.HasPrefix(line, "set "):
			s.mu.Lock()
			s.sets = append(s.sets, strings.TrimPrefix(line, "set "))
			s.mu.Unlock()
			_, _ = conn.Write([]byte(prompt))
		default:
			_, _ = conn.Write([]byte(prompt))
		}
	}
}

func (s *fakeSim) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sets...)
}

func (s *fakeSim) hangupOn(prefix string) {
	s.mu.Lock()
	s.hangup = prefix
	s.mu.Unlock()
}
