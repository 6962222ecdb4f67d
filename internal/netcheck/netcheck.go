// Package netcheck answers "are we online right now". The repository core
// re-checks at the start of every operation that needs connectivity and
// never caches the answer itself.
package netcheck

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"
)

// Checker reports current connectivity. A single call is a single fresh read.
type Checker interface {
	Online() bool
}

// Static is a fixed-answer checker for tests and the --offline flag.
type Static bool

// Online implements Checker.
func (s Static) Online() bool { return bool(s) }

// Prober checks connectivity by opening a TCP connection to the directory
// server's host.
type Prober struct {
	Addr    string // host:port
	Timeout time.Duration
}

// NewProber builds a prober from the server base URL.
func NewProber(baseURL string) *Prober {
	addr := "1.1.1.1:443"
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host := u.Host
		if u.Port() == "" {
			switch u.Scheme {
			case "http":
				host = net.JoinHostPort(u.Hostname(), "80")
			default:
				host = net.JoinHostPort(u.Hostname(), "443")
			}
		}
		addr = host
	}
	return &Prober{Addr: addr, Timeout: 2 * time.Second}
}

// Online implements Checker with a dial probe.
func (p *Prober) Online() bool {
	conn, err := net.DialTimeout("tcp", p.Addr, p.Timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Monitor polls a Checker and fans out state transitions to observers.
type Monitor struct {
	checker  Checker
	interval time.Duration

	mu           sync.Mutex
	observers    map[int64]chan bool
	nextObserver int64
}

// NewMonitor creates a monitor polling checker at the given interval.
func NewMonitor(checker Checker, interval time.Duration) *Monitor {
	return &Monitor{
		checker:   checker,
		interval:  interval,
		observers: make(map[int64]chan bool),
	}
}

// Online re-reads the underlying checker.
func (m *Monitor) Online() bool {
	return m.checker.Online()
}

// Observe emits the current state immediately, then every online/offline
// transition, until ctx is done. Cancelling ctx detaches the observer and
// closes its channel.
func (m *Monitor) Observe(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)

	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = ch
	m.mu.Unlock()

	ch <- m.checker.Online()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		if cur, ok := m.observers[id]; ok && cur == ch {
			delete(m.observers, id)
			close(ch)
		}
		m.mu.Unlock()
	}()

	return ch
}

// Run polls until ctx is done, pushing transitions to all observers.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	last := m.checker.Online()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := m.checker.Online()
		if now == last {
			continue
		}
		last = now

		m.mu.Lock()
		for _, ch := range m.observers {
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- now:
			default:
			}
		}
		m.mu.Unlock()
	}
}
