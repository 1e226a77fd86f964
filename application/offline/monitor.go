// Package offline keeps mutating operations safe across connectivity loss:
// a reachability monitor decides Online/Offline, and a FIFO queue defers
// mutations while Offline and replays them in order on reconnect.
package offline

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"rxsync/pkg/events"
)

// offlineAfterFailures is the number of consecutive probe failures that
// flips the state to Offline. A single successful probe flips it back.
const offlineAfterFailures = 2

// Monitor tracks reachability of the remote API. State moves on explicit
// platform signals (ReportOnline/ReportOffline) and on a periodic HEAD
// probe against a health endpoint, where any 2xx/3xx response counts as
// reachable.
type Monitor struct {
	client   *http.Client
	probeURL string
	interval time.Duration
	logger   *zap.Logger
	events   *events.Registry

	mu       sync.Mutex
	online   bool
	failures int

	stopChan    chan struct{}
	stoppedChan chan struct{}
	startOnce   sync.Once
	closeOnce   sync.Once
}

// NewMonitor creates a monitor that assumes Online until told otherwise
func NewMonitor(probeURL string, interval, timeout time.Duration, logger *zap.Logger, registry *events.Registry) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Monitor{
		client:      &http.Client{Timeout: timeout},
		probeURL:    probeURL,
		interval:    interval,
		logger:      logger,
		events:      registry,
		online:      true,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start launches the periodic probe loop. Calling it again is a no-op.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		go m.probeLoop()
	})
}

// Close stops the probe loop. Safe to call more than once, including
// before Start.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.startOnce.Do(func() { close(m.stoppedChan) })
		<-m.stoppedChan
	})
}

// Online reports the current state
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// ReportOnline is the platform "online" signal; it transitions immediately
func (m *Monitor) ReportOnline() {
	m.setOnline(true)
}

// ReportOffline is the platform "offline" signal; it transitions immediately
func (m *Monitor) ReportOffline() {
	m.setOnline(false)
}

// Probe runs a single reachability check and applies the transition rules
func (m *Monitor) Probe(ctx context.Context) bool {
	reachable := m.probe(ctx)

	m.mu.Lock()
	if reachable {
		m.failures = 0
	} else {
		m.failures++
	}
	flipUp := reachable && !m.online
	flipDown := !reachable && m.online && m.failures >= offlineAfterFailures
	m.mu.Unlock()

	if flipUp {
		m.setOnline(true)
	}
	if flipDown {
		m.setOnline(false)
	}
	return reachable
}

func (m *Monitor) probeLoop() {
	defer close(m.stoppedChan)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.client.Timeout)
			m.Probe(ctx)
			cancel()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.logger.Error("building probe request", zap.Error(err))
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// setOnline applies a state change and publishes it once per transition
func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.failures = 0
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info("connectivity changed", zap.Bool("online", online))
	if m.events != nil {
		m.events.Publish(events.EventConnectivityChanged, online)
	}
}
