// Package keepalive generalizes the teacher's websocket ping/pong monitor
// into a plain liveness tracker for the node<->signaling TCP control link.
// The control link carries no ping frames of its own — every control
// message read or written (including the periodic serverLoad heartbeat the
// node itself emits) counts as activity — so staleness here means "no traffic
// in either direction for too long," not "no pong."
package keepalive

import (
	"sync/atomic"
	"time"

	"github.com/pion/logging"
)

// Config holds keepalive configuration for the control link.
type Config struct {
	CheckInterval time.Duration // how often to check for staleness
	StaleAfter    time.Duration // mark stale if no activity for this long
}

// DefaultConfig returns the default staleness configuration, matching the
// dispatcher's own serverLoad tick cadence (2s) scaled by 3x, the same
// "3x the expected interval" margin the teacher's websocket monitor used.
func DefaultConfig() Config {
	return Config{
		CheckInterval: 2 * time.Second,
		StaleAfter:    6 * time.Second,
	}
}

// Monitor tracks activity timestamps on the control link and calls OnStale
// once the link has gone quiet for longer than StaleAfter.
type Monitor struct {
	logger       logging.LeveledLogger
	config       Config
	done         chan struct{}
	lastActivity atomic.Value // time.Time
	alive        atomic.Bool
	onStale      func()
}

// NewMonitor creates a new keepalive monitor. onStale is called at most
// once, from the monitor's own goroutine, when no activity has been
// observed for StaleAfter.
func NewMonitor(logger logging.LeveledLogger, cfg Config, onStale func()) *Monitor {
	m := &Monitor{
		logger:  logger,
		config:  cfg,
		done:    make(chan struct{}),
		onStale: onStale,
	}
	m.lastActivity.Store(time.Now())
	m.alive.Store(true)
	return m
}

// Start begins the staleness-monitoring loop.
func (m *Monitor) Start() {
	go m.monitorLoop()
}

// Stop stops the monitor.
func (m *Monitor) Stop() {
	m.alive.Store(false)
	close(m.done)
}

// IsAlive returns true if the link has been active within StaleAfter.
func (m *Monitor) IsAlive() bool {
	return m.alive.Load()
}

// Touch records activity now. Call this from both the read loop and the
// write loop so either direction of traffic resets the staleness clock.
func (m *Monitor) Touch() {
	m.lastActivity.Store(time.Now())
}

func (m *Monitor) monitorLoop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			last := m.lastActivity.Load().(time.Time)
			idle := time.Since(last)
			if idle > m.config.StaleAfter {
				m.logger.Warnf("control link idle for %v, marking stale", idle)
				m.alive.Store(false)
				if m.onStale != nil {
					m.onStale()
				}
				return
			}
		}
	}
}
