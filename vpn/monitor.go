// Package vpn provides VPN connection management functionality.
// This file contains the Monitor for watching connection health
// and implementing auto-reconnect functionality.
package vpn

import (
	"context"
	"errors"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/yllada/vpn-connector/common"
)

// HealthState represents the current health state of a connection.
type HealthState int

const (
	HealthUnknown HealthState = iota
	HealthHealthy
	HealthDegraded
	HealthUnhealthy
)

// String returns a human-readable representation of the health state.
func (h HealthState) String() string {
	switch h {
	case HealthHealthy:
		return "Healthy"
	case HealthDegraded:
		return "Degraded"
	case HealthUnhealthy:
		return "Unhealthy"
	default:
		return "Unknown"
	}
}

// MonitorConfig holds configuration for the monitor.
type MonitorConfig struct {
	// CheckInterval is how often to probe the connection.
	CheckInterval time.Duration
	// FailureThreshold is how many consecutive inactive checks before marking unhealthy.
	FailureThreshold int
	// AutoReconnect enables automatic reconnection after the link drops.
	AutoReconnect bool
	// ReconnectDelay is the delay before attempting to reconnect.
	ReconnectDelay time.Duration
	// MaxReconnectAttempts is the maximum number of reconnection attempts (0 = unlimited).
	MaxReconnectAttempts int
}

// DefaultMonitorConfig returns sensible defaults for monitoring.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CheckInterval:        common.MonitorInterval,
		FailureThreshold:     3,
		AutoReconnect:        false,
		ReconnectDelay:       common.ReconnectDelay,
		MaxReconnectAttempts: 5,
	}
}

// Target is the part of a Connector the monitor drives.
type Target interface {
	Profile() Profile
	IsActive(ctx context.Context) (bool, error)
	TryConnect(ctx context.Context) Result
}

// ConnectionHealth tracks the observed health of the connection.
type ConnectionHealth struct {
	Name              string
	State             HealthState
	Active            bool
	LastCheck         time.Time
	LastSuccess       time.Time
	ConsecutiveFails  int
	ReconnectAttempts int
	LastError         error
}

// ErrReconnectExhausted is reported once MaxReconnectAttempts is reached.
var ErrReconnectExhausted = errors.New("max reconnect attempts reached")

// Monitor periodically samples a Target and reconnects it when asked to.
type Monitor struct {
	mu       sync.RWMutex
	opMu     sync.Mutex
	config   MonitorConfig
	target   Target
	clock    clock.WithTicker
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	health   ConnectionHealth
	wasUp    bool

	onHealthChange    func(oldState, newState HealthState, health ConnectionHealth)
	onReconnecting    func(attempt int)
	onReconnectFailed func(err error)
	onReconnected     func(res Result)
}

// NewMonitor creates a monitor for target.
func NewMonitor(target Target, config MonitorConfig) *Monitor {
	if config.CheckInterval <= 0 {
		config.CheckInterval = common.MonitorInterval
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	return &Monitor{
		config: config,
		target: target,
		clock:  clock.RealClock{},
		health: ConnectionHealth{Name: target.Profile().Name()},
	}
}

// SetClock replaces the clock. It must be called before Start.
func (m *Monitor) SetClock(clk clock.WithTicker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clk
}

// SetOnHealthChange sets a callback for health state changes.
func (m *Monitor) SetOnHealthChange(callback func(oldState, newState HealthState, health ConnectionHealth)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onHealthChange = callback
}

// SetOnReconnecting sets a callback for reconnection attempts.
func (m *Monitor) SetOnReconnecting(callback func(attempt int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = callback
}

// SetOnReconnectFailed sets a callback for failed reconnection.
func (m *Monitor) SetOnReconnectFailed(callback func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnectFailed = callback
}

// SetOnReconnected sets a callback for a successful reconnection.
func (m *Monitor) SetOnReconnected(callback func(res Result)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnected = callback
}

// Start begins the monitoring loop. Calling it twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})
	stop, done := m.stopChan, m.doneChan
	name, interval := m.health.Name, m.config.CheckInterval
	m.mu.Unlock()

	common.LogInfo("Monitor started for %s (interval: %v)", name, interval)

	go m.runLoop(ctx, stop, done)
}

// Stop stops the monitoring loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	done := m.doneChan
	name := m.health.Name
	m.mu.Unlock()

	<-done
	common.LogInfo("Monitor stopped for %s", name)
}

// IsRunning returns whether the monitor is currently running.
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Health returns a copy of the current health record.
func (m *Monitor) Health() ConnectionHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health
}

// UpdateConfig updates the monitor configuration.
func (m *Monitor) UpdateConfig(config MonitorConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}

// runLoop is the main monitoring loop.
func (m *Monitor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	m.mu.RLock()
	ticker := m.clock.NewTicker(m.config.CheckInterval)
	m.mu.RUnlock()
	defer ticker.Stop()

	m.Check(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C():
			m.Check(ctx)
			common.GetLogger().CheckRotation()
		}
	}
}

// Check samples the target once, updates the health record and, if the
// link dropped after having been up, runs one reconnect attempt.
func (m *Monitor) Check(ctx context.Context) ConnectionHealth {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	active, err := m.target.IsActive(ctx)

	m.mu.Lock()
	h := &m.health
	h.LastCheck = m.clock.Now()
	h.LastError = err
	h.Active = active
	oldState := h.State

	if err == nil && active {
		h.ConsecutiveFails = 0
		h.LastSuccess = h.LastCheck
		h.State = HealthHealthy
		h.ReconnectAttempts = 0
		m.wasUp = true
	} else {
		h.ConsecutiveFails++
		if err != nil {
			common.LogWarn("Health check failed for %s (attempt %d/%d): %v",
				h.Name, h.ConsecutiveFails, m.config.FailureThreshold, err)
		}
		if h.ConsecutiveFails >= m.config.FailureThreshold {
			h.State = HealthUnhealthy
		} else {
			h.State = HealthDegraded
		}
	}

	snapshot := *h
	onChange := m.onHealthChange
	shouldReconnect := h.State == HealthUnhealthy && m.config.AutoReconnect && m.wasUp
	m.mu.Unlock()

	if oldState != snapshot.State {
		common.LogInfo("Health state changed for %s: %s -> %s",
			snapshot.Name, oldState.String(), snapshot.State.String())
		if onChange != nil {
			onChange(oldState, snapshot.State, snapshot)
		}
	}

	if shouldReconnect {
		m.attemptReconnect(ctx)
		return m.Health()
	}
	return snapshot
}

// attemptReconnect runs a single reconnect attempt, bounded by
// MaxReconnectAttempts across consecutive failures.
func (m *Monitor) attemptReconnect(ctx context.Context) {
	m.mu.Lock()
	cfg := m.config
	name := m.health.Name
	if cfg.MaxReconnectAttempts > 0 && m.health.ReconnectAttempts >= cfg.MaxReconnectAttempts {
		onFailed := m.onReconnectFailed
		// Stop retrying until the link is seen up again.
		m.wasUp = false
		m.mu.Unlock()

		common.LogError("Max reconnect attempts reached for %s", name)
		if onFailed != nil {
			onFailed(ErrReconnectExhausted)
		}
		return
	}
	m.health.ReconnectAttempts++
	attempt := m.health.ReconnectAttempts
	onReconnecting := m.onReconnecting
	clk := m.clock
	m.mu.Unlock()

	common.LogInfo("Attempting reconnect for %s (attempt %d)", name, attempt)
	if onReconnecting != nil {
		onReconnecting(attempt)
	}

	if cfg.ReconnectDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-clk.After(cfg.ReconnectDelay):
		}
	}

	res := m.target.TryConnect(ctx)

	m.mu.Lock()
	onFailed := m.onReconnectFailed
	onReconnected := m.onReconnected
	if res.Succeeded {
		m.health.State = HealthHealthy
		m.health.Active = true
		m.health.ConsecutiveFails = 0
		m.health.ReconnectAttempts = 0
		m.health.LastSuccess = clk.Now()
	}
	m.mu.Unlock()

	if res.Succeeded {
		common.LogInfo("Reconnect successful for %s", name)
		if onReconnected != nil {
			onReconnected(res)
		}
		return
	}

	common.LogError("Reconnect failed for %s: %v", name, res.Cause)
	if onFailed != nil {
		onFailed(res.Err())
	}
}
