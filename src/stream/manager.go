// Package stream owns the single long-lived push connection to the trading
// API: connect, receive, detect loss and reconnect after a fixed delay.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"dashboard-sync/src/helpers"
	"dashboard-sync/src/interfaces"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"
)

var (
	ErrAlreadyStarted = errors.New("stream manager already started")
	ErrStopped        = errors.New("stream manager stopped")
)

// -----------------------------------------------------------------------------
// Manager
// -----------------------------------------------------------------------------

// Manager drives the connection state machine
//
//	Idle -> Connecting -> Open -> Closed -> Reconnecting -> Connecting ...
//
// from one goroutine. Messages and transitions are delivered on that
// goroutine in arrival order. The retry loop is unbounded; only Stop ends it.
type Manager struct {
	Logger *logger.Logger

	ReconnectDelay time.Duration
	PingInterval   time.Duration // zero disables client pings

	url    string
	dialer interfaces.IDialer

	mu            sync.Mutex
	state         models.MConnectionState
	started       bool
	stopped       bool
	conn          interfaces.IStreamConnection
	timer         *time.Timer
	cancel        context.CancelFunc
	done          chan struct{}
	onMessage     func([]byte)
	onStateChange func(from, to models.MConnectionState)
}

// -----------------------------------------------------------------------------

func NewManager(url string, dialer interfaces.IDialer, cfg models.MStreamConfig, log *logger.Logger) *Manager {
	return &Manager{
		Logger:         log,
		ReconnectDelay: time.Duration(cfg.ReconnectDelayMs) * time.Millisecond,
		PingInterval:   time.Duration(cfg.PingIntervalSeconds) * time.Second,
		url:            url,
		dialer:         dialer,
	}
}

// -----------------------------------------------------------------------------

// Start begins connecting in the background. It returns ErrAlreadyStarted on
// a second call and ErrStopped once Stop has run.
func (m *Manager) Start(onMessage func([]byte), onStateChange func(from, to models.MConnectionState)) error {
	if onMessage == nil {
		onMessage = func([]byte) {}
	}
	if onStateChange == nil {
		onStateChange = func(from, to models.MConnectionState) {}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrStopped
	}
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true
	m.onMessage = onMessage
	m.onStateChange = onStateChange

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx)

	m.Logger.Info("Stream manager started for %s", m.url)
	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels a pending reconnect, closes the active connection and waits
// for the driver goroutine to exit. Nothing is emitted once Stop returns.
// It is idempotent, safe before Start, and must not be called from the
// callbacks passed to Start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	cancel, conn, timer, done := m.cancel, m.conn, m.timer, m.done
	m.conn = nil
	m.timer = nil
	m.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
		m.Logger.Info("Stream manager stopped")
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) State() models.MConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// -----------------------------------------------------------------------------
// Driver
// -----------------------------------------------------------------------------

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	for {
		if !m.transition(models.ConnectionConnecting) {
			return
		}

		conn, err := m.dialer.Dial(ctx, m.url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.Logger.Warning("Stream connect failed: %v", err)
		} else {
			if !m.session(ctx, conn) {
				return
			}
		}

		if !m.transition(models.ConnectionClosed) {
			return
		}
		if !m.waitReconnect(ctx) {
			return
		}
	}
}

// -----------------------------------------------------------------------------

// session runs one open connection until it fails. It returns false when
// the manager was stopped meanwhile.
func (m *Manager) session(ctx context.Context, conn interfaces.IStreamConnection) bool {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		conn.Close()
		return false
	}
	m.conn = conn
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.conn == conn {
			m.conn = nil
		}
		m.mu.Unlock()
		conn.Close()
	}()

	if !m.transition(models.ConnectionOpen) {
		return false
	}

	pingDone := make(chan struct{})
	var wg sync.WaitGroup
	if m.PingInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.pingLoop(ctx, conn, pingDone)
		}()
	}
	defer func() {
		close(pingDone)
		wg.Wait()
	}()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			m.Logger.Warning("%v", helpers.NewStreamDisconnected(err))
			return true
		}
		if !m.deliver(data) {
			return false
		}
	}
}

// -----------------------------------------------------------------------------

// waitReconnect schedules the single reconnect attempt and blocks until it
// is due. Stop suppresses the attempt by stopping the timer.
func (m *Manager) waitReconnect(ctx context.Context) bool {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return false
	}
	timer := time.NewTimer(m.ReconnectDelay)
	m.timer = timer
	m.mu.Unlock()

	if !m.transition(models.ConnectionReconnecting) {
		timer.Stop()
		return false
	}
	m.Logger.Info("Reconnecting in %s", m.ReconnectDelay)

	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
	}

	m.mu.Lock()
	if m.timer == timer {
		m.timer = nil
	}
	m.mu.Unlock()
	return true
}

// -----------------------------------------------------------------------------

func (m *Manager) pingLoop(ctx context.Context, conn interfaces.IStreamConnection, done <-chan struct{}) {
	payload, _ := json.Marshal(models.MOutboundMessage{Type: models.MessageTypePing})
	ticker := time.NewTicker(m.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(payload); err != nil {
				m.Logger.Warning("Ping failed, dropping connection: %v", err)
				// unblocks the read loop, which takes the loss path
				conn.Close()
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Emission
// -----------------------------------------------------------------------------

// transition moves to the next state and reports it. It refuses edges outside
// the connection graph and anything after Stop.
func (m *Manager) transition(to models.MConnectionState) bool {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return false
	}
	from := m.state
	if !from.CanTransitionTo(to) {
		m.mu.Unlock()
		m.Logger.Error("Refusing connection transition %s -> %s", from, to)
		return false
	}
	m.state = to
	cb := m.onStateChange
	m.mu.Unlock()

	m.Logger.Debug("Connection %s -> %s", from, to)
	cb(from, to)
	return true
}

// -----------------------------------------------------------------------------

func (m *Manager) deliver(data []byte) bool {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return false
	}
	cb := m.onMessage
	m.mu.Unlock()

	cb(data)
	return true
}
