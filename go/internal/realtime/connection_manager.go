package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/auth"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/protocol"
)

// ErrAlreadyRunning is returned by a second concurrent call to Run.
var ErrAlreadyRunning = errors.New("connection manager already running")

// Listener receives the outcomes of the connection lifecycle. All callbacks
// run on the manager loop and must not block; calling back into the manager
// from a callback is allowed.
type Listener interface {
	OnMessage(msg protocol.ServerMessage)
	// OnAuthRequired is called when a connection was requested without an access token.
	OnAuthRequired()
	// OnConnectionFailed is called once the retry ceiling is reached.
	OnConnectionFailed()
}

// CredentialSource is the credential store as seen by the manager.
type CredentialSource interface {
	Current() auth.Credentials
	Clear(ctx context.Context) error
}

// TokenRefresher renews credentials between reconnect attempts.
type TokenRefresher interface {
	Refresh(ctx context.Context) (auth.Credentials, error)
}

// RoomMemory reports the last room the player was seated in.
type RoomMemory interface {
	CurrentRoom() string
}

// RoomMemoryFunc adapts a function to RoomMemory.
type RoomMemoryFunc func() string

func (f RoomMemoryFunc) CurrentRoom() string { return f() }

// Config holds configuration for the connection manager.
type Config struct {
	URL              string
	ReconnectBackoff time.Duration
	MaxRetries       int
	HandshakeTimeout time.Duration
	PingInterval     time.Duration // zero disables keepalive pings
	Clock            clockwork.Clock
}

// DefaultConfig returns default connection manager configuration.
func DefaultConfig() Config {
	return Config{
		URL:              "ws://localhost:8080/game",
		ReconnectBackoff: 2 * time.Second,
		MaxRetries:       5,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		Clock:            clockwork.NewRealClock(),
	}
}

// Status is a point-in-time view of the manager.
type Status struct {
	State          State
	RetryCount     int
	Queued         int
	ConnectionID   uuid.UUID
	ConnectedSince time.Time
}

// ConnectionManager owns the realtime session with the game server.
// Every public method posts an event to the loop started by Run and returns
// immediately; the loop goroutine is the only one touching session state.
type ConnectionManager struct {
	config    Config
	dialer    Dialer
	creds     CredentialSource
	refresher TokenRefresher
	rooms     RoomMemory
	listener  Listener

	mailbox *mailbox
	running atomic.Bool
	done    chan struct{}
	state   atomic.Int32

	observersMu sync.Mutex
	observers   []func(from, to State)

	// owned by the loop
	phase     phase
	gen       uint64
	retries   int
	queue     *OutboundQueue
	connID    uuid.UUID
	connSince time.Time
}

// NewConnectionManager creates a manager in the Idle state.
func NewConnectionManager(config Config, dialer Dialer, creds CredentialSource, refresher TokenRefresher, rooms RoomMemory) *ConnectionManager {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultConfig().MaxRetries
	}
	return &ConnectionManager{
		config:    config,
		dialer:    dialer,
		creds:     creds,
		refresher: refresher,
		rooms:     rooms,
		listener:  noopListener{},
		mailbox:   newMailbox(),
		done:      make(chan struct{}),
		phase:     idlePhase{},
		queue:     NewOutboundQueue(),
	}
}

// SetListener installs the listener. It must be called before Run.
func (m *ConnectionManager) SetListener(l Listener) {
	if l == nil {
		l = noopListener{}
	}
	m.listener = l
}

// OnTransition registers fn to be called on the loop after every state change.
func (m *ConnectionManager) OnTransition(fn func(from, to State)) {
	m.observersMu.Lock()
	defer m.observersMu.Unlock()
	m.observers = append(m.observers, fn)
}

// State returns the last committed state.
func (m *ConnectionManager) State() State {
	return State(m.state.Load())
}

// Connect starts a connection attempt when Idle.
func (m *ConnectionManager) Connect() { m.mailbox.put(connectRequested{}) }

// Reset returns a Failed manager to Idle, typically after a new login.
// It has no effect in any other state.
func (m *ConnectionManager) Reset() { m.mailbox.put(resetRequested{}) }

// Send transmits intent when Open and queues it otherwise.
func (m *ConnectionManager) Send(intent protocol.Intent) { m.mailbox.put(sendRequested{intent: intent}) }

// Close closes the session without retrying and cancels any pending attempt.
func (m *ConnectionManager) Close() { m.mailbox.put(closeRequested{}) }

// DiscardQueued drops every queued intent.
func (m *ConnectionManager) DiscardQueued() { m.mailbox.put(discardRequested{}) }

// Snapshot returns the manager status as seen by the loop after every event
// posted before the call has been handled.
func (m *ConnectionManager) Snapshot(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	m.mailbox.put(statusRequested{reply: reply})
	select {
	case st := <-reply:
		return st, nil
	case <-m.done:
		return Status{}, errors.New("connection manager stopped")
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Run processes events until ctx is cancelled, then releases the connection
// and every timer.
func (m *ConnectionManager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(m.done)

	log.Info().Str("url", m.config.URL).Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			m.transition(idlePhase{})
			log.Info().Int("queued", m.queue.Len()).Msg("connection manager shutting down")
			return nil
		case <-m.mailbox.ready:
			for _, ev := range m.mailbox.drain() {
				m.handle(ctx, ev)
			}
		}
	}
}

func (m *ConnectionManager) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case connectRequested:
		m.handleConnect(ctx)
	case sendRequested:
		m.handleSend(ctx, ev.intent)
	case closeRequested:
		m.handleClose()
	case resetRequested:
		if _, ok := m.phase.(failedPhase); ok {
			log.Info().Msg("connection manager reset after failure")
			m.transition(idlePhase{})
		}
	case discardRequested:
		if n := m.queue.Clear(); n > 0 {
			log.Info().Int("discarded", n).Msg("discarded queued intents")
		}
	case statusRequested:
		ev.reply <- m.status()
	case dialed:
		m.handleDialed(ctx, ev)
	case received:
		m.handleReceived(ev)
	case readFailed:
		m.handleReadFailed(ev)
	case pingDue:
		m.handlePing(ev)
	case backoffElapsed:
		m.handleBackoffElapsed(ctx, ev)
	case refreshed:
		m.handleRefreshed(ctx, ev)
	default:
		log.Warn().Str("event", fmt.Sprintf("%T", ev)).Msg("unknown connection event")
	}
}

func (m *ConnectionManager) handleConnect(ctx context.Context) {
	if _, ok := m.phase.(idlePhase); !ok {
		log.Debug().Str("state", m.State().String()).Msg("connect ignored")
		return
	}
	m.startConnecting(ctx)
}

func (m *ConnectionManager) handleSend(ctx context.Context, intent protocol.Intent) {
	m.queue.Push(intent, m.config.Clock.Now())
	switch m.phase.(type) {
	case openPhase:
		m.flush()
	case idlePhase:
		m.startConnecting(ctx)
	default:
		log.Debug().
			Str("type", string(intent.IntentType())).
			Int("queued", m.queue.Len()).
			Msg("intent queued until connection opens")
	}
}

func (m *ConnectionManager) handleClose() {
	switch p := m.phase.(type) {
	case openPhase:
		log.Info().Str("connection_id", p.id.String()).Msg("closing connection")
		m.transition(closingPhase{gen: p.gen, id: p.id, conn: p.conn})
	case connectingPhase, *reconnectingPhase:
		log.Info().Str("state", m.State().String()).Msg("connection attempt cancelled")
		m.transition(idlePhase{})
	}
}

// startConnecting reads the latest access token and dials with it.
func (m *ConnectionManager) startConnecting(ctx context.Context) {
	creds := m.creds.Current()
	if creds.Empty() {
		log.Warn().Msg("no access token, authentication required")
		if _, ok := m.phase.(idlePhase); !ok {
			m.transition(idlePhase{})
		}
		m.listener.OnAuthRequired()
		return
	}

	m.gen++
	gen := m.gen
	dialCtx, cancel := context.WithTimeout(ctx, m.config.HandshakeTimeout)
	m.transition(connectingPhase{gen: gen, cancel: cancel})

	endpoint, err := m.endpoint(creds.AccessToken)
	if err != nil {
		m.mailbox.put(dialed{gen: gen, err: err})
		return
	}

	log.Info().Int("retry", m.retries).Msg("connecting to game server")
	go func() {
		defer cancel()
		conn, err := m.dialer.Dial(dialCtx, endpoint)
		m.mailbox.put(dialed{gen: gen, conn: conn, err: err})
	}()
}

func (m *ConnectionManager) endpoint(token string) (string, error) {
	u, err := url.Parse(m.config.URL)
	if err != nil {
		return "", fmt.Errorf("parse websocket url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (m *ConnectionManager) handleDialed(ctx context.Context, ev dialed) {
	p, ok := m.phase.(connectingPhase)
	if !ok || p.gen != ev.gen {
		if ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}
	if ev.err != nil {
		log.Warn().Err(ev.err).Int("retry", m.retries).Msg("failed to connect to game server")
		m.startReconnecting()
		return
	}
	m.open(ev.gen, ev.conn)
}

func (m *ConnectionManager) open(gen uint64, conn Conn) {
	p := openPhase{gen: gen, id: uuid.New(), conn: conn, stop: make(chan struct{})}
	m.retries = 0
	m.connID = p.id
	m.connSince = m.config.Clock.Now()
	m.transition(p)

	log.Info().Str("connection_id", p.id.String()).Msg("connection opened")

	go m.readPump(gen, conn)
	if m.config.PingInterval > 0 {
		go m.keepalive(gen, p.stop)
	}

	// Queued user intents take the place of the bootstrap intent. The
	// bootstrap is written directly and never queued.
	if m.queue.Len() == 0 && !m.writeBootstrap(p) {
		return
	}
	m.flush()
}

// writeBootstrap sends the bootstrap intent directly. It reports false when
// the write failed and the connection is being replaced.
func (m *ConnectionManager) writeBootstrap(p openPhase) bool {
	intent := m.bootstrapIntent()
	data, err := protocol.Encode(intent)
	if err != nil {
		log.Error().Err(err).Str("type", string(intent.IntentType())).Msg("failed to encode bootstrap intent")
		return true
	}
	if err := p.conn.WriteMessage(data); err != nil {
		log.Warn().Err(err).Str("connection_id", p.id.String()).Msg("bootstrap write failed")
		m.startReconnecting()
		return false
	}
	log.Debug().
		Str("connection_id", p.id.String()).
		Str("type", string(intent.IntentType())).
		Msg("bootstrap sent")
	return true
}

func (m *ConnectionManager) bootstrapIntent() protocol.Intent {
	if room := m.rooms.CurrentRoom(); room != "" {
		return protocol.ReconnectToRoom{RoomID: room}
	}
	return protocol.GetRoomList{}
}

// flush writes queued intents in order. An entry leaves the queue only after
// its write succeeded.
func (m *ConnectionManager) flush() {
	for {
		p, ok := m.phase.(openPhase)
		if !ok {
			return
		}
		entry, ok := m.queue.Peek()
		if !ok {
			return
		}

		data, err := protocol.Encode(entry.Intent)
		if err != nil {
			log.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("dropping unencodable intent")
			m.queue.Pop()
			continue
		}
		if err := p.conn.WriteMessage(data); err != nil {
			log.Warn().Err(err).Str("connection_id", p.id.String()).Msg("write failed")
			m.startReconnecting()
			return
		}
		m.queue.Pop()

		log.Debug().
			Str("connection_id", p.id.String()).
			Str("type", string(entry.Intent.IntentType())).
			Msg("intent sent")
	}
}

func (m *ConnectionManager) readPump(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.mailbox.put(readFailed{gen: gen, err: err})
			return
		}
		m.mailbox.put(received{gen: gen, data: data})
	}
}

func (m *ConnectionManager) keepalive(gen uint64, stop <-chan struct{}) {
	ticker := m.config.Clock.NewTicker(m.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			m.mailbox.put(pingDue{gen: gen})
		}
	}
}

func (m *ConnectionManager) handleReceived(ev received) {
	p, ok := m.phase.(openPhase)
	if !ok || p.gen != ev.gen {
		return
	}
	msg, err := protocol.Decode(ev.data)
	if err != nil {
		log.Warn().Err(err).Str("connection_id", p.id.String()).Msg("dropping malformed server message")
		return
	}
	m.listener.OnMessage(msg)
}

func (m *ConnectionManager) handleReadFailed(ev readFailed) {
	switch p := m.phase.(type) {
	case openPhase:
		if p.gen != ev.gen {
			return
		}
		if IsCleanClose(ev.err) {
			log.Info().Str("connection_id", p.id.String()).Msg("server closed connection")
			m.transition(idlePhase{})
			return
		}
		log.Warn().Err(ev.err).Str("connection_id", p.id.String()).Msg("connection lost")
		m.startReconnecting()
	case closingPhase:
		if p.gen != ev.gen {
			return
		}
		log.Info().Str("connection_id", p.id.String()).Msg("connection closed")
		m.transition(idlePhase{})
	}
}

func (m *ConnectionManager) handlePing(ev pingDue) {
	p, ok := m.phase.(openPhase)
	if !ok || p.gen != ev.gen {
		return
	}
	if err := p.conn.WritePing(); err != nil {
		log.Warn().Err(err).Str("connection_id", p.id.String()).Msg("keepalive ping failed")
		m.startReconnecting()
	}
}

func (m *ConnectionManager) startReconnecting() {
	m.gen++
	gen := m.gen
	p := &reconnectingPhase{
		gen:   gen,
		timer: m.config.Clock.NewTimer(m.config.ReconnectBackoff),
		stop:  make(chan struct{}),
	}
	m.transition(p)

	log.Info().
		Int("retry", m.retries).
		Dur("backoff", m.config.ReconnectBackoff).
		Msg("scheduling reconnect")

	go func() {
		select {
		case <-p.timer.Chan():
			m.mailbox.put(backoffElapsed{gen: gen})
		case <-p.stop:
		}
	}()
}

func (m *ConnectionManager) handleBackoffElapsed(ctx context.Context, ev backoffElapsed) {
	p, ok := m.phase.(*reconnectingPhase)
	if !ok || p.gen != ev.gen || p.refreshing {
		return
	}
	p.refreshing = true
	go func() {
		_, err := m.refresher.Refresh(ctx)
		m.mailbox.put(refreshed{gen: ev.gen, err: err})
	}()
}

func (m *ConnectionManager) handleRefreshed(ctx context.Context, ev refreshed) {
	p, ok := m.phase.(*reconnectingPhase)
	if !ok || p.gen != ev.gen {
		return
	}
	if ev.err == nil {
		m.retries = 0
		m.startConnecting(ctx)
		return
	}

	m.retries++
	log.Warn().
		Err(ev.err).
		Int("retry", m.retries).
		Int("max_retries", m.config.MaxRetries).
		Msg("credential refresh failed before reconnect")
	if m.retries >= m.config.MaxRetries {
		m.fail(ctx)
		return
	}
	m.startConnecting(ctx)
}

// fail enters the terminal state. Clearing the credentials clears all
// persisted state, so queued intents go with it.
func (m *ConnectionManager) fail(ctx context.Context) {
	m.transition(failedPhase{})
	log.Error().Int("retry", m.retries).Msg("reconnect attempts exhausted")

	if err := m.creds.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("failed to clear credentials")
	}
	if n := m.queue.Clear(); n > 0 {
		log.Info().Int("discarded", n).Msg("discarded queued intents")
	}
	m.retries = 0
	m.listener.OnConnectionFailed()
}

// transition releases the resources of the current phase and commits next.
func (m *ConnectionManager) transition(next phase) {
	prev := m.phase
	prev.exit()
	m.phase = next

	from, to := prev.state(), next.state()
	m.state.Store(int32(to))
	if from == to {
		return
	}
	if to != StateOpen {
		m.connID = uuid.Nil
		m.connSince = time.Time{}
	}

	log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("connection state changed")

	m.observersMu.Lock()
	observers := append([]func(from, to State){}, m.observers...)
	m.observersMu.Unlock()
	for _, fn := range observers {
		fn(from, to)
	}
}

func (m *ConnectionManager) status() Status {
	return Status{
		State:          m.phase.state(),
		RetryCount:     m.retries,
		Queued:         m.queue.Len(),
		ConnectionID:   m.connID,
		ConnectedSince: m.connSince,
	}
}

type noopListener struct{}

func (noopListener) OnMessage(protocol.ServerMessage) {}
func (noopListener) OnAuthRequired()                  {}
func (noopListener) OnConnectionFailed()              {}
