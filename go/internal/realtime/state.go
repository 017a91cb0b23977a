package realtime

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// State is the externally visible connection state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// phase is the tagged state held by the loop. Each variant owns exactly the
// resources that exist in that state and releases them in exit.
type phase interface {
	state() State
	exit()
}

type idlePhase struct{}

func (idlePhase) state() State { return StateIdle }
func (idlePhase) exit()        {}

// connectingPhase owns an in-flight dial.
type connectingPhase struct {
	gen    uint64
	cancel func()
}

func (connectingPhase) state() State { return StateConnecting }
func (p connectingPhase) exit()      { p.cancel() }

// openPhase owns a live transport and its keepalive.
type openPhase struct {
	gen  uint64
	id   uuid.UUID
	conn Conn
	stop chan struct{}
}

func (openPhase) state() State { return StateOpen }
func (p openPhase) exit() {
	close(p.stop)
	_ = p.conn.Close()
}

// closingPhase waits for the transport to confirm a user-initiated close.
type closingPhase struct {
	gen  uint64
	id   uuid.UUID
	conn Conn
}

func (closingPhase) state() State { return StateClosing }
func (p closingPhase) exit()      { _ = p.conn.Close() }

// reconnectingPhase owns the backoff timer and, once it fires, the refresh.
type reconnectingPhase struct {
	gen        uint64
	timer      clockwork.Timer
	stop       chan struct{}
	refreshing bool
}

func (*reconnectingPhase) state() State { return StateReconnecting }
func (p *reconnectingPhase) exit() {
	close(p.stop)
	stopAndDrainTimer(p.timer)
}

type failedPhase struct{}

func (failedPhase) state() State { return StateFailed }
func (failedPhase) exit()        {}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent goroutine leaks.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
