package realtime

import (
	"sync"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/protocol"
)

// event is one input to the manager loop.
type event interface{}

type (
	connectRequested struct{}
	closeRequested   struct{}
	discardRequested struct{}
	resetRequested   struct{}
	sendRequested    struct{ intent protocol.Intent }
	statusRequested  struct{ reply chan Status }

	dialed struct {
		gen  uint64
		conn Conn
		err  error
	}
	received struct {
		gen  uint64
		data []byte
	}
	readFailed struct {
		gen uint64
		err error
	}
	pingDue        struct{ gen uint64 }
	backoffElapsed struct{ gen uint64 }
	refreshed      struct {
		gen uint64
		err error
	}
)

// mailbox is an unbounded FIFO of events. put never blocks, so listener
// callbacks running on the loop may post back into it.
type mailbox struct {
	mu    sync.Mutex
	items []event
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (mb *mailbox) put(ev event) {
	mb.mu.Lock()
	mb.items = append(mb.items, ev)
	mb.mu.Unlock()

	select {
	case mb.ready <- struct{}{}:
	default:
	}
}

// drain removes and returns every pending event in arrival order.
func (mb *mailbox) drain() []event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	items := mb.items
	mb.items = nil
	return items
}
