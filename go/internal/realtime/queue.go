package realtime

import (
	"time"

	"github.com/google/uuid"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/protocol"
)

// Entry is one intent waiting for transmission.
type Entry struct {
	ID         uuid.UUID
	Intent     protocol.Intent
	EnqueuedAt time.Time
}

// OutboundQueue is an unbounded FIFO of intents not yet written to the
// transport. It is owned by the manager loop and is not safe for concurrent use.
type OutboundQueue struct {
	entries []Entry
}

// NewOutboundQueue creates an empty queue.
func NewOutboundQueue() *OutboundQueue {
	return &OutboundQueue{}
}

// Push appends an intent and returns its entry.
func (q *OutboundQueue) Push(intent protocol.Intent, now time.Time) Entry {
	e := Entry{ID: uuid.New(), Intent: intent, EnqueuedAt: now}
	q.entries = append(q.entries, e)
	return e
}

// Peek returns the oldest entry without removing it.
func (q *OutboundQueue) Peek() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// Pop removes and returns the oldest entry.
func (q *OutboundQueue) Pop() (Entry, bool) {
	e, ok := q.Peek()
	if !ok {
		return Entry{}, false
	}
	q.entries[0] = Entry{}
	q.entries = q.entries[1:]
	if len(q.entries) == 0 {
		q.entries = nil
	}
	return e, true
}

// Len returns the number of queued entries.
func (q *OutboundQueue) Len() int {
	return len(q.entries)
}

// Clear drops every entry.
func (q *OutboundQueue) Clear() int {
	n := len(q.entries)
	q.entries = nil
	return n
}

// Snapshot returns a copy of the queued entries in order.
func (q *OutboundQueue) Snapshot() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}
