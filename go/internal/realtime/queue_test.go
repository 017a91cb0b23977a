package realtime

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/protocol"
)

func TestOutboundQueueFIFO(t *testing.T) {
	q := NewOutboundQueue()
	now := time.Unix(1700000000, 0)

	intents := []protocol.Intent{
		protocol.JoinRoom{RoomID: "r-1"},
		protocol.PlayerMove{RoomID: "r-1", TargetX: 2, TargetY: 3},
		protocol.LeaveRoom{},
	}
	for i, in := range intents {
		q.Push(in, now.Add(time.Duration(i)*time.Second))
	}
	if q.Len() != len(intents) {
		t.Fatalf("expected %d entries, got %d", len(intents), q.Len())
	}

	head, ok := q.Peek()
	if !ok || head.Intent != intents[0] {
		t.Fatalf("expected head %v, got %v", intents[0], head.Intent)
	}
	if q.Len() != len(intents) {
		t.Fatal("Peek must not remove the entry")
	}

	var got []protocol.Intent
	for {
		e, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, e.Intent)
	}
	if diff := cmp.Diff(intents, got); diff != "" {
		t.Fatalf("pop order mismatch (-want +got):\n%s", diff)
	}
	if _, ok := q.Peek(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestOutboundQueueClearAndSnapshot(t *testing.T) {
	q := NewOutboundQueue()
	a := q.Push(protocol.GetRoomList{}, time.Time{})
	b := q.Push(protocol.LeaveRoom{}, time.Time{})
	if a.ID == b.ID {
		t.Fatal("entries must carry distinct ids")
	}

	snap := q.Snapshot()
	snap[0] = Entry{}
	if head, _ := q.Peek(); head.ID != a.ID {
		t.Fatal("Snapshot must return a copy")
	}

	if n := q.Clear(); n != 2 {
		t.Fatalf("expected 2 cleared, got %d", n)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
}
