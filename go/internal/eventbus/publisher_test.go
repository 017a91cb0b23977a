package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/realtime"
)

type fakeNATS struct {
	msgs   []*nats.Msg
	err    error
	closed bool
}

func (f *fakeNATS) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeNATS) Close() { f.closed = true }

func TestNATSPublisherSubjectAndPayload(t *testing.T) {
	nc := &fakeNATS{}
	p := newNATSPublisher(nc, DefaultConfig())

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	change := StateChange{SubjectID: "user.42", From: "open", To: "reconnecting", At: at}
	if err := p.PublishStateChange(context.Background(), change); err != nil {
		t.Fatalf("PublishStateChange: %v", err)
	}

	if len(nc.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(nc.msgs))
	}
	msg := nc.msgs[0]
	if msg.Subject != "labyrinth.client.user_42.state" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if got := msg.Header.Get("State"); got != "reconnecting" {
		t.Fatalf("expected State header, got %q", got)
	}

	var got StateChange
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if diff := cmp.Diff(change, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	_ = p.Close()
	if !nc.closed {
		t.Fatal("expected connection closed")
	}
}

func TestSubjectTokenForAnonymous(t *testing.T) {
	p := newNATSPublisher(&fakeNATS{}, Config{SubjectPrefix: "maze"})
	if got := p.Subject(""); got != "maze.anonymous.state" {
		t.Fatalf("unexpected subject %q", got)
	}
	if got := p.Subject("a b>*"); got != "maze.a_b__.state" {
		t.Fatalf("unexpected subject %q", got)
	}
}

type recordingPublisher struct {
	changes []StateChange
	err     error
}

func (r *recordingPublisher) PublishStateChange(ctx context.Context, c StateChange) error {
	r.changes = append(r.changes, c)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func TestReporterObserve(t *testing.T) {
	pub := &recordingPublisher{}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	r := NewReporter(pub, func() string { return "u-1" }, clock)

	r.Observe(realtime.StateConnecting, realtime.StateOpen)
	pub.err = errors.New("nats down")
	r.Observe(realtime.StateOpen, realtime.StateReconnecting)

	want := []StateChange{
		{SubjectID: "u-1", From: "connecting", To: "open", At: clock.Now()},
		{SubjectID: "u-1", From: "open", To: "reconnecting", At: clock.Now()},
	}
	if diff := cmp.Diff(want, pub.changes, cmpopts.IgnoreFields(StateChange{}, "EventID")); diff != "" {
		t.Fatalf("reported changes mismatch (-want +got):\n%s", diff)
	}
	if pub.changes[0].EventID == pub.changes[1].EventID {
		t.Fatal("expected distinct event ids")
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.PublishStateChange(context.Background(), StateChange{}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
