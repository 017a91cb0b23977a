package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/models"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/protocol"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/session"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func twoCellBoard() *models.Board {
	return &models.Board{
		Size: 2,
		Grid: [][]models.Cell{{
			{X: 0, Y: 0, Tile: &models.Tile{Type: models.TileTypeStraight, Orientation: 0}},
			{X: 1, Y: 0, Tile: &models.Tile{Type: models.TileTypeCorner, Orientation: 0, Marker: &models.Marker{ID: 3}}},
		}},
		ExtraTile: &models.Tile{Type: models.TileTypeTShaped, Orientation: 0},
	}
}

func TestDrawBoard(t *testing.T) {
	players := []models.Player{{ID: "p1", Name: "Ann", CurrentX: 0, CurrentY: 0}}

	got := DrawBoard(twoCellBoard(), players)
	want := "" +
		"    0  1 \n" +
		"   # ## #\n" +
		" 0 #1##* \n" +
		"   # ####\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("board mismatch (-want +got):\n%s", diff)
	}
}

func TestDrawBoardNil(t *testing.T) {
	if got := DrawBoard(nil, nil); got != "" {
		t.Fatalf("expected empty drawing, got %q", got)
	}
}

func TestShowGame(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, func() string { return "p2" })

	board := twoCellBoard()
	r.ShowGame(session.GameView{
		State: &models.GameState{
			RoomID:          "room-1",
			Board:           board,
			CurrentPhase:    models.GamePhasePlayerShift,
			CurrentPlayerID: "p1",
		},
		Board: board,
		Players: []models.Player{
			{ID: "p1", Name: "Ann", TargetMarkerIDs: []int{1, 2}},
			{ID: "p2", Name: "Bob", CollectedMarkerIDs: []int{4}, Status: models.PlayerStatusDisconnected},
		},
	})

	text := out.String()
	for _, want := range []string{
		"room room-1  phase PLAYER_SHIFT",
		"extra tile:",
		"1 Ann (0,0) markers 0/2 <- turn",
		"2 Bob (0,0) markers 1/1 (you) disconnected",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestShowGameWithoutState(t *testing.T) {
	var out bytes.Buffer
	NewRenderer(&out, nil).ShowGame(session.GameView{})
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestShowRoomsAndErrors(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, nil)

	r.ShowRooms(nil)
	if !strings.Contains(out.String(), "no rooms yet") {
		t.Fatalf("expected empty lobby hint, got %q", out.String())
	}

	out.Reset()
	r.ShowRooms([]models.RoomInfo{{RoomID: "r-1", RoomName: "Maze", CurrentPlayerCount: 2, MaxPlayers: 4, GamePhase: models.GamePhaseWaitingForPlayers}})
	if !strings.Contains(out.String(), "Maze") || !strings.Contains(out.String(), "2/4") {
		t.Fatalf("expected room row, got %q", out.String())
	}

	out.Reset()
	r.ShowError(protocol.ErrorMessage{ErrorType: protocol.ErrorTypeRoomIsFull, Message: "room is full"})
	if got := out.String(); got != "error: ROOM_IS_FULL: room is full\n" {
		t.Fatalf("unexpected error line %q", got)
	}

	out.Reset()
	r.ShowView(session.ViewLobby)
	if got := out.String(); got != "== lobby ==\n" {
		t.Fatalf("unexpected view line %q", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"rooms", Command{Kind: KindRooms}},
		{"CONFIRM", Command{Kind: KindConfirm}},
		{"create Friday night 3", Command{Kind: KindCreate, Name: "Friday night", MaxPlayers: 3}},
		{"create Solo", Command{Kind: KindCreate, Name: "Solo", MaxPlayers: DefaultMaxPlayers}},
		{"join 1b2c", Command{Kind: KindJoin, RoomID: "1b2c"}},
		{"shift s 3", Command{Kind: KindShift, Direction: models.DirectionSouth, Index: 3}},
		{"shift West 5", Command{Kind: KindShift, Direction: models.DirectionWest, Index: 5}},
		{"move 2 6", Command{Kind: KindMove, X: 2, Y: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.line, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, line := range []string{"dance", "join", "shift up 1", "shift n x", "move 1", "move a b", "create Duo 1"} {
		if _, err := Parse(line); err == nil {
			t.Fatalf("expected error for %q", line)
		}
	}
	if _, err := Parse("dance"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

type fakeActions struct {
	calls   []string
	staged  bool
	game    bool
	moveErr error
}

func (f *fakeActions) RequestRoomList()              { f.calls = append(f.calls, "rooms") }
func (f *fakeActions) CreateRoom(name string, n int) { f.calls = append(f.calls, "create "+name) }
func (f *fakeActions) JoinRoom(id string)            { f.calls = append(f.calls, "join "+id) }
func (f *fakeActions) LeaveRoom()                    { f.calls = append(f.calls, "leave") }
func (f *fakeActions) StageShift(d models.Direction, i int) error {
	f.calls = append(f.calls, "shift "+string(d))
	f.staged = true
	return nil
}
func (f *fakeActions) RotateStaged() bool {
	f.calls = append(f.calls, "rotate")
	return f.staged
}
func (f *fakeActions) CancelStaged() { f.calls = append(f.calls, "cancel") }
func (f *fakeActions) ConfirmShift() error {
	f.calls = append(f.calls, "confirm")
	return nil
}
func (f *fakeActions) Move(x, y int) error {
	f.calls = append(f.calls, "move")
	return f.moveErr
}
func (f *fakeActions) Game() (session.GameView, bool) { return session.GameView{}, f.game }

func TestCommandReaderRun(t *testing.T) {
	var out bytes.Buffer
	actions := &fakeActions{moveErr: session.ErrNotInGame}
	in := strings.NewReader("rooms\n\nrotate\nbogus\nshift n 1\nrotate\nmove 1 1\nquit\nrooms\n")
	reader := NewCommandReader(in, actions, NewRenderer(&out, nil), func(context.Context) error {
		t.Fatal("logout must not be called")
		return nil
	})

	if err := reader.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"rooms", "rotate", "shift NORTH", "rotate", "move"}
	if diff := cmp.Diff(want, actions.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	text := out.String()
	for _, wantLine := range []string{"nothing staged", "unknown command: bogus", "error: not in a game"} {
		if !strings.Contains(text, wantLine) {
			t.Fatalf("expected output to contain %q, got:\n%s", wantLine, text)
		}
	}
}

func TestCommandReaderLogoutEndsLoop(t *testing.T) {
	var out bytes.Buffer
	actions := &fakeActions{}
	logouts := 0
	reader := NewCommandReader(strings.NewReader("logout\nrooms\n"), actions, NewRenderer(&out, nil), func(context.Context) error {
		logouts++
		return nil
	})

	if err := reader.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if logouts != 1 {
		t.Fatalf("expected one logout, got %d", logouts)
	}
	if len(actions.calls) != 0 {
		t.Fatalf("expected no actions after logout, got %v", actions.calls)
	}
}

func TestCommandReaderBoardOutsideGame(t *testing.T) {
	var out bytes.Buffer
	reader := NewCommandReader(strings.NewReader(""), &fakeActions{}, NewRenderer(&out, nil), nil)
	_, err := reader.Execute(context.Background(), "board")
	if !errors.Is(err, session.ErrNotInGame) {
		t.Fatalf("expected ErrNotInGame, got %v", err)
	}
}

func TestCommandReaderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()
	reader := NewCommandReader(pr, &fakeActions{}, NewRenderer(&bytes.Buffer{}, nil), nil)
	if err := reader.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
