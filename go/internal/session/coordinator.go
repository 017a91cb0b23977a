// Package session turns server pushes into authoritative client state and
// user actions into intents.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/models"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/persist"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/preview"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/protocol"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/realtime"
)

var (
	// ErrNotInGame is returned for game actions outside a game.
	ErrNotInGame = errors.New("not in a game")
	// ErrNothingStaged is returned when confirming without a staged shift.
	ErrNothingStaged = errors.New("no shift staged")
)

// View is the screen the client should present.
type View int

const (
	ViewLoading View = iota
	ViewLobby
	ViewGame
	ViewLogin
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewLobby:
		return "lobby"
	case ViewGame:
		return "game"
	case ViewLogin:
		return "login"
	}
	return "unknown"
}

// GameView is what the game screen draws: the authoritative state plus the
// board and players as projected through the staged shift.
type GameView struct {
	State   *models.GameState
	Board   *models.Board
	Players []models.Player
	Pending *preview.Shift
}

// UI is the presentation layer. Its methods are called with the coordinator
// lock held and must not call back into the coordinator.
type UI interface {
	ShowView(v View)
	ShowRooms(rooms []models.RoomInfo)
	ShowGame(g GameView)
	ShowError(msg protocol.ErrorMessage)
	RedirectToLogin()
}

// Connection is the outbound side of the realtime session.
type Connection interface {
	Connect()
	Reset()
	Send(intent protocol.Intent)
	Close()
	DiscardQueued()
}

// CredentialClearer wipes the credentials and the persisted state with them.
type CredentialClearer interface {
	Clear(ctx context.Context) error
}

// Coordinator owns the authoritative game state. Server pushes arrive on the
// connection loop and user actions on the caller's goroutine, so every
// method takes the lock.
type Coordinator struct {
	conn  Connection
	store persist.Store
	creds CredentialClearer
	ui    UI

	mu     sync.Mutex
	view   View
	rooms  []models.RoomInfo
	game   *models.GameState
	stager preview.Stager
}

// NewCoordinator creates a coordinator in the loading view.
func NewCoordinator(conn Connection, store persist.Store, creds CredentialClearer, ui UI) *Coordinator {
	return &Coordinator{
		conn:  conn,
		store: store,
		creds: creds,
		ui:    ui,
		view:  ViewLoading,
	}
}

var (
	_ realtime.Listener   = (*Coordinator)(nil)
	_ realtime.RoomMemory = (*Coordinator)(nil)
)

// CurrentRoom returns the persisted room id, or "".
func (c *Coordinator) CurrentRoom() string {
	room, err := persist.GetString(context.Background(), c.store, persist.KeyCurrentRoom)
	if err != nil {
		log.Error().Err(err).Msg("failed to read current room")
		return ""
	}
	return room
}

// OnMessage applies a server push.
func (c *Coordinator) OnMessage(msg protocol.ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch m := msg.(type) {
	case protocol.RoomListUpdate:
		c.rooms = m.Rooms
		c.resetGameLocked()
		c.forgetRoom()
		c.setViewLocked(ViewLobby)
		c.ui.ShowRooms(c.rooms)

	case protocol.GameStateUpdate:
		state := m.GameState
		c.game = &state
		// The server's answer supersedes any local guess.
		c.stager.Cancel()
		if state.RoomID != "" {
			if err := persist.Set(context.Background(), c.store, persist.KeyCurrentRoom, state.RoomID); err != nil {
				log.Error().Err(err).Str("room_id", state.RoomID).Msg("failed to persist current room")
			}
		}
		c.setViewLocked(ViewGame)
		c.ui.ShowGame(c.gameViewLocked())

	case protocol.ErrorMessage:
		c.handleErrorLocked(m)

	case protocol.WelcomeMessage:
		log.Info().Str("message", m.Message).Msg("server welcome")

	default:
		log.Warn().Str("type", string(msg.MessageType())).Msg("unhandled server message")
	}
}

func (c *Coordinator) handleErrorLocked(m protocol.ErrorMessage) {
	if m.ErrorType == protocol.ErrorTypeRoomNotFound {
		if room := c.CurrentRoom(); room != "" {
			// Rejoining a room that no longer exists; fall back to the lobby.
			log.Info().Str("room_id", room).Msg("persisted room is gone, returning to lobby")
			c.forgetRoom()
			c.resetGameLocked()
			c.setViewLocked(ViewLobby)
			c.conn.Send(protocol.GetRoomList{})
			return
		}
	}

	log.Warn().
		Str("error_type", string(m.ErrorType)).
		Str("message", m.Message).
		Msg("server reported an error")
	c.ui.ShowError(m)
}

// OnAuthRequired sends the user to the login flow.
func (c *Coordinator) OnAuthRequired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setViewLocked(ViewLogin)
	c.ui.RedirectToLogin()
}

// OnConnectionFailed drops all local session state and sends the user to login.
func (c *Coordinator) OnConnectionFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgetRoom()
	c.resetGameLocked()
	c.rooms = nil
	c.setViewLocked(ViewLogin)
	c.ui.RedirectToLogin()
}

// Resume shows the loading view and starts connecting, typically after login.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	c.setViewLocked(ViewLoading)
	c.mu.Unlock()
	// A manager that gave up needs a reset before it accepts a new connect.
	c.conn.Reset()
	c.conn.Connect()
}

// RequestRoomList asks for a fresh room list.
func (c *Coordinator) RequestRoomList() {
	c.conn.Send(protocol.GetRoomList{})
}

// CreateRoom asks the server to open a room.
func (c *Coordinator) CreateRoom(name string, maxPlayers int) {
	c.conn.Send(protocol.CreateRoom{Name: name, MaxPlayers: maxPlayers})
}

// JoinRoom asks to join a room and shows the loading view until the game
// state arrives.
func (c *Coordinator) JoinRoom(roomID string) {
	c.mu.Lock()
	c.setViewLocked(ViewLoading)
	c.mu.Unlock()
	c.conn.Send(protocol.JoinRoom{RoomID: roomID})
}

// LeaveRoom leaves the current room and returns to the lobby.
func (c *Coordinator) LeaveRoom() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.Send(protocol.LeaveRoom{})
	c.resetGameLocked()
	c.rooms = nil
	c.forgetRoom()
	c.setViewLocked(ViewLobby)
	c.conn.Send(protocol.GetRoomList{})
}

// StageShift stages the extra tile at (dir, index), or relocates the
// already staged tile.
func (c *Coordinator) StageShift(dir models.Direction, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.game == nil {
		return ErrNotInGame
	}
	if err := c.stager.Stage(c.game.Board, dir, index); err != nil {
		return err
	}
	c.ui.ShowGame(c.gameViewLocked())
	return nil
}

// RotateStaged turns the staged tile a quarter clockwise. It reports false
// when nothing is staged.
func (c *Coordinator) RotateStaged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stager.Rotate() {
		return false
	}
	if c.game != nil {
		c.ui.ShowGame(c.gameViewLocked())
	}
	return true
}

// CancelStaged drops the staged shift.
func (c *Coordinator) CancelStaged() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stager.Cancel()
	if c.game != nil {
		c.ui.ShowGame(c.gameViewLocked())
	}
}

// ConfirmShift sends the staged shift with its final orientation and clears it.
func (c *Coordinator) ConfirmShift() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.game == nil {
		return ErrNotInGame
	}
	shift, ok := c.stager.Confirm()
	if !ok {
		return ErrNothingStaged
	}
	c.conn.Send(protocol.PlayerShift{
		RoomID:         c.game.RoomID,
		ShiftDirection: shift.Direction,
		ShiftIndex:     shift.Index,
		NewOrientation: shift.Tile.Orientation,
	})
	c.ui.ShowGame(c.gameViewLocked())
	return nil
}

// Move asks to move the player's piece to (x, y).
func (c *Coordinator) Move(x, y int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.game == nil {
		return ErrNotInGame
	}
	c.conn.Send(protocol.PlayerMove{RoomID: c.game.RoomID, TargetX: x, TargetY: y})
	return nil
}

// Logout closes the session, drops queued intents and clears every piece of
// persisted state.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.Close()
	c.conn.DiscardQueued()
	c.resetGameLocked()
	c.rooms = nil
	c.setViewLocked(ViewLogin)

	err := c.creds.Clear(ctx)
	c.ui.RedirectToLogin()
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// DisplayBoard returns the board to draw. Without a staged shift it is the
// authoritative board itself.
func (c *Coordinator) DisplayBoard() *models.Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameViewLocked().Board
}

// DisplayPlayers returns the players as projected through the staged shift.
func (c *Coordinator) DisplayPlayers() []models.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameViewLocked().Players
}

// Game returns the authoritative game view, or false outside a game.
func (c *Coordinator) Game() (GameView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.game == nil {
		return GameView{}, false
	}
	return c.gameViewLocked(), true
}

// View returns the current view.
func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Rooms returns the last room list.
func (c *Coordinator) Rooms() []models.RoomInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.RoomInfo(nil), c.rooms...)
}

func (c *Coordinator) gameViewLocked() GameView {
	if c.game == nil {
		return GameView{}
	}
	g := GameView{State: c.game, Board: c.game.Board, Players: c.game.Players}
	if p, ok := c.stager.Pending(); ok {
		g.Pending = &p
		g.Board = preview.Project(c.game.Board, &p)
		size := 0
		if c.game.Board != nil {
			size = len(c.game.Board.Grid)
		}
		g.Players = preview.ProjectPlayers(c.game.Players, size, &p)
	}
	return g
}

func (c *Coordinator) resetGameLocked() {
	c.game = nil
	c.stager.Cancel()
}

func (c *Coordinator) forgetRoom() {
	if err := c.store.Delete(context.Background(), persist.KeyCurrentRoom); err != nil {
		log.Error().Err(err).Msg("failed to clear current room")
	}
}

func (c *Coordinator) setViewLocked(v View) {
	if c.view == v {
		return
	}
	log.Debug().Str("from", c.view.String()).Str("to", v.String()).Msg("view changed")
	c.view = v
	c.ui.ShowView(v)
}
