package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/models"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/session"
)

// ErrUnknownCommand is returned by Parse for an unrecognised verb.
var ErrUnknownCommand = errors.New("unknown command")

// DefaultMaxPlayers is used by create when no seat count is given.
const DefaultMaxPlayers = 4

// Kind identifies a parsed command.
type Kind string

const (
	KindRooms   Kind = "rooms"
	KindCreate  Kind = "create"
	KindJoin    Kind = "join"
	KindLeave   Kind = "leave"
	KindShift   Kind = "shift"
	KindRotate  Kind = "rotate"
	KindCancel  Kind = "cancel"
	KindConfirm Kind = "confirm"
	KindMove    Kind = "move"
	KindBoard   Kind = "board"
	KindLogout  Kind = "logout"
	KindQuit    Kind = "quit"
	KindHelp    Kind = "help"
)

// Command is one parsed input line.
type Command struct {
	Kind       Kind
	Name       string
	MaxPlayers int
	RoomID     string
	Direction  models.Direction
	Index      int
	X, Y       int
}

const usage = `commands:
  rooms                    refresh the room list
  create <name> [max]      create a room
  join <room id>           join a room
  leave                    leave the current room
  shift <n|e|s|w> <index>  stage the extra tile
  rotate                   turn the staged tile
  cancel                   drop the staged shift
  confirm                  send the staged shift
  move <x> <y>             move your piece
  board                    redraw the game
  logout                   sign out
  quit                     exit`

// Parse turns an input line into a Command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}
	verb, args := Kind(strings.ToLower(fields[0])), fields[1:]

	switch verb {
	case KindRooms, KindLeave, KindRotate, KindCancel, KindConfirm, KindBoard, KindLogout, KindQuit, KindHelp:
		return Command{Kind: verb}, nil

	case KindCreate:
		if len(args) == 0 {
			return Command{}, errors.New("usage: create <name> [max players]")
		}
		seats := DefaultMaxPlayers
		if n, err := strconv.Atoi(args[len(args)-1]); err == nil && len(args) > 1 {
			seats = n
			args = args[:len(args)-1]
		}
		if seats < 2 {
			return Command{}, fmt.Errorf("max players must be at least 2, got %d", seats)
		}
		return Command{Kind: verb, Name: strings.Join(args, " "), MaxPlayers: seats}, nil

	case KindJoin:
		if len(args) != 1 {
			return Command{}, errors.New("usage: join <room id>")
		}
		return Command{Kind: verb, RoomID: args[0]}, nil

	case KindShift:
		if len(args) != 2 {
			return Command{}, errors.New("usage: shift <n|e|s|w> <index>")
		}
		dir, err := parseDirection(args[0])
		if err != nil {
			return Command{}, err
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return Command{}, fmt.Errorf("invalid index %q: %w", args[1], err)
		}
		return Command{Kind: verb, Direction: dir, Index: idx}, nil

	case KindMove:
		if len(args) != 2 {
			return Command{}, errors.New("usage: move <x> <y>")
		}
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		if err := errors.Join(errX, errY); err != nil {
			return Command{}, fmt.Errorf("invalid coordinates: %w", err)
		}
		return Command{Kind: verb, X: x, Y: y}, nil
	}
	return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
}

func parseDirection(s string) (models.Direction, error) {
	switch strings.ToLower(s) {
	case "n", "north":
		return models.DirectionNorth, nil
	case "e", "east":
		return models.DirectionEast, nil
	case "s", "south":
		return models.DirectionSouth, nil
	case "w", "west":
		return models.DirectionWest, nil
	}
	return "", fmt.Errorf("invalid direction %q", s)
}

// Actions is the session surface the command reader drives.
type Actions interface {
	RequestRoomList()
	CreateRoom(name string, maxPlayers int)
	JoinRoom(roomID string)
	LeaveRoom()
	StageShift(dir models.Direction, index int) error
	RotateStaged() bool
	CancelStaged()
	ConfirmShift() error
	Move(x, y int) error
	Game() (session.GameView, bool)
}

var _ Actions = (*session.Coordinator)(nil)

// CommandReader reads commands line by line and applies them to the session.
type CommandReader struct {
	in      io.Reader
	actions Actions
	render  *Renderer
	logout  func(ctx context.Context) error
}

// NewCommandReader creates a reader. logout performs the full sign-out and
// ends the read loop when it succeeds.
func NewCommandReader(in io.Reader, actions Actions, render *Renderer, logout func(ctx context.Context) error) *CommandReader {
	return &CommandReader{in: in, actions: actions, render: render, logout: logout}
}

// Run reads until quit, logout, end of input or ctx is done.
func (r *CommandReader) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	r.render.Notice("type help for commands")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read commands: %w", err)
					}
				default:
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			done, err := r.Execute(ctx, line)
			if err != nil {
				r.render.Problem(err)
			}
			if done {
				return nil
			}
		}
	}
}

// Execute applies one line. It reports true when the loop should stop.
func (r *CommandReader) Execute(ctx context.Context, line string) (bool, error) {
	cmd, err := Parse(line)
	if err != nil {
		return false, err
	}
	log.Debug().Str("command", string(cmd.Kind)).Msg("command received")

	switch cmd.Kind {
	case KindRooms:
		r.actions.RequestRoomList()
	case KindCreate:
		r.actions.CreateRoom(cmd.Name, cmd.MaxPlayers)
	case KindJoin:
		r.actions.JoinRoom(cmd.RoomID)
	case KindLeave:
		r.actions.LeaveRoom()
	case KindShift:
		return false, r.actions.StageShift(cmd.Direction, cmd.Index)
	case KindRotate:
		if !r.actions.RotateStaged() {
			r.render.Notice("nothing staged, use shift first")
		}
	case KindCancel:
		r.actions.CancelStaged()
	case KindConfirm:
		return false, r.actions.ConfirmShift()
	case KindMove:
		return false, r.actions.Move(cmd.X, cmd.Y)
	case KindBoard:
		g, ok := r.actions.Game()
		if !ok {
			return false, session.ErrNotInGame
		}
		r.render.ShowGame(g)
	case KindHelp:
		r.render.Notice("%s", usage)
	case KindLogout:
		if err := r.logout(ctx); err != nil {
			return false, err
		}
		return true, nil
	case KindQuit:
		return true, nil
	}
	return false, nil
}
