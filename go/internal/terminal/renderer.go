// Package terminal is a line-oriented presentation of the client session.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/models"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/protocol"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/session"
)

const (
	wall = '#'
	path = ' '
)

// Renderer implements session.UI by writing text to an io.Writer.
type Renderer struct {
	out  io.Writer
	self func() string

	mu sync.Mutex

	title   *color.Color
	alert   *color.Color
	faint   *color.Color
	current *color.Color
}

var _ session.UI = (*Renderer)(nil)

// NewRenderer creates a Renderer. self returns the local player id, used to
// highlight the player's own piece; it may be nil.
func NewRenderer(out io.Writer, self func() string) *Renderer {
	if self == nil {
		self = func() string { return "" }
	}
	return &Renderer{
		out:     out,
		self:    self,
		title:   color.New(color.FgCyan, color.Bold),
		alert:   color.New(color.FgRed, color.Bold),
		faint:   color.New(color.Faint),
		current: color.New(color.FgGreen, color.Bold),
	}
}

func (r *Renderer) ShowView(v session.View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch v {
	case session.ViewLoading:
		r.faint.Fprintln(r.out, "connecting...")
	default:
		r.title.Fprintf(r.out, "== %s ==\n", v)
	}
}

func (r *Renderer) ShowRooms(rooms []models.RoomInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(rooms) == 0 {
		fmt.Fprintln(r.out, "no rooms yet, create one with: create <name> <max players>")
		return
	}
	fmt.Fprintf(r.out, "%-38s %-20s %-7s %s\n", "ROOM", "NAME", "SEATS", "PHASE")
	for _, room := range rooms {
		line := fmt.Sprintf("%-38s %-20s %d/%-5d %s",
			room.RoomID, room.RoomName, room.CurrentPlayerCount, room.MaxPlayers, room.GamePhase)
		if room.Full() {
			r.faint.Fprintln(r.out, line)
			continue
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *Renderer) ShowGame(g session.GameView) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.State == nil {
		return
	}
	state := g.State
	r.title.Fprintf(r.out, "room %s  phase %s\n", state.RoomID, state.CurrentPhase)
	if state.CurrentPhase == models.GamePhaseGameOver && state.WinnerName != "" {
		r.current.Fprintf(r.out, "winner: %s\n", state.WinnerName)
	}

	fmt.Fprint(r.out, DrawBoard(g.Board, g.Players))

	if g.Board != nil && g.Board.ExtraTile != nil {
		label := "extra tile"
		if g.Pending != nil {
			label = fmt.Sprintf("staged %s %d, out goes", g.Pending.Direction, g.Pending.Index)
		}
		fmt.Fprintf(r.out, "%s:\n%s", label, drawTile(g.Board.ExtraTile))
	}

	self := r.self()
	for i, p := range g.Players {
		line := fmt.Sprintf("%d %s (%d,%d) markers %d/%d",
			i+1, p.Name, p.CurrentX, p.CurrentY,
			len(p.CollectedMarkerIDs), len(p.CollectedMarkerIDs)+len(p.TargetMarkerIDs))
		if p.ID == self {
			line += " (you)"
		}
		switch {
		case p.ID == state.CurrentPlayerID:
			r.current.Fprintln(r.out, line+" <- turn")
		case p.Status == models.PlayerStatusDisconnected:
			r.faint.Fprintln(r.out, line+" disconnected")
		default:
			fmt.Fprintln(r.out, line)
		}
	}
}

func (r *Renderer) ShowError(msg protocol.ErrorMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alert.Fprintf(r.out, "error: %s: %s\n", msg.ErrorType, msg.Message)
}

func (r *Renderer) RedirectToLogin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alert.Fprintln(r.out, "signed out, start again with --login <user> --password <password>")
}

// Notice prints an informational line.
func (r *Renderer) Notice(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Problem prints a local error line.
func (r *Renderer) Problem(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alert.Fprintf(r.out, "error: %v\n", err)
}

// DrawBoard renders the board with each cell as a 3x3 block of walls and
// paths. The centre shows the 1-based index of a player standing there, a
// star for a marker, or a dot for a stationary cell.
func DrawBoard(b *models.Board, players []models.Player) string {
	if b == nil {
		return ""
	}
	occupant := make(map[[2]int]int, len(players))
	for i, p := range players {
		if _, taken := occupant[[2]int{p.CurrentX, p.CurrentY}]; !taken {
			occupant[[2]int{p.CurrentX, p.CurrentY}] = i + 1
		}
	}

	var sb strings.Builder
	sb.WriteString("   ")
	if len(b.Grid) > 0 {
		for x := range b.Grid[0] {
			fmt.Fprintf(&sb, " %d ", x%10)
		}
	}
	sb.WriteByte('\n')

	for y, row := range b.Grid {
		blocks := make([][3]string, len(row))
		for x, cell := range row {
			blocks[x] = cellBlock(cell, occupant[[2]int{x, y}])
		}
		for line := 0; line < 3; line++ {
			if line == 1 {
				fmt.Fprintf(&sb, "%2d ", y)
			} else {
				sb.WriteString("   ")
			}
			for x := range blocks {
				sb.WriteString(blocks[x][line])
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func drawTile(t *models.Tile) string {
	block := tileBlock(t, centre(t, nil, false, 0))
	return block[0] + "\n" + block[1] + "\n" + block[2] + "\n"
}

func cellBlock(c models.Cell, occupant int) [3]string {
	if c.Tile == nil {
		return [3]string{"???", "???", "???"}
	}
	return tileBlock(c.Tile, centre(c.Tile, c.Marker, c.Stationary, occupant))
}

func tileBlock(t *models.Tile, mid rune) [3]string {
	side := func(d models.Direction) rune {
		if t.ConnectsTo(d) {
			return path
		}
		return wall
	}
	return [3]string{
		string([]rune{wall, side(models.DirectionNorth), wall}),
		string([]rune{side(models.DirectionWest), mid, side(models.DirectionEast)}),
		string([]rune{wall, side(models.DirectionSouth), wall}),
	}
}

func centre(t *models.Tile, cellMarker *models.Marker, stationary bool, occupant int) rune {
	switch {
	case occupant > 0 && occupant < 10:
		return rune('0' + occupant)
	case occupant >= 10:
		return '@'
	case cellMarker != nil || (t != nil && t.Marker != nil):
		return '*'
	case stationary:
		return '.'
	}
	return path
}
