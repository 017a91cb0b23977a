// Package preview projects a staged shift onto the authoritative board for
// display. Nothing here mutates authoritative state.
package preview

import (
	"github.com/MaxIvlevich/labyrinth-game/go/internal/models"
)

// Shift is a staged insertion of the extra tile into one row or column.
type Shift struct {
	Direction models.Direction
	Index     int
	Tile      *models.Tile
}

// Project returns the board as it would look after pending is applied.
// A nil pending, or one that does not fit the board, returns board itself.
// Otherwise the result is a deep copy whose ExtraTile is the tile pushed off
// the far end of the line. Cell markers and stationary flags stay put; tiles
// carry their own markers with them.
func Project(board *models.Board, pending *Shift) *models.Board {
	if pending == nil || !fits(board, pending) {
		return board
	}

	out := board.Clone()
	line := lineCells(out, pending.Direction, pending.Index)
	exiting := line[len(line)-1].Tile
	for i := len(line) - 1; i > 0; i-- {
		line[i].Tile = line[i-1].Tile
	}
	line[0].Tile = pending.Tile.Clone()
	out.ExtraTile = exiting
	return out
}

// ProjectPlayers returns copies of players repositioned by pending. Players
// on the shifted line move with it; the one standing on the exiting tile
// wraps around to the insertion end.
func ProjectPlayers(players []models.Player, size int, pending *Shift) []models.Player {
	out := make([]models.Player, len(players))
	copy(out, players)
	if pending == nil || !pending.Direction.Valid() || pending.Index < 0 || pending.Index >= size {
		return out
	}

	line := linePositions(size, pending.Direction, pending.Index)
	for i := range out {
		p := &out[i]
		for step, pos := range line {
			if pos != [2]int{p.CurrentX, p.CurrentY} {
				continue
			}
			next := line[(step+1)%len(line)]
			p.CurrentX, p.CurrentY = next[0], next[1]
			break
		}
	}
	return out
}

// ShiftableIndices returns the indices of the lines the server lets players
// shift: the odd ones.
func ShiftableIndices(size int) []int {
	var out []int
	for i := 1; i < size; i += 2 {
		out = append(out, i)
	}
	return out
}

func fits(board *models.Board, s *Shift) bool {
	if board == nil || s.Tile == nil || !s.Direction.Valid() {
		return false
	}
	n := len(board.Grid)
	if n == 0 || s.Index < 0 || s.Index >= n {
		return false
	}
	for _, row := range board.Grid {
		if len(row) != n {
			return false
		}
	}
	return true
}

// linePositions lists the (x, y) positions of a line ordered from the
// insertion end to the exit end.
func linePositions(size int, dir models.Direction, index int) [][2]int {
	out := make([][2]int, size)
	for i := 0; i < size; i++ {
		switch dir {
		case models.DirectionSouth:
			out[i] = [2]int{index, i}
		case models.DirectionNorth:
			out[i] = [2]int{index, size - 1 - i}
		case models.DirectionEast:
			out[i] = [2]int{i, index}
		case models.DirectionWest:
			out[i] = [2]int{size - 1 - i, index}
		}
	}
	return out
}

func lineCells(b *models.Board, dir models.Direction, index int) []*models.Cell {
	positions := linePositions(len(b.Grid), dir, index)
	cells := make([]*models.Cell, len(positions))
	for i, pos := range positions {
		cells[i] = b.Cell(pos[0], pos[1])
	}
	return cells
}
