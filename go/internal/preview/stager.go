package preview

import (
	"errors"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/models"
)

var (
	// ErrNoExtraTile is returned when the board offers nothing to stage.
	ErrNoExtraTile = errors.New("board has no extra tile")
	// ErrInvalidShift is returned for an unknown direction or for an index
	// that is off the board or names a fixed (even) line.
	ErrInvalidShift = errors.New("invalid shift")
)

// Stager holds at most one pending shift. It is not safe for concurrent use.
type Stager struct {
	pending *Shift
}

// Stage sets the pending shift to insert the board's extra tile at
// (dir, index). When a shift is already pending, its tile is relocated with
// its current orientation instead of stacking a second one.
func (s *Stager) Stage(board *models.Board, dir models.Direction, index int) error {
	if board == nil || board.ExtraTile == nil {
		return ErrNoExtraTile
	}
	if !dir.Valid() || index < 0 || index >= len(board.Grid) || index%2 == 0 {
		return ErrInvalidShift
	}

	if s.pending != nil {
		s.pending.Direction = dir
		s.pending.Index = index
		return nil
	}
	s.pending = &Shift{Direction: dir, Index: index, Tile: board.ExtraTile.Clone()}
	return nil
}

// Rotate turns the staged tile a quarter clockwise. It reports false when
// nothing is staged.
func (s *Stager) Rotate() bool {
	if s.pending == nil {
		return false
	}
	s.pending.Tile = s.pending.Tile.Rotated()
	return true
}

// Cancel drops the pending shift.
func (s *Stager) Cancel() {
	s.pending = nil
}

// Confirm returns the pending shift and clears it.
func (s *Stager) Confirm() (Shift, bool) {
	p, ok := s.Pending()
	s.pending = nil
	return p, ok
}

// Pending returns a copy of the pending shift.
func (s *Stager) Pending() (Shift, bool) {
	if s.pending == nil {
		return Shift{}, false
	}
	p := *s.pending
	p.Tile = p.Tile.Clone()
	return p, true
}
