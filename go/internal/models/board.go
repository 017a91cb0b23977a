package models

// Direction is a compass direction used for board shifts and tile openings.
type Direction string

const (
	DirectionNorth Direction = "NORTH"
	DirectionEast  Direction = "EAST"
	DirectionSouth Direction = "SOUTH"
	DirectionWest  Direction = "WEST"
)

// Directions lists every direction in clockwise order starting at north.
var Directions = []Direction{DirectionNorth, DirectionEast, DirectionSouth, DirectionWest}

// Valid reports whether d is one of the four known directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionNorth, DirectionEast, DirectionSouth, DirectionWest:
		return true
	}
	return false
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionNorth:
		return DirectionSouth
	case DirectionEast:
		return DirectionWest
	case DirectionSouth:
		return DirectionNorth
	case DirectionWest:
		return DirectionEast
	}
	return d
}

// IsHorizontal reports whether d shifts a row.
func (d Direction) IsHorizontal() bool {
	return d == DirectionEast || d == DirectionWest
}

// IsVertical reports whether d shifts a column.
func (d Direction) IsVertical() bool {
	return d == DirectionNorth || d == DirectionSouth
}

// TileType defines the shape of a labyrinth tile.
type TileType string

const (
	TileTypeStraight TileType = "STRAIGHT"
	TileTypeCorner   TileType = "CORNER"
	TileTypeTShaped  TileType = "T_SHAPED"
)

// OrientationCount is the number of discrete quarter-turn orientations.
const OrientationCount = 4

// Marker is a collectible target, placed either on a tile or on a cell.
type Marker struct {
	ID       int    `json:"id"`
	PlayerID string `json:"playerId,omitempty"`
}

// Tile is a movable board piece.
type Tile struct {
	Type        TileType `json:"type"`
	Orientation int      `json:"orientation"`
	Marker      *Marker  `json:"marker,omitempty"`
}

// Clone returns a deep copy of t. A nil tile clones to nil.
func (t *Tile) Clone() *Tile {
	if t == nil {
		return nil
	}
	c := *t
	if t.Marker != nil {
		m := *t.Marker
		c.Marker = &m
	}
	return &c
}

// Rotated returns a copy of t turned a quarter clockwise.
func (t *Tile) Rotated() *Tile {
	c := t.Clone()
	if c == nil {
		return nil
	}
	c.Orientation = normalizeOrientation(c.Orientation + 1)
	return c
}

// OpenSides returns the directions a path leaves the tile through.
//
// Corner orientations: 0 N-E, 1 E-S, 2 S-W, 3 W-N.
// T-shaped orientations: 0 no south, 1 no west, 2 no north, 3 no east.
// Straight tiles only distinguish even (vertical) from odd (horizontal).
func (t *Tile) OpenSides() []Direction {
	if t == nil {
		return nil
	}
	o := normalizeOrientation(t.Orientation)
	switch t.Type {
	case TileTypeStraight:
		if o%2 == 0 {
			return []Direction{DirectionNorth, DirectionSouth}
		}
		return []Direction{DirectionEast, DirectionWest}
	case TileTypeCorner:
		return []Direction{Directions[o], Directions[(o+1)%OrientationCount]}
	case TileTypeTShaped:
		closed := Directions[(o+2)%OrientationCount]
		open := make([]Direction, 0, 3)
		for _, d := range Directions {
			if d != closed {
				open = append(open, d)
			}
		}
		return open
	}
	return nil
}

// ConnectsTo reports whether the tile is open towards d.
func (t *Tile) ConnectsTo(d Direction) bool {
	for _, side := range t.OpenSides() {
		if side == d {
			return true
		}
	}
	return false
}

func normalizeOrientation(o int) int {
	o %= OrientationCount
	if o < 0 {
		o += OrientationCount
	}
	return o
}

// Cell is one board position. Stationary cells never move during a shift;
// a cell-level marker stays with the cell while tile markers travel with tiles.
type Cell struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Stationary bool    `json:"stationary"`
	Tile       *Tile   `json:"tile,omitempty"`
	Marker     *Marker `json:"marker,omitempty"`
}

// Board is the square labyrinth grid, stored row-major: Grid[y][x].
type Board struct {
	Size      int      `json:"size"`
	Grid      [][]Cell `json:"grid"`
	ExtraTile *Tile    `json:"extraTile,omitempty"`
}

// InBounds reports whether (x, y) addresses a cell of the board.
func (b *Board) InBounds(x, y int) bool {
	return b != nil && y >= 0 && y < len(b.Grid) && x >= 0 && x < len(b.Grid[y])
}

// Cell returns the cell at (x, y), or nil when out of bounds.
func (b *Board) Cell(x, y int) *Cell {
	if !b.InBounds(x, y) {
		return nil
	}
	return &b.Grid[y][x]
}

// Clone returns a deep copy of the board, including tiles and markers.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	c := &Board{
		Size:      b.Size,
		Grid:      make([][]Cell, len(b.Grid)),
		ExtraTile: b.ExtraTile.Clone(),
	}
	for y, row := range b.Grid {
		c.Grid[y] = make([]Cell, len(row))
		for x, cell := range row {
			cell.Tile = cell.Tile.Clone()
			if cell.Marker != nil {
				m := *cell.Marker
				cell.Marker = &m
			}
			c.Grid[y][x] = cell
		}
	}
	return c
}
