package domain

import "errors"

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	Player1
	Player2
)

// Supported board dimensions.
const (
	MinDimension = 3
	MaxDimension = 9
)

// IsPlayer reports whether c identifies one of the two players.
func (c Cell) IsPlayer() bool { return c == Player1 || c == Player2 }

// Opponent returns the other player, or Empty for a non-player.
func (c Cell) Opponent() Cell {
	switch c {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return Empty
	}
}

func (c Cell) String() string {
	switch c {
	case Player1:
		return "P1"
	case Player2:
		return "P2"
	default:
		return "empty"
	}
}

// Outcome is the terminal condition observed after a move.
type Outcome uint8

const (
	None Outcome = iota
	Win
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "none"
	}
}

// Pos is a zero-based (row, col) coordinate.
type Pos struct {
	Row int
	Col int
}

// Errors returned by board operations.
var (
	ErrInvalidDimension = errors.New("dimension out of range")
	ErrInvalidPlayer    = errors.New("invalid player")
	ErrOutOfBounds      = errors.New("out of bounds")
	ErrOccupied         = errors.New("cell occupied")
)

// Board is a square grid stored row-major. Create it with New; the zero value is not usable.
type Board struct {
	dim      int
	cells    []Cell
	filled   int
	diagonal []bool
}

// ValidDimension reports whether n is a supported board dimension.
func ValidDimension(n int) bool { return n >= MinDimension && n <= MaxDimension }

// New returns an empty board of the given dimension.
func New(dimension int) (*Board, error) {
	if !ValidDimension(dimension) {
		return nil, ErrInvalidDimension
	}
	b := &Board{
		dim:      dimension,
		cells:    make([]Cell, dimension*dimension),
		diagonal: make([]bool, dimension*dimension),
	}
	for i := 0; i < dimension; i++ {
		b.diagonal[b.index(i, i)] = true
		b.diagonal[b.index(i, dimension-1-i)] = true
	}
	return b, nil
}

func (b *Board) index(r, c int) int { return r*b.dim + c }

// Dimension returns the side length of the board.
func (b *Board) Dimension() int { return b.dim }

// Filled returns the number of claimed cells.
func (b *Board) Filled() int { return b.filled }

// Full reports whether every cell is claimed.
func (b *Board) Full() bool { return b.filled >= len(b.cells) }

// InBounds reports whether (r, c) lies on the board.
func (b *Board) InBounds(r, c int) bool {
	return r >= 0 && c >= 0 && r < b.dim && c < b.dim
}

// At returns the owner of (r, c). Out of bounds coordinates read as Empty.
func (b *Board) At(r, c int) Cell {
	if !b.InBounds(r, c) {
		return Empty
	}
	return b.cells[b.index(r, c)]
}

// OnDiagonal reports whether (r, c) lies on the main or the anti diagonal.
func (b *Board) OnDiagonal(r, c int) bool {
	return b.InBounds(r, c) && b.diagonal[b.index(r, c)]
}

// Cells returns a row-major copy of the grid.
func (b *Board) Cells() []Cell {
	out := make([]Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

// PlaceMove claims (r, c) for player. The board is left untouched on error.
func (b *Board) PlaceMove(r, c int, player Cell) error {
	if !player.IsPlayer() {
		return ErrInvalidPlayer
	}
	if !b.InBounds(r, c) {
		return ErrOutOfBounds
	}
	idx := b.index(r, c)
	if b.cells[idx] != Empty {
		return ErrOccupied
	}
	b.cells[idx] = player
	b.filled++
	return nil
}

// IsTerminalAfterMove evaluates the position right after player claimed (r, c).
// Only lines through (r, c) can have been completed by that move, so only those are scanned.
func (b *Board) IsTerminalAfterMove(r, c int, player Cell) Outcome {
	if !player.IsPlayer() {
		return None
	}
	if b.CheckRow(r, player) || b.CheckColumn(c, player) {
		return Win
	}
	if b.OnDiagonal(r, c) && (b.CheckMainDiagonal(player) || b.CheckAntiDiagonal(player)) {
		return Win
	}
	if b.Full() {
		return Draw
	}
	return None
}

// Apply places a move and evaluates it in one step.
func (b *Board) Apply(r, c int, player Cell) (Outcome, error) {
	if err := b.PlaceMove(r, c, player); err != nil {
		return None, err
	}
	return b.IsTerminalAfterMove(r, c, player), nil
}

// CheckRow reports whether every cell of row r belongs to player.
func (b *Board) CheckRow(r int, player Cell) bool {
	if r < 0 || r >= b.dim {
		return false
	}
	for i := 0; i < b.dim; i++ {
		if b.cells[b.index(r, i)] != player {
			return false
		}
	}
	return true
}

// CheckColumn reports whether every cell of column c belongs to player.
func (b *Board) CheckColumn(c int, player Cell) bool {
	if c < 0 || c >= b.dim {
		return false
	}
	for i := 0; i < b.dim; i++ {
		if b.cells[b.index(i, c)] != player {
			return false
		}
	}
	return true
}

// CheckMainDiagonal scans the cells where row == col.
func (b *Board) CheckMainDiagonal(player Cell) bool {
	for i := 0; i < b.dim; i++ {
		if b.cells[b.index(i, i)] != player {
			return false
		}
	}
	return true
}

// CheckAntiDiagonal scans the cells where col == dimension-1-row.
func (b *Board) CheckAntiDiagonal(player Cell) bool {
	for i := 0; i < b.dim; i++ {
		if b.cells[b.index(i, b.dim-1-i)] != player {
			return false
		}
	}
	return true
}
