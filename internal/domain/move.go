package domain

import "fmt"

// MoveKind tags what a logged move stands for.
type MoveKind uint8

const (
	Placement MoveKind = iota
	Surrender
	Aborted
)

// Sentinel coordinates used by the legacy move log encoding.
const (
	SurrenderCoord = -1
	AbortedCoord   = -2
)

// Move is one entry of a player's move log: a placement or a non-placement event.
type Move struct {
	Kind MoveKind
	Pos  Pos
}

// Place returns a placement move at (r, c).
func Place(r, c int) Move { return Move{Kind: Placement, Pos: Pos{Row: r, Col: c}} }

// SurrenderMove marks the player giving up.
func SurrenderMove() Move { return Move{Kind: Surrender} }

// AbortMove marks the match being cut short on the player's turn.
func AbortMove() Move { return Move{Kind: Aborted} }

// IsPlacement reports whether m claims a cell.
func (m Move) IsPlacement() bool { return m.Kind == Placement }

// Coords encodes m on the coordinate channel, using (-1,-1) for surrender and (-2,-2) for abort.
func (m Move) Coords() (int, int) {
	switch m.Kind {
	case Surrender:
		return SurrenderCoord, SurrenderCoord
	case Aborted:
		return AbortedCoord, AbortedCoord
	default:
		return m.Pos.Row, m.Pos.Col
	}
}

// MoveFromCoords decodes the coordinate channel. Rows carry the sentinel, as in old logs.
func MoveFromCoords(r, c int) Move {
	switch r {
	case SurrenderCoord:
		return SurrenderMove()
	case AbortedCoord:
		return AbortMove()
	default:
		return Place(r, c)
	}
}

func (m Move) String() string {
	switch m.Kind {
	case Surrender:
		return "surrender"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("(%d, %d)", m.Pos.Row, m.Pos.Col)
	}
}
