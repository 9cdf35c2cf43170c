package history

import (
	"fmt"
	"time"

	"github.com/jaminalder/gridmatch/internal/domain"
)

// Result is how a match ended.
type Result uint8

const (
	Unresolved Result = iota
	Player1Win
	Player2Win
	Draw
	Surrender
	Aborted
	Errored
)

// Result codes of the legacy log format.
const (
	CodeNoResult   = 0
	CodePlayer1Win = 1
	CodePlayer2Win = 2
	CodeDraw       = 3
	CodeError      = 4
)

// Code maps r onto the legacy result codes. Surrender has no code of its own and
// reports as "no result"; the surrender itself is kept in the move log.
func (r Result) Code() int {
	switch r {
	case Player1Win:
		return CodePlayer1Win
	case Player2Win:
		return CodePlayer2Win
	case Draw:
		return CodeDraw
	case Errored:
		return CodeError
	default:
		return CodeNoResult
	}
}

// ResultFromCode decodes a legacy result code. Code 0 means the match was replaced by a new game.
func ResultFromCode(code int) (Result, error) {
	switch code {
	case CodeNoResult:
		return Aborted, nil
	case CodePlayer1Win:
		return Player1Win, nil
	case CodePlayer2Win:
		return Player2Win, nil
	case CodeDraw:
		return Draw, nil
	case CodeError:
		return Errored, nil
	}
	return Unresolved, fmt.Errorf("%w: %d", ErrInvalidResult, code)
}

// WinFor returns the win result for player.
func WinFor(player domain.Cell) Result {
	switch player {
	case domain.Player1:
		return Player1Win
	case domain.Player2:
		return Player2Win
	default:
		return Unresolved
	}
}

func (r Result) String() string {
	switch r {
	case Player1Win:
		return "player one wins"
	case Player2Win:
		return "player two wins"
	case Draw:
		return "draw"
	case Surrender:
		return "surrender"
	case Aborted:
		return "aborted"
	case Errored:
		return "error"
	default:
		return "unresolved"
	}
}

// Match is the record of a single match.
type Match struct {
	ID             string
	Index          int
	PlayerOneIcon  int
	PlayerTwoIcon  int
	Dimension      int
	StartingPlayer domain.Cell
	PlayerOneMoves []domain.Move
	PlayerTwoMoves []domain.Move
	Result         Result
	Started        time.Time
	Finished       time.Time
}

// Done reports whether the match has a result and is frozen.
func (m Match) Done() bool { return m.Result != Unresolved }

// Moves returns the move sequence of player.
func (m Match) Moves(player domain.Cell) []domain.Move {
	if player == domain.Player2 {
		return m.PlayerTwoMoves
	}
	return m.PlayerOneMoves
}

func (m Match) clone() Match {
	cp := m
	cp.PlayerOneMoves = append([]domain.Move(nil), m.PlayerOneMoves...)
	cp.PlayerTwoMoves = append([]domain.Move(nil), m.PlayerTwoMoves...)
	return cp
}
