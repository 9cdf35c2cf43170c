package history

import (
	"fmt"
	"strings"

	"github.com/jaminalder/gridmatch/internal/domain"
)

// Turn is one line of a replay.
type Turn struct {
	// Number is the index into the actor's own move sequence; both players share it per round.
	Number int
	Actor  domain.Cell
	Move   domain.Move
	// Ignored marks entries logged after the actor's surrender or abort.
	Ignored bool
}

// Replay interleaves both move sequences of the match at index, starting with the
// starting player. Entries are paired by sequence index up to the longer sequence,
// so sentinels count toward the length like any other entry.
func (r *Recorder) Replay(index int) ([]Turn, error) {
	m, err := r.at(index)
	if err != nil {
		return nil, err
	}
	return replay(*m), nil
}

func replay(m Match) []Turn {
	first := m.StartingPlayer
	second := first.Opponent()
	a, b := m.Moves(first), m.Moves(second)
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]Turn, 0, len(a)+len(b))
	var endedA, endedB bool
	for i := 0; i < n; i++ {
		if i < len(a) {
			out = append(out, Turn{Number: i, Actor: first, Move: a[i], Ignored: endedA})
			endedA = endedA || !a[i].IsPlacement()
		}
		if i < len(b) {
			out = append(out, Turn{Number: i, Actor: second, Move: b[i], Ignored: endedB})
			endedB = endedB || !b[i].IsPlacement()
		}
	}
	return out
}

// Report renders the match at index as text for the console.
func (r *Recorder) Report(index int) (string, error) {
	m, err := r.at(index)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "========\nGAME %d (%s)\n", m.Index, m.ID)
	fmt.Fprintf(&sb, "Board dimension: %d\n", m.Dimension)
	fmt.Fprintf(&sb, "Player one icon: %d\n", m.PlayerOneIcon)
	fmt.Fprintf(&sb, "Player two icon: %d\n", m.PlayerTwoIcon)
	fmt.Fprintf(&sb, "Result: %d (%s)\n", m.Result.Code(), m.Result)
	fmt.Fprintf(&sb, "Starting player: %s\n", m.StartingPlayer)
	for _, t := range replay(*m) {
		sb.WriteString(t.String())
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func (t Turn) String() string {
	var line string
	switch t.Move.Kind {
	case domain.Surrender:
		line = fmt.Sprintf("Turn %d: %s surrenders", t.Number, t.Actor)
	case domain.Aborted:
		line = fmt.Sprintf("Turn %d: game ended on %s's turn", t.Number, t.Actor)
	default:
		line = fmt.Sprintf("Turn %d: %s moves to %s", t.Number, t.Actor, t.Move)
	}
	if t.Ignored {
		line += " (ignored)"
	}
	return line
}
