package history

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jaminalder/gridmatch/internal/domain"
	"go.uber.org/zap"
)

// Errors returned by the recorder.
var (
	ErrNoMatch       = errors.New("no match recorded")
	ErrMatchFinished = errors.New("match already finished")
	ErrInvalidResult = errors.New("invalid result")
	ErrUnknownMatch  = errors.New("unknown match")
)

// Recorder is an append-only log of the matches played in a session.
// It trusts its caller: moves are not checked against any board.
// A Recorder is not safe for concurrent use.
type Recorder struct {
	log     *zap.Logger
	matches []*Match
	now     func() time.Time
}

// New returns an empty recorder. A nil logger disables logging.
func New(log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{log: log, now: time.Now}
}

// StartMatch appends a new unresolved match which becomes the current one.
func (r *Recorder) StartMatch(p1Icon, p2Icon, dimension int, starting domain.Cell) (Match, error) {
	if !starting.IsPlayer() {
		return Match{}, domain.ErrInvalidPlayer
	}
	if !domain.ValidDimension(dimension) {
		return Match{}, domain.ErrInvalidDimension
	}
	m := &Match{
		ID:             uuid.NewString(),
		Index:          len(r.matches),
		PlayerOneIcon:  p1Icon,
		PlayerTwoIcon:  p2Icon,
		Dimension:      dimension,
		StartingPlayer: starting,
		Started:        r.now(),
	}
	r.matches = append(r.matches, m)
	r.log.Debug("match started",
		zap.String("match", m.ID),
		zap.Int("index", m.Index),
		zap.Int("dimension", dimension),
		zap.Stringer("starting", starting),
	)
	return m.clone(), nil
}

func (r *Recorder) current() (*Match, error) {
	if len(r.matches) == 0 {
		return nil, ErrNoMatch
	}
	return r.matches[len(r.matches)-1], nil
}

// LogMove appends move to player's sequence in the current match.
func (r *Recorder) LogMove(player domain.Cell, move domain.Move) error {
	m, err := r.current()
	if err != nil {
		return err
	}
	return r.logInto(m, player, move)
}

// LogMoveAt appends a coordinate-encoded move to the match at index.
func (r *Recorder) LogMoveAt(index int, player domain.Cell, row, col int) error {
	m, err := r.at(index)
	if err != nil {
		return err
	}
	return r.logInto(m, player, domain.MoveFromCoords(row, col))
}

func (r *Recorder) logInto(m *Match, player domain.Cell, move domain.Move) error {
	if m.Done() {
		return ErrMatchFinished
	}
	switch player {
	case domain.Player1:
		m.PlayerOneMoves = append(m.PlayerOneMoves, move)
	case domain.Player2:
		m.PlayerTwoMoves = append(m.PlayerTwoMoves, move)
	default:
		return domain.ErrInvalidPlayer
	}
	return nil
}

// FinishMatch sets the result of the current match and freezes it.
func (r *Recorder) FinishMatch(result Result) error {
	m, err := r.current()
	if err != nil {
		return err
	}
	if result == Unresolved || result > Errored {
		return ErrInvalidResult
	}
	if m.Done() {
		return ErrMatchFinished
	}
	m.Result = result
	m.Finished = r.now()
	r.log.Info("match finished",
		zap.String("match", m.ID),
		zap.Int("index", m.Index),
		zap.Stringer("result", result),
		zap.Int("code", result.Code()),
	)
	return nil
}

// FinishMatchCode is FinishMatch for a legacy result code.
func (r *Recorder) FinishMatchCode(code int) error {
	res, err := ResultFromCode(code)
	if err != nil {
		return err
	}
	return r.FinishMatch(res)
}

func (r *Recorder) at(index int) (*Match, error) {
	if index < 0 || index >= len(r.matches) {
		return nil, ErrUnknownMatch
	}
	return r.matches[index], nil
}

// Len returns the number of recorded matches.
func (r *Recorder) Len() int { return len(r.matches) }

// Current returns a copy of the current match.
func (r *Recorder) Current() (Match, bool) {
	m, err := r.current()
	if err != nil {
		return Match{}, false
	}
	return m.clone(), true
}

// Match returns a copy of the match at index.
func (r *Recorder) Match(index int) (Match, error) {
	m, err := r.at(index)
	if err != nil {
		return Match{}, err
	}
	return m.clone(), nil
}

// Lookup returns the index of the match with the given id.
func (r *Recorder) Lookup(id string) (int, bool) {
	for i, m := range r.matches {
		if m.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Matches returns copies of every match in insertion order.
func (r *Recorder) Matches() []Match {
	out := make([]Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m.clone())
	}
	return out
}
