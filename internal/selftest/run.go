package selftest

import (
	"errors"
	"fmt"

	"github.com/jaminalder/gridmatch/internal/app"
	"github.com/jaminalder/gridmatch/internal/domain"
	"github.com/jaminalder/gridmatch/internal/history"
	"go.uber.org/zap"
)

// ErrUnexpected is wrapped by every failed check.
var ErrUnexpected = errors.New("unexpected engine result")

// Outcome is the result of one scripted match.
type Outcome struct {
	Dimension  int
	Script     string
	MatchIndex int
	Err        error
}

// Passed reports whether the script ended as expected.
func (o Outcome) Passed() bool { return o.Err == nil }

// Run plays every script for each dimension through s, starting each match from base.
// A move the engine rejects ends that match with an error result.
func Run(s *app.Session, log *zap.Logger, base app.Settings, dims ...int) []Outcome {
	if log == nil {
		log = zap.NewNop()
	}
	var out []Outcome
	for _, n := range dims {
		st := base
		st.Dimension = n
		for _, sc := range All(n) {
			o := runScript(s, st, sc)
			if o.Err != nil {
				log.Warn("self test failed",
					zap.Int("dimension", n),
					zap.String("script", sc.Name),
					zap.Error(o.Err),
				)
			}
			out = append(out, o)
		}
	}
	return out
}

func runScript(s *app.Session, st app.Settings, sc Script) Outcome {
	o := Outcome{Dimension: st.Dimension, Script: sc.Name}
	gs, err := s.StartMatch(st)
	if err != nil {
		o.Err = err
		return o
	}
	o.MatchIndex = gs.MatchIndex
	for i, p := range sc.Moves {
		gs, err = s.Play(p.Row, p.Col)
		if err != nil {
			o.Err = fmt.Errorf("move %d %v: %w", i, p, err)
			_, _ = s.Fail(o.Err)
			return o
		}
		last := i == len(sc.Moves)-1
		if gs.Over != last {
			o.Err = fmt.Errorf("%w: move %d %v over=%v", ErrUnexpected, i, p, gs.Over)
			if !gs.Over {
				_, _ = s.Fail(o.Err)
			}
			return o
		}
	}
	want := history.Draw
	if sc.Expect == domain.Win {
		want = history.WinFor(st.StartingPlayer)
	}
	if gs == nil || gs.Result != want {
		o.Err = fmt.Errorf("%w: expected %v", ErrUnexpected, want)
		if gs != nil {
			o.Err = fmt.Errorf("%w: expected %v, got %v", ErrUnexpected, want, gs.Result)
		}
	}
	return o
}
