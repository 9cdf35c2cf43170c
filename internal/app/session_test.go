package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jaminalder/gridmatch/internal/domain"
	"github.com/jaminalder/gridmatch/internal/history"
)

// minimal renderer for tests: encode moves count as bytes
func testRenderer(gs GameState) []byte { return []byte(fmt.Sprintf("moves=%d", gs.Moves)) }

func newTestSession(t *testing.T, st Settings) *Session {
	t.Helper()
	s := NewSessionWithRenderer(nil, testRenderer)
	if _, err := s.StartMatch(st); err != nil {
		t.Fatalf("StartMatch error: %v", err)
	}
	return s
}

func play(t *testing.T, s *Session, moves ...[2]int) *GameState {
	t.Helper()
	var gs *GameState
	for i, m := range moves {
		var err error
		gs, err = s.Play(m[0], m[1])
		if err != nil {
			t.Fatalf("move %d (%v) failed: %v", i, m, err)
		}
	}
	return gs
}

func TestStartMatchAndGet(t *testing.T) {
	s := NewSessionWithRenderer(nil, testRenderer)
	if _, ok := s.Get(); ok {
		t.Fatalf("expected no state before the first match")
	}
	gs, err := s.StartMatch(Settings{Dimension: 5, PlayerOneIcon: 2, PlayerTwoIcon: 3, StartingPlayer: domain.Player2})
	if err != nil {
		t.Fatalf("StartMatch error: %v", err)
	}
	if gs.MatchID == "" || gs.Turn != domain.Player2 || gs.Dimension() != 5 || len(gs.Cells) != 25 {
		t.Fatalf("unexpected state: %+v", gs)
	}
	if gs.Created.IsZero() || gs.Updated.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
	got, ok := s.Get()
	if !ok || got.MatchID != gs.MatchID {
		t.Fatalf("Get should return the started match")
	}
}

func TestStartMatchRejectsInvalidSettings(t *testing.T) {
	s := NewSession(nil)
	if _, err := s.StartMatch(Settings{Dimension: 10, StartingPlayer: domain.Player1}); !errors.Is(err, domain.ErrInvalidDimension) {
		t.Fatalf("expected ErrInvalidDimension, got %v", err)
	}
	if _, err := s.StartMatch(Settings{Dimension: 3}); !errors.Is(err, domain.ErrInvalidPlayer) {
		t.Fatalf("expected ErrInvalidPlayer, got %v", err)
	}
	if len(s.Matches()) != 0 {
		t.Fatalf("rejected settings must not record a match")
	}
}

func TestPlayWithoutMatch(t *testing.T) {
	s := NewSession(nil)
	if _, err := s.Play(0, 0); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if _, err := s.Rematch(); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestPlayAlternatesAndRejectsOccupied(t *testing.T) {
	s := newTestSession(t, DefaultSettings())
	st := play(t, s, [2]int{0, 0})
	if st.At(0, 0) != domain.Player1 || st.Turn != domain.Player2 || st.Moves != 1 {
		t.Fatalf("unexpected state after P1 move: turn=%v moves=%d", st.Turn, st.Moves)
	}
	if _, err := s.Play(0, 0); !errors.Is(err, domain.ErrOccupied) {
		t.Fatalf("expected ErrOccupied, got %v", err)
	}
	if _, err := s.Play(3, 0); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	latest, _ := s.Get()
	if latest.Turn != domain.Player2 || latest.Moves != 1 {
		t.Fatalf("rejected move changed the turn: %+v", latest)
	}
	m := s.Matches()[0]
	if len(m.PlayerOneMoves) != 1 || len(m.PlayerTwoMoves) != 0 {
		t.Fatalf("rejected moves must not be logged: %+v", m)
	}
}

func TestEndToEndRowWin(t *testing.T) {
	s := newTestSession(t, DefaultSettings())
	st := play(t, s, [2]int{0, 0}, [2]int{1, 0}, [2]int{0, 1}, [2]int{1, 1}, [2]int{0, 2})
	if !st.Over || st.Winner != domain.Player1 || st.Result != history.Player1Win {
		t.Fatalf("expected P1 win, got over=%v winner=%v result=%v", st.Over, st.Winner, st.Result)
	}
	if _, err := s.Play(2, 2); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	m := s.Matches()[0]
	if m.Result.Code() != history.CodePlayer1Win {
		t.Fatalf("expected result code 1, got %d", m.Result.Code())
	}
	turns, err := s.Replay(0)
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}
	if len(turns) != 5 {
		t.Fatalf("expected 5 turns, got %d", len(turns))
	}
	for i, tr := range turns {
		want := domain.Player1
		if i%2 == 1 {
			want = domain.Player2
		}
		if tr.Actor != want {
			t.Fatalf("turn %d: expected %v, got %v", i, want, tr.Actor)
		}
	}
	if sc := s.Score(); sc.PlayerOne != 1 || sc.PlayerTwo != 0 {
		t.Fatalf("unexpected score %+v", sc)
	}
}

func TestDrawIsTallied(t *testing.T) {
	s := newTestSession(t, DefaultSettings())
	st := play(t, s,
		[2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2},
		[2]int{1, 1}, [2]int{1, 0}, [2]int{1, 2},
		[2]int{2, 1}, [2]int{2, 0}, [2]int{2, 2},
	)
	if !st.Over || st.Result != history.Draw || st.Winner != domain.Empty {
		t.Fatalf("expected draw, got %+v", st)
	}
	if st.Score.Draws != 1 {
		t.Fatalf("expected one draw, got %+v", st.Score)
	}
}

func TestSurrenderLogsSentinel(t *testing.T) {
	s := newTestSession(t, DefaultSettings())
	play(t, s, [2]int{1, 1})
	st, err := s.Surrender()
	if err != nil {
		t.Fatalf("Surrender error: %v", err)
	}
	if st.Result != history.Surrender || st.Winner != domain.Player1 || st.Score.PlayerOne != 1 {
		t.Fatalf("unexpected state after surrender: %+v", st)
	}
	m := s.Matches()[0]
	if len(m.PlayerTwoMoves) != 1 || m.PlayerTwoMoves[0].Kind != domain.Surrender {
		t.Fatalf("expected P2 surrender sentinel, got %+v", m.PlayerTwoMoves)
	}
	if _, err := s.Surrender(); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
}

func TestStartMatchAbortsRunningMatch(t *testing.T) {
	s := newTestSession(t, DefaultSettings())
	play(t, s, [2]int{0, 0})
	st, err := s.StartMatch(Settings{Dimension: 4, StartingPlayer: domain.Player1})
	if err != nil {
		t.Fatalf("StartMatch error: %v", err)
	}
	if st.MatchIndex != 1 || st.Moves != 0 || st.Dimension() != 4 {
		t.Fatalf("expected a fresh 4x4 match, got %+v", st)
	}
	first := s.Matches()[0]
	if first.Result != history.Aborted || first.Result.Code() != history.CodeNoResult {
		t.Fatalf("expected aborted first match, got %v", first.Result)
	}
	if len(first.PlayerTwoMoves) != 1 || first.PlayerTwoMoves[0].Kind != domain.Aborted {
		t.Fatalf("expected abort sentinel on P2's turn, got %+v", first.PlayerTwoMoves)
	}
}

func TestRematchKeepsSettings(t *testing.T) {
	st := Settings{Dimension: 6, PlayerOneIcon: 1, PlayerTwoIcon: 2, StartingPlayer: domain.Player2}
	s := newTestSession(t, st)
	if _, err := s.Surrender(); err != nil {
		t.Fatalf("Surrender error: %v", err)
	}
	gs, err := s.Rematch()
	if err != nil {
		t.Fatalf("Rematch error: %v", err)
	}
	if gs.Settings != st || gs.Over || gs.MatchIndex != 1 {
		t.Fatalf("unexpected rematch state: %+v", gs)
	}
	if s.Matches()[0].Result != history.Surrender {
		t.Fatalf("finished match must keep its result")
	}
}

func TestFailRecordsError(t *testing.T) {
	s := newTestSession(t, DefaultSettings())
	play(t, s, [2]int{2, 2})
	st, err := s.Fail(errors.New("board could not be rendered"))
	if err != nil {
		t.Fatalf("Fail error: %v", err)
	}
	if !st.Over || st.Result != history.Errored {
		t.Fatalf("expected errored match, got %+v", st)
	}
	m := s.Matches()[0]
	if m.Result.Code() != history.CodeError {
		t.Fatalf("expected code 4, got %d", m.Result.Code())
	}
	if st.At(2, 2) != domain.Player1 {
		t.Fatalf("board must keep the accepted move")
	}
	if _, err := s.Fail(errors.New("again")); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
}

func TestSubscribeAndBroadcast(t *testing.T) {
	s := newTestSession(t, DefaultSettings())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	ch, unsub := s.Subscribe(ctx)
	defer unsub()

	if _, err := s.Play(0, 0); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	select {
	case b, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed unexpectedly")
		}
		if string(b) != "moves=1" {
			t.Fatalf("unexpected broadcast payload: %q", string(b))
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for broadcast")
	}
}

func TestDropSlowSubscriber(t *testing.T) {
	s := newTestSession(t, DefaultSettings())

	// Slow subscriber: never read
	ctxSlow, cancelSlow := context.WithCancel(context.Background())
	defer cancelSlow()
	slowCh, _ := s.Subscribe(ctxSlow)

	ctxFast, cancelFast := context.WithTimeout(context.Background(), time.Second*2)
	defer cancelFast()
	fastCh, unsubFast := s.Subscribe(ctxFast)
	defer unsubFast()

	for i, m := range [][2]int{{0, 0}, {1, 1}} {
		if _, err := s.Play(m[0], m[1]); err != nil {
			t.Fatalf("play%d: %v", i+1, err)
		}
		select {
		case <-fastCh:
		case <-ctxFast.Done():
			t.Fatalf("fast subscriber did not receive update %d in time", i+1)
		}
	}

	// The slow channel holds the first payload and was closed on the second.
	if _, ok := <-slowCh; !ok {
		t.Fatalf("expected buffered payload on slow subscriber")
	}
	if _, ok := <-slowCh; ok {
		t.Fatalf("expected slow subscriber to be closed")
	}
}
