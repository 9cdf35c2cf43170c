package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jaminalder/gridmatch/internal/domain"
	"github.com/jaminalder/gridmatch/internal/history"
	"go.uber.org/zap"
)

// Errors exposed by the session layer.
var (
	ErrNoMatch  = errors.New("no match in progress")
	ErrGameOver = errors.New("game over")
)

// Settings chosen at setup time for a match.
type Settings struct {
	Dimension      int
	PlayerOneIcon  int
	PlayerTwoIcon  int
	StartingPlayer domain.Cell
}

// DefaultSettings is a 3x3 board with player one to move.
func DefaultSettings() Settings {
	return Settings{Dimension: 3, PlayerOneIcon: 0, PlayerTwoIcon: 1, StartingPlayer: domain.Player1}
}

// Score is the session tally across finished matches.
type Score struct {
	PlayerOne int
	PlayerTwo int
	Draws     int
}

// GameState is a snapshot of the session's current match.
type GameState struct {
	MatchID    string
	MatchIndex int
	Settings   Settings
	Cells      []domain.Cell
	Turn       domain.Cell
	Moves      int
	Over       bool
	Winner     domain.Cell
	Result     history.Result
	Score      Score
	Created    time.Time
	Updated    time.Time
}

// Dimension returns the board side length.
func (gs GameState) Dimension() int { return gs.Settings.Dimension }

// At returns the owner of (r, c).
func (gs GameState) At(r, c int) domain.Cell { return gs.Cells[r*gs.Settings.Dimension+c] }

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Session owns one board and the match log, and serializes every move through them.
type Session struct {
	mu       sync.Mutex
	log      *zap.Logger
	rec      *history.Recorder
	board    *domain.Board
	settings Settings
	matchID  string
	index    int
	turn     domain.Cell
	over     bool
	winner   domain.Cell
	result   history.Result
	score    Score
	created  time.Time
	updated  time.Time
	subs     map[*subscriber]struct{}
	render   func(GameState) []byte
}

// NewSession creates a session with a renderer that encodes nothing useful.
func NewSession(log *zap.Logger) *Session { return NewSessionWithRenderer(log, nil) }

// NewSessionWithRenderer allows injecting a renderer for broadcast payloads.
func NewSessionWithRenderer(log *zap.Logger, renderer func(GameState) []byte) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if renderer == nil {
		renderer = func(gs GameState) []byte { return nil }
	}
	return &Session{
		log:    log,
		rec:    history.New(log.Named("history")),
		subs:   make(map[*subscriber]struct{}),
		render: renderer,
	}
}

// SetRenderer replaces the broadcast renderer function.
func (s *Session) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(gs GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// StartMatch begins a new match. A match still in progress is recorded as aborted first.
func (s *Session) StartMatch(st Settings) (*GameState, error) {
	s.mu.Lock()
	if err := s.startLocked(st); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return s.unlockAndBroadcast(), nil
}

// Rematch starts a new match with the previous settings.
func (s *Session) Rematch() (*GameState, error) {
	s.mu.Lock()
	if s.board == nil {
		s.mu.Unlock()
		return nil, ErrNoMatch
	}
	if err := s.startLocked(s.settings); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return s.unlockAndBroadcast(), nil
}

func (s *Session) startLocked(st Settings) error {
	board, err := domain.New(st.Dimension)
	if err != nil {
		return err
	}
	if !st.StartingPlayer.IsPlayer() {
		return domain.ErrInvalidPlayer
	}
	if s.running() {
		if err := s.abortLocked(history.Aborted, nil); err != nil {
			return err
		}
	}
	m, err := s.rec.StartMatch(st.PlayerOneIcon, st.PlayerTwoIcon, st.Dimension, st.StartingPlayer)
	if err != nil {
		return err
	}
	now := time.Now()
	s.board = board
	s.settings = st
	s.matchID = m.ID
	s.index = m.Index
	s.turn = st.StartingPlayer
	s.over = false
	s.winner = domain.Empty
	s.result = history.Unresolved
	s.created, s.updated = now, now
	s.log.Info("match started",
		zap.String("match", m.ID),
		zap.Int("dimension", st.Dimension),
		zap.Stringer("starting", st.StartingPlayer),
	)
	return nil
}

func (s *Session) running() bool { return s.board != nil && !s.over }

func (s *Session) checkRunningLocked() error {
	if s.board == nil {
		return ErrNoMatch
	}
	if s.over {
		return ErrGameOver
	}
	return nil
}

// Play claims (r, c) for the player on turn, records it and ends the match on a win or draw.
func (s *Session) Play(r, c int) (*GameState, error) {
	s.mu.Lock()
	if err := s.checkRunningLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	player := s.turn
	out, err := s.board.Apply(r, c, player)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.rec.LogMove(player, domain.Place(r, c)); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("record move: %w", err)
	}
	s.log.Debug("move",
		zap.String("match", s.matchID),
		zap.Stringer("player", player),
		zap.Int("row", r),
		zap.Int("col", c),
		zap.Stringer("outcome", out),
	)
	switch out {
	case domain.Win:
		err = s.finishLocked(history.WinFor(player), player)
	case domain.Draw:
		err = s.finishLocked(history.Draw, domain.Empty)
	default:
		s.turn = player.Opponent()
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.updated = time.Now()
	return s.unlockAndBroadcast(), nil
}

// Surrender ends the match with the player on turn giving up.
func (s *Session) Surrender() (*GameState, error) {
	s.mu.Lock()
	if err := s.checkRunningLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	player := s.turn
	if err := s.rec.LogMove(player, domain.SurrenderMove()); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("record surrender: %w", err)
	}
	if err := s.finishLocked(history.Surrender, player.Opponent()); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.updated = time.Now()
	return s.unlockAndBroadcast(), nil
}

// Fail aborts the running match after a downstream failure, such as a renderer that
// could not show a move the board already accepted.
func (s *Session) Fail(reason error) (*GameState, error) {
	s.mu.Lock()
	if err := s.checkRunningLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.abortLocked(history.Errored, reason); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return s.unlockAndBroadcast(), nil
}

func (s *Session) abortLocked(result history.Result, reason error) error {
	if err := s.rec.LogMove(s.turn, domain.AbortMove()); err != nil {
		return fmt.Errorf("record abort: %w", err)
	}
	if reason != nil {
		s.log.Error("match aborted", zap.String("match", s.matchID), zap.Error(reason))
	}
	s.updated = time.Now()
	return s.finishLocked(result, domain.Empty)
}

func (s *Session) finishLocked(result history.Result, winner domain.Cell) error {
	if err := s.rec.FinishMatch(result); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	s.over = true
	s.result = result
	s.winner = winner
	switch {
	case result == history.Draw:
		s.score.Draws++
	case winner == domain.Player1:
		s.score.PlayerOne++
	case winner == domain.Player2:
		s.score.PlayerTwo++
	}
	return nil
}

// Get returns a copy of the current game state if a match was started.
func (s *Session) Get() (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil, false
	}
	cp := s.snapshotLocked()
	return &cp, true
}

// Score returns the session tally.
func (s *Session) Score() Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Matches returns every recorded match in play order.
func (s *Session) Matches() []history.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Matches()
}

// Replay returns the interleaved turns of the match at index.
func (s *Session) Replay(index int) ([]history.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Replay(index)
}

// Report returns the console report of the match at index.
func (s *Session) Report(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Report(index)
}

func (s *Session) snapshotLocked() GameState {
	return GameState{
		MatchID:    s.matchID,
		MatchIndex: s.index,
		Settings:   s.settings,
		Cells:      s.board.Cells(),
		Turn:       s.turn,
		Moves:      s.board.Filled(),
		Over:       s.over,
		Winner:     s.winner,
		Result:     s.result,
		Score:      s.score,
		Created:    s.created,
		Updated:    s.updated,
	}
}

// unlockAndBroadcast snapshots the state, releases the lock and fans the rendered
// payload out to subscribers. Slow subscribers are dropped.
func (s *Session) unlockAndBroadcast() *GameState {
	cp := s.snapshotLocked()
	subs := s.copySubsLocked()
	payload := s.render(cp)
	s.mu.Unlock()

	var toDrop []*subscriber
	for sub := range subs {
		select {
		case sub.ch <- payload:
		default:
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			delete(s.subs, sub)
		}
		s.mu.Unlock()
		s.log.Debug("dropped slow subscribers", zap.Int("count", len(toDrop)))
	}
	return &cp
}

// Subscribe registers for board updates. Returns a channel and an unsubscribe func.
func (s *Session) Subscribe(ctx context.Context) (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscriber{ch: make(chan []byte, 1)}
	s.subs[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}

func (s *Session) copySubsLocked() map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{}, len(s.subs))
	for k := range s.subs {
		out[k] = struct{}{}
	}
	return out
}
