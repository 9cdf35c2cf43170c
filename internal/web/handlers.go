package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jaminalder/gridmatch/internal/app"
	"github.com/jaminalder/gridmatch/internal/domain"
	"github.com/jaminalder/gridmatch/internal/history"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

type handlers struct {
	svc      *app.Session
	tpl      *templates
	glyphs   []string
	defaults app.Settings
	log      *zap.Logger
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) ([]byte, error) {
	return renderTemplate(h.tpl.board, "", newBoardView(gs, h.glyphs, errMsg))
}

// broadcast is the session renderer for SSE subscribers.
func (h *handlers) broadcast(gs app.GameState) []byte {
	b, err := h.renderBoard(gs, "")
	if err != nil {
		h.log.Error("render broadcast", zap.Error(err))
		return nil
	}
	return b
}

// writeBoard sends the board fragment. A board the session accepted but that cannot be
// shown ends the match with an error result.
func (h *handlers) writeBoard(w http.ResponseWriter, gs app.GameState, errMsg string) {
	b, err := h.renderBoard(gs, errMsg)
	if err != nil {
		h.log.Error("render board", zap.String("match", gs.MatchID), zap.Error(err))
		if _, ferr := h.svc.Fail(fmt.Errorf("render board: %w", err)); ferr != nil {
			h.log.Debug("fail after render error", zap.Error(ferr))
		}
		http.Error(w, "failed to render board", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	st := h.defaults
	if gs, ok := h.svc.Get(); ok {
		st = gs.Settings
	}
	data := indexView{
		Min:       domain.MinDimension,
		Max:       domain.MaxDimension,
		Dimension: st.Dimension,
		Glyphs:    h.glyphs,
		P1:        st.PlayerOneIcon,
		P2:        st.PlayerTwoIcon,
		Starting:  int(st.StartingPlayer),
	}
	b, err := renderTemplate(h.tpl.index, "base", data)
	if err != nil {
		h.log.Error("render index", zap.Error(err))
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func formInt(r *http.Request, key string, def int) (int, error) {
	v := r.Form.Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	st := h.defaults
	var err error
	var starting int
	if st.Dimension, err = formInt(r, "dimension", st.Dimension); err != nil {
		http.Error(w, "invalid dimension", http.StatusBadRequest)
		return
	}
	if st.PlayerOneIcon, err = formInt(r, "p1", st.PlayerOneIcon); err != nil {
		http.Error(w, "invalid icon", http.StatusBadRequest)
		return
	}
	if st.PlayerTwoIcon, err = formInt(r, "p2", st.PlayerTwoIcon); err != nil {
		http.Error(w, "invalid icon", http.StatusBadRequest)
		return
	}
	if starting, err = formInt(r, "starting", int(st.StartingPlayer)); err != nil || starting < 0 || starting > 255 {
		http.Error(w, "invalid starting player", http.StatusBadRequest)
		return
	}
	st.StartingPlayer = domain.Cell(starting)
	if st.PlayerOneIcon == st.PlayerTwoIcon || glyph(h.glyphs, st.PlayerOneIcon) == "?" || glyph(h.glyphs, st.PlayerTwoIcon) == "?" {
		http.Error(w, "players need two different icons", http.StatusBadRequest)
		return
	}
	if _, err := h.svc.StartMatch(st); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidDimension):
			http.Error(w, "dimension must be between 3 and 9", http.StatusBadRequest)
		case errors.Is(err, domain.ErrInvalidPlayer):
			http.Error(w, "invalid starting player", http.StatusBadRequest)
		default:
			h.log.Error("start match", zap.Error(err))
			http.Error(w, "failed to create", http.StatusInternalServerError)
		}
		return
	}
	http.Redirect(w, r, "/match", http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get()
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	// The page embeds the board through the shared "board" definition.
	b, err := renderTemplate(h.tpl.game, "base", newBoardView(*gs, h.glyphs, ""))
	if err != nil {
		h.log.Error("render page", zap.Error(err))
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrNoMatch):
		return "No match in progress"
	case errors.Is(err, app.ErrGameOver):
		return "Game is over"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	default:
		return "Invalid move"
	}
}

// respond writes the board after a session call, showing err inline when the move was refused.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, gs *app.GameState, err error) {
	var errMsg string
	if err != nil {
		errMsg = errorMessage(err)
		gs = nil
		if g, ok := h.svc.Get(); ok {
			gs = g
		}
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	h.writeBoard(w, *gs, errMsg)
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	ri, err1 := strconv.Atoi(r.Form.Get("r"))
	ci, err2 := strconv.Atoi(r.Form.Get("c"))
	if err1 != nil || err2 != nil {
		h.respond(w, r, nil, domain.ErrOutOfBounds)
		return
	}
	gs, err := h.svc.Play(ri, ci)
	h.respond(w, r, gs, err)
}

func (h *handlers) surrender(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Surrender()
	h.respond(w, r, gs, err)
}

func (h *handlers) rematch(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Rematch()
	h.respond(w, r, gs, err)
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub := h.svc.Subscribe(ctx)
	defer unsub()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			_, _ = io.WriteString(w, "event: board\n")
			for _, line := range bytes.Split(b, []byte("\n")) {
				_, _ = fmt.Fprintf(w, "data: %s\n", line)
			}
			_, _ = io.WriteString(w, "\n")
			flusher.Flush()
		}
	}
}

type stateJSON struct {
	MatchID    string  `json:"matchId"`
	MatchIndex int     `json:"matchIndex"`
	Dimension  int     `json:"dimension"`
	Cells      [][]int `json:"cells"`
	Turn       int     `json:"turn"`
	Moves      int     `json:"moves"`
	Over       bool    `json:"over"`
	Winner     int     `json:"winner"`
	Result     string  `json:"result"`
	Code       int     `json:"code"`
}

func newStateJSON(gs app.GameState) stateJSON {
	n := gs.Dimension()
	cells := make([][]int, n)
	for r := 0; r < n; r++ {
		cells[r] = make([]int, n)
		for c := 0; c < n; c++ {
			cells[r][c] = int(gs.At(r, c))
		}
	}
	return stateJSON{
		MatchID:    gs.MatchID,
		MatchIndex: gs.MatchIndex,
		Dimension:  n,
		Cells:      cells,
		Turn:       int(gs.Turn),
		Moves:      gs.Moves,
		Over:       gs.Over,
		Winner:     int(gs.Winner),
		Result:     gs.Result.String(),
		Code:       gs.Result.Code(),
	}
}

type matchJSON struct {
	ID             string `json:"id"`
	Index          int    `json:"index"`
	Dimension      int    `json:"dimension"`
	PlayerOneIcon  int    `json:"playerOneIcon"`
	PlayerTwoIcon  int    `json:"playerTwoIcon"`
	StartingPlayer int    `json:"startingPlayer"`
	PlayerOneMoves int    `json:"playerOneMoves"`
	PlayerTwoMoves int    `json:"playerTwoMoves"`
	Result         string `json:"result"`
	Code           int    `json:"code"`
}

type turnJSON struct {
	Number  int    `json:"number"`
	Actor   int    `json:"actor"`
	Kind    string `json:"kind"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Ignored bool   `json:"ignored,omitempty"`
}

var moveKinds = map[domain.MoveKind]string{
	domain.Placement: "placement",
	domain.Surrender: "surrender",
	domain.Aborted:   "aborted",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handlers) matches(w http.ResponseWriter, r *http.Request) {
	ms := h.svc.Matches()
	out := make([]matchJSON, 0, len(ms))
	for _, m := range ms {
		out = append(out, matchJSON{
			ID:             m.ID,
			Index:          m.Index,
			Dimension:      m.Dimension,
			PlayerOneIcon:  m.PlayerOneIcon,
			PlayerTwoIcon:  m.PlayerTwoIcon,
			StartingPlayer: int(m.StartingPlayer),
			PlayerOneMoves: len(m.PlayerOneMoves),
			PlayerTwoMoves: len(m.PlayerTwoMoves),
			Result:         m.Result.String(),
			Code:           m.Result.Code(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func matchIndex(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	return i, err == nil
}

func (h *handlers) replay(w http.ResponseWriter, r *http.Request) {
	idx, ok := matchIndex(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "invalid match index")
		return
	}
	turns, err := h.svc.Replay(idx)
	if errors.Is(err, history.ErrUnknownMatch) {
		writeJSONError(w, http.StatusNotFound, "unknown match")
		return
	}
	out := make([]turnJSON, 0, len(turns))
	for _, t := range turns {
		row, col := t.Move.Coords()
		out = append(out, turnJSON{
			Number:  t.Number,
			Actor:   int(t.Actor),
			Kind:    moveKinds[t.Move.Kind],
			Row:     row,
			Col:     col,
			Ignored: t.Ignored,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	idx, ok := matchIndex(r)
	if !ok {
		http.Error(w, "invalid match index", http.StatusBadRequest)
		return
	}
	text, err := h.svc.Report(idx)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, text)
}

type moveRequest struct {
	Row int `mapstructure:"row"`
	Col int `mapstructure:"col"`
}

func (h *handlers) apiMove(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	var req moveRequest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &req,
		ErrorUnused: true,
		ErrorUnset:  true,
	})
	if err == nil {
		err = dec.Decode(body)
	}
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "expected {row, col}")
		return
	}
	gs, err := h.svc.Play(req.Row, req.Col)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, app.ErrNoMatch) {
			status = http.StatusNotFound
		} else if errors.Is(err, app.ErrGameOver) {
			status = http.StatusConflict
		}
		writeJSONError(w, status, errorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, newStateJSON(*gs))
}

func (h *handlers) apiState(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get()
	if !ok {
		writeJSONError(w, http.StatusNotFound, errorMessage(app.ErrNoMatch))
		return
	}
	writeJSON(w, http.StatusOK, newStateJSON(*gs))
}
