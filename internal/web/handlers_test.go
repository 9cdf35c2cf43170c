package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jaminalder/gridmatch/internal/app"
	"github.com/jaminalder/gridmatch/internal/domain"
	"github.com/jaminalder/gridmatch/internal/history"
)

func newTestServer(t *testing.T) (*app.Session, http.Handler) {
	t.Helper()
	s := app.NewSession(nil)
	h := NewServer(s, Options{Glyphs: []string{"X", "O", "#"}})
	return s, h
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	rr := get(h, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/match\"") {
		t.Fatalf("index should contain setup form; got body: %q", body)
	}
	if !strings.Contains(body, "9x9") || strings.Contains(body, "10x10") {
		t.Fatalf("index should offer dimensions 3 to 9; got body: %q", body)
	}
}

func TestCreateRedirectsToMatch(t *testing.T) {
	s, h := newTestServer(t)
	rr := postForm(h, "/match", url.Values{"dimension": {"5"}, "p1": {"2"}, "p2": {"1"}, "starting": {"2"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Result().Header.Get("Location"); loc != "/match" {
		t.Fatalf("expected redirect to /match, got %q", loc)
	}
	gs, ok := s.Get()
	if !ok || gs.Dimension() != 5 || gs.Turn != domain.Player2 || gs.Settings.PlayerOneIcon != 2 {
		t.Fatalf("unexpected match state: %+v", gs)
	}
}

func TestCreateRejectsInvalidDimension(t *testing.T) {
	s, h := newTestServer(t)
	for _, d := range []string{"2", "10", "abc"} {
		rr := postForm(h, "/match", url.Values{"dimension": {d}})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("dimension %s: expected 400, got %d", d, rr.Code)
		}
	}
	if _, ok := s.Get(); ok {
		t.Fatalf("no match should have started")
	}
}

func TestMatchPageHasBoardAndSSE(t *testing.T) {
	_, h := newTestServer(t)
	postForm(h, "/match", url.Values{"dimension": {"4"}})
	rr := get(h, "/match")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/match/events") {
		t.Fatalf("expected SSE wiring in page; got body: %q", body)
	}
	if n := strings.Count(body, "hx-post=\"/match/play\""); n != 16 {
		t.Fatalf("expected 16 cells, got %d", n)
	}
}

func TestMatchPageWithoutMatchRedirects(t *testing.T) {
	_, h := newTestServer(t)
	if rr := get(h, "/match"); rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	s, h := newTestServer(t)
	postForm(h, "/match", url.Values{})

	rr := postForm(h, "/match/play", url.Values{"r": {"0"}, "c": {"0"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	latest, _ := s.Get()
	if latest.Moves != 1 || latest.At(0, 0) != domain.Player1 {
		t.Fatalf("expected move applied, moves=%d", latest.Moves)
	}

	rr = postForm(h, "/match/play", url.Values{"r": {"0"}, "c": {"0"}})
	if !strings.Contains(rr.Body.String(), "Cell is occupied") {
		t.Fatalf("expected occupied message, got %q", rr.Body.String())
	}
}

func TestSurrenderAndRematch(t *testing.T) {
	s, h := newTestServer(t)
	postForm(h, "/match", url.Values{})
	rr := postForm(h, "/match/surrender", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "surrendered") {
		t.Fatalf("expected surrender fragment, got %d %q", rr.Code, rr.Body.String())
	}
	rr = postForm(h, "/match/rematch", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ms := s.Matches(); len(ms) != 2 || ms[0].Result != history.Surrender {
		t.Fatalf("expected surrendered match followed by a new one, got %+v", ms)
	}
}

func TestReplayAndReportEndpoints(t *testing.T) {
	s, h := newTestServer(t)
	postForm(h, "/match", url.Values{})
	for _, m := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0, 2}} {
		if _, err := s.Play(m[0], m[1]); err != nil {
			t.Fatalf("play %v: %v", m, err)
		}
	}

	rr := get(h, "/matches/0/replay")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var turns []turnJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &turns); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if len(turns) != 5 || turns[0].Actor != 1 || turns[1].Actor != 2 || turns[4].Kind != "placement" {
		t.Fatalf("unexpected replay: %+v", turns)
	}

	rr = get(h, "/matches/0/report")
	if !strings.Contains(rr.Body.String(), "Result: 1 (player one wins)") {
		t.Fatalf("unexpected report: %q", rr.Body.String())
	}

	if rr := get(h, "/matches/7/replay"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown match, got %d", rr.Code)
	}

	rr = get(h, "/matches")
	var list []matchJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode matches: %v", err)
	}
	if len(list) != 1 || list[0].Code != history.CodePlayer1Win || list[0].PlayerOneMoves != 3 {
		t.Fatalf("unexpected match list: %+v", list)
	}
}

func TestAPIMove(t *testing.T) {
	_, h := newTestServer(t)
	postForm(h, "/match", url.Values{"dimension": {"3"}})

	req := httptest.NewRequest("POST", "/api/moves", strings.NewReader(`{"row": 1, "col": 2}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var st stateJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Cells[1][2] != int(domain.Player1) || st.Turn != int(domain.Player2) || st.Moves != 1 {
		t.Fatalf("unexpected state: %+v", st)
	}

	for _, body := range []string{`{"row": 1}`, `{"row": 1, "col": 2, "side": "x"}`, `not json`} {
		req := httptest.NewRequest("POST", "/api/moves", strings.NewReader(body))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rr.Code)
		}
	}

	req = httptest.NewRequest("POST", "/api/moves", strings.NewReader(`{"row": 1, "col": 2}`))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for occupied cell, got %d", rr.Code)
	}
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	rr := get(h, "/match/events")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Result().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
}
