package web

import (
	"bytes"
	"html/template"

	"github.com/jaminalder/gridmatch/internal/app"
	"github.com/jaminalder/gridmatch/internal/domain"
	"github.com/jaminalder/gridmatch/internal/history"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"iter": func(lo, hi int) []int {
			a := make([]int, 0, hi-lo+1)
			for i := lo; i <= hi; i++ {
				a = append(a, i)
			}
			return a
		},
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/match/events">
  <div id="board" hx-sse="swap:board">{{template "board" .}}</div>
</div>
<p><a href="/">Setup</a> <a href="/matches">History</a></p>`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if name == "" {
		err = t.Execute(&buf, data)
	} else {
		err = t.ExecuteTemplate(&buf, name, data)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const indexTemplate = `<h1>Grid match</h1>
<form action="/match" method="post">
  <label>Dimension <select name="dimension">
    {{range $n := iter .Min .Max}}<option value="{{$n}}"{{if eq $n $.Dimension}} selected{{end}}>{{$n}}x{{$n}}</option>{{end}}
  </select></label>
  <label>Player one <select name="p1">{{range $i, $g := .Glyphs}}<option value="{{$i}}"{{if eq $i $.P1}} selected{{end}}>{{$g}}</option>{{end}}</select></label>
  <label>Player two <select name="p2">{{range $i, $g := .Glyphs}}<option value="{{$i}}"{{if eq $i $.P2}} selected{{end}}>{{$g}}</option>{{end}}</select></label>
  <label>First <select name="starting"><option value="1">Player one</option><option value="2"{{if eq .Starting 2}} selected{{end}}>Player two</option></select></label>
  <button>Start</button>
</form>`

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="status">{{.Status}}</div>
  {{range $row := .Rows}}
  <div class="row">
    {{range $row}}
      <form hx-post="/match/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="r" value="{{.R}}">
        <input type="hidden" name="c" value="{{.C}}">
        <button type="submit"{{if $.Over}} disabled{{end}}>{{.Glyph}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
  <div class="score">{{.P1}} {{.Score.PlayerOne}} : {{.Score.PlayerTwo}} {{.P2}} ({{.Score.Draws}} draws)</div>
  {{if .Over}}
  <form hx-post="/match/rematch" hx-target="#board" hx-swap="outerHTML" method="post"><button>Play again</button></form>
  {{else}}
  <form hx-post="/match/surrender" hx-target="#board" hx-swap="outerHTML" method="post"><button>Surrender</button></form>
  {{end}}
</div>
`

type cellView struct {
	R, C  int
	Glyph string
}

type boardView struct {
	Error  string
	Status string
	Rows   [][]cellView
	Over   bool
	P1, P2 string
	Score  app.Score
}

type indexView struct {
	Min, Max  int
	Dimension int
	Glyphs    []string
	P1, P2    int
	Starting  int
}

func glyph(glyphs []string, icon int) string {
	if icon < 0 || icon >= len(glyphs) {
		return "?"
	}
	return glyphs[icon]
}

func newBoardView(gs app.GameState, glyphs []string, errMsg string) boardView {
	v := boardView{
		Error: errMsg,
		Over:  gs.Over,
		P1:    glyph(glyphs, gs.Settings.PlayerOneIcon),
		P2:    glyph(glyphs, gs.Settings.PlayerTwoIcon),
		Score: gs.Score,
	}
	n := gs.Dimension()
	v.Rows = make([][]cellView, n)
	for r := 0; r < n; r++ {
		v.Rows[r] = make([]cellView, n)
		for c := 0; c < n; c++ {
			cv := cellView{R: r, C: c}
			switch gs.At(r, c) {
			case domain.Player1:
				cv.Glyph = v.P1
			case domain.Player2:
				cv.Glyph = v.P2
			}
			v.Rows[r][c] = cv
		}
	}
	v.Status = status(gs, v.P1, v.P2)
	return v
}

func status(gs app.GameState, p1, p2 string) string {
	name := func(c domain.Cell) string {
		if c == domain.Player2 {
			return p2
		}
		return p1
	}
	switch gs.Result {
	case history.Unresolved:
		return name(gs.Turn) + " to move"
	case history.Player1Win, history.Player2Win:
		return name(gs.Winner) + " wins"
	case history.Draw:
		return "Draw"
	case history.Surrender:
		return name(gs.Winner.Opponent()) + " surrendered"
	case history.Errored:
		return "Match ended with an error"
	default:
		return "Match aborted"
	}
}
