package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jaminalder/gridmatch/internal/app"
	"go.uber.org/zap"
)

// Options configures the web surface.
type Options struct {
	// Glyphs maps icon ids to what is drawn in a claimed cell.
	Glyphs   []string
	Defaults app.Settings
	Log      *zap.Logger
}

// NewServer wires routes and returns an http.Handler. It installs the board renderer
// on the session so subscribers receive rendered fragments.
func NewServer(s *app.Session, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if len(opts.Glyphs) < 2 {
		opts.Glyphs = []string{"X", "O"}
	}
	if opts.Defaults.Dimension == 0 {
		opts.Defaults = app.DefaultSettings()
	}
	h := &handlers{svc: s, tpl: loadTemplates(), glyphs: opts.Glyphs, defaults: opts.Defaults, log: opts.Log}
	s.SetRenderer(h.broadcast)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", h.index)
	r.Route("/match", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.view)
		r.Post("/play", h.play)
		r.Post("/surrender", h.surrender)
		r.Post("/rematch", h.rematch)
		r.Get("/events", h.events)
	})
	r.Get("/matches", h.matches)
	r.Route("/matches/{index}", func(r chi.Router) {
		r.Get("/replay", h.replay)
		r.Get("/report", h.report)
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.apiState)
		r.Post("/moves", h.apiMove)
	})
	return r
}
