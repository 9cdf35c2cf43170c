package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaminalder/gridmatch/internal/app"
	"github.com/jaminalder/gridmatch/internal/config"
	"github.com/jaminalder/gridmatch/internal/domain"
	"github.com/jaminalder/gridmatch/internal/selftest"
	"github.com/jaminalder/gridmatch/internal/web"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", os.Getenv("GRIDMATCH_CONFIG"), "Path to a YAML config file")
	addr       = flag.String("addr", "", "Listen address, overrides the config")
	runTests   = flag.Bool("selftest", false, "Play every scripted match for dimensions 3 to 9, print the reports and exit")
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func main() {
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	session := app.NewSession(log)
	if *runTests {
		os.Exit(runSelfTest(session, log, cfg))
	}
	if err := serve(session, log, cfg); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func runSelfTest(s *app.Session, log *zap.Logger, cfg config.Config) int {
	dims := make([]int, 0, domain.MaxDimension-domain.MinDimension+1)
	for n := domain.MinDimension; n <= domain.MaxDimension; n++ {
		dims = append(dims, n)
	}
	failed := 0
	for _, o := range selftest.Run(s, log, cfg.Settings(), dims...) {
		report, err := s.Report(o.MatchIndex)
		if err == nil {
			fmt.Print(report)
		}
		if !o.Passed() {
			failed++
			fmt.Printf("FAIL %dx%d %s: %v\n", o.Dimension, o.Dimension, o.Script, o.Err)
		}
	}
	log.Info("self test finished", zap.Int("matches", len(s.Matches())), zap.Int("failed", failed))
	if failed > 0 {
		return 1
	}
	return 0
}

func serve(s *app.Session, log *zap.Logger, cfg config.Config) error {
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: web.NewServer(s, web.Options{
			Glyphs:   cfg.Glyphs,
			Defaults: cfg.Settings(),
			Log:      log.Named("web"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
