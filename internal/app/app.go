package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/edtproxy/edtproxy/internal/config"
	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Application wires configuration, the background refresher, router, and
// server lifecycle.
type Application struct {
	cfg       config.Application
	deps      *Dependencies
	router    *mux.Router
	srv       *http.Server
	scheduler *cron.Cron
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication() (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Build dependencies (stores, fetcher, handlers...)
	deps, err := BuildDependencies(cfg)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()

	// Middleware chain
	SetupMiddleware(r, deps, cfg)

	// Routes
	RegisterRoutes(r, deps, cfg)

	// Background refresh. DelayIfStillRunning keeps cycles strictly
	// sequential: a cycle outlasting the interval delays the next tick
	// instead of overlapping it.
	scheduler := cron.New(cron.WithChain(
		cron.DelayIfStillRunning(cron.PrintfLogger(log.StandardLogger())),
	))
	_, err = scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.RefreshInterval), func() {
		deps.Fetcher.RunOnce(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule feed refresh: %w", err)
	}

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Listen,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, deps: deps, router: r, srv: srv, scheduler: scheduler}, nil
}

// Run starts the background refresher and the HTTP server, and blocks.
func (a *Application) Run() error {
	log.Infof("Refreshing %d section(s) every %s", len(a.cfg.Sections), a.cfg.RefreshInterval)

	// First cycle fires immediately so the cache fills without waiting a
	// full interval; the cron loop only starts ticking once that first
	// cycle is done, so cycles never overlap.
	go func() {
		a.deps.Fetcher.RunOnce(context.Background())
		a.scheduler.Start()
	}()

	log.Infof("Starting server on %s", a.srv.Addr)
	return a.srv.ListenAndServe()
}
