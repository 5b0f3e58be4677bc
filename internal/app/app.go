// Package app wires a Node to its local HTTP surface (health, metrics,
// audit endpoints) and drives process lifecycle: startup, graceful
// shutdown on SIGINT/SIGTERM, and the control-link loop that runs until
// the signaling connection fails.
package app

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/logging"
	"github.com/urfave/negroni/v3"

	"aq-media-node/internal/api"
	"aq-media-node/internal/config"
	"aq-media-node/internal/database"
	"aq-media-node/internal/metrics"
	"aq-media-node/internal/node"
	"aq-media-node/internal/recovery"
)

// App holds the application state: one Node plus the admin HTTP server
// wrapped around it.
type App struct {
	cfg        *config.Config
	node       *node.Node
	httpServer *http.Server
	serveMux   *http.ServeMux
	log        logging.LeveledLogger
}

// New loads configuration and builds a Node, mirroring the teacher's
// App.New construction order: config, then logger, then database, then the
// domain object. Routes are registered later, in Run.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := createLogger(cfg)

	if err := database.Init(log); err != nil {
		return nil, err
	}

	n := node.New(cfg)

	mux := http.NewServeMux()
	httpServer := &http.Server{
		Addr:         cfg.AdminAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a := &App{
		cfg:        cfg,
		node:       n,
		httpServer: httpServer,
		serveMux:   mux,
		log:        log,
	}
	return a, nil
}

// Run starts the admin HTTP server and the control-link dispatcher loop,
// and blocks until either a shutdown signal arrives or the control link
// fails (the dispatcher itself calls os.Exit on link failure, per
// SPEC_FULL.md's fatal-exit design).
func (a *App) Run() error {
	n := negroni.New()
	n.Use(negroni.NewLogger())

	a.serveMux.HandleFunc("/health", a.healthHandler)
	a.serveMux.HandleFunc("/metrics", a.metricsHandler)
	a.serveMux.HandleFunc("/rooms", a.roomsHandler)
	api.RegisterAuditRoutes(a.serveMux, a.log)

	n.UseHandler(a.serveMux)
	// recovery.RecoveryMiddleware wraps the negroni stack so a panic in any
	// handler is logged through the same leveled logger as the rest of the
	// node, instead of negroni's own stderr-only recovery.
	a.httpServer.Handler = recovery.RecoveryMiddleware(a.log, n)

	serverErrors := make(chan error, 1)
	go func() {
		a.log.Infof("Starting admin HTTP server on %s", a.httpServer.Addr)
		serverErrors <- a.httpServer.ListenAndServe()
	}()

	dispatcherErrors := make(chan error, 1)
	go func() {
		dispatcherErrors <- a.node.Serve(a.log)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.log.Infof("Received signal: %v, initiating graceful shutdown", sig)
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			a.log.Errorf("Admin server error: %v", err)
			return err
		}
	case err := <-dispatcherErrors:
		if err != nil {
			a.log.Errorf("Control link error: %v", err)
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.log.Infof("Shutting down admin server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Errorf("Admin server shutdown error: %v", err)
		return err
	}

	a.log.Infof("Closing database connection...")
	recovery.SafeCloser(a.log, database.Close, "database")

	a.log.Infof("Shutdown complete")
	return nil
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	health := map[string]any{
		"status":           "healthy",
		"message":          "node " + a.node.ID.String() + " is serving",
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"activeTransports": a.node.Registry.TransportCount(),
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		a.log.Errorf("Error encoding health response: %v", err)
	}
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(metrics.Get().ToJSON())
}

func (a *App) roomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(a.node.Registry.AllRooms()); err != nil {
		a.log.Errorf("Error encoding rooms response: %v", err)
	}
}

func createLogger(cfg *config.Config) logging.LeveledLogger {
	loggerFactory := logging.NewDefaultLoggerFactory()
	switch cfg.LogLevel {
	case "debug":
		loggerFactory.DefaultLogLevel = logging.LogLevelDebug
	case "info":
		loggerFactory.DefaultLogLevel = logging.LogLevelInfo
	case "warn":
		loggerFactory.DefaultLogLevel = logging.LogLevelWarn
	case "error":
		loggerFactory.DefaultLogLevel = logging.LogLevelError
	default:
		loggerFactory.DefaultLogLevel = logging.LogLevelInfo
	}
	return loggerFactory.NewLogger("aq-media-node")
}
