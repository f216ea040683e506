// Package dashboard serves the nudgeyard HTTP API: context ingestion,
// intervention triggers and feedback, user configs, history and a live SSE
// feed.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/nudgeyard/internal/logger"
	"github.com/zulandar/nudgeyard/internal/scheduler"
	"github.com/zulandar/nudgeyard/internal/store"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Scheduler *scheduler.Service
	Store     *store.Store
	Hub       *Hub
	Port      int
	Log       *logger.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("dashboard: scheduler is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("dashboard: store is required")
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(0)
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, &api{
		svc:   opts.Scheduler,
		store: opts.Store,
		hub:   opts.Hub,
		log:   opts.Log,
	})
	return router, nil
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// SSE streams end when ctx is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("dashboard listening", "port", opts.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
