// Package server exposes the chat pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/sensei/internal/chat"
	"github.com/zulandar/sensei/internal/logger"
	"github.com/zulandar/sensei/internal/orchestrator"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	Orchestrator *orchestrator.Orchestrator
	Chat         *chat.Resolver
	DB           *gorm.DB // optional; pinged by /health when set
	Port         int
	Out          io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Sensei listening on http://localhost:%d\n", opts.Port)
	}
	logger.Info("server started", "port", opts.Port)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Orchestrator == nil {
		return nil, fmt.Errorf("server: orchestrator is required")
	}
	if opts.Chat == nil {
		return nil, fmt.Errorf("server: chat resolver is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLog())

	h := &handlers{orch: opts.Orchestrator, chat: opts.Chat, db: opts.DB}
	registerRoutes(router, h)
	return router, nil
}

// requestLog writes one line per request through the process logger.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("http",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}
