// Package webhook provides a driven.NotificationSource that receives summary
// events over HTTP.
//
// The indexing service posts {fileId, summary, timestamp} to
// POST /notifications/summary. Replies:
//
//	200  event applied
//	400  undecodable or invalid event (do not retry)
//	500  handler failed (retry later)
//	503  no listener running
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// SummaryPath is the route events are posted to.
const SummaryPath = "/notifications/summary"

const shutdownTimeout = 5 * time.Second

// Ensure Source implements the interface.
var _ driven.NotificationSource = (*Source)(nil)

// Source serves the webhook endpoint while Listen runs.
type Source struct {
	addr string

	mu      sync.RWMutex
	handler driven.SummaryHandler
	server  *http.Server
}

// NewSource creates a webhook receiver bound to addr (e.g. ":8787").
func NewSource(addr string) *Source {
	gin.SetMode(gin.ReleaseMode)
	return &Source{addr: addr}
}

// Router returns the HTTP routes of the receiver.
func (s *Source) Router() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST(SummaryPath, s.handleSummary)
	return r
}

// Listen serves HTTP until ctx is cancelled or Close is called.
func (s *Source) Listen(ctx context.Context, handler driven.SummaryHandler) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("webhook: listen on %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln, handler)
}

func (s *Source) serve(ctx context.Context, ln net.Listener, handler driven.SummaryHandler) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.handler = handler
	s.server = srv
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.handler = nil
		s.server = nil
		s.mu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("Listening for summary notifications on %s", ln.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook: shutdown: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webhook: serve: %w", err)
	}
}

// Close stops a running server immediately.
func (s *Source) Close() error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Close()
}

func (s *Source) handleSummary(c *gin.Context) {
	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	if handler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not listening"})
		return
	}

	var n domain.SummaryNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := n.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileId is required"})
		return
	}

	if err := handler(c.Request.Context(), n); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("webhook: summary for %s failed: %v", n.FileID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "summary not applied"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "applied", "fileId": n.FileID})
}

// requestLogger logs each request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logger.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("webhook request")
	}
}
