// Package server exposes detection, analysis and history over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/hrintel/internal/analyze"
	"github.com/ppiankov/hrintel/internal/detect"
	"github.com/ppiankov/hrintel/internal/llm"
	"github.com/ppiankov/hrintel/internal/model"
	"github.com/ppiankov/hrintel/internal/store"
)

// Analyzer runs one document through detection and analysis
type Analyzer interface {
	Run(ctx context.Context, doc model.Document) analyze.Report
}

// Server holds the handler dependencies. Provider and Store may be nil.
type Server struct {
	analyzer Analyzer
	detector *detect.Detector
	provider llm.Provider
	store    *store.Store
	log      logrus.FieldLogger
}

// Options configures New
type Options struct {
	Provider llm.Provider
	Store    *store.Store
	Detector *detect.Detector
	Logger   logrus.FieldLogger
}

// New creates a server around analyzer
func New(analyzer Analyzer, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	detector := opts.Detector
	if detector == nil {
		detector = detect.NewDetector(log)
	}
	return &Server{
		analyzer: analyzer,
		detector: detector,
		provider: opts.Provider,
		store:    opts.Store,
		log:      log,
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.health)

	api := r.Group("/api/v1")
	{
		api.POST("/documents/analyze", s.analyzeDocument)
		api.POST("/documents/detect", s.detectDocument)
		api.GET("/analyses", s.listAnalyses)
		api.GET("/analyses/:id", s.getAnalysis)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

const requestIDHeader = "X-Request-ID"

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		s.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"duration":   time.Since(start),
		}).Info("request handled")
	}
}
