// Package api exposes the preparation pipeline over HTTP with gin.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"climateprep/adapters/store"
	"climateprep/app"
	apperrors "climateprep/internal/errors"
	"climateprep/ports"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the upload limit for the multipart
// envelope and form fields
const multipartOverhead = 1 << 20

// ServerDeps wires the HTTP server
type ServerDeps struct {
	Prep    *app.PrepService
	Batch   *app.BatchService
	Reports ports.ReportRepository
	Hub     *ProgressHub

	MaxUploadBytes int64
	// MaxBatchBytes bounds a whole batch request; defaults to four uploads
	MaxBatchBytes  int64
	ProcessTimeout time.Duration
}

// Server is the HTTP surface of the pipeline
type Server struct {
	router  *gin.Engine
	prep    *app.PrepService
	batch   *app.BatchService
	reports ports.ReportRepository
	hub     *ProgressHub

	maxUploadBytes int64
	maxBatchBytes  int64
	processTimeout time.Duration
}

// NewServer creates the server and registers its routes
func NewServer(deps ServerDeps) *Server {
	s := &Server{
		router:         gin.New(),
		prep:           deps.Prep,
		batch:          deps.Batch,
		reports:        deps.Reports,
		hub:            deps.Hub,
		maxUploadBytes: deps.MaxUploadBytes,
		maxBatchBytes:  deps.MaxBatchBytes,
		processTimeout: deps.ProcessTimeout,
	}
	if s.prep == nil {
		s.prep = app.NewPrepService(app.PrepDeps{})
	}
	if s.batch == nil {
		s.batch = app.NewBatchService(s.prep, app.BatchConfig{})
	}
	if s.reports == nil {
		s.reports = store.NewMemoryReportRepository()
	}
	if s.hub == nil {
		s.hub = NewProgressHub()
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = 50 << 20
	}
	if s.maxBatchBytes <= 0 {
		s.maxBatchBytes = 4 * s.maxUploadBytes
	}

	s.router.Use(gin.Logger(), gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)

	data := api.Group("/data")
	{
		data.GET("/schemas", s.handleSchemas)
		data.POST("/upload", s.handleUpload)
		data.POST("/batch", s.handleBatch)
		data.GET("/reports", s.handleListReports)
		data.GET("/reports/:id", s.handleGetReport)
		data.GET("/reports/:id/markdown", s.handleReportMarkdown)
		data.GET("/reports/:id/html", s.handleReportHTML)
		data.GET("/events", s.hub.HandleSSE)
	}
}

// Router returns the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves on addr until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Printf("[Server] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.hub.Close()
		return srv.Shutdown(shutdownCtx)
	}
}

// respondError writes an error body with the status its code maps to
func respondError(c *gin.Context, err error) {
	appErr := apperrors.FromPipeline(err)
	status := apperrors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": appErr.Error(),
		"code":  appErr.Code,
	})
}
