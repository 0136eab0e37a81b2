package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"climateprep/app"
	"climateprep/domain/core"
	"climateprep/domain/quality"
	"climateprep/domain/schema"
	apperrors "climateprep/internal/errors"
	"climateprep/internal/scoring"
	"climateprep/ports"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"schemas": len(s.prep.Registry().List()),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSchemas(c *gin.Context) {
	schemas := s.prep.Registry().List()
	summaries := make([]schema.Summary, 0, len(schemas))
	for _, sch := range schemas {
		summaries = append(summaries, sch.Summarize())
	}
	c.JSON(http.StatusOK, gin.H{
		"schemas": summaries,
		"count":   len(summaries),
	})
}

// handleUpload processes one multipart file through the pipeline
func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, s.formError(err, "file field required", s.maxUploadBytes))
		return
	}
	if fh.Size > s.maxUploadBytes {
		respondError(c, apperrors.UploadTooLarge(fh.Size, s.maxUploadBytes))
		return
	}
	data, err := readFormFile(fh)
	if err != nil {
		respondError(c, apperrors.Wrap(err, "failed to read upload"))
		return
	}

	ctx, cancel := s.processContext(c)
	defer cancel()

	res, err := s.prep.Process(ctx, app.UploadRequest{
		Data:      data,
		Filename:  fh.Filename,
		Schema:    c.DefaultPostForm("schema", "auto"),
		SessionID: core.SessionID(c.PostForm("session_id")),
	})
	if err != nil {
		respondError(c, uploadError(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleBatch processes every file of the multipart "files" field. Oversized
// files fail individually.
func (s *Server) handleBatch(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBatchBytes+multipartOverhead)

	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, s.formError(err, "multipart form required", s.maxBatchBytes))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		respondError(c, apperrors.ValidationError("files field required"))
		return
	}
	schemaName := c.DefaultPostForm("schema", "auto")
	if _, err := s.prep.Registry().Resolve(schemaName, nil); err != nil {
		respondError(c, uploadError(err))
		return
	}

	results := make([]app.BatchResult, len(headers))
	var items []app.BatchItem
	var positions []int
	for i, fh := range headers {
		results[i].Filename = fh.Filename
		if fh.Size > s.maxUploadBytes {
			tooLarge := apperrors.UploadTooLarge(fh.Size, s.maxUploadBytes)
			results[i].Error = tooLarge.Error()
			results[i].Code = tooLarge.Code
			continue
		}
		data, err := readFormFile(fh)
		if err != nil {
			results[i].Error = err.Error()
			results[i].Code = apperrors.CodeInternalError
			continue
		}
		items = append(items, app.BatchItem{Filename: fh.Filename, Data: data})
		positions = append(positions, i)
	}

	ctx, cancel := s.processContext(c)
	defer cancel()

	processed, err := s.batch.Process(ctx, items, schemaName, core.SessionID(c.PostForm("session_id")))
	for j, r := range processed {
		results[positions[j]] = r
	}
	if err != nil {
		respondError(c, err)
		return
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
		"failed":  failed,
	})
}

func (s *Server) handleListReports(c *gin.Context) {
	limit, err := queryInt(c, "limit", ports.DefaultReportLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	reports, err := s.reports.List(c.Request.Context(), ports.ReportFilters{
		Schema: c.Query("schema"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, apperrors.DatabaseError("failed to list reports", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

func (s *Server) handleGetReport(c *gin.Context) {
	report, ok := s.loadReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleReportMarkdown(c *gin.Context) {
	report, ok := s.loadReport(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(scoring.RenderMarkdown(report)))
}

func (s *Server) handleReportHTML(c *gin.Context) {
	report, ok := s.loadReport(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", scoring.RenderHTML(report))
}

func (s *Server) loadReport(c *gin.Context) (*quality.Report, bool) {
	id, err := core.ParseReportID(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.ValidationError(err.Error()))
		return nil, false
	}
	report, err := s.reports.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			respondError(c, apperrors.NotFound("report "+id.String()))
		} else {
			respondError(c, apperrors.DatabaseError("failed to load report", err))
		}
		return nil, false
	}
	return report, true
}

func (s *Server) processContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.processTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.processTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

// formError classifies a multipart parsing failure
func (s *Server) formError(err error, message string, limit int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.UploadTooLarge(tooLarge.Limit, limit)
	}
	return apperrors.ValidationError(fmt.Sprintf("%s: %v", message, err))
}

// uploadError turns an unknown schema name into a client error
func uploadError(err error) error {
	if errors.Is(err, core.ErrSchemaNotFound) {
		return apperrors.WithCode(apperrors.CodeValidationError, err)
	}
	return err
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.ValidationError(fmt.Sprintf("%s must be a non-negative integer", key))
	}
	return n, nil
}
