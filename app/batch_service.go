package app

import (
	"context"
	"log"
	"time"

	"climateprep/domain/core"
	"climateprep/domain/quality"
	apperrors "climateprep/internal/errors"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// BatchItem is one file of a batch
type BatchItem struct {
	Filename string
	Data     []byte
}

// BatchResult is the outcome of one batch item. Exactly one of Report and
// Error is set.
type BatchResult struct {
	Filename string          `json:"filename"`
	Report   *quality.Report `json:"report,omitempty"`
	Error    string          `json:"error,omitempty"`
	Code     string          `json:"code,omitempty"`
}

// BatchConfig bounds a batch run
type BatchConfig struct {
	// Concurrency caps the uploads processed at once
	Concurrency int
	// MaxInflightBytes caps the summed size of uploads being processed
	MaxInflightBytes int64
}

// BatchService runs many uploads through a PrepService concurrently
type BatchService struct {
	prep   *PrepService
	config BatchConfig
}

// NewBatchService creates a batch service
func NewBatchService(prep *PrepService, config BatchConfig) *BatchService {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.MaxInflightBytes <= 0 {
		config.MaxInflightBytes = 256 << 20
	}
	return &BatchService{prep: prep, config: config}
}

// Process runs every item against the named schema. A failing item is
// recorded in its result and does not stop its siblings; only cancellation of
// ctx ends the batch early, in which case unstarted items carry the context
// error. Results keep the order of items.
func (b *BatchService) Process(ctx context.Context, items []BatchItem, schemaName string, session core.SessionID) ([]BatchResult, error) {
	start := time.Now()
	results := make([]BatchResult, len(items))
	for i, item := range items {
		results[i].Filename = item.Filename
	}

	var g errgroup.Group
	g.SetLimit(b.config.Concurrency)
	inflight := semaphore.NewWeighted(b.config.MaxInflightBytes)

	var ctxErr error
	for i, item := range items {
		weight := int64(len(item.Data))
		if weight > b.config.MaxInflightBytes {
			weight = b.config.MaxInflightBytes
		}
		if weight == 0 {
			weight = 1
		}
		if err := inflight.Acquire(ctx, weight); err != nil {
			ctxErr = err
			for j := i; j < len(items); j++ {
				results[j].Error = err.Error()
				results[j].Code = apperrors.CodeOf(err)
			}
			break
		}

		g.Go(func() error {
			defer inflight.Release(weight)
			res, err := b.prep.Process(ctx, UploadRequest{
				Data:      item.Data,
				Filename:  item.Filename,
				Schema:    schemaName,
				SessionID: session,
			})
			if err != nil {
				results[i].Error = err.Error()
				results[i].Code = apperrors.CodeOf(err)
				return nil
			}
			results[i].Report = res.Report
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	log.Printf("[BatchService] %d files, %d failed, in %s", len(items), failed, time.Since(start).Round(time.Millisecond))
	return results, ctxErr
}
