package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"climateprep/domain/core"
	"climateprep/domain/quality"
	"climateprep/ports"
)

// MemoryReportRepository keeps reports in process memory
type MemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[core.ReportID]quality.Report
}

// NewMemoryReportRepository creates an empty in-memory repository
func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{reports: make(map[core.ReportID]quality.Report)}
}

var _ ports.ReportRepository = (*MemoryReportRepository)(nil)

// Save stores a copy of the report
func (r *MemoryReportRepository) Save(_ context.Context, report *quality.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reports[report.ID]; exists {
		return fmt.Errorf("failed to save report: id %s already exists", report.ID)
	}
	r.reports[report.ID] = *report
	return nil
}

// Get retrieves a report by its ID
func (r *MemoryReportRepository) Get(_ context.Context, id core.ReportID) (*quality.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
	}
	return &report, nil
}

// List returns report summaries, newest first
func (r *MemoryReportRepository) List(_ context.Context, filters ports.ReportFilters) ([]quality.Summary, error) {
	r.mu.RLock()
	summaries := make([]quality.Summary, 0, len(r.reports))
	for _, report := range r.reports {
		if filters.Schema != "" && report.Schema != filters.Schema {
			continue
		}
		summaries = append(summaries, report.Summarize())
	}
	r.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.ProcessedAt.Time().Equal(b.ProcessedAt.Time()) {
			return a.ProcessedAt.After(b.ProcessedAt)
		}
		return a.ID > b.ID
	})

	offset := max(filters.Offset, 0)
	if offset >= len(summaries) {
		return []quality.Summary{}, nil
	}
	end := min(offset+filters.EffectiveLimit(), len(summaries))
	return summaries[offset:end], nil
}
