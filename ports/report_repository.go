package ports

import (
	"context"

	"climateprep/domain/core"
	"climateprep/domain/quality"
)

// ReportRepository persists processing reports
type ReportRepository interface {
	Save(ctx context.Context, report *quality.Report) error
	Get(ctx context.Context, id core.ReportID) (*quality.Report, error)
	List(ctx context.Context, filters ReportFilters) ([]quality.Summary, error)
}

// ReportFilters for listing reports, newest first
type ReportFilters struct {
	Schema string
	Limit  int
	Offset int
}

// DefaultReportLimit applies when ReportFilters.Limit is not positive
const DefaultReportLimit = 50

// EffectiveLimit returns the limit to apply
func (f ReportFilters) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultReportLimit
	}
	return f.Limit
}
