package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"climateprep/domain/core"
	"climateprep/domain/quality"
	"climateprep/ports"

	"github.com/jmoiron/sqlx"
)

// createdAtLayout is fixed width so text ordering matches time ordering
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// SQLReportRepository stores reports as JSON payloads next to the columns
// used for listing
type SQLReportRepository struct {
	db *sqlx.DB
}

// NewSQLReportRepository creates a repository on a migrated database
func NewSQLReportRepository(db *sqlx.DB) *SQLReportRepository {
	return &SQLReportRepository{db: db}
}

var _ ports.ReportRepository = (*SQLReportRepository)(nil)

// Save inserts a report; saving an existing ID is an error
func (r *SQLReportRepository) Save(ctx context.Context, report *quality.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	processedAt := report.ProcessedAt.Time()
	if processedAt.IsZero() {
		processedAt = time.Now()
	}

	query := r.db.Rebind(`INSERT INTO reports (
		id, filename, schema_name, grade, overall_score, row_count, file_sha256, payload, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		report.ID.String(), report.File.Filename, report.Schema, string(report.Assessment.Grade),
		report.Assessment.OverallScore, report.File.Rows, report.File.SHA256.String(), string(payload),
		processedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Get retrieves a report by its ID
func (r *SQLReportRepository) Get(ctx context.Context, id core.ReportID) (*quality.Report, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload, r.db.Rebind(`SELECT payload FROM reports WHERE id = ?`), id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report quality.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

type summaryRow struct {
	quality.Summary
	CreatedAt string `db:"created_at"`
}

// List returns report summaries, newest first
func (r *SQLReportRepository) List(ctx context.Context, filters ports.ReportFilters) ([]quality.Summary, error) {
	query := `SELECT id, filename, schema_name, grade, overall_score, row_count, created_at FROM reports`
	var args []interface{}
	if filters.Schema != "" {
		query += ` WHERE schema_name = ?`
		args = append(args, filters.Schema)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, filters.EffectiveLimit(), max(filters.Offset, 0))

	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	out := make([]quality.Summary, 0, len(rows))
	for _, row := range rows {
		s := row.Summary
		if t, err := time.Parse(createdAtLayout, row.CreatedAt); err == nil {
			s.ProcessedAt = core.NewTimestamp(t)
		}
		out = append(out, s)
	}
	return out, nil
}
