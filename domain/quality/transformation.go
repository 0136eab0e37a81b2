package quality

import (
	"sync"

	"climateprep/domain/core"
)

// Stage names used in the transformation log
const (
	StageDeduplicate = "deduplicate"
	StageQualityFlag = "quality_flag"
	StageDerive      = "derive"
)

// TransformationRecord describes one stage that changed the table shape
type TransformationRecord struct {
	Stage         string         `json:"stage"`
	Timestamp     core.Timestamp `json:"timestamp"`
	RowsBefore    int            `json:"rows_before"`
	RowsAfter     int            `json:"rows_after"`
	ColumnsBefore int            `json:"columns_before"`
	ColumnsAfter  int            `json:"columns_after"`
	Detail        string         `json:"detail,omitempty"`
}

// TransformationLog is an append-only record list owned by one pipeline run
type TransformationLog struct {
	mu      sync.Mutex
	records []TransformationRecord
}

// NewTransformationLog creates an empty log
func NewTransformationLog() *TransformationLog {
	return &TransformationLog{}
}

// Append stores a copy of rec, stamping it if no timestamp was set
func (l *TransformationLog) Append(rec TransformationRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = core.Now()
	}
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
}

// Records returns a copy of the log
func (l *TransformationLog) Records() []TransformationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TransformationRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records
func (l *TransformationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
