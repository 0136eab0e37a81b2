package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"climateprep/adapters/reader"
	"climateprep/domain/core"
	"climateprep/domain/dataset"
	"climateprep/domain/quality"
	"climateprep/domain/schema"
	"climateprep/internal"
	"climateprep/internal/cleaning"
	"climateprep/internal/mapping"
	"climateprep/internal/profiling"
	"climateprep/internal/scoring"
	"climateprep/ports"
)

// Pipeline stages reported to the progress port
const (
	StageRead    = "read"
	StageMap     = "map"
	StageClean   = "clean"
	StageScore   = "score"
	StagePersist = "persist"
)

var stageProgress = map[string]float64{
	StageRead:    0.2,
	StageMap:     0.4,
	StageClean:   0.7,
	StageScore:   0.9,
	StagePersist: 1.0,
}

// PrepDeps wires the pipeline components. Nil components get their defaults;
// a nil Reports repository disables persistence.
type PrepDeps struct {
	Reader   ports.FormatReader
	Registry ports.SchemaRegistry
	Mapper   *mapping.Mapper
	Engine   *cleaning.Engine
	Scorer   *scoring.Scorer
	Profiler *profiling.DataProfiler
	Reports  ports.ReportRepository
	Progress ports.ProgressReporter
	Logger   *internal.Logger
}

// PrepService runs uploads through read, map, clean and score
type PrepService struct {
	reader   ports.FormatReader
	registry ports.SchemaRegistry
	mapper   *mapping.Mapper
	engine   *cleaning.Engine
	scorer   *scoring.Scorer
	profiler *profiling.DataProfiler
	reports  ports.ReportRepository
	progress ports.ProgressReporter
	logger   *internal.Logger
}

// NewPrepService creates the pipeline service
func NewPrepService(deps PrepDeps) *PrepService {
	s := &PrepService{
		reader:   deps.Reader,
		registry: deps.Registry,
		mapper:   deps.Mapper,
		engine:   deps.Engine,
		scorer:   deps.Scorer,
		profiler: deps.Profiler,
		reports:  deps.Reports,
		progress: deps.Progress,
		logger:   deps.Logger,
	}
	if s.reader == nil {
		s.reader = reader.NewDataReader(reader.DefaultConfig())
	}
	if s.registry == nil {
		s.registry = schema.NewRegistry()
	}
	if s.mapper == nil {
		s.mapper = mapping.NewMapper(mapping.DefaultConfig())
	}
	if s.engine == nil {
		s.engine = cleaning.NewEngine(cleaning.DefaultConfig(), nil)
	}
	if s.scorer == nil {
		s.scorer = scoring.NewScorer(scoring.DefaultThresholds())
	}
	if s.profiler == nil {
		s.profiler = profiling.NewDataProfiler(nil)
	}
	if s.progress == nil {
		s.progress = ports.NoopProgress{}
	}
	if s.logger == nil {
		s.logger = internal.DefaultLogger
	}
	s.logger = s.logger.WithComponent("PrepService")
	return s
}

// Registry returns the schema registry the service resolves names against
func (s *PrepService) Registry() ports.SchemaRegistry {
	return s.registry
}

// UploadRequest names the schema instead of passing it, so "auto" can be
// resolved from the parsed columns
type UploadRequest struct {
	Data      []byte
	Filename  string
	Schema    string
	SessionID core.SessionID
}

// UploadResult is the output of one processed upload
type UploadResult struct {
	Cleaned *dataset.Table  `json:"cleaned_data"`
	Report  *quality.Report `json:"report"`
}

// ProcessUpload runs one upload against the given schema. It fails with
// core.ErrUnsupportedFormat, core.ErrParse or core.ErrSchema; data quality
// problems are reported, never returned as errors.
func (s *PrepService) ProcessUpload(ctx context.Context, data []byte, filename string, sch schema.DomainSchema) (*UploadResult, error) {
	return s.run(ctx, UploadRequest{Data: data, Filename: filename, Schema: sch.Name}, func([]string) (schema.DomainSchema, error) {
		return sch, nil
	})
}

// Process runs one upload, resolving the schema by name through the registry
func (s *PrepService) Process(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	return s.run(ctx, req, func(columns []string) (schema.DomainSchema, error) {
		return s.registry.Resolve(req.Schema, columns)
	})
}

func (s *PrepService) run(ctx context.Context, req UploadRequest, resolve func([]string) (schema.DomainSchema, error)) (*UploadResult, error) {
	start := time.Now()

	// 1. read
	s.emit(req, StageRead, ports.ProgressStarted, "")
	tbl, err := s.reader.Read(ctx, req.Data, req.Filename)
	if err != nil {
		return nil, s.fail(req, StageRead, fmt.Errorf("read %s: %w", req.Filename, err))
	}
	s.emit(req, StageRead, ports.ProgressCompleted, fmt.Sprintf("%d rows, %d columns", tbl.NumRows(), tbl.NumColumns()))
	if err := ctx.Err(); err != nil {
		return nil, s.fail(req, StageRead, err)
	}

	// 2. schema and mapping
	s.emit(req, StageMap, ports.ProgressStarted, "")
	sch, err := resolve(tbl.Columns)
	if err != nil {
		return nil, s.fail(req, StageMap, fmt.Errorf("resolve schema: %w", err))
	}
	colMapping := s.mapper.Map(tbl.Columns, sch)
	if len(colMapping.MissingRequiredFields) > 0 {
		s.logger.Warn("%s: required fields not found for %s: %s", req.Filename, sch.Name, strings.Join(colMapping.MissingRequiredFields, ", "))
	}
	s.logger.Debug("%s: mapped %d of %d fields onto %s", req.Filename, colMapping.Len(), len(sch.Fields()), sch.Name)
	s.emit(req, StageMap, ports.ProgressCompleted, fmt.Sprintf("%d fields mapped onto %s", colMapping.Len(), sch.Name))
	if err := ctx.Err(); err != nil {
		return nil, s.fail(req, StageMap, err)
	}

	// 3. cleaning
	s.emit(req, StageClean, ports.ProgressStarted, "")
	txLog := quality.NewTransformationLog()
	cleaned, err := s.engine.Clean(ctx, tbl, sch, colMapping, txLog)
	if err != nil {
		if errors.Is(err, core.ErrSchema) {
			s.logger.Error("%s: %v", req.Filename, err)
		}
		return nil, s.fail(req, StageClean, err)
	}
	s.emit(req, StageClean, ports.ProgressCompleted, fmt.Sprintf("%d rows after cleaning", cleaned.Table.NumRows()))
	if err := ctx.Err(); err != nil {
		return nil, s.fail(req, StageClean, err)
	}

	// 4. scoring
	s.emit(req, StageScore, ports.ProgressStarted, "")
	report := s.scorer.Score(scoring.Input{
		Original: tbl,
		Cleaning: cleaned,
		Schema:   sch,
		Mapping:  colMapping,
		Log:      txLog,
	})
	report.ID = core.NewReportID()
	report.File = quality.FileMetadata{
		Filename:  req.Filename,
		Extension: strings.TrimPrefix(strings.ToLower(filepath.Ext(req.Filename)), "."),
		SizeBytes: len(req.Data),
		SHA256:    core.NewHash(req.Data),
		Rows:      tbl.NumRows(),
		Columns:   tbl.NumColumns(),
	}
	report.Profiles = s.profiler.ProfileTable(cleaned.Table, colMapping)
	report.ProcessedAt = core.Now()
	report.Duration = time.Since(start)
	s.emit(req, StageScore, ports.ProgressCompleted, fmt.Sprintf("%.2f (%s)", report.Assessment.OverallScore, report.Assessment.Grade))

	// 5. persistence
	if s.reports != nil {
		s.emit(req, StagePersist, ports.ProgressStarted, "")
		if err := s.reports.Save(ctx, &report); err != nil {
			return nil, s.fail(req, StagePersist, fmt.Errorf("save report: %w", err))
		}
		s.emit(req, StagePersist, ports.ProgressCompleted, report.ID.String())
	}

	s.logger.Info("%s (%s, %s) scored %.3f %s in %s",
		req.Filename, report.File.SHA256.Short(), sch.Name, report.Assessment.OverallScore, report.Assessment.Grade, report.Duration.Round(time.Millisecond))
	return &UploadResult{Cleaned: cleaned.Table, Report: &report}, nil
}

func (s *PrepService) emit(req UploadRequest, stage string, status ports.ProgressStatus, message string) {
	progress := 0.0
	if status == ports.ProgressCompleted {
		progress = stageProgress[stage]
	}
	s.progress.Report(ports.ProgressEvent{
		SessionID: req.SessionID,
		Filename:  req.Filename,
		Stage:     stage,
		Status:    status,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (s *PrepService) fail(req UploadRequest, stage string, err error) error {
	s.emit(req, stage, ports.ProgressFailed, err.Error())
	return err
}
