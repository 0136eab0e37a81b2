package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"climateprep/domain/core"
	"climateprep/domain/quality"
	"climateprep/domain/schema"
	"climateprep/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const carbonCSV = "scope_1_emissions,scope_2_emissions,scope_3_emissions,reporting_year\n" +
	"45000,35000,45000,2023\n" +
	"43000,36000,48000,2022\n"

type mockReportRepository struct {
	mock.Mock
}

func (m *mockReportRepository) Save(ctx context.Context, report *quality.Report) error {
	return m.Called(ctx, report).Error(0)
}

func (m *mockReportRepository) Get(ctx context.Context, id core.ReportID) (*quality.Report, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*quality.Report)
	return r, args.Error(1)
}

func (m *mockReportRepository) List(ctx context.Context, filters ports.ReportFilters) ([]quality.Summary, error) {
	args := m.Called(ctx, filters)
	s, _ := args.Get(0).([]quality.Summary)
	return s, args.Error(1)
}

type recordingProgress struct {
	mu     sync.Mutex
	events []ports.ProgressEvent
}

func (r *recordingProgress) Report(e ports.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingProgress) snapshot() []ports.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.ProgressEvent(nil), r.events...)
}

func TestProcessUploadWellFormedCarbonFile(t *testing.T) {
	repo := new(mockReportRepository)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*quality.Report")).Return(nil).Once()
	progress := &recordingProgress{}
	svc := NewPrepService(PrepDeps{Reports: repo, Progress: progress})

	res, err := svc.ProcessUpload(context.Background(), []byte(carbonCSV), "emissions.csv", schema.CarbonFootprintSchema())
	require.NoError(t, err)
	repo.AssertExpectations(t)

	r := res.Report
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, schema.CarbonFootprint, r.Schema)
	assert.Empty(t, r.MissingRequiredFields)
	assert.Equal(t, 1.0, r.Assessment.Uniqueness)
	assert.Contains(t, []quality.Grade{quality.GradeGood, quality.GradeExcellent}, r.Assessment.Grade)

	assert.Equal(t, "csv", r.File.Extension)
	assert.Equal(t, len(carbonCSV), r.File.SizeBytes)
	assert.Equal(t, core.NewHash([]byte(carbonCSV)), r.File.SHA256)
	assert.Equal(t, 2, r.File.Rows)
	assert.Equal(t, 4, r.File.Columns)
	assert.NotEmpty(t, r.Profiles)

	// quality flag and the derived total are appended
	assert.Equal(t, []string{"scope_1_emissions", "scope_2_emissions", "scope_3_emissions", "reporting_year", "quality_flag", "total_emissions"}, res.Cleaned.Columns)
	assert.Equal(t, 125000.0, res.Cleaned.Get(0, "total_emissions").NumericVal)

	events := progress.snapshot()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, StagePersist, last.Stage)
	assert.Equal(t, ports.ProgressCompleted, last.Status)
	assert.Equal(t, 1.0, last.Progress)
}

func TestProcessUploadUnsupportedExtension(t *testing.T) {
	repo := new(mockReportRepository)
	progress := &recordingProgress{}
	svc := NewPrepService(PrepDeps{Reports: repo, Progress: progress})

	res, err := svc.ProcessUpload(context.Background(), []byte("a,b\n1,2\n"), "data.txt", schema.CarbonFootprintSchema())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	events := progress.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, StageRead, events[1].Stage)
	assert.Equal(t, ports.ProgressFailed, events[1].Status)
}

func TestProcessUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		filename string
		want     error
	}{
		{"empty upload", "", "a.csv", core.ErrUnsupportedFormat},
		{"malformed csv", "a,b\n1,x\"y\"z\n", "a.csv", core.ErrParse},
		{"malformed json", "{\"a\": ", "a.json", core.ErrParse},
	}
	svc := NewPrepService(PrepDeps{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ProcessUpload(context.Background(), []byte(tt.data), tt.filename, schema.GenericSchema())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProcessResolvesSchemaByName(t *testing.T) {
	svc := NewPrepService(PrepDeps{})

	res, err := svc.Process(context.Background(), UploadRequest{Data: []byte(carbonCSV), Filename: "e.csv", Schema: "auto"})
	require.NoError(t, err)
	assert.Equal(t, schema.CarbonFootprint, res.Report.Schema)

	weather := "timestamp,location,temperature,humidity\n2024-01-01T00:00:00Z,Oslo,-3.5,80\n"
	res, err = svc.Process(context.Background(), UploadRequest{Data: []byte(weather), Filename: "w.csv"})
	require.NoError(t, err)
	assert.Equal(t, schema.WeatherData, res.Report.Schema)

	_, err = svc.Process(context.Background(), UploadRequest{Data: []byte(carbonCSV), Filename: "e.csv", Schema: "ocean_data"})
	assert.ErrorIs(t, err, core.ErrSchemaNotFound)
}

func TestProcessUploadSaveFailure(t *testing.T) {
	repo := new(mockReportRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	svc := NewPrepService(PrepDeps{Reports: repo})

	_, err := svc.ProcessUpload(context.Background(), []byte(carbonCSV), "e.csv", schema.CarbonFootprintSchema())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestProcessUploadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewPrepService(PrepDeps{})

	_, err := svc.ProcessUpload(ctx, []byte(carbonCSV), "e.csv", schema.CarbonFootprintSchema())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessUploadEmptyTable(t *testing.T) {
	svc := NewPrepService(PrepDeps{})

	res, err := svc.ProcessUpload(context.Background(), []byte("scope_1_emissions,reporting_year\n"), "e.csv", schema.CarbonFootprintSchema())
	require.NoError(t, err)
	assert.Equal(t, quality.GradeExcellent, res.Report.Assessment.Grade)
	assert.Contains(t, res.Report.Notes, "No data rows were present in the upload")
	assert.Zero(t, res.Cleaned.NumRows())
}
