package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"climateprep/app"
	"climateprep/internal/config"
	"climateprep/internal/migration"
	"climateprep/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const siteYAML = `
schemas:
  - name: water_usage
    keywords: [water, withdrawal]
    fields:
      - name: site
        type: string
        required: true
      - name: withdrawal_m3
        type: numeric
        required: true
        min: 0
`

func testConfig(dbURL, schemaFile string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, URL: dbURL},
		Server:   config.ServerConfig{Port: "0", MaxUploadBytes: 1 << 20},
		Pipeline: config.PipelineConfig{
			BatchConcurrency:      2,
			BatchMaxInflightBytes: 4 << 20,
			ProcessTimeout:        time.Minute,
			SchemaFile:            schemaFile,
		},
		LogLevel: "error",
	}
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestInitInMemory(t *testing.T) {
	c, err := New(testConfig("", ""))
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	defer c.Shutdown(context.Background())

	assert.Nil(t, c.DB)
	assert.Equal(t, "memory", c.storeName())
	assert.Equal(t, []string{"carbon_footprint", "weather_data", "generic"}, c.Registry.Names())
	assert.NotNil(t, c.Server().Router())
}

func TestInitSQLiteWithSchemaFile(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schemas.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(siteYAML), 0o644))

	c, err := New(testConfig(filepath.Join(dir, "reports.db"), schemaPath))
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	defer c.Shutdown(context.Background())

	require.NotNil(t, c.DB)
	versions, err := migration.AppliedVersions(context.Background(), c.DB)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
	assert.Contains(t, c.Registry.Names(), "water_usage")

	res, err := c.Prep.Process(context.Background(), app.UploadRequest{
		Data:     []byte("site,water_withdrawal\nA,120\nB,80\n"),
		Filename: "water.csv",
		Schema:   "auto",
	})
	require.NoError(t, err)
	assert.Equal(t, "water_usage", res.Report.Schema)

	list, err := c.Reports.List(context.Background(), ports.ReportFilters{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Report.ID, list[0].ID)
}

func TestInitFailsOnMissingSchemaFile(t *testing.T) {
	c, err := New(testConfig("", filepath.Join(t.TempDir(), "absent.yaml")))
	require.NoError(t, err)
	assert.Error(t, c.Init(context.Background()))
}
