package mcptools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"climateprep/app"
	"climateprep/domain/schema"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const carbonCSV = "scope_1_emissions,scope_2_emissions,scope_3_emissions,reporting_year\n" +
	"45000,35000,45000,2023\n" +
	"43000,36000,48000,2022\n"

func toolReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAssessToolDefinition(t *testing.T) {
	def := NewAssessTool(app.NewPrepService(app.PrepDeps{}), 0).Definition()
	assert.Equal(t, "assess_data_file", def.Name)
	assert.Len(t, def.InputSchema.Properties, 3)
	assert.Equal(t, []string{"path"}, def.InputSchema.Required)
}

func TestAssessToolMarkdownReport(t *testing.T) {
	tool := NewAssessTool(app.NewPrepService(app.PrepDeps{}), 1<<20)
	path := writeFile(t, "emissions.csv", carbonCSV)

	result, err := tool.Handle(context.Background(), toolReq(map[string]interface{}{"path": path}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.True(t, strings.HasPrefix(text, "# Data quality report: emissions.csv"))
	assert.Contains(t, text, "Schema: carbon_footprint")
}

func TestAssessToolJSONReport(t *testing.T) {
	tool := NewAssessTool(app.NewPrepService(app.PrepDeps{}), 1<<20)
	path := writeFile(t, "emissions.csv", carbonCSV)

	result, err := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"path":   path,
		"schema": "carbon_footprint",
		"format": "json",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := resultText(t, result)
	assert.Equal(t, "carbon_footprint", gjson.Get(text, "schema").String())
	assert.Equal(t, int64(2), gjson.Get(text, "file.rows").Int())
}

func TestAssessToolErrors(t *testing.T) {
	tool := NewAssessTool(app.NewPrepService(app.PrepDeps{}), 64)
	big := writeFile(t, "big.csv", carbonCSV)
	notes := writeFile(t, "notes.txt", "hello")

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing path", map[string]interface{}{}, "'path' is required"},
		{"absent file", map[string]interface{}{"path": filepath.Join(t.TempDir(), "absent.csv")}, "cannot read"},
		{"directory", map[string]interface{}{"path": t.TempDir()}, "is a directory"},
		{"too large", map[string]interface{}{"path": big}, "exceeds the 64 byte limit"},
		{"unsupported", map[string]interface{}{"path": notes}, "UNSUPPORTED_FORMAT"},
		{"bad format", map[string]interface{}{"path": notes, "format": "pdf"}, "unknown format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Handle(context.Background(), toolReq(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestListSchemasTool(t *testing.T) {
	tool := NewListSchemasTool(schema.NewRegistry())
	assert.Equal(t, "list_domain_schemas", tool.Definition().Name)

	result, err := tool.Handle(context.Background(), toolReq(nil))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "## carbon_footprint")
	assert.Contains(t, text, "- `reporting_year` (integer, required, 2000 to 2030)")
	assert.Contains(t, text, "## generic")
	assert.Contains(t, text, "No fields; quality is scored on structure only.")
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, NewServer(app.NewPrepService(app.PrepDeps{}), 1<<20))
}
