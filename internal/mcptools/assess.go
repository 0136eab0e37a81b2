// Package mcptools exposes the preparation pipeline as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"climateprep/app"
	apperrors "climateprep/internal/errors"
	"climateprep/internal/scoring"

	"github.com/mark3labs/mcp-go/mcp"
)

// AssessTool handles the assess_data_file MCP tool
type AssessTool struct {
	prep     *app.PrepService
	maxBytes int64
}

// NewAssessTool creates the tool; files above maxBytes are refused
func NewAssessTool(prep *app.PrepService, maxBytes int64) *AssessTool {
	return &AssessTool{prep: prep, maxBytes: maxBytes}
}

// Definition returns the MCP tool definition for registration
func (t *AssessTool) Definition() mcp.Tool {
	return mcp.NewTool("assess_data_file",
		mcp.WithDescription(
			"Clean a local climate data file (CSV, XLSX, JSON, Parquet or XML) and "+
				"return its data quality report: completeness, accuracy, consistency, "+
				"validity and uniqueness scores, the column mapping, the cleaning "+
				"steps taken and recommendations.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the data file to assess"),
		),
		mcp.WithString("schema",
			mcp.Description("Domain schema name, or auto (default) to detect it from the columns"),
		),
		mcp.WithString("format",
			mcp.Description("Report format: markdown (default) or json"),
		),
	)
}

// Handle processes the assess_data_file tool call. Pipeline failures are
// returned as tool errors so the client can show them.
func (t *AssessTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := strings.TrimSpace(req.GetString("path", ""))
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	format := req.GetString("format", "markdown")
	if format != "markdown" && format != "json" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q (use markdown or json)", format)), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}
	if info.IsDir() {
		return mcp.NewToolResultError(fmt.Sprintf("%s is a directory", path)), nil
	}
	if t.maxBytes > 0 && info.Size() > t.maxBytes {
		return mcp.NewToolResultError(apperrors.UploadTooLarge(info.Size(), t.maxBytes).Error()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}

	res, err := t.prep.Process(ctx, app.UploadRequest{
		Data:     data,
		Filename: filepath.Base(path),
		Schema:   req.GetString("schema", "auto"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", apperrors.CodeOf(err), err)), nil
	}

	if format == "json" {
		out, err := json.MarshalIndent(res.Report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding report: %w", err)
		}
		return mcp.NewToolResultText(string(out)), nil
	}
	return mcp.NewToolResultText(scoring.RenderMarkdown(res.Report)), nil
}
