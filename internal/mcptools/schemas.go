package mcptools

import (
	"context"
	"fmt"
	"strings"

	"climateprep/ports"

	"github.com/mark3labs/mcp-go/mcp"
)

// ListSchemasTool handles the list_domain_schemas MCP tool
type ListSchemasTool struct {
	registry ports.SchemaRegistry
}

// NewListSchemasTool creates the tool over a schema registry
func NewListSchemasTool(registry ports.SchemaRegistry) *ListSchemasTool {
	return &ListSchemasTool{registry: registry}
}

// Definition returns the MCP tool definition for registration
func (t *ListSchemasTool) Definition() mcp.Tool {
	return mcp.NewTool("list_domain_schemas",
		mcp.WithDescription(
			"List the domain schemas assess_data_file can map columns onto, "+
				"with their required and optional fields and validation ranges.",
		),
	)
}

// Handle processes the list_domain_schemas tool call
func (t *ListSchemasTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString("# Domain schemas\n")
	for _, s := range t.registry.List() {
		fmt.Fprintf(&b, "\n## %s\n\n", s.Name)
		if s.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", s.Description)
		}
		if len(s.RequiredFields) == 0 && len(s.OptionalFields) == 0 {
			b.WriteString("No fields; quality is scored on structure only.\n")
			continue
		}
		for _, field := range s.Fields() {
			ft, _ := s.TypeOf(field)
			line := fmt.Sprintf("- `%s` (%s", field, ft)
			if s.IsRequired(field) {
				line += ", required"
			}
			if rule, ok := s.RuleFor(field); ok {
				line += fmt.Sprintf(", %g to %g", rule.Min, rule.Max)
			}
			b.WriteString(line + ")\n")
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
