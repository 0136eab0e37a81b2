package mcptools

import (
	"climateprep/app"

	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags
var Version = "dev"

// NewServer creates the MCP server with every tool registered
func NewServer(prep *app.PrepService, maxBytes int64) *server.MCPServer {
	s := server.NewMCPServer(
		"climateprep",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Assess climate data files for quality. "+
			"Call list_domain_schemas to see the supported domains, then assess_data_file with a file path."),
	)

	assessTool := NewAssessTool(prep, maxBytes)
	s.AddTool(assessTool.Definition(), assessTool.Handle)

	schemasTool := NewListSchemasTool(prep.Registry())
	s.AddTool(schemasTool.Definition(), schemasTool.Handle)

	return s
}
