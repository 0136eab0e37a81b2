// Command mcp serves the climateprep tools over the Model Context Protocol.
//
// Usage:
//
//	mcp    # Start MCP server (stdio transport)
//
// Logs go to stderr so they do not interfere with the stdio transport.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"climateprep/internal/config"
	"climateprep/internal/container"
	"climateprep/internal/mcptools"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	log.SetOutput(os.Stderr)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	if err := c.Init(context.Background()); err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}
	defer c.Shutdown(context.Background())

	s := mcptools.NewServer(c.Prep, cfg.Server.MaxUploadBytes)
	return server.ServeStdio(s)
}
