package mcp

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/startup"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"file_path": {
		def:     filePathToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilePath },
	},
	"open_file": {
		def:     openFileToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOpenFile },
	},
	"save_file": {
		def:     saveFileToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSaveFile },
	},
	"recent_files": {
		def:     recentFilesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecentFiles },
	},
	"forget_file": {
		def:     forgetFileToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleForgetFile },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the document tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(h *Handlers, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"fbz",
		version,
		server.WithToolCapabilities(true),
	)

	disabled := make(map[string]bool)
	if h.cfg != nil {
		for _, name := range h.cfg.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, cell *startup.Cell, logger *slog.Logger, version string) error {
	h := NewHandlers(db, cfg, cell).WithLogger(logger)
	s := NewServer(h, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
