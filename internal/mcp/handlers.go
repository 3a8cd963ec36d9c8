package mcp

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/errors"
	"github.com/hpungsan/fbz/internal/logging"
	"github.com/hpungsan/fbz/internal/ops"
	"github.com/hpungsan/fbz/internal/startup"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	cfg    *config.Config
	cell   *startup.Cell
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, cell *startup.Cell) *Handlers {
	return &Handlers{db: db, cfg: cfg, cell: cell, logger: logging.Discard()}
}

// WithLogger sets the logger passed to operations.
func (h *Handlers) WithLogger(logger *slog.Logger) *Handlers {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *Handlers) opContext(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, h.logger)
}

// OpenFileRequest represents the arguments for open_file.
type OpenFileRequest struct {
	Path       string `json:"path"`
	DecodeText bool   `json:"decode_text,omitempty"`
}

// SaveFileRequest represents the arguments for save_file.
type SaveFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RecentFilesRequest represents the arguments for recent_files.
type RecentFilesRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ForgetFileRequest represents the arguments for forget_file.
type ForgetFileRequest struct {
	Path string `json:"path"`
}

// HandleFilePath handles the file_path tool call.
func (h *Handlers) HandleFilePath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.FilePath(h.cell))
}

// HandleOpenFile handles the open_file tool call.
func (h *Handlers) HandleOpenFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OpenFileRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.OpenFile(h.opContext(ctx), h.db, h.cfg, ops.OpenFileInput{
		Path:       input.Path,
		DecodeText: input.DecodeText,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSaveFile handles the save_file tool call.
func (h *Handlers) HandleSaveFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveFileRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SaveFile(h.opContext(ctx), h.db, h.cfg, ops.SaveFileInput{
		Path:    input.Path,
		Content: input.Content,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRecentFiles handles the recent_files tool call.
func (h *Handlers) HandleRecentFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecentFilesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Recent(h.opContext(ctx), h.db, h.cfg, ops.RecentInput{Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleForgetFile handles the forget_file tool call.
func (h *Handlers) HandleForgetFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ForgetFileRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Forget(h.opContext(ctx), h.db, ops.ForgetInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	fbzErr := errors.As(err)
	errorObj := map[string]any{
		"code":    fbzErr.Code,
		"message": fbzErr.Message,
		"status":  fbzErr.Status,
	}
	// Internal details may carry paths or SQL errors
	if fbzErr.Code != errors.ErrInternal && fbzErr.Details != nil {
		errorObj["details"] = fbzErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
