package mcp

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/db"
	"github.com/hpungsan/fbz/internal/errors"
	"github.com/hpungsan/fbz/internal/startup"
)

// testSetup creates a temporary database and config for testing.
func testSetup(t *testing.T) (*sql.DB, *config.Config, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	cleanup := func() {
		database.Close()
	}

	return database, config.DefaultConfig(), cleanup
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

const testBook = `<?xml version="1.0" encoding="utf-8"?><FictionBook><body><p>Hi</p></body></FictionBook>`

func TestHandleFilePath(t *testing.T) {
	h := NewHandlers(nil, config.DefaultConfig(), startup.New("/books/launch.fbz"))

	first, err := h.HandleFilePath(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("HandleFilePath failed: %v", err)
	}
	if got := parseOutput(t, first)["path"]; got != "/books/launch.fbz" {
		t.Errorf("first path = %v, want /books/launch.fbz", got)
	}

	second, err := h.HandleFilePath(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("HandleFilePath failed: %v", err)
	}
	if got := parseOutput(t, second)["path"]; got != "" {
		t.Errorf("second path = %v, want empty", got)
	}
}

func TestHandleFilePath_NoLaunchArgument(t *testing.T) {
	h := NewHandlers(nil, config.DefaultConfig(), startup.FromArgs(nil))

	result, err := h.HandleFilePath(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("HandleFilePath failed: %v", err)
	}
	if got := parseOutput(t, result)["path"]; got != "" {
		t.Errorf("path = %v, want empty", got)
	}
}

func TestHandleSaveThenOpen(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)

	for _, name := range []string{"book.fb2", "book.fbz", "book.fb2.zip"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			saveResult, err := h.HandleSaveFile(context.Background(), makeRequest(map[string]any{
				"path":    path,
				"content": testBook,
			}))
			if err != nil {
				t.Fatalf("HandleSaveFile failed: %v", err)
			}
			saved := parseOutput(t, saveResult)
			if saved["path"] != path {
				t.Errorf("saved path = %v, want %s", saved["path"], path)
			}

			openResult, err := h.HandleOpenFile(context.Background(), makeRequest(map[string]any{
				"path":        path,
				"decode_text": true,
			}))
			if err != nil {
				t.Fatalf("HandleOpenFile failed: %v", err)
			}
			opened := parseOutput(t, openResult)

			raw, err := base64.StdEncoding.DecodeString(opened["content"].(string))
			if err != nil {
				t.Fatalf("content is not base64: %v", err)
			}
			if string(raw) != testBook {
				t.Errorf("content = %q, want %q", raw, testBook)
			}
			if opened["text"] != testBook {
				t.Errorf("text = %v, want %q", opened["text"], testBook)
			}
			if opened["hash"] != saved["hash"] {
				t.Errorf("open hash %v != save hash %v", opened["hash"], saved["hash"])
			}
		})
	}
}

func TestHandleSaveFile_Unsupported(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)

	path := filepath.Join(t.TempDir(), "doc.txt")
	result, err := h.HandleSaveFile(context.Background(), makeRequest(map[string]any{
		"path":    path,
		"content": "X",
	}))
	if err != nil {
		t.Fatalf("HandleSaveFile failed: %v", err)
	}
	assertErrorCode(t, result, "UNSUPPORTED_FORMAT")
	if msg := errorMessage(t, result); msg != "unsupported file format" {
		t.Errorf("message = %q, want %q", msg, "unsupported file format")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("unsupported save must not create the file")
	}
}

func TestHandleOpenFile_Errors(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)
	dir := t.TempDir()

	notZip := filepath.Join(dir, "broken.fbz")
	if err := os.WriteFile(notZip, []byte("definitely not a zip"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tests := []struct {
		name string
		args map[string]any
		code string
	}{
		{"missing path", map[string]any{}, "INVALID_REQUEST"},
		{"unsupported", map[string]any{"path": filepath.Join(dir, "a.epub")}, "UNSUPPORTED_FORMAT"},
		{"not found", map[string]any{"path": filepath.Join(dir, "gone.fb2")}, "FILE_NOT_FOUND"},
		{"corrupt archive", map[string]any{"path": notZip}, "ARCHIVE_CORRUPT"},
		{"wrong arg type", map[string]any{"path": 42}, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleOpenFile(context.Background(), makeRequest(tt.args))
			if err != nil {
				t.Fatalf("HandleOpenFile failed: %v", err)
			}
			assertErrorCode(t, result, tt.code)
		})
	}
}

func TestHandleRecentAndForget(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()
	h := NewHandlers(database, cfg, nil)
	dir := t.TempDir()

	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("book%d.fb2", i))
		result, err := h.HandleSaveFile(context.Background(), makeRequest(map[string]any{
			"path":    path,
			"content": testBook,
		}))
		if err != nil || result.IsError {
			t.Fatalf("save %d failed: %v %s", i, err, extractErrorMessage(result))
		}
	}

	result, err := h.HandleRecentFiles(context.Background(), makeRequest(map[string]any{"limit": 2}))
	if err != nil {
		t.Fatalf("HandleRecentFiles failed: %v", err)
	}
	items := parseOutput(t, result)["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	forget, err := h.HandleForgetFile(context.Background(), makeRequest(map[string]any{
		"path": filepath.Join(dir, "book0.fb2"),
	}))
	if err != nil {
		t.Fatalf("HandleForgetFile failed: %v", err)
	}
	if removed := parseOutput(t, forget)["removed"]; removed != true {
		t.Errorf("removed = %v, want true", removed)
	}

	result, err = h.HandleRecentFiles(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("HandleRecentFiles failed: %v", err)
	}
	items = parseOutput(t, result)["items"].([]any)
	if len(items) != 2 {
		t.Errorf("items after forget = %d, want 2", len(items))
	}
}

func TestServerRegistration(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	s := NewServer(NewHandlers(database, cfg, startup.New("")), "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"file_path",
		"open_file",
		"save_file",
		"recent_files",
		"forget_file",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = []string{"recent_files", "forget_file"}
	s := NewServer(NewHandlers(database, cfg, nil), "test")
	tools := s.ListTools()

	if len(tools) != 3 {
		t.Errorf("registered tool count = %d, want 3", len(tools))
	}
	for _, name := range cfg.DisabledTools {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %s should not be registered", name)
		}
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"all known", []string{"open_file", "save_file"}, []string{}},
		{"unknown", []string{"open_file", "delete_file"}, []string{"delete_file"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateDisabledTools(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	sort.Strings(names)
	want := []string{"file_path", "forget_file", "open_file", "recent_files", "save_file"}
	if len(names) != len(want) {
		t.Fatalf("AllToolNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(fmt.Errorf("sql: connection refused at /home/me/.fbz/fbz.db"))

	var payload map[string]map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if payload["error"]["code"] != "INTERNAL" {
		t.Errorf("code = %v, want INTERNAL", payload["error"]["code"])
	}
	if payload["error"]["message"] != "an internal error occurred" {
		t.Errorf("message = %v", payload["error"]["message"])
	}
	if _, ok := payload["error"]["details"]; ok {
		t.Error("internal errors must not expose details")
	}
}

func TestErrorResult_WrappedErrorPreservesCode(t *testing.T) {
	wrapped := fmt.Errorf("open: %w", errors.NewArchiveEmpty())
	r := errorResult(wrapped)

	assertErrorCode(t, r, "ARCHIVE_EMPTY")
	if msg := errorMessage(t, r); msg != "archive is empty" {
		t.Errorf("message = %q, want %q", msg, "archive is empty")
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	r := errorResult(errors.NewArchiveMultipleEntries(3))

	var payload map[string]map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	details, ok := payload["error"]["details"].(map[string]any)
	if !ok {
		t.Fatal("expected details")
	}
	if details["entries"] != float64(3) {
		t.Errorf("entries = %v, want 3", details["entries"])
	}
}

func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()

	if !result.IsError {
		t.Fatalf("expected error result, got: %s", extractErrorMessage(result))
	}
	if len(result.Content) == 0 {
		t.Fatal("no content in error result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("content is not TextContent")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatal("no error object in payload")
	}
	return errorObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if code, _ := errorObject(t, result)["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func errorMessage(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	msg, _ := errorObject(t, result)["message"].(string)
	return msg
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
