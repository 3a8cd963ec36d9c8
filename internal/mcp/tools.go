package mcp

import "github.com/mark3labs/mcp-go/mcp"

var filePathToolDef = mcp.NewTool("file_path",
	mcp.WithDescription("Return the document path the editor was launched with. "+
		"The path is handed out once; later calls return an empty string."),
	mcp.WithReadOnlyHintAnnotation(false),
)

var openFileToolDef = mcp.NewTool("open_file",
	mcp.WithDescription("Read an FB2 document. Accepts .fb2 files and single-entry "+
		".fbz / .fb2.zip archives. Returns the stored bytes base64 encoded."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Absolute path of a .fb2, .fbz or .fb2.zip file"),
	),
	mcp.WithBoolean("decode_text",
		mcp.Description("Also return the document decoded to UTF-8 and the detected encoding"),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var saveFileToolDef = mcp.NewTool("save_file",
	mcp.WithDescription("Write an FB2 document, replacing the existing file. "+
		"Archive paths are written as a single-entry zip archive."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Absolute path of a .fb2, .fbz or .fb2.zip file"),
	),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("Full document text; may be empty"),
	),
	mcp.WithDestructiveHintAnnotation(true),
)

var recentFilesToolDef = mcp.NewTool("recent_files",
	mcp.WithDescription("List recently opened or saved documents, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of documents (default 20, max 200)"),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var forgetFileToolDef = mcp.NewTool("forget_file",
	mcp.WithDescription("Remove a document from the recent list. The file is not touched."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path of the document to forget"),
	),
)
