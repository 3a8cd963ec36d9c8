package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/fbz/internal/db"
	"github.com/hpungsan/fbz/internal/errors"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// StatusPageData is the template data for the status page.
type StatusPageData struct {
	PageData
	Body template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	markdown  goldmark.Markdown
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) (*Renderer, error) {
	layout, err := template.New("layout").ParseFS(templateFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := map[string]string{
		"status": "status.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.Table)),
		version:   version,
	}, nil
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderErrorPage renders the HTML error page.
func (r *Renderer) renderErrorPage(w http.ResponseWriter, err error) {
	fErr := errors.As(err)
	r.renderPageStatus(w, fErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", fErr.Status),
			Version: r.version,
		},
		StatusCode: fErr.Status,
		Message:    fErr.Message,
	})
}

// renderMarkdown converts markdown text to HTML. Raw HTML in the source is
// not passed through.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// renderError writes an API error as JSON. Internal causes are logged, not sent.
func renderError(w http.ResponseWriter, logger *slog.Logger, err error) {
	fErr := errors.As(err)
	if fErr.Code == errors.ErrInternal {
		logger.Error("request failed", "error", err)
	}

	renderJSON(w, fErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(fErr.Code),
			"message": fErr.Message,
			"status":  fErr.Status,
		},
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusMarkdown builds the status page body.
func statusMarkdown(launch string, items []db.Document, now time.Time) string {
	var b strings.Builder

	b.WriteString("## Launch document\n\n")
	b.WriteString(launch)
	b.WriteString("\n\n## Recent documents\n\n")

	if len(items) == 0 {
		b.WriteString("No documents opened yet.\n")
		return b.String()
	}

	b.WriteString("| Document | Format | Size | Last used |\n")
	b.WriteString("|---|---|---:|---|\n")
	for _, d := range items {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			escapeMarkdown(d.Path),
			d.Format,
			humanize.IBytes(uint64(d.Size)),
			humanize.RelTime(time.Unix(d.UpdatedAt, 0), now, "ago", "from now"),
		)
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"|", `\|`, "<", `\<`, ">", `\>`, "#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
