package web

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/errors"
	"github.com/hpungsan/fbz/internal/logging"
	"github.com/hpungsan/fbz/internal/ops"
	"github.com/hpungsan/fbz/internal/startup"
)

// Handlers contains HTTP route handlers for the editor bridge.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	cell     *startup.Cell
	renderer *Renderer
	logger   *slog.Logger
}

// Response headers describing a served document.
const (
	HeaderFormat = "X-Fbz-Format"
	HeaderHash   = "X-Fbz-Hash"
)

// HandleStatus handles GET /, a status page listing recent documents.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	recent, err := ops.Recent(h.ctx(r), h.db, h.cfg, ops.RecentInput{})
	if err != nil {
		h.renderer.renderErrorPage(w, err)
		return
	}

	launch := "No launch document."
	switch {
	case h.cell == nil:
	case h.cell.Pending():
		launch = "Waiting for the editor to ask for the launch document."
	case h.cell.Consumed():
		launch = "The launch document has been handed to the editor."
	}

	h.renderer.renderPageStatus(w, http.StatusOK, "status", StatusPageData{
		PageData: PageData{
			Title:   "Status",
			Version: h.renderer.version,
		},
		Body: h.renderer.renderMarkdown(statusMarkdown(launch, recent.Items, time.Now())),
	})
}

// HandleFilePath handles GET /api/file-path.
func (h *Handlers) HandleFilePath(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, ops.FilePath(h.cell))
}

// HandleGetDocument handles GET /api/document?path= and returns the stored bytes.
func (h *Handlers) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	out, err := ops.OpenFile(h.ctx(r), h.db, h.cfg, ops.OpenFileInput{
		Path: r.URL.Query().Get("path"),
	})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Content)))
	w.Header().Set(HeaderFormat, out.Format)
	w.Header().Set(HeaderHash, out.Hash)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Content)
}

// HandlePutDocument handles PUT /api/document?path= with the document text as body.
func (h *Handlers) HandlePutDocument(w http.ResponseWriter, r *http.Request) {
	limit := h.maxDocumentBytes()
	if r.ContentLength > limit {
		renderError(w, h.logger, errors.NewDocumentTooLarge(limit, r.ContentLength))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		renderError(w, h.logger, errors.NewInvalidRequest("failed to read request body"))
		return
	}
	if int64(len(body)) > limit {
		renderError(w, h.logger, errors.NewDocumentTooLarge(limit, int64(len(body))))
		return
	}

	out, err := ops.SaveFile(h.ctx(r), h.db, h.cfg, ops.SaveFileInput{
		Path:    r.URL.Query().Get("path"),
		Content: string(body),
	})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}

	renderJSON(w, http.StatusOK, out)
}

// HandleRecent handles GET /api/recent.
func (h *Handlers) HandleRecent(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Recent(h.ctx(r), h.db, h.cfg, ops.RecentInput{
		Limit: parseIntParam(r, "limit", 0),
	})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleForget handles DELETE /api/recent?path=.
func (h *Handlers) HandleForget(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Forget(h.ctx(r), h.db, ops.ForgetInput{
		Path: r.URL.Query().Get("path"),
	})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

func (h *Handlers) ctx(r *http.Request) context.Context {
	return logging.WithLogger(r.Context(), h.logger)
}

func (h *Handlers) maxDocumentBytes() int64 {
	if h.cfg != nil && h.cfg.MaxDocumentBytes > 0 {
		return h.cfg.MaxDocumentBytes
	}
	return config.DefaultConfig().MaxDocumentBytes
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
