// Package export renders drawings to downloadable files.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/eyedraw/eyedraw/backend-go/internal/auth"
	"github.com/eyedraw/eyedraw/backend-go/internal/render"
	"github.com/eyedraw/eyedraw/backend-go/internal/typeid"
)

// Renderer writes the live form of a drawing in the given format.
type Renderer interface {
	Render(ctx context.Context, drawingID, userID string, f render.Format, w io.Writer) error
}

// ErrorWriter turns a rendering error into a response.
type ErrorWriter func(w http.ResponseWriter, err error)

type Handler struct {
	dir      string
	renderer Renderer
	onError  ErrorWriter
}

func NewHandler(dir string, renderer Renderer, onError ErrorWriter) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create export dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir, renderer: renderer, onError: onError}
}

type exportRequest struct {
	Format string `json:"format"`
	Name   string `json:"name"`
}

// ExportResponse is returned from the export endpoint.
type ExportResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Format string `json:"format"`
	Name   string `json:"name"`
	Size   int    `json:"size"`
}

// Export handles POST /api/drawings/{drawingId}/exports. The drawing is rendered into the
// export directory and the response names the file to download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	format, err := render.ParseFormat(req.Format)
	if err != nil {
		http.Error(w, "invalid format: must be png, svg, or json", http.StatusBadRequest)
		return
	}

	name := req.Name
	if name == "" {
		name = "drawing"
	}
	name = sanitize(name)

	var buf bytes.Buffer
	if err := h.renderer.Render(r.Context(), drawingID, userID, format, &buf); err != nil {
		h.onError(w, err)
		return
	}

	id := typeid.NewExportID()
	filename := id + "." + string(format)
	if err := os.WriteFile(filepath.Join(h.dir, filename), buf.Bytes(), 0644); err != nil {
		slog.Error("write export", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("export complete", "drawing", drawingID, "format", format, "size", buf.Len())

	resp := ExportResponse{
		ID:     id,
		URL:    fmt.Sprintf("/exports/%s?name=%s", filename, name),
		Format: string(format),
		Name:   name,
		Size:   buf.Len(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// Serve returns an http.Handler that serves rendered exports. Export IDs are unique, so
// files are immutable. A name query parameter sets the download file name.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/exports/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		if name := r.URL.Query().Get("name"); name != "" {
			ext := filepath.Ext(r.URL.Path)
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, sanitize(name), ext))
		}
		fs.ServeHTTP(w, r)
	}))
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
