// Package asset stores the anatomical template images painted behind drawings.
package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/eyedraw/eyedraw/backend-go/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

var ErrNotFound = errors.New("template not found")

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	File   string `json:"file"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// Handler serves template upload and retrieval endpoints.
type Handler struct {
	dir string
}

// NewHandler creates a template handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create template dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Upload handles POST /api/templates (multipart form with a "file" field). PNG, JPEG
// and WebP images are accepted and stored as PNG.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 10MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !supported(contentType) {
		http.Error(w, "only PNG, JPEG and WebP images are supported", http.StatusBadRequest)
		return
	}

	img, _, err := image.Decode(file)
	if err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}

	id := typeid.NewTemplateID()
	filename := id + ".png"
	if err := h.save(filename, img); err != nil {
		slog.Error("save template", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	bounds := img.Bounds()
	resp := UploadResponse{
		ID:     id,
		URL:    fmt.Sprintf("/templates/%s", filename),
		File:   filename,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Name:   header.Filename,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func supported(contentType string) bool {
	for _, t := range []string{"image/png", "image/jpeg", "image/webp"} {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

func (h *Handler) save(filename string, img image.Image) error {
	path := filepath.Join(h.dir, filename)
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create template file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("encode png: %w", err)
	}
	return out.Close()
}

// Serve returns an http.Handler that serves stored templates with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/templates/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Template IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Exists reports whether a stored template file is present.
func (h *Handler) Exists(filename string) bool {
	if filename != filepath.Base(filename) || !strings.HasPrefix(filename, typeid.PrefixTemplate+"_") {
		return false
	}
	_, err := os.Stat(filepath.Join(h.dir, filename))
	return err == nil
}

// Delete removes a template file from disk.
func (h *Handler) Delete(id string) error {
	if err := typeid.Validate(id, typeid.PrefixTemplate); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err := os.Remove(filepath.Join(h.dir, id+".png")); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

// DeleteHandler handles DELETE /api/templates/{templateId}.
func (h *Handler) DeleteHandler(id func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Delete(id(r)); err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "template not found", http.StatusNotFound)
				return
			}
			slog.Error("delete template", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
