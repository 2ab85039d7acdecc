package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/eyedraw/eyedraw/backend-go/internal/auth"
	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/drawing"
	"github.com/eyedraw/eyedraw/backend-go/internal/render"
	"github.com/eyedraw/eyedraw/backend-go/internal/session"
)

const maxSceneBytes = 4 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the drawing API on r. Every route expects an authenticated user.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/classes", h.Classes).Methods("GET")
	r.HandleFunc("/drawings", h.List).Methods("GET")
	r.HandleFunc("/drawings", h.Create).Methods("POST")
	r.HandleFunc("/drawings/{drawingId}", h.Get).Methods("GET")
	r.HandleFunc("/drawings/{drawingId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/drawings/{drawingId}/scene", h.Scene).Methods("GET")
	r.HandleFunc("/drawings/{drawingId}/scene", h.ReplaceScene).Methods("PUT")
	r.HandleFunc("/drawings/{drawingId}/save", h.Save).Methods("POST")
	r.HandleFunc("/drawings/{drawingId}/doodles", h.Doodles).Methods("GET")
	r.HandleFunc("/drawings/{drawingId}/doodles", h.AddDoodle).Methods("POST")
	r.HandleFunc("/drawings/{drawingId}/doodles/selected", h.DeleteSelected).Methods("DELETE")
	r.HandleFunc("/drawings/{drawingId}/doodles/{doodleId}", h.DeleteDoodle).Methods("DELETE")
	r.HandleFunc("/drawings/{drawingId}/doodles/{doodleId}/parameters/{name}", h.SetParameter).Methods("PUT")
	r.HandleFunc("/drawings/{drawingId}/selection", h.Select).Methods("PUT")
	r.HandleFunc("/drawings/{drawingId}/report", h.Report).Methods("GET")
	r.HandleFunc("/drawings/{drawingId}/render.{format}", h.Render).Methods("GET")
}

type addDoodleRequest struct {
	ClassName  string         `json:"className"`
	Parameters map[string]any `json:"parameters"`
}

type parameterRequest struct {
	Value any `json:"value"`
}

type selectRequest struct {
	DoodleID string `json:"doodleId"`
}

func (h *Handler) Classes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Classes())
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req NewDrawing
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	d, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	d, err := h.service.Get(r.Context(), drawingID, userID)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	drawings, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list drawings failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, drawings)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	if err := h.service.Delete(r.Context(), drawingID, userID); err != nil {
		HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Scene(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	data, err := h.service.Scene(r.Context(), drawingID, userID)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) ReplaceScene(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSceneBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	warnings, err := h.service.ReplaceScene(r.Context(), drawingID, userID, data)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	messages := make([]string, len(warnings))
	for i, warn := range warnings {
		messages[i] = warn.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{"warnings": messages})
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	version, err := h.service.Save(r.Context(), drawingID, userID)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"version": version})
}

func (h *Handler) Doodles(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	doodles, err := h.service.Doodles(r.Context(), drawingID, userID)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doodles)
}

func (h *Handler) AddDoodle(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	var req addDoodleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.ClassName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "className is required"})
		return
	}

	dd, err := h.service.AddDoodle(r.Context(), drawingID, userID, req.ClassName, req.Parameters)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dd)
}

func (h *Handler) SetParameter(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	vars := mux.Vars(r)

	var req parameterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	dd, err := h.service.SetParameter(r.Context(), vars["drawingId"], userID, vars["doodleId"], vars["name"], req.Value)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dd)
}

func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.service.Select(r.Context(), drawingID, userID, req.DoodleID); err != nil {
		HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteSelected(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	if err := h.service.DeleteSelected(r.Context(), drawingID, userID); err != nil {
		HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteDoodle(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	vars := mux.Vars(r)

	if err := h.service.DeleteDoodle(r.Context(), vars["drawingId"], userID, vars["doodleId"]); err != nil {
		HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	report, err := h.service.Report(r.Context(), drawingID, userID)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	vars := mux.Vars(r)

	format, err := render.ParseFormat(vars["format"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// Rendered into a buffer first so a failure can still become an error response.
	var buf bytes.Buffer
	if err := h.service.Render(r.Context(), vars["drawingId"], userID, format, &buf); err != nil {
		HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// HandleServiceError maps service errors to JSON error responses.
func HandleServiceError(w http.ResponseWriter, err error) {
	var verr *doodle.ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, session.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "drawing is being edited"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": verr.Error()})
	case errors.Is(err, drawing.ErrNotFound), errors.Is(err, drawing.ErrNoSelection):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, drawing.ErrUnknownClass), errors.Is(err, drawing.ErrNotDeletable), errors.Is(err, ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
