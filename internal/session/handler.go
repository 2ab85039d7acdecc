package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var ErrForbidden = errors.New("forbidden")

// Authenticator resolves a bearer token to a user ID.
type Authenticator interface {
	ValidateToken(token string) (string, error)
}

// AccessChecker decides whether a user may edit a drawing. It returns ErrForbidden, or an
// error wrapping a not-found error, to refuse.
type AccessChecker interface {
	CanEdit(ctx context.Context, drawingID, userID string) error
}

// WebSocketHandler upgrades /ws/drawings/{drawingId} connections. The token travels in
// the query string because browsers cannot set headers on websocket requests.
func (h *Hub) WebSocketHandler(authn Authenticator, access AccessChecker, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drawingID := mux.Vars(r)["drawingId"]

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		userID, err := authn.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if err := access.CanEdit(r.Context(), drawingID, userID); err != nil {
			if errors.Is(err, ErrForbidden) {
				http.Error(w, "forbidden", http.StatusForbidden)
			} else {
				http.Error(w, "drawing not found", http.StatusNotFound)
			}
			return
		}
		if h.Busy(drawingID) {
			http.Error(w, ErrBusy.Error(), http.StatusConflict)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			slog.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(h, conn, userID, drawingID, uuid.New().String())
		if err := h.Register(r.Context(), client); err != nil {
			status := websocket.StatusInternalError
			if errors.Is(err, ErrBusy) {
				status = websocket.StatusPolicyViolation
			}
			conn.Close(status, err.Error())
			return
		}

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
