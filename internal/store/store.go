// Package store persists users, drawings and scene snapshots.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
	ErrExists     = errors.New("already exists")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Drawing is the catalogue entry of a drawing. Its scene lives in snapshots.
type Drawing struct {
	ID        string
	Name      string
	OwnerID   string
	Eye       string
	Width     int
	Height    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is one saved version of a drawing document.
type Snapshot struct {
	ID        string
	DrawingID string
	Version   int
	Document  json.RawMessage
	CreatedAt time.Time
}

type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)

	CreateDrawing(ctx context.Context, d Drawing) (Drawing, error)
	GetDrawing(ctx context.Context, id string) (Drawing, error)
	ListDrawings(ctx context.Context, ownerID string) ([]Drawing, error)
	DeleteDrawing(ctx context.Context, id string) error

	// SaveSnapshot stores doc as the next version of the drawing.
	SaveSnapshot(ctx context.Context, id, drawingID string, doc json.RawMessage) (Snapshot, error)
	LatestSnapshot(ctx context.Context, drawingID string) (Snapshot, error)
}
