package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eyedraw/eyedraw/backend-go/internal/document"
	"github.com/eyedraw/eyedraw/backend-go/internal/store"
	"github.com/eyedraw/eyedraw/backend-go/internal/typeid"
)

// Documents loads and saves drawing documents as store snapshots.
type Documents struct {
	store store.Store
}

func NewDocuments(st store.Store) *Documents {
	return &Documents{store: st}
}

// Load returns the latest snapshot of a drawing, or an empty document if none was saved.
// The catalogue entry is authoritative for the envelope fields.
func (d *Documents) Load(ctx context.Context, drawingID string) (*document.Document, error) {
	meta, err := d.store.GetDrawing(ctx, drawingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	doc := document.NewEmptyDocument(meta.ID, meta.Name, meta.Eye)
	snap, err := d.store.LatestSnapshot(ctx, drawingID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("get snapshot: %w", err)
	default:
		loaded, warnings, err := document.Unmarshal(snap.Document)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
		}
		for _, w := range warnings {
			slog.Warn("snapshot entry skipped", "drawing", drawingID, "snapshot", snap.ID, "error", w)
		}
		doc = loaded
		doc.Version = snap.Version
	}

	doc.ID = meta.ID
	doc.Name = meta.Name
	doc.Eye = meta.Eye
	doc.Width, doc.Height = meta.Width, meta.Height
	doc.CreatedAt = meta.CreatedAt.Format(timeFormat)
	doc.UpdatedAt = meta.UpdatedAt.Format(timeFormat)
	return doc, nil
}

// Save stores doc as the next snapshot of its drawing.
func (d *Documents) Save(ctx context.Context, doc *document.Document) (int, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal document: %w", err)
	}
	snap, err := d.store.SaveSnapshot(ctx, typeid.NewSnapshotID(), doc.ID, data)
	if err != nil {
		return 0, err
	}
	return snap.Version, nil
}
