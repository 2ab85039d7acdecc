package store

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process Store. It backs tests and servers started without a database.
type Memory struct {
	mu        sync.RWMutex
	now       func() time.Time
	users     map[string]User
	emails    map[string]string
	drawings  map[string]Drawing
	snapshots map[string][]Snapshot
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		now:       time.Now,
		users:     make(map[string]User),
		emails:    make(map[string]string),
		drawings:  make(map[string]Drawing),
		snapshots: make(map[string][]Snapshot),
	}
}

func (m *Memory) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.emails[u.Email]; taken {
		return User{}, ErrEmailTaken
	}
	if _, exists := m.users[u.ID]; exists {
		return User{}, fmt.Errorf("create user %s: %w", u.ID, ErrExists)
	}
	u.CreatedAt = m.now()
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return u, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *Memory) UserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) CreateDrawing(_ context.Context, d Drawing) (Drawing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.drawings[d.ID]; exists {
		return Drawing{}, fmt.Errorf("create drawing %s: %w", d.ID, ErrExists)
	}
	d.CreatedAt = m.now()
	d.UpdatedAt = d.CreatedAt
	m.drawings[d.ID] = d
	return d, nil
}

func (m *Memory) GetDrawing(_ context.Context, id string) (Drawing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.drawings[id]
	if !ok {
		return Drawing{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) ListDrawings(_ context.Context, ownerID string) ([]Drawing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Drawing{}
	for _, d := range m.drawings {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b Drawing) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) DeleteDrawing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.drawings[id]; !ok {
		return ErrNotFound
	}
	delete(m.drawings, id)
	delete(m.snapshots, id)
	return nil
}

func (m *Memory) SaveSnapshot(_ context.Context, id, drawingID string, doc json.RawMessage) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drawings[drawingID]
	if !ok {
		return Snapshot{}, fmt.Errorf("save snapshot of %s: %w", drawingID, ErrNotFound)
	}

	snap := Snapshot{
		ID:        id,
		DrawingID: drawingID,
		Version:   len(m.snapshots[drawingID]) + 1,
		Document:  slices.Clone(doc),
		CreatedAt: m.now(),
	}
	m.snapshots[drawingID] = append(m.snapshots[drawingID], snap)
	d.UpdatedAt = snap.CreatedAt
	m.drawings[drawingID] = d
	return snap, nil
}

func (m *Memory) LatestSnapshot(_ context.Context, drawingID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := m.snapshots[drawingID]
	if len(snaps) == 0 {
		return Snapshot{}, ErrNotFound
	}
	snap := snaps[len(snaps)-1]
	snap.Document = slices.Clone(snap.Document)
	return snap, nil
}
