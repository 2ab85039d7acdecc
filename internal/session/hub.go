// Package session keeps live drawings in memory while they are edited. Each drawing is
// edited by at most one websocket client; HTTP calls share the same live drawing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eyedraw/eyedraw/backend-go/internal/document"
	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/drawing"
	"github.com/eyedraw/eyedraw/backend-go/internal/render"
	"github.com/eyedraw/eyedraw/backend-go/internal/resource"
)

// Persistence loads and saves drawing documents.
type Persistence interface {
	Load(ctx context.Context, drawingID string) (*document.Document, error)
	// Save stores doc as a new version and returns it.
	Save(ctx context.Context, doc *document.Document) (int, error)
}

type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Session
	drawings *drawing.Registry
	loading  singleflight.Group

	classes      *doodle.Registry
	persist      Persistence
	templateDir  string
	readyTimeout time.Duration
	autosave     time.Duration
	logger       *slog.Logger

	unregister chan *Client
	stop       chan struct{}
	done       chan struct{}
}

type Option func(*Hub)

// WithTemplateDir resolves document template names against dir.
func WithTemplateDir(dir string) Option {
	return func(h *Hub) { h.templateDir = dir }
}

func WithReadyTimeout(d time.Duration) Option {
	return func(h *Hub) { h.readyTimeout = d }
}

// WithAutosave sets how often Run saves dirty drawings. Zero disables autosave.
func WithAutosave(d time.Duration) Option {
	return func(h *Hub) { h.autosave = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) { h.logger = logger }
}

func NewHub(classes *doodle.Registry, persist Persistence, opts ...Option) *Hub {
	h := &Hub{
		sessions:     make(map[string]*Session),
		drawings:     drawing.NewRegistry(),
		classes:      classes,
		persist:      persist,
		readyTimeout: 5 * time.Second,
		autosave:     time.Minute,
		logger:       slog.Default(),
		unregister:   make(chan *Client),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes client departures and autosaves until Stop is called.
func (h *Hub) Run() {
	defer close(h.done)

	var tick <-chan time.Time
	if h.autosave > 0 {
		ticker := time.NewTicker(h.autosave)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case client := <-h.unregister:
			h.removeClient(client)
		case <-tick:
			h.saveAll(context.Background())
		case <-h.stop:
			h.saveAll(context.Background())
			return
		}
	}
}

// Stop saves every dirty drawing and ends Run.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// Drawings returns the registry of live drawings.
func (h *Hub) Drawings() *drawing.Registry {
	return h.drawings
}

// Open returns the live session of a drawing, loading it if it is not open yet. Loading
// runs outside the hub lock; concurrent opens of the same drawing share one load.
func (h *Hub) Open(ctx context.Context, drawingID string) (*Session, error) {
	if s, ok := h.Session(drawingID); ok {
		return s, nil
	}

	v, err, _ := h.loading.Do(drawingID, func() (any, error) {
		if s, ok := h.Session(drawingID); ok {
			return s, nil
		}
		doc, err := h.persist.Load(ctx, drawingID)
		if err != nil {
			return nil, fmt.Errorf("load drawing %s: %w", drawingID, err)
		}
		s, err := h.newSession(ctx, doc)
		if err != nil {
			return nil, err
		}

		h.mu.Lock()
		defer h.mu.Unlock()
		if err := h.drawings.Register(s.drawing); err != nil {
			return nil, err
		}
		h.sessions[drawingID] = s
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (h *Hub) newSession(ctx context.Context, doc *document.Document) (*Session, error) {
	eye, err := doodle.ParseEye(doc.Eye)
	if err != nil {
		return nil, fmt.Errorf("open drawing %s: %w", doc.ID, err)
	}
	logger := h.logger.With("drawing", doc.ID)
	recorder := render.NewRecorder()

	opts := []drawing.Option{drawing.WithEye(eye), drawing.WithLogger(h.logger), drawing.WithCanvas(recorder)}
	if doc.Width > 0 && doc.Height > 0 {
		opts = append(opts, drawing.WithSize(doc.Width, doc.Height))
	}
	d := drawing.New(doc.ID, h.classes, opts...)

	s := &Session{
		hub:      h,
		doc:      *doc,
		drawing:  d,
		recorder: recorder,
		logger:   logger,
	}
	s.doc.Doodles = nil
	d.Subscribe(s.onNotify)

	var loaders []resource.Loader
	if doc.Template != "" {
		loaders = append(loaders, resource.FileLoader{
			Key:  drawing.TemplateKey,
			Path: filepath.Join(h.templateDir, filepath.Base(doc.Template)),
		})
	}
	if err := d.Init(ctx, h.readyTimeout, loaders...); err != nil {
		return nil, err
	}

	for _, w := range d.LoadRecords(doc.Doodles) {
		logger.Warn("document entry skipped", "error", w)
	}
	return s, nil
}

// Session returns the live session of a drawing if it is open.
func (h *Hub) Session(drawingID string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[drawingID]
	return s, ok
}

// Busy reports whether a client is already editing the drawing.
func (h *Hub) Busy(drawingID string) bool {
	s, ok := h.Session(drawingID)
	return ok && s.Attached()
}

// Register attaches a client to its drawing. A drawing already being edited refuses the
// client with ErrBusy.
func (h *Hub) Register(ctx context.Context, client *Client) error {
	s, err := h.Open(ctx, client.DrawingID)
	if err != nil {
		return err
	}
	if err := s.attach(client); err != nil {
		return err
	}
	client.session = s
	h.logger.Info("client joined", "user", client.UserID, "drawing", client.DrawingID)
	return nil
}

func (h *Hub) removeClient(client *Client) {
	s := client.session
	if s == nil || !s.detach(client) {
		return
	}
	close(client.send)
	h.logger.Info("client left", "user", client.UserID, "drawing", client.DrawingID)

	if err := h.Close(context.Background(), client.DrawingID); err != nil {
		h.logger.Error("close drawing", "drawing", client.DrawingID, "error", err)
	}
}

// Close saves a drawing if it has unsaved changes and drops it from memory. A drawing
// whose save fails stays open so its changes are not lost, as does one that was attached
// or changed again while the save ran.
func (h *Hub) Close(ctx context.Context, drawingID string) error {
	s, ok := h.Session(drawingID)
	if !ok {
		return nil
	}
	if s.Attached() {
		return fmt.Errorf("%w: %s", ErrBusy, drawingID)
	}
	if err := s.saveIfDirty(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[drawingID] != s {
		return nil
	}
	if s.Attached() {
		return fmt.Errorf("%w: %s", ErrBusy, drawingID)
	}
	if s.Dirty() {
		h.logger.Debug("drawing changed while closing, kept open", "drawing", drawingID)
		return nil
	}
	delete(h.sessions, drawingID)
	h.drawings.Unregister(drawingID)
	return nil
}

// Discard drops a drawing from memory without saving it.
func (h *Hub) Discard(drawingID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, drawingID)
	h.drawings.Unregister(drawingID)
}

func (h *Hub) saveAll(ctx context.Context) {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.saveIfDirty(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		h.logger.Error("saving drawings", "error", err)
	}
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	s := sender.session
	if s == nil {
		return
	}
	s.handle(ctx, sender, msg)
}
