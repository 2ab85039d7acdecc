// Package scene is the HTTP surface of the editor: the drawing catalogue, scene
// read/write, doodle commands, reports and rendering.
package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/drawing"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
	"github.com/eyedraw/eyedraw/backend-go/internal/render"
	"github.com/eyedraw/eyedraw/backend-go/internal/session"
	"github.com/eyedraw/eyedraw/backend-go/internal/shapes"
	"github.com/eyedraw/eyedraw/backend-go/internal/store"
	"github.com/eyedraw/eyedraw/backend-go/internal/typeid"
)

const timeFormat = "2006-01-02T15:04:05Z"

var (
	ErrNotFound  = errors.New("drawing not found")
	ErrForbidden = session.ErrForbidden
	ErrInvalid   = errors.New("invalid request")
)

// Templates reports whether an uploaded template image exists.
type Templates interface {
	Exists(filename string) bool
}

type Service struct {
	store     store.Store
	hub       *session.Hub
	classes   *doodle.Registry
	docs      *Documents
	templates Templates
	width     int
	height    int
}

func NewService(st store.Store, hub *session.Hub, classes *doodle.Registry, docs *Documents, templates Templates, width, height int) *Service {
	return &Service{store: st, hub: hub, classes: classes, docs: docs, templates: templates, width: width, height: height}
}

// NewDrawing describes a drawing to create. Template names an uploaded template file and
// Sample seeds the drawing with the demo fundus scene.
type NewDrawing struct {
	Name     string `json:"name"`
	Eye      string `json:"eye"`
	Template string `json:"template,omitempty"`
	Sample   bool   `json:"sample"`
}

type Drawing struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	Eye       string `json:"eye"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Doodle is the API view of a doodle in a live drawing.
type Doodle struct {
	ID          string         `json:"id"`
	ClassName   string         `json:"className"`
	Parameters  map[string]any `json:"parameters"`
	Selected    bool           `json:"selected"`
	Description string         `json:"description,omitempty"`
	Bounds      geometry.Rect  `json:"bounds"`
}

type Class struct {
	ClassName  string `json:"className"`
	Tooltip    string `json:"tooltip,omitempty"`
	Unique     bool   `json:"unique"`
	Selectable bool   `json:"selectable"`
	Deletable  bool   `json:"deletable"`
}

type Report struct {
	Report   string            `json:"report"`
	Findings []drawing.Finding `json:"findings"`
}

// Create adds a drawing to the catalogue and seeds its first snapshot.
func (s *Service) Create(ctx context.Context, ownerID string, nd NewDrawing) (*Drawing, error) {
	parsed, err := doodle.ParseEye(nd.Eye)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if nd.Template != "" && (s.templates == nil || !s.templates.Exists(nd.Template)) {
		return nil, fmt.Errorf("%w: unknown template %q", ErrInvalid, nd.Template)
	}

	row, err := s.store.CreateDrawing(ctx, store.Drawing{
		ID:      typeid.NewDrawingID(),
		Name:    nd.Name,
		OwnerID: ownerID,
		Eye:     strings.ToLower(parsed.String()),
		Width:   s.width,
		Height:  s.height,
	})
	if err != nil {
		return nil, fmt.Errorf("create drawing: %w", err)
	}

	doc, err := s.docs.Load(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	doc.Template = nd.Template
	if nd.Sample {
		doc.Doodles = shapes.SampleScene()
	}
	if _, err := s.docs.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}
	return toDrawing(row), nil
}

func (s *Service) Get(ctx context.Context, drawingID, userID string) (*Drawing, error) {
	row, err := s.owned(ctx, drawingID, userID)
	if err != nil {
		return nil, err
	}
	return toDrawing(row), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Drawing, error) {
	rows, err := s.store.ListDrawings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	out := make([]Drawing, len(rows))
	for i, row := range rows {
		out[i] = *toDrawing(row)
	}
	return out, nil
}

// Delete removes a drawing and discards any live copy without saving it.
func (s *Service) Delete(ctx context.Context, drawingID, userID string) error {
	if _, err := s.owned(ctx, drawingID, userID); err != nil {
		return err
	}
	if s.hub.Busy(drawingID) {
		return session.ErrBusy
	}
	s.hub.Discard(drawingID)
	if err := s.store.DeleteDrawing(ctx, drawingID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// CanEdit implements session.AccessChecker.
func (s *Service) CanEdit(ctx context.Context, drawingID, userID string) error {
	_, err := s.owned(ctx, drawingID, userID)
	return err
}

// Classes lists the doodle classes drawings can contain.
func (s *Service) Classes() []Class {
	names := s.classes.Names()
	out := make([]Class, 0, len(names))
	for _, name := range names {
		def, _ := s.classes.Lookup(name)
		out = append(out, Class{
			ClassName:  def.ClassName,
			Tooltip:    def.Tooltip,
			Unique:     def.Flags.Unique,
			Selectable: def.Flags.Selectable,
			Deletable:  def.Flags.Deletable,
		})
	}
	return out
}

// Scene returns the persisted form of the live scene.
func (s *Service) Scene(ctx context.Context, drawingID, userID string) (json.RawMessage, error) {
	var data []byte
	err := s.do(ctx, drawingID, userID, func(d *drawing.Drawing) error {
		var err error
		data, err = d.MarshalScene()
		return err
	})
	return data, err
}

// ReplaceScene loads data into the live drawing. Unusable entries are skipped and
// returned as warnings.
func (s *Service) ReplaceScene(ctx context.Context, drawingID, userID string, data []byte) ([]error, error) {
	sess, err := s.open(ctx, drawingID, userID)
	if err != nil {
		return nil, err
	}
	var warnings []error
	err = sess.Do(func(d *drawing.Drawing) error {
		w, err := d.LoadScene(data)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		warnings = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	sess.MarkDirty()
	return warnings, s.release(ctx, sess)
}

func (s *Service) Doodles(ctx context.Context, drawingID, userID string) ([]Doodle, error) {
	var out []Doodle
	err := s.do(ctx, drawingID, userID, func(d *drawing.Drawing) error {
		out = make([]Doodle, 0, d.Len())
		for _, dd := range d.Doodles() {
			out = append(out, toDoodle(dd))
		}
		return nil
	})
	return out, err
}

func (s *Service) AddDoodle(ctx context.Context, drawingID, userID, className string, params map[string]any) (*Doodle, error) {
	var out Doodle
	err := s.do(ctx, drawingID, userID, func(d *drawing.Drawing) error {
		dd, err := d.AddDoodle(className, params)
		if err != nil {
			return err
		}
		out = toDoodle(dd)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) SetParameter(ctx context.Context, drawingID, userID, doodleID, name string, value any) (*Doodle, error) {
	var out Doodle
	err := s.do(ctx, drawingID, userID, func(d *drawing.Drawing) error {
		dd := d.Doodle(doodleID)
		if dd == nil {
			return fmt.Errorf("%w: %s", drawing.ErrNotFound, doodleID)
		}
		if err := d.SetParameter(dd, name, value); err != nil {
			return err
		}
		out = toDoodle(dd)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Select selects a doodle, or clears the selection when doodleID is empty.
func (s *Service) Select(ctx context.Context, drawingID, userID, doodleID string) error {
	return s.do(ctx, drawingID, userID, func(d *drawing.Drawing) error {
		if doodleID == "" {
			d.Deselect()
			return nil
		}
		dd := d.Doodle(doodleID)
		if dd == nil {
			return fmt.Errorf("%w: %s", drawing.ErrNotFound, doodleID)
		}
		d.Select(dd)
		return nil
	})
}

func (s *Service) DeleteSelected(ctx context.Context, drawingID, userID string) error {
	return s.do(ctx, drawingID, userID, func(d *drawing.Drawing) error {
		return d.DeleteSelectedDoodle()
	})
}

func (s *Service) DeleteDoodle(ctx context.Context, drawingID, userID, doodleID string) error {
	return s.do(ctx, drawingID, userID, func(d *drawing.Drawing) error {
		dd := d.Doodle(doodleID)
		if dd == nil {
			return fmt.Errorf("%w: %s", drawing.ErrNotFound, doodleID)
		}
		return d.DeleteDoodle(dd)
	})
}

func (s *Service) Report(ctx context.Context, drawingID, userID string) (*Report, error) {
	out := Report{Findings: []drawing.Finding{}}
	err := s.do(ctx, drawingID, userID, func(d *drawing.Drawing) error {
		out.Report = d.Report()
		if f := d.Findings(); f != nil {
			out.Findings = f
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Render writes the live drawing to w in the given format.
func (s *Service) Render(ctx context.Context, drawingID, userID string, f render.Format, w io.Writer) error {
	return s.do(ctx, drawingID, userID, func(d *drawing.Drawing) error {
		return render.Export(d, f, w)
	})
}

// Save writes the live drawing as a new snapshot and returns its version.
func (s *Service) Save(ctx context.Context, drawingID, userID string) (int, error) {
	sess, err := s.open(ctx, drawingID, userID)
	if err != nil {
		return 0, err
	}
	return sess.Save(ctx)
}

func (s *Service) owned(ctx context.Context, drawingID, userID string) (store.Drawing, error) {
	if !typeid.Is(drawingID, typeid.PrefixDrawing) {
		return store.Drawing{}, ErrNotFound
	}
	row, err := s.store.GetDrawing(ctx, drawingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Drawing{}, ErrNotFound
		}
		return store.Drawing{}, fmt.Errorf("get drawing: %w", err)
	}
	if row.OwnerID != userID {
		return store.Drawing{}, ErrForbidden
	}
	return row, nil
}

func (s *Service) open(ctx context.Context, drawingID, userID string) (*session.Session, error) {
	if _, err := s.owned(ctx, drawingID, userID); err != nil {
		return nil, err
	}
	return s.hub.Open(ctx, drawingID)
}

func (s *Service) do(ctx context.Context, drawingID, userID string, fn func(d *drawing.Drawing) error) error {
	sess, err := s.open(ctx, drawingID, userID)
	if err != nil {
		return err
	}
	if err := sess.Do(fn); err != nil {
		return err
	}
	return s.release(ctx, sess)
}

// release saves REST edits to a drawing nobody is editing over a websocket. The drawing
// stays loaded so doodle IDs handed out earlier remain valid.
func (s *Service) release(ctx context.Context, sess *session.Session) error {
	if sess.Attached() || !sess.Dirty() {
		return nil
	}
	if _, err := sess.Save(ctx); err != nil {
		return fmt.Errorf("save drawing: %w", err)
	}
	return nil
}

func toDrawing(row store.Drawing) *Drawing {
	return &Drawing{
		ID:        row.ID,
		Name:      row.Name,
		OwnerID:   row.OwnerID,
		Eye:       row.Eye,
		Width:     row.Width,
		Height:    row.Height,
		CreatedAt: row.CreatedAt.Format(timeFormat),
		UpdatedAt: row.UpdatedAt.Format(timeFormat),
	}
}

func toDoodle(dd *doodle.Doodle) Doodle {
	params := dd.Parameters()
	return Doodle{
		ID:          dd.ID,
		ClassName:   dd.ClassName(),
		Parameters:  params,
		Selected:    dd.Selected,
		Description: dd.Description(),
		Bounds:      dd.Bounds(),
	}
}
