// Package drawing owns an ordered scene of doodles: insertion under z-order constraints,
// selection, repaint and hit testing, the pointer-driven manipulation state machine,
// change notifications and the persisted scene.
//
// A Drawing is not safe for concurrent use. Callers that share one across goroutines
// must serialize access.
package drawing

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"maps"
	"slices"
	"sync/atomic"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

var (
	ErrUnknownClass          = errors.New("unknown doodle class")
	ErrNotDeletable          = errors.New("doodle is not deletable")
	ErrNotFound              = errors.New("doodle not found")
	ErrNoSelection           = errors.New("no doodle selected")
	ErrInitializationTimeout = errors.New("drawing initialization timed out")
	ErrDuplicateUnique       = errors.New("duplicate instance of unique class")
)

const (
	zoomFactor = 1.25
	minScale   = 0.25
	maxScale   = 4.0
)

// Drawing is a scene graph bound to one canvas.
type Drawing struct {
	name    string
	classes *doodle.Registry
	logger  *slog.Logger

	eye    doodle.Eye
	width  int
	height int
	scale  float64

	canvas   doodle.Canvas
	template image.Image

	// back to front
	doodles    []*doodle.Doodle
	selectedID string
	added      map[*doodle.Doodle]uint64
	serial     uint64

	notifier notifier
	drag     *dragState
	pen      doodle.Style
	ready    atomic.Bool
}

// Option configures a Drawing.
type Option func(*Drawing)

func WithEye(eye doodle.Eye) Option {
	return func(d *Drawing) { d.eye = eye }
}

func WithSize(width, height int) Option {
	return func(d *Drawing) { d.width, d.height = width, height }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Drawing) { d.logger = logger }
}

func WithCanvas(c doodle.Canvas) Option {
	return func(d *Drawing) { d.canvas = c }
}

func WithScale(scale float64) Option {
	return func(d *Drawing) { d.scale = clampScale(scale) }
}

// New creates an empty drawing whose doodles are instantiated from classes.
func New(name string, classes *doodle.Registry, opts ...Option) *Drawing {
	d := &Drawing{
		name:    name,
		classes: classes,
		logger:  slog.Default(),
		width:   1000,
		height:  1000,
		scale:   1,
		pen:     doodle.SquiggleStyle,
		added:   make(map[*doodle.Doodle]uint64),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("drawing", name)
	d.notifier.logger = d.logger
	return d
}

func (d *Drawing) Name() string              { return d.name }
func (d *Drawing) Eye() doodle.Eye           { return d.eye }
func (d *Drawing) Size() (int, int)          { return d.width, d.height }
func (d *Drawing) Scale() float64            { return d.scale }
func (d *Drawing) Ready() bool               { return d.ready.Load() }
func (d *Drawing) Classes() *doodle.Registry { return d.classes }

// SetCanvas replaces the canvas the drawing paints into.
func (d *Drawing) SetCanvas(c doodle.Canvas) {
	d.canvas = c
}

// View maps drawing coordinates to canvas pixels. The drawing origin is the canvas
// centre and one drawing unit is scale pixels.
func (d *Drawing) View() geometry.AffineTransform {
	return geometry.Translate(float64(d.width)/2, float64(d.height)/2).Multiply(geometry.Scale(d.scale, d.scale))
}

// ToDrawing maps a canvas pixel to drawing coordinates.
func (d *Drawing) ToDrawing(p geometry.Point) geometry.Point {
	return d.View().InverseTransformPoint(p)
}

// AddDoodle creates a doodle of the named class, applies params, inserts it at the
// position its z-order constraints allow, selects it if selectable and repaints. If the
// class is unique and an instance already exists, that instance is selected and returned
// instead. The call is atomic: a rejected parameter leaves the scene unchanged.
func (d *Drawing) AddDoodle(className string, params map[string]any) (*doodle.Doodle, error) {
	def, ok := d.classes.Lookup(className)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, className)
	}

	if def.Flags.Unique {
		if existing := d.FirstDoodleOfClass(className); existing != nil {
			d.logger.Debug("unique doodle already present", "class", className)
			if def.Flags.Selectable {
				d.Select(existing)
			}
			return existing, nil
		}
	}

	dd, _ := doodle.New(def, d, nil)
	for _, name := range slices.Sorted(maps.Keys(params)) {
		if _, err := dd.SetParameter(name, params[name]); err != nil {
			return nil, fmt.Errorf("add %s: %w", className, err)
		}
	}

	d.insert(dd)
	d.emit(Notification{Event: EventDoodleAdded, Doodle: dd})
	if def.Flags.Selectable {
		d.Select(dd)
	}
	d.repaint()
	return dd, nil
}

// DeleteSelectedDoodle deletes the selected doodle.
func (d *Drawing) DeleteSelectedDoodle() error {
	sel := d.Selected()
	if sel == nil {
		return ErrNoSelection
	}
	return d.DeleteDoodle(sel)
}

// DeleteDoodleOfClass deletes the first doodle of the named class.
func (d *Drawing) DeleteDoodleOfClass(className string) error {
	dd := d.FirstDoodleOfClass(className)
	if dd == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, className)
	}
	return d.DeleteDoodle(dd)
}

// DeleteDoodle removes a doodle from the scene if its class allows deletion.
func (d *Drawing) DeleteDoodle(dd *doodle.Doodle) error {
	i := d.IndexOf(dd)
	if i < 0 {
		return ErrNotFound
	}
	if !dd.Flags().Deletable {
		return fmt.Errorf("%w: %s", ErrNotDeletable, dd.ClassName())
	}

	d.doodles = slices.Delete(d.doodles, i, i+1)
	delete(d.added, dd)
	if d.selectedID == dd.ID {
		d.selectedID = ""
		dd.Selected = false
	}
	if d.drag != nil && d.drag.doodleID == dd.ID {
		d.drag = nil
	}
	d.emit(Notification{Event: EventDoodleDeleted, Doodle: dd})
	d.repaint()
	return nil
}

// Select makes dd the selected doodle. A nil doodle deselects.
func (d *Drawing) Select(dd *doodle.Doodle) {
	if dd == nil {
		d.Deselect()
		return
	}
	if d.selectedID == dd.ID {
		return
	}
	d.Deselect()
	d.selectedID = dd.ID
	dd.Selected = true
	d.emit(Notification{Event: EventDoodleSelected, Doodle: dd})
}

// Deselect clears the selection.
func (d *Drawing) Deselect() {
	prev := d.Selected()
	d.selectedID = ""
	if prev == nil {
		return
	}
	prev.Selected = false
	prev.ForDrawing = false
	d.emit(Notification{Event: EventDoodleDeselected, Doodle: prev})
}

// SetParameter assigns a parameter of a doodle in the scene and emits parameterChanged for
// every value that changed, including dependents.
func (d *Drawing) SetParameter(dd *doodle.Doodle, name string, value any) error {
	if d.IndexOf(dd) < 0 {
		return ErrNotFound
	}
	changes, err := dd.SetParameter(name, value)
	if err != nil {
		return err
	}
	for _, c := range changes {
		d.emit(Notification{Event: EventParameterChanged, Doodle: dd, Parameter: c.Parameter, Old: c.Old, New: c.New})
	}
	if len(changes) > 0 {
		d.repaint()
	}
	return nil
}

// ZoomIn enlarges the drawing on the canvas by one step. At the largest scale it does
// nothing.
func (d *Drawing) ZoomIn() {
	d.zoom(d.scale*zoomFactor, EventZoomIn)
}

// ZoomOut shrinks the drawing on the canvas by one step. At the smallest scale it does
// nothing.
func (d *Drawing) ZoomOut() {
	d.zoom(d.scale/zoomFactor, EventZoomOut)
}

func (d *Drawing) zoom(scale float64, event Event) {
	scale = clampScale(scale)
	if scale == d.scale {
		return
	}
	d.scale = scale
	d.emit(Notification{Event: event, New: scale})
	d.repaint()
}

func clampScale(s float64) float64 {
	return max(minScale, min(maxScale, s))
}

// Repaint clears the canvas and paints the template, every doodle back to front and the
// handles of the selected doodle on top.
func (d *Drawing) Repaint() error {
	if d.canvas == nil {
		return nil
	}
	return d.PaintTo(d.canvas)
}

// PaintTo paints the scene into c without making it the drawing's canvas. Exports use it
// to render a live drawing off screen.
func (d *Drawing) PaintTo(c doodle.Canvas) error {
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clear canvas: %w", err)
	}

	view := d.View()
	if d.template != nil {
		if ic, ok := c.(doodle.ImageCanvas); ok {
			b := d.template.Bounds()
			fit := geometry.Scale(float64(d.width)/float64(b.Dx()), float64(d.height)/float64(b.Dy()))
			if err := ic.DrawImage(d.template, fit); err != nil {
				return fmt.Errorf("draw template: %w", err)
			}
		}
	}

	for _, dd := range d.doodles {
		if err := dd.Paint(c, view); err != nil {
			return err
		}
	}
	if sel := d.Selected(); sel != nil && !sel.Locked {
		if err := sel.PaintHandles(c, view); err != nil {
			return err
		}
	}
	return nil
}

func (d *Drawing) repaint() {
	if err := d.Repaint(); err != nil {
		d.logger.Error("repaint failed", "error", err)
	}
}

// HitTest returns the topmost selectable, unlocked doodle under a canvas pixel.
func (d *Drawing) HitTest(p geometry.Point) *doodle.Doodle {
	return d.hitTest(d.ToDrawing(p))
}

func (d *Drawing) hitTest(pt geometry.Point) *doodle.Doodle {
	var hit *doodle.Doodle
	for i := len(d.doodles) - 1; i >= 0; i-- {
		dd := d.doodles[i]
		if !dd.Flags().Selectable || dd.Locked {
			dd.Clicked = false
			continue
		}
		if dd.HitTest(pt) && hit == nil {
			hit = dd
		}
	}
	return hit
}
