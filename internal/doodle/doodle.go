// Package doodle is the generic runtime shared by every shape in a drawing: parameters
// and their rules, the local-to-drawing transform, handles, paint and hit testing, and the
// persisted record.
//
// A shape class is a *Definition. Its callbacks build the path in doodle-local
// coordinates; Paint and HitTest both consume that same path.
package doodle

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/document"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
	"github.com/eyedraw/eyedraw/backend-go/internal/typeid"
)

// Change records one parameter whose value changed.
type Change struct {
	Parameter string `json:"parameter"`
	Old       any    `json:"old"`
	New       any    `json:"new"`
}

// Doodle is one placed shape instance.
type Doodle struct {
	ID string

	def   *Definition
	scene Scene

	num  map[string]float64
	text map[string]string

	transform geometry.AffineTransform
	inverse   geometry.AffineTransform

	squiggles []document.Squiggle

	// Transient editing state, never persisted.
	Selected   bool
	Clicked    bool
	ForDrawing bool
	Locked     bool
}

// New creates a doodle of the given class. With saved == nil the doodle is fresh and the
// definition places it. Otherwise only the parameters listed in def.Saved are restored
// from saved; values that fail validation keep their defaults and are returned as warnings.
func New(def *Definition, scene Scene, saved map[string]any) (*Doodle, []error) {
	d := &Doodle{
		ID:    typeid.NewDoodleID(),
		def:   def,
		scene: scene,
		num:   make(map[string]float64),
		text:  make(map[string]string),
	}

	for _, name := range def.parameterNames() {
		r, _ := def.Rule(name)
		if r.Numeric() {
			d.num[name] = r.Clamp(baseDefaults[name])
		} else {
			d.text[name] = r.Values[0]
		}
	}
	for _, name := range slices.Sorted(maps.Keys(def.Defaults)) {
		r, _ := def.Rule(name)
		if v, err := normalize(def.ClassName, name, r, def.Defaults[name]); err == nil {
			d.store(name, v)
		}
	}
	d.rebuildTransform()

	if saved == nil {
		if def.ParameterDefaults != nil {
			def.ParameterDefaults(d, scene)
		}
		return d, nil
	}

	var warnings []error
	for _, name := range def.Saved {
		raw, ok := saved[name]
		if !ok {
			continue
		}
		r, _ := def.Rule(name)
		v, err := normalize(def.ClassName, name, r, raw)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		d.store(name, v)
	}
	d.rebuildTransform()
	return d, warnings
}

// Definition returns the class definition of the doodle.
func (d *Doodle) Definition() *Definition { return d.def }

// ClassName returns the class of the doodle.
func (d *Doodle) ClassName() string { return d.def.ClassName }

// Flags returns the class flags.
func (d *Doodle) Flags() Flags { return d.def.Flags }

// Scene returns the scene the doodle was created in.
func (d *Doodle) Scene() Scene { return d.scene }

// Param returns the current value of a parameter: float64 for numeric parameters, string
// for enumerated ones.
func (d *Doodle) Param(name string) (any, bool) {
	if v, ok := d.num[name]; ok {
		return v, true
	}
	if v, ok := d.text[name]; ok {
		return v, true
	}
	return nil, false
}

// Number returns a numeric parameter, or 0 if it does not exist.
func (d *Doodle) Number(name string) float64 { return d.num[name] }

// Text returns an enumerated parameter, or "" if it does not exist.
func (d *Doodle) Text(name string) string { return d.text[name] }

func (d *Doodle) Origin() geometry.Point {
	return geometry.Pt(d.num[ParamOriginX], d.num[ParamOriginY])
}

func (d *Doodle) Apex() geometry.Point {
	return geometry.Pt(d.num[ParamApexX], d.num[ParamApexY])
}

func (d *Doodle) Rotation() float64 { return d.num[ParamRotation] }
func (d *Doodle) ScaleX() float64   { return d.num[ParamScaleX] }
func (d *Doodle) ScaleY() float64   { return d.num[ParamScaleY] }
func (d *Doodle) Arc() float64      { return d.num[ParamArc] }

// Transform maps doodle-local coordinates to drawing coordinates.
func (d *Doodle) Transform() geometry.AffineTransform { return d.transform }

// Inverse maps drawing coordinates to doodle-local coordinates.
func (d *Doodle) Inverse() geometry.AffineTransform { return d.inverse }

// SetParameter validates and assigns a parameter, then applies any dependent parameters
// the definition derives from it. Numeric values are clamped to their rule. An enumerated
// value outside the allowed set, a value of the wrong kind or an unknown parameter is
// rejected with a *ValidationError and nothing changes.
func (d *Doodle) SetParameter(name string, value any) ([]Change, error) {
	r, ok := d.def.Rule(name)
	if !ok {
		return nil, &ValidationError{Class: d.def.ClassName, Parameter: name, Value: value, Reason: "unknown parameter"}
	}
	v, err := normalize(d.def.ClassName, name, r, value)
	if err != nil {
		return nil, err
	}

	pending := []assignment{{name, v}}
	if d.def.Dependents != nil {
		deps := d.def.Dependents(d, name, v)
		for _, dep := range slices.Sorted(maps.Keys(deps)) {
			if dep == name {
				continue
			}
			dr, ok := d.def.Rule(dep)
			if !ok {
				return nil, &ValidationError{Class: d.def.ClassName, Parameter: dep, Value: deps[dep], Reason: "unknown dependent parameter"}
			}
			dv, err := normalize(d.def.ClassName, dep, dr, deps[dep])
			if err != nil {
				return nil, err
			}
			pending = append(pending, assignment{dep, dv})
		}
	}

	return d.apply(pending), nil
}

// SetNumber assigns a numeric parameter clamped to its rule without running dependents.
// Definitions use it from their placement and handle callbacks.
func (d *Doodle) SetNumber(name string, v float64) {
	r, ok := d.def.Rule(name)
	if !ok || !r.Numeric() || math.IsNaN(v) {
		return
	}
	d.apply([]assignment{{name, r.Clamp(v)}})
}

type assignment struct {
	name  string
	value any
}

func (d *Doodle) apply(pending []assignment) []Change {
	var changes []Change
	geometric := false
	for _, a := range pending {
		old, _ := d.Param(a.name)
		if old == a.value {
			continue
		}
		d.store(a.name, a.value)
		changes = append(changes, Change{Parameter: a.name, Old: old, New: a.value})
		if isGeometric(a.name) {
			geometric = true
		}
	}
	if geometric {
		d.rebuildTransform()
	}
	return changes
}

func (d *Doodle) store(name string, v any) {
	switch v := v.(type) {
	case float64:
		d.num[name] = v
	case string:
		d.text[name] = v
	}
}

func (d *Doodle) rebuildTransform() {
	d.transform = geometry.Compose(d.Origin(), d.Rotation(), d.ScaleX(), d.ScaleY())
	d.inverse = d.transform.Invert()
}

// normalize converts a raw value to the representation of its rule: a clamped float64 for
// range rules and an allowed string for enumerated rules.
func normalize(class, name string, r Rule, value any) (any, error) {
	reject := func(reason string) error {
		return &ValidationError{Class: class, Parameter: name, Value: value, Reason: reason}
	}
	if r.Numeric() {
		f, ok := toFloat(value)
		if !ok || math.IsNaN(f) || (r.Wrap && math.IsInf(f, 0)) {
			return nil, reject("not a number")
		}
		return r.Clamp(f), nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, reject("not a string")
	}
	if !r.Allows(s) {
		return nil, reject(fmt.Sprintf("not one of %v", r.Values))
	}
	return s, nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Path builds the doodle outline in local coordinates.
func (d *Doodle) Path() *gg.Path {
	return d.def.BuildPath(d)
}

// Paint draws the doodle and its squiggles. view maps drawing coordinates to the canvas.
func (d *Doodle) Paint(c Canvas, view geometry.AffineTransform) error {
	m := view.Multiply(d.transform)
	if err := c.DrawPath(d.Path(), m, d.def.style(d)); err != nil {
		return fmt.Errorf("paint %s: %w", d.def.ClassName, err)
	}
	for _, s := range d.squiggles {
		if len(s.Points) == 0 {
			continue
		}
		if err := c.DrawPath(squigglePath(s), m, squiggleStyle(s)); err != nil {
			return fmt.Errorf("paint %s squiggle: %w", d.def.ClassName, err)
		}
	}
	return nil
}

// PaintHandles draws the visible handles at their canvas positions.
func (d *Doodle) PaintHandles(c Canvas, view geometry.AffineTransform) error {
	m := view.Multiply(d.transform)
	for _, h := range d.Handles() {
		if !h.Visible {
			continue
		}
		if err := c.DrawHandle(m.TransformPoint(h.Location), HandleRadius/2, HandleStyle); err != nil {
			return fmt.Errorf("paint %s handle: %w", d.def.ClassName, err)
		}
	}
	return nil
}

// HitTest reports whether a point in drawing coordinates falls inside the doodle outline and records the
// result in Clicked.
func (d *Doodle) HitTest(p geometry.Point) bool {
	local := d.inverse.TransformPoint(p)
	d.Clicked = d.Path().Contains(gg.Point{X: local.X, Y: local.Y})
	return d.Clicked
}

// Handles returns the doodle's handles in local coordinates.
func (d *Doodle) Handles() []Handle {
	if d.def.Handles != nil {
		return d.def.Handles(d)
	}
	var mode Mode
	switch {
	case d.def.Flags.Scaleable:
		mode = ModeScale
	case d.def.Flags.Rotatable:
		mode = ModeRotate
	default:
		return nil
	}
	b := d.Path().BoundingBox()
	halfWidth := math.Max(-b.Min.X, b.Max.X)
	halfHeight := math.Max(-b.Min.Y, b.Max.Y)
	return CornerHandles(halfWidth, halfHeight, mode)
}

// HandleAt returns the index of the visible handle within HandleRadius of a point in
// drawing coordinates.
func (d *Doodle) HandleAt(p geometry.Point) (int, Handle, bool) {
	for i, h := range d.Handles() {
		if !h.Visible {
			continue
		}
		if d.transform.TransformPoint(h.Location).DistanceTo(p) <= HandleRadius {
			return i, h, true
		}
	}
	return -1, Handle{}, false
}

// Bounds returns the drawing-space box enclosing the doodle's local outline box.
func (d *Doodle) Bounds() geometry.Rect {
	b := d.Path().BoundingBox()
	local := geometry.RectFromCorners(geometry.Pt(b.Min.X, b.Min.Y), geometry.Pt(b.Max.X, b.Max.Y))
	return d.transform.TransformRect(local)
}

// Description returns the clinical description of this instance.
func (d *Doodle) Description() string {
	if d.def.Describe == nil {
		return ""
	}
	return d.def.Describe(d)
}

// GroupDescription is the shared prefix used when several instances are reported together.
func (d *Doodle) GroupDescription() string { return d.def.GroupDescription }

func (d *Doodle) Code() string    { return d.def.Code }
func (d *Doodle) Tooltip() string { return d.def.Tooltip }

// Record returns the persisted form of the doodle: its class and saved parameters.
func (d *Doodle) Record() document.Record {
	params := make(map[string]any, len(d.def.Saved))
	for _, name := range d.def.Saved {
		if v, ok := d.Param(name); ok {
			params[name] = v
		}
	}
	rec := document.Record{ClassName: d.def.ClassName, Parameters: params}
	if len(d.squiggles) > 0 {
		rec.Squiggles = d.Squiggles()
	}
	return rec
}

// RestoreSquiggles replaces the doodle's strokes with persisted ones.
func (d *Doodle) RestoreSquiggles(s []document.Squiggle) {
	d.squiggles = nil
	for _, sq := range s {
		sq.Points = append([]geometry.Point(nil), sq.Points...)
		d.squiggles = append(d.squiggles, sq)
	}
}

// Parameters returns all current parameter values.
func (d *Doodle) Parameters() map[string]any {
	out := make(map[string]any, len(d.num)+len(d.text))
	for k, v := range d.num {
		out[k] = v
	}
	for k, v := range d.text {
		out[k] = v
	}
	return out
}
