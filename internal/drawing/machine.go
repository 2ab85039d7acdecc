package drawing

import (
	"maps"
	"math"
	"slices"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

// dragState is the Dragging state of the manipulation machine. A nil *dragState is Idle.
type dragState struct {
	mode     doodle.Mode
	doodleID string
	handle   int

	// drawing coordinates of the pointer at drag start
	start geometry.Point

	startParams    map[string]any
	startSquiggles int
	startInverse   geometry.AffineTransform
	startOrigin    geometry.Point
	startRotation  float64
	startScaleX    float64
	startScaleY    float64
}

// Dragging reports the active manipulation mode, or ModeNone when idle.
func (d *Drawing) Dragging() doodle.Mode {
	if d.drag == nil {
		return doodle.ModeNone
	}
	return d.drag.mode
}

// ArmSquiggle switches the selected doodle to freehand drawing with the given pen.
// Returns false if nothing is selected.
func (d *Drawing) ArmSquiggle(pen doodle.Style, filled bool) bool {
	sel := d.Selected()
	if sel == nil {
		return false
	}
	d.pen = pen
	sel.ForDrawing = true
	sel.StartSquiggle(pen, filled)
	return true
}

// DisarmSquiggle returns the selected doodle to ordinary editing.
func (d *Drawing) DisarmSquiggle() {
	if sel := d.Selected(); sel != nil {
		sel.ForDrawing = false
	}
}

// PointerDown starts a manipulation at a canvas pixel and returns its mode. A handle of
// the selected doodle takes precedence, then freehand drawing on an armed doodle, then
// the body of the topmost selectable doodle, which moves it or, when it cannot move,
// rotates it about its origin. A miss deselects. Input is ignored until
// the drawing is ready.
func (d *Drawing) PointerDown(p geometry.Point) doodle.Mode {
	if !d.ready.Load() {
		return doodle.ModeNone
	}
	d.drag = nil
	pt := d.ToDrawing(p)

	if sel := d.Selected(); sel != nil && !sel.Locked {
		if i, h, ok := sel.HandleAt(pt); ok {
			if mode := handleMode(sel, h.Mode); mode != doodle.ModeNone {
				d.beginDrag(sel, mode, i, pt)
				return mode
			}
		}
		if sel.ForDrawing {
			d.beginDrag(sel, doodle.ModeSquiggle, -1, pt)
			sel.AddPointToSquiggle(sel.Inverse().TransformPoint(pt))
			d.repaint()
			return doodle.ModeSquiggle
		}
	}

	hit := d.hitTest(pt)
	if hit == nil {
		d.Deselect()
		d.repaint()
		return doodle.ModeNone
	}

	d.Select(hit)
	mode := doodle.ModeNone
	switch flags := hit.Flags(); {
	case flags.Moveable:
		mode = doodle.ModeMove
	case flags.Rotatable:
		mode = doodle.ModeRotate
	}
	if mode != doodle.ModeNone {
		d.beginDrag(hit, mode, -1, pt)
	}
	d.repaint()
	return mode
}

// handleMode restricts a handle's declared mode to what the class permits.
func handleMode(dd *doodle.Doodle, mode doodle.Mode) doodle.Mode {
	flags := dd.Flags()
	switch mode {
	case doodle.ModeScale:
		if flags.Scaleable {
			return mode
		}
		if flags.Rotatable {
			return doodle.ModeRotate
		}
		return doodle.ModeNone
	case doodle.ModeRotate:
		if flags.Rotatable {
			return mode
		}
		return doodle.ModeNone
	default:
		return mode
	}
}

func (d *Drawing) beginDrag(dd *doodle.Doodle, mode doodle.Mode, handle int, pt geometry.Point) {
	d.drag = &dragState{
		mode:           mode,
		doodleID:       dd.ID,
		handle:         handle,
		start:          pt,
		startParams:    dd.Parameters(),
		startSquiggles: squigglePoints(dd),
		startInverse:   dd.Inverse(),
		startOrigin:    dd.Origin(),
		startRotation:  dd.Rotation(),
		startScaleX:    dd.ScaleX(),
		startScaleY:    dd.ScaleY(),
	}
}

// PointerMove updates the doodle being dragged. No notifications are emitted until the
// gesture ends.
func (d *Drawing) PointerMove(p geometry.Point) {
	if d.drag == nil {
		return
	}
	dd := d.Doodle(d.drag.doodleID)
	if dd == nil {
		d.drag = nil
		return
	}

	pt := d.ToDrawing(p)
	s := d.drag
	switch s.mode {
	case doodle.ModeMove:
		origin := s.startOrigin.Add(pt.Sub(s.start))
		d.set(dd, doodle.ParamOriginX, origin.X)
		d.set(dd, doodle.ParamOriginY, origin.Y)
		if dd.Flags().Orientated {
			d.set(dd, doodle.ParamRotation, dd.Origin().Direction())
		}

	case doodle.ModeScale:
		d.dragScale(dd, pt)

	case doodle.ModeRotate:
		from := s.start.Sub(s.startOrigin)
		to := pt.Sub(s.startOrigin)
		if from.Length() < geometry.Epsilon || to.Length() < geometry.Epsilon {
			return
		}
		rotation := s.startRotation + signedTurn(from.ClockwiseAngleTo(to))
		if dd.Flags().SnapToQuadrant {
			rotation = snap(rotation, dd.Definition().Snaps())
		}
		if rule, _ := dd.Definition().Rule(doodle.ParamRotation); rule.Wrap {
			rotation = geometry.NormalizeAngle(rotation)
		}
		d.set(dd, doodle.ParamRotation, rotation)

	case doodle.ModeArc:
		angle := s.startInverse.TransformPoint(pt).Direction()
		if angle > math.Pi {
			angle = 2*math.Pi - angle
		}
		d.set(dd, doodle.ParamArc, 2*angle)

	case doodle.ModeApex:
		local := s.startInverse.TransformPoint(pt)
		d.set(dd, doodle.ParamApexX, local.X)
		d.set(dd, doodle.ParamApexY, local.Y)

	case doodle.ModeHandles:
		if move := dd.Definition().MoveHandle; move != nil {
			move(dd, s.handle, s.startInverse.TransformPoint(pt))
		}

	case doodle.ModeSquiggle:
		dd.AddPointToSquiggle(dd.Inverse().TransformPoint(pt))
	}

	d.repaint()
}

// dragScale scales by the ratio of the pointer's distance from the origin to its distance
// at drag start. Squeezable doodles scale each axis separately in their rotated frame;
// others keep their aspect ratio, limited so neither axis leaves its range.
func (d *Drawing) dragScale(dd *doodle.Doodle, pt geometry.Point) {
	s := d.drag
	def := dd.Definition()
	ruleX, _ := def.Rule(doodle.ParamScaleX)
	ruleY, _ := def.Rule(doodle.ParamScaleY)

	if dd.Flags().Squeezable {
		from := s.start.Sub(s.startOrigin).Rotate(-s.startRotation)
		to := pt.Sub(s.startOrigin).Rotate(-s.startRotation)
		if math.Abs(from.X) > geometry.Epsilon {
			d.set(dd, doodle.ParamScaleX, s.startScaleX*math.Abs(to.X/from.X))
		}
		if math.Abs(from.Y) > geometry.Epsilon {
			d.set(dd, doodle.ParamScaleY, s.startScaleY*math.Abs(to.Y/from.Y))
		}
		return
	}

	r0 := s.start.DistanceTo(s.startOrigin)
	if r0 < geometry.Epsilon {
		return
	}
	f := pt.DistanceTo(s.startOrigin) / r0
	f = max(f, ruleX.Min/s.startScaleX, ruleY.Min/s.startScaleY)
	f = min(f, ruleX.Max/s.startScaleX, ruleY.Max/s.startScaleY)
	d.set(dd, doodle.ParamScaleX, s.startScaleX*f)
	d.set(dd, doodle.ParamScaleY, s.startScaleY*f)
}

// snap returns the angle in angles closest to rotation, measured around the circle.
// signedTurn folds a clockwise turn in [0, 2π) into (-π, π], so anticlockwise turns are
// negative.
func signedTurn(turn float64) float64 {
	if turn > math.Pi {
		return turn - 2*math.Pi
	}
	return turn
}

func snap(rotation float64, angles []float64) float64 {
	best, bestDist := rotation, math.Inf(1)
	for _, a := range angles {
		diff := math.Abs(geometry.NormalizeAngle(rotation - a))
		dist := math.Min(diff, 2*math.Pi-diff)
		if dist < bestDist {
			best, bestDist = a, dist
		}
	}
	return best
}

// PointerUp ends the gesture and emits one parameterChanged per parameter whose value
// differs from drag start.
func (d *Drawing) PointerUp(p geometry.Point) {
	if d.drag == nil {
		return
	}
	s := d.drag
	d.drag = nil

	dd := d.Doodle(s.doodleID)
	if dd == nil {
		return
	}

	current := dd.Parameters()
	for _, name := range slices.Sorted(maps.Keys(current)) {
		old, had := s.startParams[name]
		if had && old == current[name] {
			continue
		}
		d.emit(Notification{Event: EventParameterChanged, Doodle: dd, Parameter: name, Old: old, New: current[name]})
	}
	if n := squigglePoints(dd); n != s.startSquiggles {
		d.emit(Notification{Event: EventParameterChanged, Doodle: dd, Parameter: "squiggles", Old: s.startSquiggles, New: n})
	}
	d.repaint()
}

// PointerLeave ends any gesture as if the pointer had been released.
func (d *Drawing) PointerLeave() {
	if d.drag == nil {
		return
	}
	d.PointerUp(geometry.Point{})
}

// set assigns a parameter during a drag. Dependents run; notifications wait for PointerUp.
func (d *Drawing) set(dd *doodle.Doodle, name string, v float64) {
	if _, err := dd.SetParameter(name, v); err != nil {
		d.logger.Warn("drag rejected", "class", dd.ClassName(), "parameter", name, "error", err)
	}
}

func squigglePoints(dd *doodle.Doodle) int {
	n := 0
	for _, s := range dd.Squiggles() {
		n += len(s.Points)
	}
	return n
}
