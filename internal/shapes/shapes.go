// Package shapes is the reference catalogue of doodle classes served by the editor. Each
// class is a doodle.Definition: rules, flags and the callbacks that build its outline.
package shapes

import (
	"fmt"
	"math"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

// Class names.
const (
	Fundus            = "Fundus"
	Cornea            = "Cornea"
	BlotHaemorrhage   = "BlotHaemorrhage"
	Microaneurysm     = "Microaneurysm"
	RetinalDetachment = "RetinalDetachment"
	NuclearCataract   = "NuclearCataract"
	LaserSpot         = "LaserSpot"
	PhakoIncision     = "PhakoIncision"
)

// Definitions returns a fresh copy of every reference class.
func Definitions() []*doodle.Definition {
	return []*doodle.Definition{
		fundus(),
		cornea(),
		blotHaemorrhage(),
		microaneurysm(),
		retinalDetachment(),
		nuclearCataract(),
		laserSpot(),
		phakoIncision(),
	}
}

// Register adds the reference classes to r.
func Register(r *doodle.Registry) error {
	if err := r.Register(Definitions()...); err != nil {
		return fmt.Errorf("register shapes: %w", err)
	}
	return nil
}

// NewRegistry returns a registry holding the reference classes.
func NewRegistry() *doodle.Registry {
	r := doodle.NewRegistry()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}

// arc appends an arc of radius r around the origin from angle from to angle to, both
// measured clockwise from up. The arc joins the current point with a line.
func arc(p *gg.Path, r, from, to float64) {
	start := geometry.FromPolar(r, from)
	if p.HasCurrentPoint() {
		p.LineTo(start.X, start.Y)
	} else {
		p.MoveTo(start.X, start.Y)
	}
	if to-from < geometry.Epsilon {
		return
	}
	p.Arc(0, 0, r, from-math.Pi/2, to-math.Pi/2)
}

// arcBack traces an arc from angle from down to angle to as line segments.
func arcBack(p *gg.Path, r, from, to float64) {
	const steps = 16
	for i := 0; i <= steps; i++ {
		pt := geometry.FromPolar(r, from+(to-from)*float64(i)/steps)
		p.LineTo(pt.X, pt.Y)
	}
}

func circle(r float64) *gg.Path {
	p := gg.NewPath()
	p.Circle(0, 0, r)
	return p
}

// clockHour returns the clock position of an angle measured clockwise from up.
func clockHour(angle float64) int {
	h := int(math.Round(geometry.NormalizeAngle(angle)/(math.Pi/6))) % 12
	if h == 0 {
		return 12
	}
	return h
}

// clockHours returns how many clock hours an angular extent covers.
func clockHours(extent float64) int {
	return int(math.Round(extent / (math.Pi / 6)))
}

// siblingOrigin places a new doodle of the same class rotated by step about the centre
// from the most recent one, or at home when it is the first.
func siblingOrigin(d *doodle.Doodle, scene doodle.Scene, home geometry.Point, step float64) {
	origin := home
	if last := scene.LastDoodleOfClass(d.ClassName()); last != nil {
		origin = last.Origin().Rotate(step)
		if origin.Length() < geometry.Epsilon {
			origin = last.Origin().Add(geometry.Pt(50, 0))
		}
	}
	d.SetNumber(doodle.ParamOriginX, origin.X)
	d.SetNumber(doodle.ParamOriginY, origin.Y)
}
