package doodle

import (
	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/document"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

// SquiggleStyle is the default pen for new freehand strokes.
var SquiggleStyle = Style{Stroke: "#00ff00", LineWidth: 4}

// StartSquiggle begins a new freehand stroke on the doodle.
func (d *Doodle) StartSquiggle(style Style, filled bool) {
	d.squiggles = append(d.squiggles, document.Squiggle{
		Colour:    style.Stroke,
		Thickness: style.LineWidth,
		Filled:    filled,
	})
}

// AddPointToSquiggle appends a doodle-local point to the current stroke.
func (d *Doodle) AddPointToSquiggle(p geometry.Point) {
	if len(d.squiggles) == 0 {
		d.StartSquiggle(SquiggleStyle, false)
	}
	last := &d.squiggles[len(d.squiggles)-1]
	last.Points = append(last.Points, p)
}

// Squiggles returns a copy of the doodle's freehand strokes.
func (d *Doodle) Squiggles() []document.Squiggle {
	out := make([]document.Squiggle, len(d.squiggles))
	for i, s := range d.squiggles {
		s.Points = append([]geometry.Point(nil), s.Points...)
		out[i] = s
	}
	return out
}

// ClearSquiggles removes all freehand strokes.
func (d *Doodle) ClearSquiggles() {
	d.squiggles = nil
}

func squigglePath(s document.Squiggle) *gg.Path {
	p := gg.NewPath()
	for i, pt := range s.Points {
		if i == 0 {
			p.MoveTo(pt.X, pt.Y)
			continue
		}
		p.LineTo(pt.X, pt.Y)
	}
	if s.Filled && len(s.Points) > 2 {
		p.Close()
	}
	return p
}

func squiggleStyle(s document.Squiggle) Style {
	st := Style{Stroke: s.Colour, LineWidth: s.Thickness}
	if s.Filled {
		st.Fill = s.Colour
	}
	return st
}
