// Package render provides the canvases a drawing paints into: an RGBA raster, an SVG
// document and a command recorder whose output a browser replays on a 2D context.
package render

import (
	"encoding/json"
	"image"
	"slices"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

// PathCommand is one path segment: the verb followed by its coordinates.
// Example: ["M", 0, 0], ["L", 100, 0], ["C", cx1, cy1, cx2, cy2, x, y], ["Z"]
type PathCommand []any

// DrawCommand represents a single drawing operation for the frontend to execute.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "clear", "path", "handle" or "image"
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	X           float64       `json:"x,omitempty"`           // Handle centre
	Y           float64       `json:"y,omitempty"`
	Radius      float64       `json:"radius,omitempty"`
	ImageWidth  int           `json:"imageWidth,omitempty"` // Image natural width
	ImageHeight int           `json:"imageHeight,omitempty"`
}

// PathCommands flattens a path into segments.
func PathCommands(p *gg.Path) []PathCommand {
	if p == nil {
		return nil
	}
	elems := p.Elements()
	out := make([]PathCommand, 0, len(elems))
	for _, elem := range elems {
		switch e := elem.(type) {
		case gg.MoveTo:
			out = append(out, PathCommand{"M", e.Point.X, e.Point.Y})
		case gg.LineTo:
			out = append(out, PathCommand{"L", e.Point.X, e.Point.Y})
		case gg.QuadTo:
			out = append(out, PathCommand{"Q", e.Control.X, e.Control.Y, e.Point.X, e.Point.Y})
		case gg.CubicTo:
			out = append(out, PathCommand{"C", e.Control1.X, e.Control1.Y, e.Control2.X, e.Control2.Y, e.Point.X, e.Point.Y})
		case gg.Close:
			out = append(out, PathCommand{"Z"})
		}
	}
	return out
}

// Recorder is a canvas that records draw commands instead of rasterizing them. A repaint
// starts with a clear, so after each repaint Commands holds exactly one frame in painter's
// order.
type Recorder struct {
	commands []DrawCommand
}

var _ doodle.ImageCanvas = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Clear() error {
	r.commands = append(r.commands[:0], DrawCommand{Op: "clear"})
	return nil
}

func (r *Recorder) DrawPath(path *gg.Path, m geometry.AffineTransform, style doodle.Style) error {
	r.commands = append(r.commands, DrawCommand{
		Op:          "path",
		Transform:   m.ToSlice(),
		Path:        PathCommands(path),
		Fill:        style.Fill,
		Stroke:      style.Stroke,
		StrokeWidth: style.LineWidth,
	})
	return nil
}

func (r *Recorder) DrawHandle(at geometry.Point, radius float64, style doodle.Style) error {
	r.commands = append(r.commands, DrawCommand{
		Op:          "handle",
		X:           at.X,
		Y:           at.Y,
		Radius:      radius,
		Fill:        style.Fill,
		Stroke:      style.Stroke,
		StrokeWidth: style.LineWidth,
	})
	return nil
}

// DrawImage records the template placement. The pixels stay with the client, which
// fetches the template separately.
func (r *Recorder) DrawImage(img image.Image, m geometry.AffineTransform) error {
	b := img.Bounds()
	r.commands = append(r.commands, DrawCommand{
		Op:          "image",
		Transform:   m.ToSlice(),
		ImageWidth:  b.Dx(),
		ImageHeight: b.Dy(),
	})
	return nil
}

// Commands returns a copy of the recorded frame.
func (r *Recorder) Commands() []DrawCommand {
	return slices.Clone(r.commands)
}

// JSON serializes the recorded frame.
func (r *Recorder) JSON() (string, error) {
	return DrawCommandsToJSON(r.commands)
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
