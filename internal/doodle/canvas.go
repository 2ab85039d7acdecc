package doodle

import (
	"image"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

// Style is the paint applied to a doodle path. Colours are hex strings; an empty
// colour skips that pass.
type Style struct {
	Fill      string  `json:"fill,omitempty"`
	Stroke    string  `json:"stroke,omitempty"`
	LineWidth float64 `json:"lineWidth,omitempty"`
}

// DefaultStyle is used by definitions that do not supply their own.
var DefaultStyle = Style{Fill: "#ff000080", Stroke: "#ff0000", LineWidth: 4}

// HandleStyle paints the visible handles of the selected doodle.
var HandleStyle = Style{Fill: "#ffffff", Stroke: "#333333", LineWidth: 2}

// Canvas is the 2D surface a drawing paints into. Paths are given in doodle-local
// coordinates together with the transform that maps them to the canvas.
type Canvas interface {
	Clear() error
	DrawPath(path *gg.Path, transform geometry.AffineTransform, style Style) error
	DrawHandle(at geometry.Point, radius float64, style Style) error
}

// ImageCanvas is implemented by canvases that can draw the background template.
type ImageCanvas interface {
	Canvas
	DrawImage(img image.Image, transform geometry.AffineTransform) error
}

// ToMatrix converts a transform to the gg layout.
func ToMatrix(m geometry.AffineTransform) gg.Matrix {
	return gg.Matrix{A: m[0], B: m[2], C: m[4], D: m[1], E: m[3], F: m[5]}
}
