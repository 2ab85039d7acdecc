package doodle

import "github.com/eyedraw/eyedraw/backend-go/internal/geometry"

// HandleRadius is the pick radius of a handle in drawing units.
const HandleRadius = 15.0

// Positional handle indices. Shapes with an apex put it at ApexHandle; arc shapes
// use ArcHandleLeft and ArcHandleRight.
const (
	ArcHandleLeft  = 1
	ArcHandleRight = 2
	ScaleHandle    = 2
	ApexHandle     = 4
)

// Handle is a manipulable control point on a doodle, in doodle-local coordinates.
type Handle struct {
	Location  geometry.Point
	Visible   bool
	Mode      Mode
	Rotatable bool
}

// CornerHandles returns the four corner handles of a box of the given half extents,
// starting top-left and going clockwise. Only the handle at ScaleHandle is visible.
func CornerHandles(halfWidth, halfHeight float64, mode Mode) []Handle {
	corners := []geometry.Point{
		geometry.Pt(-halfWidth, -halfHeight),
		geometry.Pt(halfWidth, -halfHeight),
		geometry.Pt(halfWidth, halfHeight),
		geometry.Pt(-halfWidth, halfHeight),
	}
	handles := make([]Handle, len(corners))
	for i, c := range corners {
		handles[i] = Handle{
			Location:  c,
			Visible:   i == ScaleHandle,
			Mode:      mode,
			Rotatable: mode == ModeRotate,
		}
	}
	return handles
}
