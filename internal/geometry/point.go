// Package geometry provides the 2D point, transform and rectangle types shared by
// doodles, the drawing and the canvas backends.
//
// Angles follow the drawing convention: 0 points up (negative y) and angles
// increase clockwise on a y-down canvas.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the tolerance used for floating point comparisons of coordinates.
const Epsilon = 1e-9

// Point is a 2D coordinate or vector.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt creates a new Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// FromPolar returns the point at the given radius and angle from the origin.
func FromPolar(radius, angle float64) Point {
	return Point{X: radius * math.Sin(angle), Y: -radius * math.Cos(angle)}
}

func (p Point) vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

func fromVec(v r2.Vec) Point { return Point{X: v.X, Y: v.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return fromVec(r2.Add(p.vec(), q.vec()))
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return fromVec(r2.Sub(p.vec(), q.vec()))
}

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point {
	return fromVec(r2.Scale(f, p.vec()))
}

// Length returns the distance from the origin.
func (p Point) Length() float64 {
	return r2.Norm(p.vec())
}

// DistanceTo returns the Euclidean distance to q.
func (p Point) DistanceTo(q Point) float64 {
	return r2.Norm(r2.Sub(p.vec(), q.vec()))
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return r2.Dot(p.vec(), q.vec())
}

// Direction returns the angle of the vector from the origin to p, in [0, 2π).
func (p Point) Direction() float64 {
	angle := math.Atan2(p.X, -p.Y)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

// Rotate returns p rotated clockwise about the origin by angle.
func (p Point) Rotate(angle float64) Point {
	return fromVec(r2.Rotate(p.vec(), angle, r2.Vec{}))
}

// RotateAbout returns p rotated clockwise about pivot by angle.
func (p Point) RotateAbout(pivot Point, angle float64) Point {
	return fromVec(r2.Rotate(p.vec(), angle, pivot.vec()))
}

// ClockwiseAngleTo returns the clockwise angle from p's direction to q's, in [0, 2π).
func (p Point) ClockwiseAngleTo(q Point) float64 {
	return NormalizeAngle(q.Direction() - p.Direction())
}

// Equal reports whether p and q are equal within Epsilon.
func (p Point) Equal(q Point) bool {
	return scalar.EqualWithinAbs(p.X, q.X, Epsilon) && scalar.EqualWithinAbs(p.Y, q.Y, Epsilon)
}

// NormalizeAngle maps an angle to [0, 2π).
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}
