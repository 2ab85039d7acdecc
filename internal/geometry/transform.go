package geometry

import "math"

// AffineTransform represents a 2D affine transformation matrix.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
//
// Where:
// - a, d = scale
// - b, c = skew/rotation
// - e, f = translation
type AffineTransform [6]float64

// Identity returns the identity transform.
func Identity() AffineTransform {
	return AffineTransform{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation transform.
func Translate(tx, ty float64) AffineTransform {
	return AffineTransform{1, 0, 0, 1, tx, ty}
}

// Scale returns a scale transform.
func Scale(sx, sy float64) AffineTransform {
	return AffineTransform{sx, 0, 0, sy, 0, 0}
}

// Rotate returns a clockwise rotation transform (angle in radians, y-down).
func Rotate(radians float64) AffineTransform {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return AffineTransform{cos, sin, -sin, cos, 0, 0}
}

// Compose builds the local-to-world transform of a doodle:
// Translate(origin) * Rotate(rotation) * Scale(sx, sy).
func Compose(origin Point, rotation, sx, sy float64) AffineTransform {
	cos := math.Cos(rotation)
	sin := math.Sin(rotation)
	return AffineTransform{
		cos * sx,  // a
		sin * sx,  // b
		-sin * sy, // c
		cos * sy,  // d
		origin.X,  // e
		origin.Y,  // f
	}
}

// Multiply multiplies this transform by another: result = m * other.
// This applies 'other' first, then 'm'.
func (m AffineTransform) Multiply(other AffineTransform) AffineTransform {
	return AffineTransform{
		m[0]*other[0] + m[2]*other[1],        // a
		m[1]*other[0] + m[3]*other[1],        // b
		m[0]*other[2] + m[2]*other[3],        // c
		m[1]*other[2] + m[3]*other[3],        // d
		m[0]*other[4] + m[2]*other[5] + m[4], // e
		m[1]*other[4] + m[3]*other[5] + m[5], // f
	}
}

// TransformPoint maps a point from local to world space.
func (m AffineTransform) TransformPoint(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// InverseTransformPoint maps a point from world to local space.
// A singular transform maps every point through the identity.
func (m AffineTransform) InverseTransformPoint(p Point) Point {
	return m.Invert().TransformPoint(p)
}

// TransformRect transforms a rectangle and returns its axis-aligned bounding box.
func (m AffineTransform) TransformRect(r Rect) Rect {
	p0 := m.TransformPoint(Pt(r.X, r.Y))
	p1 := m.TransformPoint(Pt(r.X+r.Width, r.Y))
	p2 := m.TransformPoint(Pt(r.X+r.Width, r.Y+r.Height))
	p3 := m.TransformPoint(Pt(r.X, r.Y+r.Height))

	minX := min(p0.X, p1.X, p2.X, p3.X)
	minY := min(p0.Y, p1.Y, p2.Y, p3.Y)
	maxX := max(p0.X, p1.X, p2.X, p3.X)
	maxY := max(p0.Y, p1.Y, p2.Y, p3.Y)

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Determinant returns the determinant of the linear part.
func (m AffineTransform) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invertible reports whether the transform has an inverse.
func (m AffineTransform) Invertible() bool {
	return math.Abs(m.Determinant()) > Epsilon*Epsilon
}

// Invert returns the inverse of the transform, or Identity if not invertible.
func (m AffineTransform) Invert() AffineTransform {
	if !m.Invertible() {
		return Identity()
	}

	invDet := 1.0 / m.Determinant()
	return AffineTransform{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}
}

// ToSlice returns the transform as a float64 slice for JSON serialization.
func (m AffineTransform) ToSlice() []float64 {
	return []float64{m[0], m[1], m[2], m[3], m[4], m[5]}
}

// IsIdentity checks if this is the identity transform (within epsilon).
func (m AffineTransform) IsIdentity() bool {
	const eps = 1e-10
	return math.Abs(m[0]-1) < eps &&
		math.Abs(m[1]) < eps &&
		math.Abs(m[2]) < eps &&
		math.Abs(m[3]-1) < eps &&
		math.Abs(m[4]) < eps &&
		math.Abs(m[5]) < eps
}
