package render

import (
	"image"
	"io"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

// Raster is a canvas backed by an in-memory RGBA image.
type Raster struct {
	ctx        *gg.Context
	background gg.RGBA
}

var _ doodle.ImageCanvas = (*Raster)(nil)

// NewRaster creates a white raster canvas of the given size in pixels.
func NewRaster(width, height int) *Raster {
	return &Raster{
		ctx:        gg.NewContext(width, height),
		background: gg.White,
	}
}

func (r *Raster) Clear() error {
	r.ctx.Identity()
	r.ctx.ClearPath()
	r.ctx.ClearWithColor(r.background)
	return nil
}

func (r *Raster) DrawPath(path *gg.Path, m geometry.AffineTransform, style doodle.Style) error {
	r.ctx.Push()
	defer r.ctx.Pop()
	r.ctx.SetTransform(doodle.ToMatrix(m))

	if style.Fill != "" {
		r.trace(path)
		r.ctx.SetHexColor(style.Fill)
		if err := r.ctx.Fill(); err != nil {
			return err
		}
	}
	if style.Stroke != "" && style.LineWidth > 0 {
		r.trace(path)
		r.ctx.SetHexColor(style.Stroke)
		r.ctx.SetLineWidth(style.LineWidth)
		if err := r.ctx.Stroke(); err != nil {
			return err
		}
	}
	return nil
}

// trace replays path through the context so the current transform applies to it.
func (r *Raster) trace(path *gg.Path) {
	r.ctx.ClearPath()
	for _, elem := range path.Elements() {
		switch e := elem.(type) {
		case gg.MoveTo:
			r.ctx.MoveTo(e.Point.X, e.Point.Y)
		case gg.LineTo:
			r.ctx.LineTo(e.Point.X, e.Point.Y)
		case gg.QuadTo:
			r.ctx.QuadraticTo(e.Control.X, e.Control.Y, e.Point.X, e.Point.Y)
		case gg.CubicTo:
			r.ctx.CubicTo(e.Control1.X, e.Control1.Y, e.Control2.X, e.Control2.Y, e.Point.X, e.Point.Y)
		case gg.Close:
			r.ctx.ClosePath()
		}
	}
}

func (r *Raster) DrawHandle(at geometry.Point, radius float64, style doodle.Style) error {
	r.ctx.Push()
	defer r.ctx.Pop()
	r.ctx.Identity()

	r.ctx.DrawCircle(at.X, at.Y, radius)
	r.ctx.SetHexColor(style.Fill)
	if err := r.ctx.Fill(); err != nil {
		return err
	}
	r.ctx.DrawCircle(at.X, at.Y, radius)
	r.ctx.SetHexColor(style.Stroke)
	r.ctx.SetLineWidth(style.LineWidth)
	return r.ctx.Stroke()
}

// DrawImage draws img scaled and translated by m. Rotation and skew are ignored.
func (r *Raster) DrawImage(img image.Image, m geometry.AffineTransform) error {
	r.ctx.Push()
	defer r.ctx.Pop()
	r.ctx.Identity()

	b := img.Bounds()
	r.ctx.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:         m[4],
		Y:         m[5],
		DstWidth:  m[0] * float64(b.Dx()),
		DstHeight: m[3] * float64(b.Dy()),
	})
	return nil
}

// Image returns the rendered pixels.
func (r *Raster) Image() image.Image {
	_ = r.ctx.FlushGPU()
	return r.ctx.Image()
}

// EncodePNG writes the rendered image as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	return r.ctx.EncodePNG(w)
}

// Close releases the context's resources.
func (r *Raster) Close() error {
	return r.ctx.Close()
}
