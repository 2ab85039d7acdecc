package render

import (
	"fmt"
	"io"

	"github.com/eyedraw/eyedraw/backend-go/internal/drawing"
)

// Format is an export file format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"
	FormatJSON Format = "json"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "application/json"
	}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatPNG, FormatSVG, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Export paints d off screen in the given format and writes the result to w.
func Export(d *drawing.Drawing, f Format, w io.Writer) error {
	width, height := d.Size()

	switch f {
	case FormatPNG:
		r := NewRaster(width, height)
		defer r.Close()
		if err := d.PaintTo(r); err != nil {
			return err
		}
		return r.EncodePNG(w)

	case FormatSVG:
		s := NewSVG(width, height)
		if err := d.PaintTo(s); err != nil {
			return err
		}
		return s.Encode(w)

	case FormatJSON:
		rec := NewRecorder()
		if err := d.PaintTo(rec); err != nil {
			return err
		}
		out, err := rec.JSON()
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return fmt.Errorf("unsupported export format %q", f)
}
