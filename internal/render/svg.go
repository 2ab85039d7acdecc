package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

// SVG is a canvas that builds an SVG document. Each doodle path becomes a <path> inside a
// <g> carrying the doodle transform, so the output stays editable in vector tools.
type SVG struct {
	width, height int
	body          bytes.Buffer
	canvas        *svg.SVG
}

var _ doodle.ImageCanvas = (*SVG)(nil)

func NewSVG(width, height int) *SVG {
	s := &SVG{width: width, height: height}
	s.canvas = svg.New(&s.body)
	return s
}

func (s *SVG) Clear() error {
	s.body.Reset()
	return nil
}

func (s *SVG) DrawPath(path *gg.Path, m geometry.AffineTransform, style doodle.Style) error {
	d := PathData(path)
	if d == "" {
		return nil
	}
	s.canvas.Gtransform(matrix(m))
	s.canvas.Path(d, pathStyle(style)+";vector-effect:non-scaling-stroke")
	s.canvas.Gend()
	return nil
}

func (s *SVG) DrawHandle(at geometry.Point, radius float64, style doodle.Style) error {
	s.canvas.Circle(round(at.X), round(at.Y), round(radius), pathStyle(style))
	return nil
}

// DrawImage embeds img as a PNG data URI.
func (s *SVG) DrawImage(img image.Image, m geometry.AffineTransform) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	b := img.Bounds()
	href := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	s.canvas.Image(round(m[4]), round(m[5]), round(m[0]*float64(b.Dx())), round(m[3]*float64(b.Dy())), href)
	return nil
}

// Encode writes the complete SVG document.
func (s *SVG) Encode(w io.Writer) error {
	doc := svg.New(w)
	doc.Start(s.width, s.height)
	doc.Rect(0, 0, s.width, s.height, "fill:#ffffff")
	if _, err := s.body.WriteTo(w); err != nil {
		return err
	}
	doc.End()
	return nil
}

// PathData renders a path as an SVG d attribute.
func PathData(p *gg.Path) string {
	var sb strings.Builder
	for _, cmd := range PathCommands(p) {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(cmd[0].(string))
		for _, v := range cmd[1:] {
			sb.WriteByte(' ')
			sb.WriteString(number(v.(float64)))
		}
	}
	return sb.String()
}

func matrix(m geometry.AffineTransform) string {
	parts := make([]string, len(m))
	for i, v := range m {
		parts[i] = number(v)
	}
	return "matrix(" + strings.Join(parts, " ") + ")"
}

func number(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0 // normalizes -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round(v float64) int {
	return int(math.Round(v))
}

// pathStyle converts a style to CSS. Colours with an alpha byte are split into an opaque
// colour and an opacity, which every SVG renderer understands.
func pathStyle(style doodle.Style) string {
	var parts []string
	if style.Fill == "" {
		parts = append(parts, "fill:none")
	} else {
		colour, opacity := cssColour(style.Fill)
		parts = append(parts, "fill:"+colour)
		if opacity < 1 {
			parts = append(parts, "fill-opacity:"+number(opacity))
		}
	}
	if style.Stroke == "" || style.LineWidth <= 0 {
		parts = append(parts, "stroke:none")
	} else {
		colour, opacity := cssColour(style.Stroke)
		parts = append(parts, "stroke:"+colour, "stroke-width:"+number(style.LineWidth))
		if opacity < 1 {
			parts = append(parts, "stroke-opacity:"+number(opacity))
		}
	}
	return strings.Join(parts, ";")
}

func cssColour(hex string) (string, float64) {
	c := gg.Hex(hex)
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B)), c.A
}

func channel(v float64) uint8 {
	return uint8(math.Round(max(0, min(1, v)) * 255))
}
