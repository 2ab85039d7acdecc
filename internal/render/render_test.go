package render

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/drawing"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
	"github.com/eyedraw/eyedraw/backend-go/internal/shapes"
)

func square(size float64) *gg.Path {
	p := gg.NewPath()
	p.MoveTo(-size, -size)
	p.LineTo(size, -size)
	p.LineTo(size, size)
	p.LineTo(-size, size)
	p.Close()
	return p
}

func TestPathCommands(t *testing.T) {
	p := gg.NewPath()
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.QuadraticTo(10, 5, 5, 5)
	p.CubicTo(1, 2, 3, 4, 5, 6)
	p.Close()

	got := PathCommands(p)
	want := []string{"M", "L", "Q", "C", "Z"}
	if len(got) != len(want) {
		t.Fatalf("PathCommands = %v", got)
	}
	for i, verb := range want {
		if got[i][0] != verb {
			t.Errorf("command %d = %v, want %s", i, got[i], verb)
		}
	}
	if len(got[3]) != 7 {
		t.Errorf("cubic has %d entries, want 7", len(got[3]))
	}

	if d := PathData(p); d != "M 0 0 L 10 0 Q 10 5 5 5 C 1 2 3 4 5 6 Z" {
		t.Errorf("PathData = %q", d)
	}
	if PathCommands(nil) != nil {
		t.Error("nil path should produce no commands")
	}
}

func TestRecorderFrame(t *testing.T) {
	r := NewRecorder()
	_ = r.DrawPath(square(1), geometry.Identity(), doodle.DefaultStyle)
	_ = r.Clear()
	_ = r.DrawPath(square(10), geometry.Translate(5, 5), doodle.DefaultStyle)
	_ = r.DrawHandle(geometry.Pt(3, 4), 7.5, doodle.HandleStyle)

	cmds := r.Commands()
	if len(cmds) != 3 || cmds[0].Op != "clear" || cmds[1].Op != "path" || cmds[2].Op != "handle" {
		t.Fatalf("commands = %+v", cmds)
	}
	if cmds[1].Transform[4] != 5 || cmds[1].Fill != doodle.DefaultStyle.Fill {
		t.Errorf("path command = %+v", cmds[1])
	}

	out, err := r.JSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("JSON output invalid: %v", err)
	}
	if decoded[2]["radius"] != 7.5 {
		t.Errorf("handle = %v", decoded[2])
	}

	if s, _ := DrawCommandsToJSON(nil); s != "[]" {
		t.Errorf("empty = %s", s)
	}
}

func TestRasterFillsPath(t *testing.T) {
	r := NewRaster(100, 100)
	defer r.Close()
	if err := r.Clear(); err != nil {
		t.Fatal(err)
	}
	style := doodle.Style{Fill: "#ff0000"}
	if err := r.DrawPath(square(10), geometry.Translate(50, 50), style); err != nil {
		t.Fatal(err)
	}

	img := r.Image()
	if c := rgba(img.At(50, 50)); c.R < 200 || c.G > 50 {
		t.Errorf("centre = %+v, want red", c)
	}
	if c := rgba(img.At(5, 5)); c.R < 200 || c.G < 200 || c.B < 200 {
		t.Errorf("corner = %+v, want white", c)
	}
}

func rgba(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

func TestSVGStyle(t *testing.T) {
	tests := []struct {
		style doodle.Style
		want  string
	}{
		{doodle.Style{Fill: "#ff000080", Stroke: "#ff0000", LineWidth: 4},
			"fill:#ff0000;fill-opacity:0.502;stroke:#ff0000;stroke-width:4"},
		{doodle.Style{Stroke: "#00ff00", LineWidth: 2},
			"fill:none;stroke:#00ff00;stroke-width:2"},
		{doodle.Style{Fill: "#123456"},
			"fill:#123456;stroke:none"},
	}
	for _, tt := range tests {
		if got := pathStyle(tt.style); got != tt.want {
			t.Errorf("pathStyle(%+v) = %q, want %q", tt.style, got, tt.want)
		}
	}
}

func TestSVGDocument(t *testing.T) {
	s := NewSVG(200, 100)
	_ = s.DrawPath(square(1), geometry.Identity(), doodle.DefaultStyle)
	_ = s.Clear()
	_ = s.DrawPath(square(10), geometry.Translate(100, 50), doodle.DefaultStyle)
	_ = s.DrawHandle(geometry.Pt(110.4, 60.6), 7.5, doodle.HandleStyle)

	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		`width="200" height="100"`,
		`transform="matrix(1 0 0 1 100 50)"`,
		`d="M -10 -10 L 10 -10 L 10 10 L -10 10 Z"`,
		`cx="110" cy="61" r="8"`,
		"</svg>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %s:\n%s", want, out)
		}
	}
	if strings.Count(out, "<path") != 1 {
		t.Errorf("Clear did not discard earlier paths:\n%s", out)
	}
}

func TestExport(t *testing.T) {
	d := drawing.New("export", shapes.NewRegistry(), drawing.WithEye(doodle.EyeRight), drawing.WithSize(200, 200))
	if err := d.Init(context.Background(), time.Second); err != nil {
		t.Fatal(err)
	}
	if warnings := d.LoadRecords(shapes.SampleScene()); len(warnings) != 0 {
		t.Fatalf("sample warnings: %v", warnings)
	}

	var buf bytes.Buffer
	if err := Export(d, FormatPNG, &buf); err != nil {
		t.Fatalf("png: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 200, 200) {
		t.Errorf("png bounds = %v", img.Bounds())
	}

	buf.Reset()
	if err := Export(d, FormatSVG, &buf); err != nil {
		t.Fatalf("svg: %v", err)
	}
	if n := strings.Count(buf.String(), "<path"); n != 4 {
		t.Errorf("svg paths = %d, want 4", n)
	}

	buf.Reset()
	if err := Export(d, FormatJSON, &buf); err != nil {
		t.Fatalf("json: %v", err)
	}
	var cmds []DrawCommand
	if err := json.Unmarshal(buf.Bytes(), &cmds); err != nil || len(cmds) != 5 {
		t.Errorf("json commands = %d, %v", len(cmds), err)
	}

	if _, err := ParseFormat("gif"); err == nil {
		t.Error("gif accepted")
	}
	if f, _ := ParseFormat("svg"); f.ContentType() != "image/svg+xml" {
		t.Errorf("svg content type = %s", f.ContentType())
	}
}
