package doodle

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

type stubScene struct {
	last *Doodle
	eye  Eye
}

func (s stubScene) LastDoodleOfClass(string) *Doodle  { return s.last }
func (s stubScene) FirstDoodleOfClass(string) *Doodle { return s.last }
func (s stubScene) Eye() Eye                          { return s.eye }

var gradeSizes = map[string]float64{"Mild": 20, "Moderate": 50, "Severe": 90}

func squareDef() *Definition {
	return &Definition{
		ClassName: "Square",
		Flags:     DefaultFlags(),
		Rules: map[string]Rule{
			ParamScaleX: Range(0.5, 2, 2),
			"size":      Range(10, 100, 0),
			"grade":     Enumerated(true, "Moderate", "Mild", "Severe"),
		},
		Saved:    []string{ParamOriginX, ParamOriginY, ParamScaleX, "size", "grade"},
		Defaults: map[string]any{"size": 50.0},
		BuildPath: func(d *Doodle) *gg.Path {
			s := d.Number("size")
			p := gg.NewPath()
			p.Rectangle(-s, -s, 2*s, 2*s)
			return p
		},
		ParameterDefaults: func(d *Doodle, scene Scene) {
			if last := scene.LastDoodleOfClass("Square"); last != nil {
				d.SetNumber(ParamOriginX, last.Origin().X+100)
			}
		},
		Dependents: func(d *Doodle, name string, value any) map[string]any {
			switch name {
			case "grade":
				return map[string]any{"size": gradeSizes[value.(string)]}
			case "size":
				if value.(float64) > 95 {
					return map[string]any{"grade": "Critical"}
				}
			}
			return nil
		},
		Describe: func(d *Doodle) string { return d.Text("grade") + " square" },
	}
}

func newSquare(t *testing.T) *Doodle {
	t.Helper()
	def := squareDef()
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	d, warnings := New(def, stubScene{}, nil)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	return d
}

func TestNewAppliesDefaults(t *testing.T) {
	d := newSquare(t)

	if got := d.Number("size"); got != 50 {
		t.Errorf("size = %v, want 50", got)
	}
	if got := d.Text("grade"); got != "Moderate" {
		t.Errorf("grade = %q, want Moderate", got)
	}
	if got := d.ScaleY(); got != 1 {
		t.Errorf("scaleY = %v, want 1", got)
	}
	if got := d.Arc(); got != math.Pi {
		t.Errorf("arc = %v, want π", got)
	}
	if !d.Transform().IsIdentity() {
		t.Errorf("transform = %v, want identity", d.Transform())
	}
}

func TestSetParameterClamps(t *testing.T) {
	tests := []struct {
		name  string
		param string
		value any
		want  float64
	}{
		{"above max", ParamScaleX, 5.0, 2},
		{"below min", ParamScaleX, 0.1, 0.5},
		{"inside", ParamScaleX, 1.5, 1.5},
		{"int", "size", 70, 70},
		{"numeric string", "size", "12.5", 12.5},
		{"base range", ParamOriginX, 5000.0, 1000},
		{"rotation wraps", ParamRotation, 2*math.Pi + 0.5, 0.5},
		{"negative rotation wraps", ParamRotation, -math.Pi / 2, 3 * math.Pi / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newSquare(t)
			if _, err := d.SetParameter(tt.param, tt.value); err != nil {
				t.Fatalf("SetParameter: %v", err)
			}
			if got := d.Number(tt.param); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("%s = %v, want %v", tt.param, got, tt.want)
			}
		})
	}
}

func TestSetParameterRejects(t *testing.T) {
	tests := []struct {
		name  string
		param string
		value any
	}{
		{"not in enumeration", "grade", "Extreme"},
		{"number for enumeration", "grade", 3.0},
		{"word for number", "size", "large"},
		{"bool for number", ParamOriginX, true},
		{"NaN", ParamOriginY, math.NaN()},
		{"unknown parameter", "colour", "red"},
		{"invalid dependent", "size", 99.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newSquare(t)
			before := d.Parameters()

			changes, err := d.SetParameter(tt.param, tt.value)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Class != "Square" {
				t.Errorf("err = %#v, want *ValidationError for Square", err)
			}
			if len(changes) != 0 {
				t.Errorf("changes = %v, want none", changes)
			}
			after := d.Parameters()
			for k, v := range before {
				if after[k] != v {
					t.Errorf("%s changed from %v to %v", k, v, after[k])
				}
			}
		})
	}
}

func TestSetParameterDependents(t *testing.T) {
	d := newSquare(t)

	changes, err := d.SetParameter("grade", "Severe")
	if err != nil {
		t.Fatalf("SetParameter: %v", err)
	}
	if d.Number("size") != 90 {
		t.Errorf("size = %v, want 90", d.Number("size"))
	}
	if len(changes) != 2 {
		t.Fatalf("changes = %+v, want grade and size", changes)
	}
	if changes[0].Parameter != "grade" || changes[0].Old != "Moderate" || changes[0].New != "Severe" {
		t.Errorf("changes[0] = %+v", changes[0])
	}
	if changes[1].Parameter != "size" || changes[1].Old != 50.0 || changes[1].New != 90.0 {
		t.Errorf("changes[1] = %+v", changes[1])
	}

	changes, err = d.SetParameter("grade", "Severe")
	if err != nil || len(changes) != 0 {
		t.Errorf("repeat SetParameter = %v, %v; want no changes", changes, err)
	}
}

func TestTransformTracksParameters(t *testing.T) {
	d := newSquare(t)
	mustSet(t, d, ParamOriginX, 200.0)
	mustSet(t, d, ParamOriginY, -100.0)
	mustSet(t, d, ParamRotation, math.Pi/3)
	mustSet(t, d, ParamScaleX, 2.0)
	mustSet(t, d, ParamScaleY, 0.25)

	want := geometry.Compose(geometry.Pt(200, -100), math.Pi/3, 2, 0.25)
	if d.Transform() != want {
		t.Fatalf("transform = %v, want %v", d.Transform(), want)
	}

	for _, p := range []geometry.Point{geometry.Pt(0, 0), geometry.Pt(13, -7), geometry.Pt(-400, 250)} {
		back := d.Inverse().TransformPoint(d.Transform().TransformPoint(p))
		if back.DistanceTo(p) > 1e-9 {
			t.Errorf("round trip of %+v = %+v", p, back)
		}
	}
}

func TestHitTest(t *testing.T) {
	d := newSquare(t)
	mustSet(t, d, ParamOriginX, 300.0)
	mustSet(t, d, ParamOriginY, 300.0)
	mustSet(t, d, ParamRotation, math.Pi/4)
	mustSet(t, d, ParamScaleX, 2.0)

	tests := []struct {
		name string
		p    geometry.Point
		want bool
	}{
		{"origin", geometry.Pt(300, 300), true},
		{"inside along scaled axis", d.Transform().TransformPoint(geometry.Pt(45, 0)), true},
		{"outside along unscaled axis", d.Transform().TransformPoint(geometry.Pt(0, 55)), false},
		{"far away", geometry.Pt(-900, -900), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.HitTest(tt.p); got != tt.want {
				t.Errorf("HitTest(%+v) = %v, want %v", tt.p, got, tt.want)
			}
			if d.Clicked != tt.want {
				t.Errorf("Clicked = %v, want %v", d.Clicked, tt.want)
			}
		})
	}
}

func TestHandleAt(t *testing.T) {
	d := newSquare(t)
	mustSet(t, d, ParamOriginX, 100.0)

	handles := d.Handles()
	if len(handles) != 4 {
		t.Fatalf("len(handles) = %d, want 4", len(handles))
	}
	corner := d.Transform().TransformPoint(handles[ScaleHandle].Location)
	if !corner.Equal(geometry.Pt(150, 50)) {
		t.Fatalf("scale handle at %+v, want (150, 50)", corner)
	}

	i, h, ok := d.HandleAt(geometry.Pt(155, 45))
	if !ok || i != ScaleHandle || h.Mode != ModeScale {
		t.Errorf("HandleAt near corner = %d, %+v, %v", i, h, ok)
	}
	if _, _, ok := d.HandleAt(geometry.Pt(50, -50)); ok {
		t.Error("hidden top-left handle should not be picked")
	}
}

func TestPlacementConsultsScene(t *testing.T) {
	def := squareDef()
	first, _ := New(def, stubScene{}, nil)
	second, _ := New(def, stubScene{last: first}, nil)
	if second.Origin().X != first.Origin().X+100 {
		t.Errorf("second originX = %v, want %v", second.Origin().X, first.Origin().X+100)
	}
}

func TestRestore(t *testing.T) {
	def := squareDef()
	saved := map[string]any{
		ParamOriginX:  120.0,
		ParamScaleX:   9.0,
		ParamRotation: 1.0, // not saved by this class
		"grade":       "Bogus",
		"unknown":     "ignored",
	}
	previous, _ := New(def, stubScene{}, nil)

	d, warnings := New(def, stubScene{last: previous}, saved)

	if d.Origin().X != 120 {
		t.Errorf("originX = %v, want 120 (placement must not run on restore)", d.Origin().X)
	}
	if d.ScaleX() != 2 {
		t.Errorf("scaleX = %v, want clamped 2", d.ScaleX())
	}
	if d.Rotation() != 0 {
		t.Errorf("rotation = %v, want default 0", d.Rotation())
	}
	if d.Text("grade") != "Moderate" {
		t.Errorf("grade = %q, want default", d.Text("grade"))
	}
	if len(warnings) != 1 || !errors.Is(warnings[0], ErrValidation) {
		t.Errorf("warnings = %v, want one validation warning", warnings)
	}
	if !d.Transform().TransformPoint(geometry.Pt(0, 0)).Equal(geometry.Pt(120, 0)) {
		t.Errorf("transform not rebuilt on restore: %v", d.Transform())
	}
}

func TestRecordRoundTrip(t *testing.T) {
	d := newSquare(t)
	mustSet(t, d, ParamOriginX, 33.0)
	mustSet(t, d, "grade", "Mild")
	mustSet(t, d, ParamRotation, 1.0)
	d.StartSquiggle(SquiggleStyle, false)
	d.AddPointToSquiggle(geometry.Pt(1, 2))
	d.AddPointToSquiggle(geometry.Pt(3, 4))

	rec := d.Record()
	if rec.ClassName != "Square" {
		t.Errorf("className = %q", rec.ClassName)
	}
	if len(rec.Parameters) != 5 {
		t.Errorf("parameters = %v, want the five saved keys", rec.Parameters)
	}
	if _, ok := rec.Parameters[ParamRotation]; ok {
		t.Error("rotation is not saved by this class")
	}

	restored, warnings := New(d.Definition(), stubScene{}, rec.Parameters)
	restored.RestoreSquiggles(rec.Squiggles)
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	again := restored.Record()
	for k, v := range rec.Parameters {
		if again.Parameters[k] != v {
			t.Errorf("%s = %v after round trip, want %v", k, again.Parameters[k], v)
		}
	}
	if len(again.Squiggles) != 1 || len(again.Squiggles[0].Points) != 2 {
		t.Errorf("squiggles = %+v", again.Squiggles)
	}
}

func TestDescription(t *testing.T) {
	d := newSquare(t)
	if got := d.Description(); got != "Moderate square" {
		t.Errorf("Description() = %q", got)
	}
}

func mustSet(t *testing.T, d *Doodle, name string, v any) {
	t.Helper()
	if _, err := d.SetParameter(name, v); err != nil {
		t.Fatalf("SetParameter(%s, %v): %v", name, v, err)
	}
}

func TestBoundsFollowTransform(t *testing.T) {
	d := newSquare(t)
	if _, err := d.SetParameter(ParamOriginX, 100.0); err != nil {
		t.Fatal(err)
	}
	if got, want := d.Bounds(), (geometry.Rect{X: 50, Y: -50, Width: 100, Height: 100}); !rectNear(got, want) {
		t.Errorf("unrotated bounds = %+v, want %+v", got, want)
	}

	if _, err := d.SetParameter(ParamRotation, math.Pi/4); err != nil {
		t.Fatal(err)
	}
	half := 50 * math.Sqrt2
	want := geometry.Rect{X: 100 - half, Y: -half, Width: 2 * half, Height: 2 * half}
	if got := d.Bounds(); !rectNear(got, want) {
		t.Errorf("rotated bounds = %+v, want %+v", got, want)
	}
}

func rectNear(a, b geometry.Rect) bool {
	const tol = 1e-6
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol &&
		math.Abs(a.Width-b.Width) < tol && math.Abs(a.Height-b.Height) < tol
}
