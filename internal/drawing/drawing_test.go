package drawing

import (
	"bytes"
	"context"
	"errors"
	"image"
	"math"
	"testing"
	"time"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
	"github.com/eyedraw/eyedraw/backend-go/internal/resource"
	"github.com/eyedraw/eyedraw/backend-go/internal/shapes"
)

type recordingCanvas struct {
	clears  int
	paths   int
	handles int
}

func (c *recordingCanvas) Clear() error { c.clears++; return nil }

func (c *recordingCanvas) DrawPath(*gg.Path, geometry.AffineTransform, doodle.Style) error {
	c.paths++
	return nil
}

func (c *recordingCanvas) DrawHandle(geometry.Point, float64, doodle.Style) error {
	c.handles++
	return nil
}

func newTestDrawing(t *testing.T, opts ...Option) (*Drawing, *recordingCanvas) {
	t.Helper()
	canvas := &recordingCanvas{}
	opts = append([]Option{WithEye(doodle.EyeRight), WithCanvas(canvas)}, opts...)
	d := New("test", shapes.NewRegistry(), opts...)
	if err := d.Init(context.Background(), time.Second); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return d, canvas
}

func mustAdd(t *testing.T, d *Drawing, class string, params map[string]any) *doodle.Doodle {
	t.Helper()
	dd, err := d.AddDoodle(class, params)
	if err != nil {
		t.Fatalf("AddDoodle(%s): %v", class, err)
	}
	return dd
}

// canvasPt converts drawing coordinates to canvas pixels for the default 1000x1000 view.
func canvasPt(x, y float64) geometry.Point {
	return geometry.Pt(x+500, y+500)
}

func collect(d *Drawing) *[]Notification {
	var got []Notification
	d.Subscribe(func(n Notification) { got = append(got, n) })
	return &got
}

func TestFundusIsNeverSelected(t *testing.T) {
	d, _ := newTestDrawing(t)
	mustAdd(t, d, shapes.Fundus, nil)

	if d.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", d.Len())
	}
	if d.Selected() != nil {
		t.Error("fundus should not be selected on add")
	}
	if hit := d.HitTest(canvasPt(0, 0)); hit != nil {
		t.Errorf("HitTest at centre = %s, want nil", hit.ClassName())
	}
	if mode := d.PointerDown(canvasPt(0, 0)); mode != doodle.ModeNone {
		t.Errorf("PointerDown mode = %v, want none", mode)
	}
}

func TestSiblingsAreOffset(t *testing.T) {
	d, _ := newTestDrawing(t)
	first := mustAdd(t, d, shapes.BlotHaemorrhage, nil)
	second := mustAdd(t, d, shapes.BlotHaemorrhage, nil)

	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	if first.Origin().DistanceTo(second.Origin()) < 1 {
		t.Errorf("origins overlap: %+v and %+v", first.Origin(), second.Origin())
	}
	if d.LastDoodleOfClass(shapes.BlotHaemorrhage) != second {
		t.Error("LastDoodleOfClass should return the second blot")
	}
	if d.FirstDoodleOfClass(shapes.BlotHaemorrhage) != first {
		t.Error("FirstDoodleOfClass should return the first blot")
	}
}

func TestUniqueClassSelectsExisting(t *testing.T) {
	d, _ := newTestDrawing(t)
	first := mustAdd(t, d, shapes.Cornea, nil)
	mustAdd(t, d, shapes.BlotHaemorrhage, nil)

	again := mustAdd(t, d, shapes.Cornea, nil)

	if again != first {
		t.Error("second add should return the existing cornea")
	}
	if got := len(d.DoodlesOfClass(shapes.Cornea)); got != 1 {
		t.Errorf("%d corneas, want 1", got)
	}
	if d.Selected() != first {
		t.Error("existing cornea should be selected")
	}
}

func TestScaleDragIsClamped(t *testing.T) {
	d, _ := newTestDrawing(t)
	cataract := mustAdd(t, d, shapes.NuclearCataract, nil)
	got := collect(d)

	if mode := d.PointerDown(canvasPt(100, 100)); mode != doodle.ModeScale {
		t.Fatalf("PointerDown mode = %v, want scale", mode)
	}
	d.PointerMove(canvasPt(300, 300))
	d.PointerMove(canvasPt(500, 500))
	if len(*got) != 0 {
		t.Errorf("notifications during drag: %+v", *got)
	}
	d.PointerUp(canvasPt(500, 500))

	if cataract.ScaleX() != 2 || cataract.ScaleY() != 2 {
		t.Errorf("scale = %v x %v, want clamped 2 x 2", cataract.ScaleX(), cataract.ScaleY())
	}
	if cataract.Text("grade") != shapes.GradeBrunescent {
		t.Errorf("grade = %q, want derived Brunescent", cataract.Text("grade"))
	}

	want := []string{"grade", doodle.ParamScaleX, doodle.ParamScaleY}
	if len(*got) != len(want) {
		t.Fatalf("notifications = %+v, want %v", *got, want)
	}
	for i, n := range *got {
		if n.Event != EventParameterChanged || n.Parameter != want[i] || n.Doodle != cataract {
			t.Errorf("notification %d = %+v, want parameterChanged %s", i, n, want[i])
		}
	}
}

func TestSceneRoundTripIsStable(t *testing.T) {
	d, _ := newTestDrawing(t)
	mustAdd(t, d, shapes.Fundus, nil)
	mustAdd(t, d, shapes.RetinalDetachment, map[string]any{"rotation": 0.7, "arc": 2.1})
	mustAdd(t, d, shapes.BlotHaemorrhage, map[string]any{"originX": -123.456, "scaleX": 9})

	first, err := d.MarshalScene()
	if err != nil {
		t.Fatal(err)
	}

	loaded, _ := newTestDrawing(t)
	warnings, err := loaded.LoadScene(first)
	if err != nil || len(warnings) != 0 {
		t.Fatalf("LoadScene = %v, %v", warnings, err)
	}
	second, err := loaded.MarshalScene()
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("round trip differs:\n%s\n%s", first, second)
	}
	if loaded.Len() != 3 || loaded.Doodles()[0].ClassName() != shapes.Fundus {
		t.Errorf("loaded order = %v", classNames(loaded))
	}
}

func TestInFrontOfOrdering(t *testing.T) {
	d, _ := newTestDrawing(t)
	laser := mustAdd(t, d, shapes.LaserSpot, nil)
	blot := mustAdd(t, d, shapes.BlotHaemorrhage, nil)
	fundus := mustAdd(t, d, shapes.Fundus, nil)

	if d.IndexOf(fundus) != 0 {
		t.Errorf("fundus at %d, want 0", d.IndexOf(fundus))
	}
	if d.IndexOf(laser) <= d.IndexOf(blot) {
		t.Errorf("laser at %d must be in front of blot at %d", d.IndexOf(laser), d.IndexOf(blot))
	}
	if d.IndexOf(blot) <= d.IndexOf(fundus) {
		t.Errorf("blot at %d must be in front of fundus at %d", d.IndexOf(blot), d.IndexOf(fundus))
	}

	if err := d.MoveToBack(laser); err != nil {
		t.Fatal(err)
	}
	if d.IndexOf(laser) != d.IndexOf(blot)+1 {
		t.Errorf("MoveToBack put laser at %d, blot at %d", d.IndexOf(laser), d.IndexOf(blot))
	}
	if err := d.MoveToFront(fundus); err != nil {
		t.Fatal(err)
	}
	if d.IndexOf(fundus) != 0 {
		t.Errorf("MoveToFront moved fundus to %d, want 0", d.IndexOf(fundus))
	}
}

func TestConflictingOrderKeepsOwnConstraint(t *testing.T) {
	square := func(name string, inFrontOf ...string) *doodle.Definition {
		return &doodle.Definition{
			ClassName: name,
			Flags:     doodle.DefaultFlags(),
			InFrontOf: inFrontOf,
			BuildPath: func(*doodle.Doodle) *gg.Path {
				p := gg.NewPath()
				p.Rectangle(-10, -10, 20, 20)
				return p
			},
		}
	}
	classes := doodle.NewRegistry()
	if err := classes.Register(square("A", "B"), square("B"), square("C", "A")); err != nil {
		t.Fatal(err)
	}
	d := New("conflict", classes)

	warnings, err := d.LoadScene([]byte(`[{"className":"C","parameters":{}},{"className":"B","parameters":{}}]`))
	if err != nil || len(warnings) != 0 {
		t.Fatalf("LoadScene = %v, %v", warnings, err)
	}
	a, err := d.AddDoodle("A", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.IndexOf(a); got != 2 {
		t.Errorf("A at %d, want 2 (in front of B)", got)
	}
}

func TestAddDoodleFailures(t *testing.T) {
	d, _ := newTestDrawing(t)
	mustAdd(t, d, shapes.Fundus, nil)

	if _, err := d.AddDoodle("Dragon", nil); !errors.Is(err, ErrUnknownClass) {
		t.Errorf("unknown class err = %v", err)
	}
	if _, err := d.AddDoodle(shapes.NuclearCataract, map[string]any{"grade": "Dense"}); !errors.Is(err, doodle.ErrValidation) {
		t.Errorf("bad grade err = %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d after failures, want 1", d.Len())
	}
}

func TestDelete(t *testing.T) {
	d, _ := newTestDrawing(t)
	cornea := mustAdd(t, d, shapes.Cornea, nil)
	blot := mustAdd(t, d, shapes.BlotHaemorrhage, nil)
	got := collect(d)

	if err := d.DeleteSelectedDoodle(); err != nil {
		t.Fatalf("DeleteSelectedDoodle: %v", err)
	}
	if d.IndexOf(blot) != -1 || d.Selected() != nil {
		t.Error("blot should be gone and the selection cleared")
	}
	if len(*got) != 1 || (*got)[0].Event != EventDoodleDeleted || (*got)[0].Doodle != blot {
		t.Errorf("notifications = %+v", *got)
	}

	if err := d.DeleteSelectedDoodle(); !errors.Is(err, ErrNoSelection) {
		t.Errorf("empty selection err = %v", err)
	}
	d.Select(cornea)
	if err := d.DeleteSelectedDoodle(); !errors.Is(err, ErrNotDeletable) {
		t.Errorf("cornea err = %v, want ErrNotDeletable", err)
	}
	if err := d.DeleteDoodleOfClass(shapes.LaserSpot); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing class err = %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestSetParameterNotifies(t *testing.T) {
	d, _ := newTestDrawing(t)
	cataract := mustAdd(t, d, shapes.NuclearCataract, nil)
	got := collect(d)

	if err := d.SetParameter(cataract, "grade", shapes.GradeModerate); err != nil {
		t.Fatal(err)
	}
	if len(*got) != 3 {
		t.Fatalf("notifications = %+v, want grade, scaleX, scaleY", *got)
	}
	first := (*got)[0]
	if first.Parameter != "grade" || first.Old != shapes.GradeMild || first.New != shapes.GradeModerate {
		t.Errorf("first notification = %+v", first)
	}

	*got = nil
	if err := d.SetParameter(cataract, "grade", "Dense"); !errors.Is(err, doodle.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if len(*got) != 0 {
		t.Errorf("rejected change notified: %+v", *got)
	}
}

func TestRepaintOrder(t *testing.T) {
	d, canvas := newTestDrawing(t)
	mustAdd(t, d, shapes.Fundus, nil)
	mustAdd(t, d, shapes.BlotHaemorrhage, nil)

	*canvas = recordingCanvas{}
	if err := d.Repaint(); err != nil {
		t.Fatal(err)
	}
	if canvas.clears != 1 || canvas.paths != 2 || canvas.handles != 1 {
		t.Errorf("canvas = %+v, want 1 clear, 2 paths, 1 handle", *canvas)
	}
}

func TestZoom(t *testing.T) {
	d, _ := newTestDrawing(t)
	got := collect(d)

	d.ZoomIn()
	if d.Scale() != 1.25 {
		t.Errorf("Scale() = %v, want 1.25", d.Scale())
	}
	for range 20 {
		d.ZoomIn()
	}
	if d.Scale() != maxScale {
		t.Errorf("Scale() = %v, want %v", d.Scale(), maxScale)
	}
	for range 40 {
		d.ZoomOut()
	}
	if d.Scale() != minScale {
		t.Errorf("Scale() = %v, want %v", d.Scale(), minScale)
	}
	if (*got)[0].Event != EventZoomIn || (*got)[len(*got)-1].Event != EventZoomOut {
		t.Errorf("zoom events = %v, %v", (*got)[0].Event, (*got)[len(*got)-1].Event)
	}

	// at a limit the scale cannot change, so nothing is announced
	n := len(*got)
	d.ZoomOut()
	if len(*got) != n {
		t.Errorf("ZoomOut at minimum emitted %v", (*got)[n:])
	}
	for range 20 {
		d.ZoomIn()
	}
	n = len(*got)
	d.ZoomIn()
	if len(*got) != n {
		t.Errorf("ZoomIn at maximum emitted %v", (*got)[n:])
	}
}

func TestReport(t *testing.T) {
	d, _ := newTestDrawing(t)
	mustAdd(t, d, shapes.Fundus, nil)
	mustAdd(t, d, shapes.BlotHaemorrhage, map[string]any{"originX": 0, "originY": -200})
	mustAdd(t, d, shapes.BlotHaemorrhage, map[string]any{"originX": 200, "originY": 0})
	mustAdd(t, d, shapes.NuclearCataract, nil)

	want := "multiple blot haemorrhages: blot haemorrhage at 12 o'clock, blot haemorrhage at 3 o'clock, Mild nuclear cataract"
	if got := d.Report(); got != want {
		t.Errorf("Report() = %q\nwant %q", got, want)
	}
	findings := d.Findings()
	if len(findings) != 3 || findings[2].Code != "H25.1" {
		t.Errorf("Findings() = %+v", findings)
	}
}

func TestLoadSceneSkipsMalformedEntries(t *testing.T) {
	d, _ := newTestDrawing(t)
	mustAdd(t, d, shapes.Cornea, nil)

	data := []byte(`[
		{"className": "Fundus", "parameters": {}},
		{"className": "Dragon", "parameters": {"originX": 1}},
		{"className": "BlotHaemorrhage"},
		{"className": "BlotHaemorrhage", "parameters": {"originX": 40, "scaleX": "big", "colour": "red"}}
	]`)
	warnings, err := d.LoadScene(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 3 {
		t.Errorf("warnings = %v, want 3", warnings)
	}
	if got := classNames(d); len(got) != 2 || got[0] != shapes.Fundus || got[1] != shapes.BlotHaemorrhage {
		t.Errorf("scene = %v", got)
	}
	if blot := d.Doodles()[1]; blot.Origin().X != 40 || blot.ScaleX() != 1 {
		t.Errorf("blot origin %v scale %v", blot.Origin(), blot.ScaleX())
	}

	before, _ := d.MarshalScene()
	if _, err := d.LoadScene([]byte(`{"not": "a scene"}`)); err == nil {
		t.Error("expected error for non-array scene")
	}
	after, _ := d.MarshalScene()
	if !bytes.Equal(before, after) {
		t.Error("failed load changed the scene")
	}
}

func TestInitTimeout(t *testing.T) {
	d := New("slow", shapes.NewRegistry())
	got := collect(d)

	release := make(chan struct{})
	defer close(release)
	stuck := resource.LoaderFunc{Key: TemplateKey, Fn: func(ctx context.Context) (image.Image, error) {
		<-release
		return nil, nil
	}}

	err := d.Init(context.Background(), 10*time.Millisecond, stuck)
	if !errors.Is(err, ErrInitializationTimeout) {
		t.Fatalf("Init err = %v, want ErrInitializationTimeout", err)
	}
	if d.Ready() {
		t.Error("drawing should not be ready")
	}
	if len(*got) != 0 {
		t.Errorf("notifications = %+v, want none", *got)
	}
	mustAdd(t, d, shapes.BlotHaemorrhage, nil)
	if mode := d.PointerDown(canvasPt(150, -150)); mode != doodle.ModeNone {
		t.Errorf("input accepted before ready: %v", mode)
	}
}

func classNames(d *Drawing) []string {
	var names []string
	for _, dd := range d.Doodles() {
		names = append(names, dd.ClassName())
	}
	return names
}

func TestViewRoundTrip(t *testing.T) {
	d, _ := newTestDrawing(t, WithSize(800, 600), WithScale(1.5))
	p := geometry.Pt(123, -45)
	back := d.ToDrawing(d.View().TransformPoint(p))
	if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
		t.Errorf("round trip = %+v, want %+v", back, p)
	}
	if got := d.View().TransformPoint(geometry.Pt(0, 0)); !got.Equal(geometry.Pt(400, 300)) {
		t.Errorf("drawing origin at %+v, want canvas centre", got)
	}
}
