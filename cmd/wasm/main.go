//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"
	"time"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/drawing"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
	"github.com/eyedraw/eyedraw/backend-go/internal/render"
	"github.com/eyedraw/eyedraw/backend-go/internal/shapes"
)

var (
	classes  = shapes.NewRegistry()
	recorder = render.NewRecorder()
	current  *drawing.Drawing
)

func main() {
	editor := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	editor.Set("newDrawing", js.FuncOf(newDrawing))
	editor.Set("loadScene", js.FuncOf(loadScene))
	editor.Set("loadSampleScene", js.FuncOf(loadSampleScene))
	editor.Set("addDoodle", js.FuncOf(addDoodle))
	editor.Set("deleteSelected", js.FuncOf(deleteSelected))
	editor.Set("setParameter", js.FuncOf(setParameter))
	editor.Set("moveToFront", js.FuncOf(moveToFront))
	editor.Set("moveToBack", js.FuncOf(moveToBack))
	editor.Set("pointerDown", js.FuncOf(pointerDown))
	editor.Set("pointerMove", js.FuncOf(pointerMove))
	editor.Set("pointerUp", js.FuncOf(pointerUp))
	editor.Set("pointerLeave", js.FuncOf(pointerLeave))
	editor.Set("zoomIn", js.FuncOf(zoomIn))
	editor.Set("zoomOut", js.FuncOf(zoomOut))
	editor.Set("onNotification", js.FuncOf(onNotification))

	// --- Queries (frontend ← engine) ---
	editor.Set("render", js.FuncOf(renderFrame))
	editor.Set("getScene", js.FuncOf(getScene))
	editor.Set("getReport", js.FuncOf(getReport))
	editor.Set("getClasses", js.FuncOf(getClasses))

	js.Global().Set("eyedrawEditor", editor)
	js.Global().Set("eyedrawWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

var listeners []js.Value

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func ready() bool {
	return current != nil
}

func notReady() interface{} {
	return js.ValueOf(map[string]interface{}{"error": "no drawing, call newDrawing first"})
}

// --- Command Handlers ---

// newDrawing(eye, width, height) replaces the current drawing.
func newDrawing(this js.Value, args []js.Value) interface{} {
	opts := []drawing.Option{drawing.WithCanvas(recorder)}
	if len(args) >= 1 {
		eye, err := doodle.ParseEye(args[0].String())
		if err != nil {
			return fail(err)
		}
		opts = append(opts, drawing.WithEye(eye))
	}
	if len(args) >= 3 {
		opts = append(opts, drawing.WithSize(args[1].Int(), args[2].Int()))
	}

	d := drawing.New("wasm", classes, opts...)
	d.Subscribe(func(n drawing.Notification) {
		payload, err := json.Marshal(map[string]any{
			"event":     n.Event,
			"parameter": n.Parameter,
			"value":     n.New,
			"className": className(n.Doodle),
		})
		if err != nil {
			return
		}
		for _, fn := range listeners {
			fn.Invoke(string(payload))
		}
	})
	if err := d.Init(context.Background(), time.Second); err != nil {
		return fail(err)
	}
	current = d
	return ok()
}

func className(dd *doodle.Doodle) string {
	if dd == nil {
		return ""
	}
	return dd.ClassName()
}

func loadScene(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing scene JSON"})
	}
	warnings, err := current.LoadScene([]byte(args[0].String()))
	if err != nil {
		return fail(err)
	}
	out := make([]interface{}, len(warnings))
	for i, w := range warnings {
		out[i] = w.Error()
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "warnings": out})
}

func loadSampleScene(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	current.LoadRecords(shapes.SampleScene())
	return ok()
}

// addDoodle(className, parametersJSON?)
func addDoodle(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing class name"})
	}
	var params map[string]any
	if len(args) >= 2 && args[1].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[1].String()), &params); err != nil {
			return fail(err)
		}
	}
	dd, err := current.AddDoodle(args[0].String(), params)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "id": dd.ID})
}

func deleteSelected(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	if err := current.DeleteSelectedDoodle(); err != nil {
		return fail(err)
	}
	return ok()
}

// setParameter(name, valueJSON) assigns a parameter of the selected doodle.
func setParameter(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing parameter name or value"})
	}
	sel := current.Selected()
	if sel == nil {
		return fail(drawing.ErrNoSelection)
	}
	var value any
	if err := json.Unmarshal([]byte(args[1].String()), &value); err != nil {
		return fail(err)
	}
	if err := current.SetParameter(sel, args[0].String(), value); err != nil {
		return fail(err)
	}
	return ok()
}

func moveToFront(this js.Value, args []js.Value) interface{} {
	return reorder(func(dd *doodle.Doodle) error { return current.MoveToFront(dd) })
}

func moveToBack(this js.Value, args []js.Value) interface{} {
	return reorder(func(dd *doodle.Doodle) error { return current.MoveToBack(dd) })
}

func reorder(fn func(*doodle.Doodle) error) interface{} {
	if !ready() {
		return notReady()
	}
	sel := current.Selected()
	if sel == nil {
		return fail(drawing.ErrNoSelection)
	}
	if err := fn(sel); err != nil {
		return fail(err)
	}
	return ok()
}

func point(args []js.Value) (geometry.Point, bool) {
	if len(args) < 2 {
		return geometry.Point{}, false
	}
	return geometry.Pt(args[0].Float(), args[1].Float()), true
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	p, valid := point(args)
	if !valid {
		return js.ValueOf("")
	}
	return js.ValueOf(current.PointerDown(p).String())
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	if p, valid := point(args); valid {
		current.PointerMove(p)
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	if p, valid := point(args); valid {
		current.PointerUp(p)
	}
	return nil
}

func pointerLeave(this js.Value, args []js.Value) interface{} {
	if ready() {
		current.PointerLeave()
	}
	return nil
}

func zoomIn(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	current.ZoomIn()
	return js.ValueOf(current.Scale())
}

func zoomOut(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	current.ZoomOut()
	return js.ValueOf(current.Scale())
}

// onNotification(fn) registers fn to receive every drawing notification as JSON.
func onNotification(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return js.ValueOf(map[string]interface{}{"error": "missing callback"})
	}
	listeners = append(listeners, args[0])
	return ok()
}

// --- Query Handlers ---

// render returns the draw commands of the last repaint as JSON.
func renderFrame(this js.Value, args []js.Value) interface{} {
	out, err := recorder.JSON()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(out)
}

func getScene(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	data, err := current.MarshalScene()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

func getReport(this js.Value, args []js.Value) interface{} {
	if !ready() {
		return notReady()
	}
	return js.ValueOf(current.Report())
}

func getClasses(this js.Value, args []js.Value) interface{} {
	names := classes.Names()
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return js.ValueOf(out)
}
