package drawing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eyedraw/eyedraw/backend-go/internal/shapes"
)

func TestRegistry(t *testing.T) {
	classes := shapes.NewRegistry()
	reg := NewRegistry()
	left := New("left", classes)
	right := New("right", classes)

	for _, d := range []*Drawing{right, left} {
		if err := reg.Register(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := reg.Register(New("left", classes)); !errors.Is(err, ErrDuplicateDrawing) {
		t.Errorf("duplicate err = %v", err)
	}
	if names := reg.Names(); len(names) != 2 || names[0] != "left" || names[1] != "right" {
		t.Errorf("Names() = %v", names)
	}

	if reg.AllReady() {
		t.Error("AllReady before Init")
	}
	for _, d := range []*Drawing{left, right} {
		if err := d.Init(context.Background(), time.Second); err != nil {
			t.Fatal(err)
		}
	}
	if !reg.AllReady() {
		t.Error("AllReady after Init")
	}

	reg.Unregister("left")
	if _, ok := reg.Lookup("left"); ok {
		t.Error("left still registered")
	}
	if got, ok := reg.Lookup("right"); !ok || got != right {
		t.Error("right lookup failed")
	}
}
