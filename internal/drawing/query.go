package drawing

import "github.com/eyedraw/eyedraw/backend-go/internal/doodle"

// Doodles returns the doodles back to front.
func (d *Drawing) Doodles() []*doodle.Doodle {
	out := make([]*doodle.Doodle, len(d.doodles))
	copy(out, d.doodles)
	return out
}

func (d *Drawing) Len() int { return len(d.doodles) }

// Doodle returns the doodle with the given ID.
func (d *Drawing) Doodle(id string) *doodle.Doodle {
	for _, dd := range d.doodles {
		if dd.ID == id {
			return dd
		}
	}
	return nil
}

// IndexOf returns the z-order index of dd, or -1.
func (d *Drawing) IndexOf(dd *doodle.Doodle) int {
	if dd == nil {
		return -1
	}
	for i, other := range d.doodles {
		if other == dd {
			return i
		}
	}
	return -1
}

// Selected returns the selected doodle, or nil.
func (d *Drawing) Selected() *doodle.Doodle {
	if d.selectedID == "" {
		return nil
	}
	return d.Doodle(d.selectedID)
}

// LastDoodleOfClass returns the most recently added instance of a class.
func (d *Drawing) LastDoodleOfClass(className string) *doodle.Doodle {
	var last *doodle.Doodle
	for _, dd := range d.doodles {
		if dd.ClassName() == className && (last == nil || d.added[dd] > d.added[last]) {
			last = dd
		}
	}
	return last
}

// FirstDoodleOfClass returns the rearmost instance of a class.
func (d *Drawing) FirstDoodleOfClass(className string) *doodle.Doodle {
	for _, dd := range d.doodles {
		if dd.ClassName() == className {
			return dd
		}
	}
	return nil
}

func (d *Drawing) HasDoodleOfClass(className string) bool {
	return d.FirstDoodleOfClass(className) != nil
}

// DoodlesOfClass returns every instance of a class, back to front.
func (d *Drawing) DoodlesOfClass(className string) []*doodle.Doodle {
	var out []*doodle.Doodle
	for _, dd := range d.doodles {
		if dd.ClassName() == className {
			out = append(out, dd)
		}
	}
	return out
}
