package drawing

import (
	"slices"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
)

// bounds returns the range of indices dd may occupy: at or above lower it is in front of
// every class it lists in InFrontOf, at or below upper it stays behind every doodle that
// lists its class.
func (d *Drawing) bounds(dd *doodle.Doodle) (lower, upper int) {
	def := dd.Definition()
	upper = len(d.doodles)
	for i, other := range d.doodles {
		if other == dd {
			continue
		}
		if slices.Contains(def.InFrontOf, other.ClassName()) {
			lower = max(lower, i+1)
		}
		if slices.Contains(other.Definition().InFrontOf, def.ClassName) {
			upper = min(upper, i)
		}
	}
	return lower, upper
}

// position picks the insertion index for a doodle not yet in the scene. AddAtBack
// classes go as far back as allowed, others as far forward. When constraints conflict
// the inserted doodle's own InFrontOf list wins.
func (d *Drawing) position(dd *doodle.Doodle) int {
	lower, upper := d.bounds(dd)
	if lower > upper {
		d.logger.Warn("conflicting z-order constraints", "class", dd.ClassName(), "lower", lower, "upper", upper)
		return lower
	}
	if dd.Flags().AddAtBack {
		return lower
	}
	return upper
}

func (d *Drawing) insert(dd *doodle.Doodle) {
	d.doodles = slices.Insert(d.doodles, d.position(dd), dd)
	d.serial++
	d.added[dd] = d.serial
}

// MoveToFront moves a doodle as far forward as its constraints allow.
func (d *Drawing) MoveToFront(dd *doodle.Doodle) error {
	return d.reposition(dd, false)
}

// MoveToBack moves a doodle as far back as its constraints allow.
func (d *Drawing) MoveToBack(dd *doodle.Doodle) error {
	return d.reposition(dd, true)
}

func (d *Drawing) reposition(dd *doodle.Doodle, back bool) error {
	i := d.IndexOf(dd)
	if i < 0 {
		return ErrNotFound
	}
	d.doodles = slices.Delete(d.doodles, i, i+1)
	lower, upper := d.bounds(dd)
	pos := upper
	if back || lower > upper {
		pos = lower
	}
	d.doodles = slices.Insert(d.doodles, pos, dd)
	if pos != i {
		d.repaint()
	}
	return nil
}
