package drawing

import (
	"fmt"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/document"
)

// Records returns the persisted form of the scene, back to front.
func (d *Drawing) Records() []document.Record {
	out := make([]document.Record, len(d.doodles))
	for i, dd := range d.doodles {
		out[i] = dd.Record()
	}
	return out
}

// MarshalScene encodes the scene as a JSON array of doodle records.
func (d *Drawing) MarshalScene() ([]byte, error) {
	return document.Encode(d.Records())
}

// LoadScene replaces the scene with a persisted one. Malformed or unusable entries are
// skipped and returned as warnings; the error is set only when data is not a scene at all,
// in which case the current scene is kept.
func (d *Drawing) LoadScene(data []byte) ([]error, error) {
	records, warnings, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	return append(warnings, d.LoadRecords(records)...), nil
}

// LoadRecords replaces the scene with the given records in their stored order. The new
// scene is built completely before it replaces the old one.
func (d *Drawing) LoadRecords(records []document.Record) []error {
	var warnings []error
	built := make([]*doodle.Doodle, 0, len(records))
	unique := make(map[string]bool)

	for i, rec := range records {
		def, ok := d.classes.Lookup(rec.ClassName)
		if !ok {
			warnings = append(warnings, &document.EntryError{Index: i, ClassName: rec.ClassName, Err: ErrUnknownClass})
			continue
		}
		if def.Flags.Unique {
			if unique[def.ClassName] {
				warnings = append(warnings, &document.EntryError{Index: i, ClassName: rec.ClassName, Err: ErrDuplicateUnique})
				continue
			}
			unique[def.ClassName] = true
		}

		dd, ws := doodle.New(def, d, rec.Parameters)
		for _, w := range ws {
			warnings = append(warnings, &document.EntryError{Index: i, ClassName: rec.ClassName, Err: w})
		}
		dd.RestoreSquiggles(rec.Squiggles)
		built = append(built, dd)
	}

	d.Deselect()
	d.drag = nil
	d.doodles = built
	d.added = make(map[*doodle.Doodle]uint64, len(built))
	for _, dd := range built {
		d.serial++
		d.added[dd] = d.serial
	}

	for _, w := range warnings {
		d.logger.Warn("skipped scene entry", "error", w)
	}
	d.repaint()
	return warnings
}
