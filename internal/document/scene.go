package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

var (
	ErrMalformedScene = errors.New("malformed scene")
	ErrMalformedEntry = errors.New("malformed scene entry")
)

// Record is one doodle in a persisted scene. Records are stored back to front.
type Record struct {
	ClassName  string         `json:"className"`
	Parameters map[string]any `json:"parameters"`
	Squiggles  []Squiggle     `json:"squiggles,omitempty"`
}

// Squiggle is a freehand stroke in doodle-local coordinates.
type Squiggle struct {
	Colour    string           `json:"colour"`
	Thickness float64          `json:"thickness"`
	Filled    bool             `json:"filled"`
	Points    []geometry.Point `json:"points"`
}

// EntryError describes a scene entry that could not be used.
type EntryError struct {
	Index     int
	ClassName string
	Err       error
}

func (e *EntryError) Error() string {
	if e.ClassName == "" {
		return fmt.Sprintf("entry %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("entry %d (%s): %v", e.Index, e.ClassName, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Decode parses a persisted scene. An entry without a class name or without a parameters
// object is skipped and reported as an *EntryError warning; the returned error is only set
// when the scene is not a JSON array at all.
func Decode(data []byte) ([]Record, []error, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedScene, err)
	}

	records := make([]Record, 0, len(raw))
	var warnings []error

	for i, entry := range raw {
		var rec Record
		if err := json.Unmarshal(entry, &rec); err != nil {
			warnings = append(warnings, &EntryError{Index: i, Err: fmt.Errorf("%w: %w", ErrMalformedEntry, err)})
			continue
		}
		if rec.ClassName == "" {
			warnings = append(warnings, &EntryError{Index: i, Err: fmt.Errorf("%w: missing className", ErrMalformedEntry)})
			continue
		}
		if rec.Parameters == nil {
			warnings = append(warnings, &EntryError{Index: i, ClassName: rec.ClassName, Err: fmt.Errorf("%w: missing parameters", ErrMalformedEntry)})
			continue
		}
		records = append(records, rec)
	}

	return records, warnings, nil
}

// Encode serializes records in order. Parameter maps are written with sorted keys, so
// equal scenes encode to identical bytes.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}
