// Package document holds the persisted form of a drawing: the ordered doodle records and
// the envelope that names the drawing and its canvas.
package document

import "encoding/json"

// Document is the persisted form of a drawing.
type Document struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   int      `json:"version"`
	Eye       string   `json:"eye"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Template  string   `json:"template,omitempty"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
	Doodles   []Record `json:"doodles"`
}

// NewEmptyDocument creates an empty document for a new drawing.
func NewEmptyDocument(id, name, eye string) *Document {
	return &Document{
		ID:      id,
		Name:    name,
		Version: 1,
		Eye:     eye,
		Width:   1000,
		Height:  1000,
		Doodles: []Record{},
	}
}

// Unmarshal decodes a document envelope. Doodle entries are decoded leniently: malformed
// entries are dropped and returned as warnings.
func Unmarshal(data []byte) (*Document, []error, error) {
	var envelope struct {
		Document
		Doodles json.RawMessage `json:"doodles"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, nil, err
	}

	doc := envelope.Document
	doc.Doodles = []Record{}
	if len(envelope.Doodles) == 0 {
		return &doc, nil, nil
	}

	records, warnings, err := Decode(envelope.Doodles)
	if err != nil {
		return nil, nil, err
	}
	doc.Doodles = records
	return &doc, warnings, nil
}
