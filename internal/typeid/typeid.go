// Package typeid generates the prefixed, sortable identifiers used for every stored entity.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser     = "user"
	PrefixDrawing  = "drw"
	PrefixDoodle   = "ddl"
	PrefixSnapshot = "snap"
	PrefixExport   = "exp"
	PrefixTemplate = "tpl"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid id")

func generate(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

func NewUserID() string     { return generate(PrefixUser) }
func NewDrawingID() string  { return generate(PrefixDrawing) }
func NewDoodleID() string   { return generate(PrefixDoodle) }
func NewSnapshotID() string { return generate(PrefixSnapshot) }
func NewExportID() string   { return generate(PrefixExport) }
func NewTemplateID() string { return generate(PrefixTemplate) }

// Validate checks that id parses and carries prefix.
func Validate(id, prefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalid, id, err)
	}
	if got := parsed.Prefix(); got != prefix {
		return fmt.Errorf("%w %q: prefix %q, want %q", ErrInvalid, id, got, prefix)
	}
	return nil
}

// Is reports whether id is a well-formed identifier with prefix.
func Is(id, prefix string) bool {
	return Validate(id, prefix) == nil
}
