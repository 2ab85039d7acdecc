package doodle

import (
	"fmt"
	"strings"
)

// Eye is the laterality of a drawing. It mirrors the default placement of shapes.
type Eye int

const (
	EyeRight Eye = iota
	EyeLeft
)

func (e Eye) String() string {
	if e == EyeLeft {
		return "Left"
	}
	return "Right"
}

// ParseEye accepts "R", "Right", "L" or "Left" in any case.
func ParseEye(s string) (Eye, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "right", "":
		return EyeRight, nil
	case "l", "left":
		return EyeLeft, nil
	default:
		return EyeRight, fmt.Errorf("unknown eye %q", s)
	}
}

// Mirror returns -1 for a left eye and 1 for a right eye.
func (e Eye) Mirror() float64 {
	if e == EyeLeft {
		return -1
	}
	return 1
}

// MarshalText implements encoding.TextMarshaler.
func (e Eye) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Eye) UnmarshalText(text []byte) error {
	v, err := ParseEye(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
