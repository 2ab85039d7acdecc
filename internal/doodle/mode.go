package doodle

// Mode identifies the manipulation a pointer drag applies to a doodle.
type Mode int

const (
	ModeNone Mode = iota
	ModeMove
	ModeScale
	ModeRotate
	ModeArc
	ModeApex
	ModeHandles
	ModeSquiggle
)

func (m Mode) String() string {
	switch m {
	case ModeMove:
		return "move"
	case ModeScale:
		return "scale"
	case ModeRotate:
		return "rotate"
	case ModeArc:
		return "arc"
	case ModeApex:
		return "apex"
	case ModeHandles:
		return "handles"
	case ModeSquiggle:
		return "squiggle"
	default:
		return "none"
	}
}
