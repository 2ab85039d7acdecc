package doodle

import (
	"fmt"
	"math"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

// Flags are the behavioural switches of a doodle class.
type Flags struct {
	Selectable     bool
	Deletable      bool
	Moveable       bool
	Rotatable      bool
	Scaleable      bool
	Squeezable     bool // scaleX and scaleY change independently
	Orientated     bool // rotation follows the direction of the origin from the centre
	Unique         bool
	Filled         bool
	AddAtBack      bool
	WillReport     bool
	SnapToQuadrant bool
	ShowsTooltip   bool
}

// DefaultFlags returns the flags of an ordinary selectable, editable shape.
func DefaultFlags() Flags {
	return Flags{
		Selectable: true,
		Deletable:  true,
		Moveable:   true,
		Rotatable:  true,
		Scaleable:  true,
		Filled:     true,
		WillReport: true,
	}
}

// Scene is the view of the owning drawing a doodle may consult when placing itself.
type Scene interface {
	LastDoodleOfClass(className string) *Doodle
	FirstDoodleOfClass(className string) *Doodle
	Eye() Eye
}

// Definition describes one doodle class. The generic Doodle runtime executes it; a class is
// data plus the callbacks that build its geometry and text.
type Definition struct {
	ClassName string
	Flags     Flags

	// InFrontOf lists classes this class must be painted in front of.
	InFrontOf []string

	// Rules for shape-specific parameters and overrides of the base rules.
	Rules map[string]Rule

	// Saved lists the parameters written to and restored from persisted scenes.
	Saved []string

	// Defaults are applied to every new or restored instance before anything else.
	Defaults map[string]any

	// SnapAngles are the rotations a SnapToQuadrant doodle snaps to. Empty means quadrants.
	SnapAngles []float64

	Code             string
	GroupDescription string
	Tooltip          string

	// ParameterDefaults places a freshly created doodle. It is never run for restored ones.
	ParameterDefaults func(d *Doodle, scene Scene)

	// BuildPath returns the doodle outline in local coordinates. Required.
	BuildPath func(d *Doodle) *gg.Path

	// Handles returns the handle set in local coordinates. Nil derives corner handles
	// from the path bounds.
	Handles func(d *Doodle) []Handle

	// MoveHandle applies a drag of handle index to local point p in ModeHandles.
	MoveHandle func(d *Doodle, index int, p geometry.Point)

	// Dependents maps a change of one parameter to values of others.
	Dependents func(d *Doodle, name string, value any) map[string]any

	Style    func(d *Doodle) Style
	Describe func(d *Doodle) string
}

// Rule returns the rule of a parameter, falling back to the base rules.
func (def *Definition) Rule(name string) (Rule, bool) {
	if r, ok := def.Rules[name]; ok {
		return r, true
	}
	r, ok := baseRules[name]
	return r, ok
}

// Snaps returns the angles SnapToQuadrant rotations snap to.
func (def *Definition) Snaps() []float64 {
	if len(def.SnapAngles) > 0 {
		return def.SnapAngles
	}
	return []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}
}

// Validate checks the definition is usable by the runtime.
func (def *Definition) Validate() error {
	if def.ClassName == "" {
		return fmt.Errorf("%w: empty class name", ErrInvalidDefinition)
	}
	if def.BuildPath == nil {
		return fmt.Errorf("%w: %s has no path builder", ErrInvalidDefinition, def.ClassName)
	}
	for name, r := range def.Rules {
		switch r.Kind {
		case RangeRule:
			if r.Min > r.Max {
				return fmt.Errorf("%w: %s.%s has min > max", ErrInvalidDefinition, def.ClassName, name)
			}
		case EnumeratedRule:
			if len(r.Values) == 0 {
				return fmt.Errorf("%w: %s.%s has no allowed values", ErrInvalidDefinition, def.ClassName, name)
			}
		default:
			return fmt.Errorf("%w: %s.%s has no rule kind", ErrInvalidDefinition, def.ClassName, name)
		}
	}
	for _, name := range def.Saved {
		if _, ok := def.Rule(name); !ok {
			return fmt.Errorf("%w: %s saves %q which has no rule", ErrInvalidDefinition, def.ClassName, name)
		}
	}
	for name, v := range def.Defaults {
		r, ok := def.Rule(name)
		if !ok {
			return fmt.Errorf("%w: %s defaults %q which has no rule", ErrInvalidDefinition, def.ClassName, name)
		}
		if _, err := normalize(def.ClassName, name, r, v); err != nil {
			return fmt.Errorf("%w: default: %w", ErrInvalidDefinition, err)
		}
	}
	if def.Flags.Scaleable {
		for _, name := range []string{ParamScaleX, ParamScaleY} {
			r, _ := def.Rule(name)
			if r.Min <= 0 {
				return fmt.Errorf("%w: %s.%s must have a positive floor", ErrInvalidDefinition, def.ClassName, name)
			}
		}
	}
	return nil
}

func (def *Definition) style(d *Doodle) Style {
	if def.Style != nil {
		return def.Style(d)
	}
	st := DefaultStyle
	if !def.Flags.Filled {
		st.Fill = ""
	}
	return st
}

// parameterNames returns the base parameters plus every shape-specific rule.
func (def *Definition) parameterNames() []string {
	names := make([]string, 0, len(baseRules)+len(def.Rules))
	for name := range baseRules {
		names = append(names, name)
	}
	for name := range def.Rules {
		if _, ok := baseRules[name]; !ok {
			names = append(names, name)
		}
	}
	return names
}
