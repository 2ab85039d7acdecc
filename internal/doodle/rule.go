package doodle

import (
	"math"
	"slices"
	"strconv"
)

// RuleKind tags the variant held by a Rule.
type RuleKind int

const (
	// RangeRule is a numeric parameter bounded by [Min, Max].
	RangeRule RuleKind = iota + 1
	// EnumeratedRule is a string parameter restricted to Values.
	EnumeratedRule
)

// Rule is the validation rule of one doodle parameter.
type Rule struct {
	Kind RuleKind

	// Range rules
	Min       float64
	Max       float64
	Precision int
	Wrap      bool // angular: values wrap into [Min, Max) instead of clamping

	// Enumerated rules
	Values  []string
	Derived bool // value is recomputed from other parameters

	Animate bool
}

// Range returns a numeric rule. Values outside [min, max] are clamped.
func Range(min, max float64, precision int) Rule {
	return Rule{Kind: RangeRule, Min: min, Max: max, Precision: precision}
}

// Angle returns a numeric rule for a full-turn angle that wraps into [0, 2π).
func Angle() Rule {
	return Rule{Kind: RangeRule, Min: 0, Max: 2 * math.Pi, Precision: 4, Wrap: true}
}

// Enumerated returns a rule accepting only the given values.
func Enumerated(derived bool, values ...string) Rule {
	return Rule{Kind: EnumeratedRule, Values: values, Derived: derived}
}

// WithAnimation marks the parameter as animating when changed.
func (r Rule) WithAnimation() Rule {
	r.Animate = true
	return r
}

// Numeric reports whether the rule holds a number.
func (r Rule) Numeric() bool {
	return r.Kind == RangeRule
}

// Clamp brings v inside the rule's range.
func (r Rule) Clamp(v float64) float64 {
	if r.Wrap {
		span := r.Max - r.Min
		v = math.Mod(v-r.Min, span)
		if v < 0 {
			v += span
		}
		return v + r.Min
	}
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Allows reports whether s is one of the enumerated values.
func (r Rule) Allows(s string) bool {
	return slices.Contains(r.Values, s)
}

// Format renders a numeric value with the rule's precision.
func (r Rule) Format(v float64) string {
	return strconv.FormatFloat(v, 'f', r.Precision, 64)
}

// baseRules apply to every doodle unless a definition overrides them.
var baseRules = map[string]Rule{
	ParamOriginX:  Range(-1000, 1000, 0),
	ParamOriginY:  Range(-1000, 1000, 0),
	ParamRotation: Angle(),
	ParamScaleX:   Range(0.25, 4, 2),
	ParamScaleY:   Range(0.25, 4, 2),
	ParamApexX:    Range(-500, 500, 0),
	ParamApexY:    Range(-500, 500, 0),
	ParamArc:      Range(0, 2*math.Pi, 4),
}

// Base parameter names.
const (
	ParamOriginX  = "originX"
	ParamOriginY  = "originY"
	ParamRotation = "rotation"
	ParamScaleX   = "scaleX"
	ParamScaleY   = "scaleY"
	ParamApexX    = "apexX"
	ParamApexY    = "apexY"
	ParamArc      = "arc"
)

var baseDefaults = map[string]float64{
	ParamOriginX:  0,
	ParamOriginY:  0,
	ParamRotation: 0,
	ParamScaleX:   1,
	ParamScaleY:   1,
	ParamApexX:    0,
	ParamApexY:    0,
	ParamArc:      math.Pi,
}

// isGeometric reports whether a parameter feeds the doodle transform.
func isGeometric(name string) bool {
	switch name {
	case ParamOriginX, ParamOriginY, ParamRotation, ParamScaleX, ParamScaleY:
		return true
	}
	return false
}
