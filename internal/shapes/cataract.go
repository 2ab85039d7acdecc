package shapes

import (
	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
)

// Nuclear cataract grades and the scale each one is drawn at.
const (
	GradeMild       = "Mild"
	GradeModerate   = "Moderate"
	GradeBrunescent = "Brunescent"
)

var gradeScale = map[string]float64{
	GradeMild:       1,
	GradeModerate:   1.5,
	GradeBrunescent: 2,
}

var gradeColour = map[string]string{
	GradeMild:       "#e8d070c0",
	GradeModerate:   "#c8a040d0",
	GradeBrunescent: "#80501ee0",
}

func gradeForScale(s float64) string {
	switch {
	case s < 1.25:
		return GradeMild
	case s < 1.75:
		return GradeModerate
	default:
		return GradeBrunescent
	}
}

func nuclearCataract() *doodle.Definition {
	flags := doodle.DefaultFlags()
	flags.Unique = true
	flags.Moveable = false
	flags.Rotatable = false

	return &doodle.Definition{
		ClassName: NuclearCataract,
		Flags:     flags,
		InFrontOf: []string{Cornea},
		Rules: map[string]doodle.Rule{
			doodle.ParamScaleX: doodle.Range(0.5, 2, 2),
			doodle.ParamScaleY: doodle.Range(0.5, 2, 2),
			"grade":            doodle.Enumerated(true, GradeMild, GradeModerate, GradeBrunescent),
		},
		Saved: []string{doodle.ParamScaleX, doodle.ParamScaleY, "grade"},
		Dependents: func(d *doodle.Doodle, name string, value any) map[string]any {
			switch name {
			case "grade":
				s := gradeScale[value.(string)]
				return map[string]any{doodle.ParamScaleX: s, doodle.ParamScaleY: s}
			case doodle.ParamScaleX:
				return map[string]any{"grade": gradeForScale(value.(float64))}
			}
			return nil
		},
		BuildPath: func(*doodle.Doodle) *gg.Path { return circle(100) },
		Style: func(d *doodle.Doodle) doodle.Style {
			return doodle.Style{Fill: gradeColour[d.Text("grade")], Stroke: "#705020", LineWidth: 3}
		},
		Describe: func(d *doodle.Doodle) string {
			return d.Text("grade") + " nuclear cataract"
		},
		Code:    "H25.1",
		Tooltip: "Nuclear cataract",
	}
}
