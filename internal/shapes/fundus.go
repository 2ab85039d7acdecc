package shapes

import (
	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
)

// fundusRadius is the radius of the posterior pole template in drawing units.
const fundusRadius = 480.0

func fundus() *doodle.Definition {
	return &doodle.Definition{
		ClassName: Fundus,
		Flags: doodle.Flags{
			Unique:    true,
			Filled:    true,
			AddAtBack: true,
		},
		Style: func(*doodle.Doodle) doodle.Style {
			return doodle.Style{Fill: "#f3a36b", Stroke: "#c8684a", LineWidth: 4}
		},
		BuildPath: func(*doodle.Doodle) *gg.Path { return circle(fundusRadius) },
		Handles:   func(*doodle.Doodle) []doodle.Handle { return nil },
		Tooltip:   "Fundus",
	}
}

func cornea() *doodle.Definition {
	flags := doodle.DefaultFlags()
	flags.Unique = true
	flags.Moveable = false
	flags.Rotatable = false
	flags.Deletable = false
	flags.Filled = false
	flags.WillReport = false

	return &doodle.Definition{
		ClassName: Cornea,
		Flags:     flags,
		Rules: map[string]doodle.Rule{
			doodle.ParamScaleX: doodle.Range(0.75, 1.25, 2),
			doodle.ParamScaleY: doodle.Range(0.75, 1.25, 2),
		},
		Saved:     []string{doodle.ParamScaleX, doodle.ParamScaleY},
		BuildPath: func(*doodle.Doodle) *gg.Path { return circle(380) },
		Style: func(*doodle.Doodle) doodle.Style {
			return doodle.Style{Fill: "#ffffff00", Stroke: "#444444", LineWidth: 4}
		},
		Tooltip: "Cornea",
	}
}
