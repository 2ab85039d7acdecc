package shapes

import (
	"fmt"
	"math"
	"slices"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

// Each new lesion of a class is placed a clock hour on from the previous one.
const siblingStep = math.Pi / 6

var lesionSaved = []string{doodle.ParamOriginX, doodle.ParamOriginY, doodle.ParamScaleX, doodle.ParamScaleY}

func blotHaemorrhage() *doodle.Definition {
	flags := doodle.DefaultFlags()
	flags.Rotatable = false

	return &doodle.Definition{
		ClassName: BlotHaemorrhage,
		Flags:     flags,
		InFrontOf: []string{Fundus},
		Rules: map[string]doodle.Rule{
			doodle.ParamScaleX: doodle.Range(0.5, 3, 2),
			doodle.ParamScaleY: doodle.Range(0.5, 3, 2),
		},
		Saved: lesionSaved,
		ParameterDefaults: func(d *doodle.Doodle, scene doodle.Scene) {
			siblingOrigin(d, scene, geometry.Pt(150*scene.Eye().Mirror(), -150), siblingStep)
		},
		BuildPath: func(*doodle.Doodle) *gg.Path { return circle(20) },
		Style: func(*doodle.Doodle) doodle.Style {
			return doodle.Style{Fill: "#b01010", Stroke: "#b01010", LineWidth: 2}
		},
		Describe: func(d *doodle.Doodle) string {
			return fmt.Sprintf("blot haemorrhage at %d o'clock", clockHour(d.Origin().Direction()))
		},
		GroupDescription: "multiple blot haemorrhages: ",
		Code:             "H35.6",
		Tooltip:          "Blot haemorrhage",
	}
}

func microaneurysm() *doodle.Definition {
	flags := doodle.DefaultFlags()
	flags.Rotatable = false
	flags.Scaleable = false

	return &doodle.Definition{
		ClassName: Microaneurysm,
		Flags:     flags,
		InFrontOf: []string{Fundus},
		Saved:     []string{doodle.ParamOriginX, doodle.ParamOriginY},
		ParameterDefaults: func(d *doodle.Doodle, scene doodle.Scene) {
			siblingOrigin(d, scene, geometry.Pt(-100*scene.Eye().Mirror(), 100), siblingStep)
		},
		BuildPath: func(*doodle.Doodle) *gg.Path { return circle(7) },
		Handles:   func(*doodle.Doodle) []doodle.Handle { return nil },
		Style: func(*doodle.Doodle) doodle.Style {
			return doodle.Style{Fill: "#d02020", Stroke: "#d02020", LineWidth: 1}
		},
		Describe: func(d *doodle.Doodle) string {
			return fmt.Sprintf("microaneurysm at %d o'clock", clockHour(d.Origin().Direction()))
		},
		GroupDescription: "microaneurysms: ",
		Code:             "H35.04",
		Tooltip:          "Microaneurysm",
	}
}

func laserSpot() *doodle.Definition {
	flags := doodle.DefaultFlags()
	flags.Squeezable = true

	return &doodle.Definition{
		ClassName: LaserSpot,
		Flags:     flags,
		InFrontOf: []string{Fundus, BlotHaemorrhage, Microaneurysm},
		Rules: map[string]doodle.Rule{
			doodle.ParamScaleX: doodle.Range(0.5, 4, 2),
			doodle.ParamScaleY: doodle.Range(0.5, 4, 2),
		},
		Saved: slices.Concat(lesionSaved, []string{doodle.ParamRotation}),
		ParameterDefaults: func(d *doodle.Doodle, scene doodle.Scene) {
			siblingOrigin(d, scene, geometry.Pt(0, 250), siblingStep/2)
		},
		BuildPath: func(*doodle.Doodle) *gg.Path { return circle(15) },
		Style: func(*doodle.Doodle) doodle.Style {
			return doodle.Style{Fill: "#f7e8a0", Stroke: "#a08020", LineWidth: 2}
		},
		Describe: func(d *doodle.Doodle) string {
			return fmt.Sprintf("laser spot at %d o'clock", clockHour(d.Origin().Direction()))
		},
		GroupDescription: "laser spots: ",
		Code:             "Z98.89",
		Tooltip:          "Laser spot",
	}
}
