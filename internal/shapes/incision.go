package shapes

import (
	"fmt"
	"math"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

// Incision geometry in drawing units. One millimetre is roughly 66 units at the limbus.
const (
	incisionOuter = 420.0
	unitsPerMM    = 66.0
)

func phakoIncision() *doodle.Definition {
	flags := doodle.DefaultFlags()
	flags.Moveable = false
	flags.Scaleable = false
	flags.SnapToQuadrant = true

	return &doodle.Definition{
		ClassName: PhakoIncision,
		Flags:     flags,
		InFrontOf: []string{Cornea},
		Rules: map[string]doodle.Rule{
			doodle.ParamArc:   doodle.Range(math.Pi/12, math.Pi/2, 4),
			doodle.ParamApexX: doodle.Range(0, 0, 0),
			doodle.ParamApexY: doodle.Range(-400, -300, 0),
		},
		Defaults: map[string]any{
			doodle.ParamArc:   math.Pi / 6,
			doodle.ParamApexY: -380.0,
		},
		Saved: []string{doodle.ParamRotation, doodle.ParamArc, doodle.ParamApexY},
		ParameterDefaults: func(d *doodle.Doodle, scene doodle.Scene) {
			// temporal approach
			rotation := 3 * math.Pi / 2
			if scene.Eye() == doodle.EyeLeft {
				rotation = math.Pi / 2
			}
			d.SetNumber(doodle.ParamRotation, rotation)
		},
		BuildPath: func(d *doodle.Doodle) *gg.Path {
			half := d.Arc() / 2
			inner := -d.Apex().Y
			p := gg.NewPath()
			arc(p, incisionOuter, -half, half)
			arcBack(p, inner, half, -half)
			p.Close()
			return p
		},
		Handles: func(d *doodle.Doodle) []doodle.Handle {
			handles := make([]doodle.Handle, doodle.ApexHandle+1)
			handles[doodle.ArcHandleRight] = doodle.Handle{
				Location: geometry.FromPolar(incisionOuter, d.Arc()/2),
				Visible:  true,
				Mode:     doodle.ModeArc,
			}
			handles[doodle.ApexHandle] = doodle.Handle{
				Location: d.Apex(),
				Visible:  true,
				Mode:     doodle.ModeApex,
			}
			return handles
		},
		Style: func(*doodle.Doodle) doodle.Style {
			return doodle.Style{Fill: "#a0a0a0", Stroke: "#404040", LineWidth: 2}
		},
		Describe: func(d *doodle.Doodle) string {
			width := d.Arc() * incisionOuter / unitsPerMM
			return fmt.Sprintf("%.1f mm phako incision at %d o'clock", width, clockHour(d.Rotation()))
		},
		Code:    "Z98.41",
		Tooltip: "Phako incision",
	}
}
