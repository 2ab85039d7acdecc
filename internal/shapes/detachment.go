package shapes

import (
	"fmt"
	"math"

	"github.com/gogpu/gg"

	"github.com/eyedraw/eyedraw/backend-go/internal/doodle"
	"github.com/eyedraw/eyedraw/backend-go/internal/geometry"
)

const detachmentRadius = 460.0

func retinalDetachment() *doodle.Definition {
	flags := doodle.DefaultFlags()
	flags.Moveable = false
	flags.Scaleable = false

	return &doodle.Definition{
		ClassName: RetinalDetachment,
		Flags:     flags,
		InFrontOf: []string{Fundus},
		Rules: map[string]doodle.Rule{
			doodle.ParamArc:   doodle.Range(math.Pi/6, 2*math.Pi, 4),
			doodle.ParamApexX: doodle.Range(0, 0, 0),
			doodle.ParamApexY: doodle.Range(-detachmentRadius, 400, 0),
		},
		Defaults: map[string]any{
			doodle.ParamArc:   2 * math.Pi / 3,
			doodle.ParamApexY: -100.0,
		},
		Saved: []string{doodle.ParamRotation, doodle.ParamArc, doodle.ParamApexX, doodle.ParamApexY},
		BuildPath: func(d *doodle.Doodle) *gg.Path {
			half := d.Arc() / 2
			p := gg.NewPath()
			arc(p, detachmentRadius, -half, half)
			p.LineTo(d.Apex().X, d.Apex().Y)
			p.Close()
			return p
		},
		Handles: func(d *doodle.Doodle) []doodle.Handle {
			half := d.Arc() / 2
			handles := make([]doodle.Handle, doodle.ApexHandle+1)
			handles[doodle.ArcHandleLeft] = doodle.Handle{
				Location: geometry.FromPolar(detachmentRadius, -half),
				Visible:  true,
				Mode:     doodle.ModeArc,
			}
			handles[doodle.ArcHandleRight] = doodle.Handle{
				Location: geometry.FromPolar(detachmentRadius, half),
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
			return doodle.Style{Fill: "#3060f080", Stroke: "#1030a0", LineWidth: 4}
		},
		Describe: func(d *doodle.Doodle) string {
			hours := clockHours(d.Arc())
			desc := fmt.Sprintf("retinal detachment of %d clock hours centred at %d o'clock", hours, clockHour(d.Rotation()))
			if d.Apex().Y > 0 {
				desc += ", macula off"
			}
			return desc
		},
		Code:    "H33.2",
		Tooltip: "Retinal detachment",
	}
}
