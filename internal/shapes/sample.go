package shapes

import (
	"math"

	"github.com/eyedraw/eyedraw/backend-go/internal/document"
)

// SampleScene returns a small fundus drawing used for demos and new sessions.
func SampleScene() []document.Record {
	return []document.Record{
		{ClassName: Fundus, Parameters: map[string]any{}},
		{ClassName: RetinalDetachment, Parameters: map[string]any{
			"rotation": math.Pi / 4,
			"arc":      math.Pi / 2,
			"apexX":    0.0,
			"apexY":    -150.0,
		}},
		{ClassName: BlotHaemorrhage, Parameters: map[string]any{
			"originX": -180.0,
			"originY": 120.0,
			"scaleX":  1.0,
			"scaleY":  1.0,
		}},
		{ClassName: Microaneurysm, Parameters: map[string]any{
			"originX": 60.0,
			"originY": 200.0,
		}},
	}
}
