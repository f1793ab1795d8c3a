package detect

import (
	"image"

	"gocv.io/x/gocv"
)

// EdgeConfig tunes the edge-completeness check.
type EdgeConfig struct {
	// MarginPct is each border strip's width as a fraction of the smaller
	// image dimension.
	MarginPct float64
	// DensityThreshold is the minimum fraction of edge-positive pixels a
	// strip needs before the side counts as present.
	DensityThreshold float64
	// CannyLow and CannyHigh are the hysteresis thresholds for the edge pass.
	CannyLow  float32
	CannyHigh float32
}

func DefaultEdgeConfig() EdgeConfig {
	return EdgeConfig{
		MarginPct:        0.05,
		DensityThreshold: 0.01,
		CannyLow:         50,
		CannyHigh:        150,
	}
}

var sideOrder = []string{"top", "bottom", "left", "right"}

// EdgeCompleteness reports whether the page looks truncated on any side by
// measuring edge density inside the four border strips. Purely diagnostic;
// nothing downstream auto-corrects a cut side.
func EdgeCompleteness(path string, cfg EdgeConfig) Result {
	gray, err := readGray(path)
	if err != nil {
		return Result{
			Passed: false,
			Details: map[string]interface{}{
				"is_cut":    true,
				"cut_sides": append([]string(nil), sideOrder...),
			},
			Err: err.Error(),
		}
	}
	defer gray.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, cfg.CannyLow, cfg.CannyHigh)

	w := gray.Cols()
	h := gray.Rows()
	margin := int(float64(min(w, h)) * cfg.MarginPct)
	if margin < 1 {
		margin = 1
	}

	densities := map[string]float64{
		"top":    stripDensity(edges, image.Rect(0, 0, w, margin)),
		"bottom": stripDensity(edges, image.Rect(0, h-margin, w, h)),
		"left":   stripDensity(edges, image.Rect(0, 0, margin, h)),
		"right":  stripDensity(edges, image.Rect(w-margin, 0, w, h)),
	}

	var cutSides []string
	for _, side := range sideOrder {
		if densities[side] < cfg.DensityThreshold {
			cutSides = append(cutSides, side)
		}
	}

	return Result{
		Passed:     len(cutSides) == 0,
		Score:      float64(len(cutSides)),
		Confidence: 1 - float64(len(cutSides))/4,
		Details: map[string]interface{}{
			"is_cut":       len(cutSides) > 0,
			"cut_sides":    cutSides,
			"edge_margins": densities,
		},
	}
}

func stripDensity(edges gocv.Mat, rect image.Rectangle) float64 {
	strip := edges.Region(rect)
	defer strip.Close()
	total := strip.Rows() * strip.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(strip)) / float64(total)
}
