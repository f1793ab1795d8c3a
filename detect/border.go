package detect

import (
	"image"

	"gocv.io/x/gocv"
)

// BorderConfig tunes the document-border search.
type BorderConfig struct {
	// Margin is the fixed pixel expansion applied to the proposed crop.
	Margin int
	// DetectConfidence is the contour-area ratio above which borders count
	// as detected. The orchestrator applies a stricter cutoff before it
	// actually crops.
	DetectConfidence float64
}

func DefaultBorderConfig() BorderConfig {
	return BorderConfig{Margin: 10, DetectConfidence: 0.3}
}

// Borders finds the document's bounding contour and proposes a crop
// rectangle expanded by the configured margin and clamped to image bounds.
// The rectangle is advisory; only the orchestrator decides whether to crop.
func Borders(path string, cfg BorderConfig) (Result, image.Rectangle) {
	gray, err := readGray(path)
	if err != nil {
		return Result{
			Passed:  false,
			Details: map[string]interface{}{"borders_detected": false},
			Err:     err.Error(),
		}, image.Rectangle{}
	}
	defer gray.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(blurred, &thresh, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 11, 2)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	// A featureless page yields no contours. That is a clean negative
	// verdict, not a detector failure.
	if contours.Size() == 0 {
		return Result{
			Passed:     false,
			Confidence: 0,
			Details:    map[string]interface{}{"borders_detected": false},
		}, image.Rectangle{}
	}

	var largestArea float64
	var bounds image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		if area := gocv.ContourArea(c); area > largestArea {
			largestArea = area
			bounds = gocv.BoundingRect(c)
		}
	}

	w := gray.Cols()
	h := gray.Rows()
	confidence := clamp01(largestArea / float64(w*h))

	crop := image.Rect(
		max(0, bounds.Min.X-cfg.Margin),
		max(0, bounds.Min.Y-cfg.Margin),
		min(w, bounds.Max.X+cfg.Margin),
		min(h, bounds.Max.Y+cfg.Margin),
	)

	detected := confidence > cfg.DetectConfidence
	return Result{
		Passed:     detected,
		Score:      largestArea,
		Confidence: confidence,
		Details: map[string]interface{}{
			"borders_detected": detected,
			"crop_coords": map[string]int{
				"x":      crop.Min.X,
				"y":      crop.Min.Y,
				"width":  crop.Dx(),
				"height": crop.Dy(),
			},
		},
	}, crop
}
