package detect

import "gocv.io/x/gocv"

// SharpnessConfig tunes the blur classifier.
type SharpnessConfig struct {
	// BlurThreshold is the Laplacian-variance cutoff below which the image
	// counts as blurry. The softer needs-improvement cutoff sits at 1.5x.
	BlurThreshold float64
}

func DefaultSharpnessConfig() SharpnessConfig {
	return SharpnessConfig{BlurThreshold: 100.0}
}

// Sharpness classifies blur severity from the variance of the Laplacian
// response. Low variance means little high-frequency content, i.e. blur.
func Sharpness(path string, cfg SharpnessConfig) Result {
	gray, err := readGray(path)
	if err != nil {
		return Result{
			Passed: false,
			Score:  0,
			Details: map[string]interface{}{
				"is_blurry":         true,
				"blur_score":        0.0,
				"needs_improvement": true,
			},
			Err: err.Error(),
		}
	}
	defer gray.Close()

	rawMean := gocv.NewMat()
	defer rawMean.Close()
	rawStd := gocv.NewMat()
	defer rawStd.Close()
	gocv.MeanStdDev(gray, &rawMean, &rawStd)

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)

	sd := stddev.GetDoubleAt(0, 0)
	variance := sd * sd

	// A near-uniform page (blank or solid) carries no detail to blur; the
	// Laplacian variance is meaningless there and must not flag it.
	blank := rawStd.GetDoubleAt(0, 0) < 1.0

	isBlurry := !blank && variance < cfg.BlurThreshold
	needsImprovement := !blank && variance < cfg.BlurThreshold*1.5

	confidence := clamp01(variance / (cfg.BlurThreshold * 1.5))
	if blank {
		confidence = 1
	}

	return Result{
		Passed:     !isBlurry,
		Score:      variance,
		Confidence: confidence,
		Details: map[string]interface{}{
			"is_blurry":         isBlurry,
			"blur_score":        variance,
			"needs_improvement": needsImprovement,
			"threshold":         cfg.BlurThreshold,
		},
	}
}
