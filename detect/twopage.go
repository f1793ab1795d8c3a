package detect

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// TwoPageConfig carries the empirically tuned two-page thresholds. These are
// configuration, not contract; tests read them from here instead of
// restating the literals.
type TwoPageConfig struct {
	// BorderCropPct trims each side before analysis so scanner-bed
	// artifacts cannot masquerade as a gap.
	BorderCropPct float64
	// DensityThreshold is the maximum normalized ink density inside a
	// candidate gutter run.
	DensityThreshold float64
	// GradientThreshold qualifies the fallback projection-derivative
	// discontinuity.
	GradientThreshold float64
	// CenterWindowPct bounds how far from the image center (as a fraction
	// of the half-dimension) a candidate may sit.
	CenterWindowPct float64
	// MinGapWidthPct is the minimum gutter width as a fraction of the
	// dimension being split.
	MinGapWidthPct float64
	// TallAspect is the height/width ratio above which a stacked layout is
	// assumed and horizontal splits win ties.
	TallAspect float64
}

func DefaultTwoPageConfig() TwoPageConfig {
	return TwoPageConfig{
		BorderCropPct:     0.06,
		DensityThreshold:  0.15,
		GradientThreshold: 0.35,
		CenterWindowPct:   0.30,
		MinGapWidthPct:    0.04,
		TallAspect:        1.4,
	}
}

type gapCandidate struct {
	ok         bool
	position   int
	width      int
	confidence float64
	fallback   bool
}

// TwoPages decides whether the scan contains two physical pages by looking
// for a low-ink gutter near the center of either axis, falling back to the
// steepest projection discontinuity when no gutter qualifies.
func TwoPages(path string, cfg TwoPageConfig) (Result, SplitInfo) {
	none := SplitInfo{Direction: SplitNone}

	gray, err := readGray(path)
	if err != nil {
		return Result{
			Passed:  false,
			Details: map[string]interface{}{"is_two_pages": false},
			Err:     err.Error(),
		}, none
	}
	defer gray.Close()

	w := gray.Cols()
	h := gray.Rows()
	cropX := int(float64(w) * cfg.BorderCropPct)
	cropY := int(float64(h) * cfg.BorderCropPct)
	inner := gray.Region(image.Rect(cropX, cropY, w-cropX, h-cropY))
	defer inner.Close()

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(inner, &bin, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(5, 5))
	defer kernel.Close()
	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(bin, &closed, gocv.MorphClose, kernel)

	vertProfile := columnDensities(closed)
	horizProfile := rowDensities(closed)

	vert := findGap(vertProfile, cfg)
	horiz := findGap(horizProfile, cfg)

	var info SplitInfo
	switch {
	case vert.ok && horiz.ok:
		if float64(h) > cfg.TallAspect*float64(w) {
			info = splitInfoFrom(horiz, SplitHorizontal, cropY)
		} else if horiz.confidence > vert.confidence {
			info = splitInfoFrom(horiz, SplitHorizontal, cropY)
		} else {
			info = splitInfoFrom(vert, SplitVertical, cropX)
		}
	case vert.ok:
		info = splitInfoFrom(vert, SplitVertical, cropX)
	case horiz.ok:
		info = splitInfoFrom(horiz, SplitHorizontal, cropY)
	default:
		info = none
	}

	return Result{
		Passed:     !info.IsTwoPages,
		Score:      info.Confidence,
		Confidence: info.Confidence,
		Details: map[string]interface{}{
			"is_two_pages":    info.IsTwoPages,
			"split_direction": string(info.Direction),
			"split_position":  info.Position,
		},
	}, info
}

func splitInfoFrom(c gapCandidate, dir Direction, offset int) SplitInfo {
	return SplitInfo{
		IsTwoPages: true,
		Direction:  dir,
		Position:   c.position + offset,
		Confidence: c.confidence,
	}
}

// columnDensities sums each column of the binarized (ink=255) image and
// normalizes to [0,1].
func columnDensities(bin gocv.Mat) []float64 {
	sums := gocv.NewMat()
	defer sums.Close()
	gocv.Reduce(bin, &sums, 0, gocv.ReduceSum, gocv.MatTypeCV64F)

	rows := float64(bin.Rows())
	out := make([]float64, bin.Cols())
	for x := range out {
		out[x] = sums.GetDoubleAt(0, x) / (255 * rows)
	}
	return out
}

func rowDensities(bin gocv.Mat) []float64 {
	sums := gocv.NewMat()
	defer sums.Close()
	gocv.Reduce(bin, &sums, 1, gocv.ReduceSum, gocv.MatTypeCV64F)

	cols := float64(bin.Cols())
	out := make([]float64, bin.Rows())
	for y := range out {
		out[y] = sums.GetDoubleAt(y, 0) / (255 * cols)
	}
	return out
}

// findGap locates the best low-density run near the profile center, or the
// steepest discontinuity when no run qualifies.
func findGap(profile []float64, cfg TwoPageConfig) gapCandidate {
	n := len(profile)
	if n == 0 {
		return gapCandidate{}
	}
	center := n / 2
	window := int(float64(center) * cfg.CenterWindowPct)
	minWidth := int(float64(n) * cfg.MinGapWidthPct)

	best := gapCandidate{}
	bestDensity := math.Inf(1)

	runStart := -1
	for i := 0; i <= n; i++ {
		inRun := i < n && profile[i] < cfg.DensityThreshold
		if inRun && runStart < 0 {
			runStart = i
		}
		if !inRun && runStart >= 0 {
			width := i - runStart
			mid := runStart + width/2
			if width > minWidth && abs(mid-center) <= window {
				mean := 0.0
				for _, v := range profile[runStart:i] {
					mean += v
				}
				mean /= float64(width)
				if mean < bestDensity {
					bestDensity = mean
					best = gapCandidate{
						ok:         true,
						position:   mid,
						width:      width,
						confidence: 0.5 + 0.5*clamp01(1-mean/cfg.DensityThreshold),
					}
				}
			}
			runStart = -1
		}
	}
	if best.ok {
		return best
	}

	// Fallback: steepest first-derivative discontinuity in the center window.
	lo := max(center-window, 1)
	hi := min(center+window, n-1)
	var steepest float64
	pos := -1
	for i := lo; i < hi; i++ {
		if d := math.Abs(profile[i] - profile[i-1]); d > steepest {
			steepest = d
			pos = i
		}
	}
	if pos < 0 || steepest < cfg.GradientThreshold {
		return gapCandidate{}
	}
	return gapCandidate{
		ok:         true,
		position:   pos,
		width:      1,
		confidence: clamp01(steepest),
		fallback:   true,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
