package orient

import (
	"context"
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

// LineConfig tunes the dominant-line geometry fallback.
type LineConfig struct {
	// CannyLow and CannyHigh are the edge detector's hysteresis thresholds.
	CannyLow  float32
	CannyHigh float32
	// HoughThreshold is the accumulator vote floor for a detected segment.
	HoughThreshold int
	// MinLineLengthPct is the minimum segment length as a fraction of the
	// image's smaller dimension.
	MinLineLengthPct float64
	// MaxLineGap is the largest pixel gap bridged within one segment.
	MaxLineGap float32
	// HorizontalMaxDeg classifies segments at most this many degrees off the
	// horizontal axis as horizontal.
	HorizontalMaxDeg float64
	// VerticalMinDeg classifies segments at least this many degrees off the
	// horizontal axis as vertical.
	VerticalMinDeg float64
}

// DefaultLineConfig returns thresholds tuned for ruled answer sheets, where
// upright pages carry long horizontal rules.
func DefaultLineConfig() LineConfig {
	return LineConfig{
		CannyLow:         50,
		CannyHigh:        150,
		HoughThreshold:   80,
		MinLineLengthPct: 0.15,
		MaxLineGap:       10,
		HorizontalMaxDeg: 15,
		VerticalMinDeg:   75,
	}
}

type lineCounts struct {
	horizontal int
	vertical   int
}

// lineSignal decides orientation from the dominant direction of detected
// line segments. Sideways pages show vertical rules; the signal probes both
// quarter turns and keeps the one that restores horizontal dominance.
type lineSignal struct {
	cfg LineConfig
}

func (lineSignal) Name() string { return "lines" }

func (s lineSignal) Detect(ctx context.Context, path string) (Decision, error) {
	gray := gocv.IMRead(path, gocv.IMReadGrayScale)
	if gray.Empty() {
		return Decision{}, fmt.Errorf("cannot read image %s", path)
	}
	defer gray.Close()

	base := s.count(gray)
	if base.horizontal == 0 && base.vertical == 0 {
		return Decision{}, nil
	}
	if base.vertical <= base.horizontal {
		return Decision{Conclusive: true, Source: "lines"}, nil
	}

	cw := gocv.NewMat()
	defer cw.Close()
	gocv.Rotate(gray, &cw, gocv.Rotate90Clockwise)
	cwCounts := s.count(cw)

	ccw := gocv.NewMat()
	defer ccw.Close()
	gocv.Rotate(gray, &ccw, gocv.Rotate90CounterClockwise)
	ccwCounts := s.count(ccw)

	rotation := 90
	chosen := cwCounts
	if ccwCounts.horizontal > cwCounts.horizontal ||
		(ccwCounts.horizontal == cwCounts.horizontal && ccwCounts.vertical < cwCounts.vertical) {
		rotation = 270
		chosen = ccwCounts
	}
	// Rotate only when the quarter turn actually restores horizontal
	// dominance over the input.
	if chosen.horizontal <= base.horizontal {
		return Decision{Conclusive: true, Source: "lines"}, nil
	}
	return Decision{Conclusive: true, Rotation: rotation, Source: "lines"}, nil
}

// count detects segments in gray and classifies them by angle.
func (s lineSignal) count(gray gocv.Mat) lineCounts {
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, s.cfg.CannyLow, s.cfg.CannyHigh)

	minDim := gray.Rows()
	if gray.Cols() < minDim {
		minDim = gray.Cols()
	}
	minLen := float32(s.cfg.MinLineLengthPct * float64(minDim))

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines, 1, math.Pi/180, s.cfg.HoughThreshold, minLen, s.cfg.MaxLineGap)

	var counts lineCounts
	for i := 0; i < lines.Rows(); i++ {
		seg := lines.GetVeciAt(i, 0)
		dx := math.Abs(float64(seg[2] - seg[0]))
		dy := math.Abs(float64(seg[3] - seg[1]))
		angle := math.Atan2(dy, dx) * 180 / math.Pi
		switch {
		case angle < s.cfg.HorizontalMaxDeg:
			counts.horizontal++
		case angle > s.cfg.VerticalMinDeg:
			counts.vertical++
		}
	}
	return counts
}
