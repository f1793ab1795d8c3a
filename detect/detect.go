// Package detect implements the read-only quality and layout checks for a
// single scanned page: sharpness, edge completeness, document borders, and
// two-page layout. Every detector returns exactly one Result and never
// propagates a failure to the caller; unreadable input degrades to the
// worst-case classification with the error recorded on the Result.
package detect

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Result is the uniform outcome of one detector run.
type Result struct {
	Passed     bool                   `json:"passed"`
	Score      float64                `json:"score"`
	Confidence float64                `json:"confidence"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        string                 `json:"error,omitempty"`
}

// Direction of a proposed page split.
type Direction string

const (
	SplitVertical   Direction = "vertical"
	SplitHorizontal Direction = "horizontal"
	SplitNone       Direction = "none"
)

// SplitInfo describes a detected two-page layout. Position is an offset in
// original-image pixels along the split axis; it is always set when
// IsTwoPages is true.
type SplitInfo struct {
	IsTwoPages bool      `json:"is_two_pages"`
	Direction  Direction `json:"split_direction"`
	Position   int       `json:"split_position,omitempty"`
	Confidence float64   `json:"confidence"`
}

func readGray(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("cannot read image %s", path)
	}
	return img, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
