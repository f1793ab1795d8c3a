package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// Orientation is a clockwise rotation, in degrees, that brings a page upright.
type Orientation int

const (
	Orient0   Orientation = 0
	Orient90  Orientation = 90
	Orient180 Orientation = 180
	Orient270 Orientation = 270
)

// OrientationConfig bounds when a probe outcome counts as conclusive.
type OrientationConfig struct {
	// MinWords is the minimum recognized word count the winning rotation must
	// produce. Pages with less text than this give no usable signal.
	MinWords int
	// MinConfidence is the minimum mean word confidence, in [0,1], for the
	// winning rotation.
	MinConfidence float64
	// Languages passes language hints through to the engine.
	Languages []string
}

// DefaultOrientationConfig returns probe thresholds tuned for scanned pages.
func DefaultOrientationConfig() OrientationConfig {
	return OrientationConfig{
		MinWords:      3,
		MinConfidence: 0.50,
		Languages:     []string{"eng"},
	}
}

// EstimateOrientation probes the four axis-aligned rotations of img and
// returns the one whose recognition scores the highest mean word confidence.
// The second return value reports whether the outcome is conclusive; an
// inconclusive probe (too few words, low confidence) is not an error.
//
// Engines expose no direct orientation API, so the probe recognizes each
// candidate rotation and compares confidences. Upright wins ties.
func EstimateOrientation(ctx context.Context, engine Engine, img image.Image, cfg OrientationConfig) (Orientation, bool, error) {
	if engine == nil {
		return Orient0, false, nil
	}

	candidates := []Orientation{Orient0, Orient90, Orient180, Orient270}
	inputs := make([]Input, 0, len(candidates))
	for _, rot := range candidates {
		data, err := encodeRotated(img, rot)
		if err != nil {
			return Orient0, false, err
		}
		in := Input{
			ID:     fmt.Sprintf("probe-%d", rot),
			Image:  data,
			Format: ImageFormatPNG,
		}
		WithLanguages(cfg.Languages...)(&in)
		inputs = append(inputs, in)
	}

	results, err := recognizeAll(ctx, engine, inputs)
	if err != nil {
		return Orient0, false, fmt.Errorf("orientation probe: %w", err)
	}
	if len(results) != len(candidates) {
		return Orient0, false, fmt.Errorf("orientation probe: %d results for %d rotations", len(results), len(candidates))
	}

	best := Orient0
	bestScore := results[0].MeanConfidence()
	bestWords := results[0].WordCount()
	for i := 1; i < len(results); i++ {
		if score := results[i].MeanConfidence(); score > bestScore {
			best = candidates[i]
			bestScore = score
			bestWords = results[i].WordCount()
		}
	}

	if bestWords < cfg.MinWords || bestScore < cfg.MinConfidence {
		return Orient0, false, nil
	}
	return best, true, nil
}

// encodeRotated renders img rotated clockwise by rot and encodes it as PNG.
func encodeRotated(img image.Image, rot Orientation) ([]byte, error) {
	var rotated image.Image
	switch rot {
	case Orient90:
		// imaging rotates counter-clockwise.
		rotated = imaging.Rotate270(img)
	case Orient180:
		rotated = imaging.Rotate180(img)
	case Orient270:
		rotated = imaging.Rotate90(img)
	default:
		rotated = img
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, rotated); err != nil {
		return nil, fmt.Errorf("encode rotation candidate: %w", err)
	}
	return buf.Bytes(), nil
}
