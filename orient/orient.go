// Package orient normalizes the rotation of scanned pages. Three ordered
// signals are consulted and the first conclusive one wins: embedded
// orientation metadata, an optional OCR confidence probe, and dominant-line
// geometry as the last resort.
package orient

import (
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/purushottampradhan001-creator/answer-sheet-scan/observability"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/ocr"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/raster"
)

// Decision is one signal's verdict on how to bring a page upright. Mirror is
// applied before Rotation; only metadata produces mirrored decisions.
type Decision struct {
	// Conclusive reports whether the signal could decide at all. An
	// inconclusive decision passes control to the next signal.
	Conclusive bool
	// Rotation is the clockwise correction in degrees, one of 0/90/180/270.
	Rotation int
	// Mirror requests a horizontal flip before rotating.
	Mirror bool
	// Source names the signal that produced the decision.
	Source string
}

// isIdentity reports whether applying the decision would change the image.
func (d Decision) isIdentity() bool { return d.Rotation == 0 && !d.Mirror }

// Signal inspects an image file and proposes an orientation correction.
type Signal interface {
	Name() string
	Detect(ctx context.Context, path string) (Decision, error)
}

// Config assembles a Normalizer.
type Config struct {
	// Engine is the optional OCR provider for the second signal. Nil disables
	// the OCR probe entirely.
	Engine ocr.Engine
	// OCR bounds the OCR probe's conclusiveness.
	OCR ocr.OrientationConfig
	// Lines tunes the geometry fallback.
	Lines LineConfig
	// Logger receives per-signal trace output. Nil means silent.
	Logger observability.Logger
}

// DefaultConfig returns a Normalizer configuration without an OCR engine.
func DefaultConfig() Config {
	return Config{
		OCR:    ocr.DefaultOrientationConfig(),
		Lines:  DefaultLineConfig(),
		Logger: observability.NopLogger{},
	}
}

// Normalizer applies the first conclusive signal's correction in place.
type Normalizer struct {
	signals []Signal
	log     observability.Logger
}

// NewNormalizer wires the standard signal order: metadata, OCR, line geometry.
func NewNormalizer(cfg Config) *Normalizer {
	log := cfg.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	signals := []Signal{metadataSignal{}}
	if cfg.Engine != nil {
		signals = append(signals, ocrSignal{engine: cfg.Engine, cfg: cfg.OCR})
	}
	signals = append(signals, lineSignal{cfg: cfg.Lines})
	return &Normalizer{signals: signals, log: log}
}

// Normalize rewrites path upright and reports whether any correction was
// applied. Signals are tried in order; the first conclusive one decides, even
// when its decision is the identity.
func (n *Normalizer) Normalize(ctx context.Context, path string) (bool, error) {
	for _, sig := range n.signals {
		decision, err := sig.Detect(ctx, path)
		if err != nil {
			return false, fmt.Errorf("orientation signal %s: %w", sig.Name(), err)
		}
		if !decision.Conclusive {
			continue
		}
		n.log.Debug("orientation decided",
			observability.String("source", decision.Source),
			observability.Int("rotation", decision.Rotation),
			observability.Bool("mirror", decision.Mirror),
			observability.String("path", path))
		if decision.isIdentity() {
			return false, nil
		}
		if err := applyDecision(path, decision); err != nil {
			return false, fmt.Errorf("apply orientation fix: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// applyDecision rewrites the file with the correction applied. Saving through
// the raster layer re-encodes the image, which also drops the stale
// orientation tag so the fix cannot be applied twice.
func applyDecision(path string, d Decision) error {
	img, err := raster.Load(path)
	if err != nil {
		return err
	}
	out := img
	if d.Mirror {
		out = imaging.FlipH(out)
	}
	switch d.Rotation {
	case 90:
		out = imaging.Rotate270(out)
	case 180:
		out = imaging.Rotate180(out)
	case 270:
		out = imaging.Rotate90(out)
	}
	return raster.Save(out, path)
}

// metadataSignal reads the format-embedded orientation tag.
type metadataSignal struct{}

func (metadataSignal) Name() string { return "metadata" }

func (metadataSignal) Detect(ctx context.Context, path string) (Decision, error) {
	o, ok := raster.EXIFOrientation(path)
	if !ok {
		return Decision{}, nil
	}
	d, known := decisionForEXIF(o)
	if !known {
		return Decision{}, nil
	}
	d.Conclusive = true
	d.Source = "metadata"
	return d, nil
}

// decisionForEXIF maps the eight tag values to the correction that restores
// the upright view. Values 2/4/5/7 are mirrored variants.
func decisionForEXIF(o int) (Decision, bool) {
	switch o {
	case 1:
		return Decision{}, true
	case 2:
		return Decision{Mirror: true}, true
	case 3:
		return Decision{Rotation: 180}, true
	case 4:
		return Decision{Mirror: true, Rotation: 180}, true
	case 5:
		return Decision{Mirror: true, Rotation: 270}, true
	case 6:
		return Decision{Rotation: 90}, true
	case 7:
		return Decision{Mirror: true, Rotation: 90}, true
	case 8:
		return Decision{Rotation: 270}, true
	default:
		return Decision{}, false
	}
}

// ocrSignal probes the four axis-aligned rotations with the configured engine.
type ocrSignal struct {
	engine ocr.Engine
	cfg    ocr.OrientationConfig
}

func (ocrSignal) Name() string { return "ocr" }

func (s ocrSignal) Detect(ctx context.Context, path string) (Decision, error) {
	img, err := raster.Load(path)
	if err != nil {
		return Decision{}, err
	}
	rot, ok, err := ocr.EstimateOrientation(ctx, s.engine, img, s.cfg)
	if err != nil {
		// A broken OCR runtime degrades to the next signal instead of
		// failing the whole normalization.
		return Decision{}, nil
	}
	if !ok {
		return Decision{}, nil
	}
	return Decision{Conclusive: true, Rotation: int(rot), Source: "ocr"}, nil
}
