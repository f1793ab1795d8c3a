// Package pipeline sequences the per-scan checks and corrections: rotation
// normalization, quality inspection, two-page splitting, occlusion removal,
// and border cropping, aggregated into one Report per image. Stages fail
// soft; a broken detector degrades its own result and the run continues.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"github.com/purushottampradhan001-creator/answer-sheet-scan/clean"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/detect"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/observability"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/orient"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/raster"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/recovery"
)

// Config assembles a Processor. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	Sharpness detect.SharpnessConfig
	Edges     detect.EdgeConfig
	Border    detect.BorderConfig
	TwoPage   detect.TwoPageConfig
	Sticker   clean.StickerConfig
	Finger    clean.FingerConfig
	Orient    orient.Config

	// SplitMarginPct is the safety margin dropped on each side of a split
	// cut, as a fraction of the image's smaller dimension.
	SplitMarginPct float64
	// CropConfidence is the border-detection confidence above which the
	// proposed crop is applied.
	CropConfidence float64

	Logger   observability.Logger
	Tracer   observability.Tracer
	Recovery recovery.Strategy
}

// DefaultConfig returns the standard stack: lenient recovery, silent
// observability, and every detector on its default thresholds.
func DefaultConfig() Config {
	return Config{
		Sharpness:      detect.DefaultSharpnessConfig(),
		Edges:          detect.DefaultEdgeConfig(),
		Border:         detect.DefaultBorderConfig(),
		TwoPage:        detect.DefaultTwoPageConfig(),
		Sticker:        clean.DefaultStickerConfig(),
		Finger:         clean.DefaultFingerConfig(),
		Orient:         orient.DefaultConfig(),
		SplitMarginPct: 0.01,
		CropConfidence: 0.5,
		Logger:         observability.NopLogger{},
		Tracer:         observability.NopTracer(),
		Recovery:       recovery.NewLenientStrategy(),
	}
}

// Processor runs the scan pipeline. It holds no per-image state; one
// Processor serves any number of images, one goroutine at a time per image.
type Processor struct {
	cfg        Config
	normalizer *orient.Normalizer
	log        observability.Logger
	tracer     observability.Tracer
	recovery   recovery.Strategy
}

// New constructs a Processor, filling unset ambient components with no-ops
// and the lenient recovery strategy.
func New(cfg Config) *Processor {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NopTracer()
	}
	if cfg.Recovery == nil {
		cfg.Recovery = recovery.NewLenientStrategy()
	}
	if cfg.Orient.Logger == nil {
		cfg.Orient.Logger = cfg.Logger
	}
	return &Processor{
		cfg:        cfg,
		normalizer: orient.NewNormalizer(cfg.Orient),
		log:        cfg.Logger,
		tracer:     cfg.Tracer,
		recovery:   cfg.Recovery,
	}
}

// Check runs every detector against path without mutating anything.
func (p *Processor) Check(ctx context.Context, path string) (Report, error) {
	if err := validateInput(path); err != nil {
		return Report{}, err
	}
	ctx, span := p.tracer.StartSpan(ctx, "pipeline.check")
	defer span.Finish()

	report := newReport(path, path)
	p.probeInfo(&report)
	p.inspect(ctx, path, &report)
	return report, nil
}

// Process runs the full state machine against path. With outputPath set, the
// source is copied there first and all fixes land on the copy. With autoFix
// false the run is observation only, but quality warnings are still raised.
func (p *Processor) Process(ctx context.Context, path, outputPath string, autoFix bool) (Report, error) {
	if err := validateInput(path); err != nil {
		return Report{}, err
	}
	ctx, span := p.tracer.StartSpan(ctx, "pipeline.process")
	defer span.Finish()
	start := time.Now()

	working := path
	if outputPath != "" && outputPath != path {
		if err := copyFile(path, outputPath); err != nil {
			return Report{}, fmt.Errorf("stage working copy: %w", err)
		}
		working = outputPath
	}
	report := newReport(path, working)
	p.probeInfo(&report)

	// rotate
	if autoFix {
		rotStart := time.Now()
		rotated, err := p.normalizer.Normalize(ctx, working)
		if err != nil {
			if p.failSoft(ctx, &report, "rotate", working, err) {
				return report, err
			}
		} else if rotated {
			report.fixed("rotation")
		}
		p.log.Debug("rotate stage done",
			observability.Float64(observability.MetricRotateTime, time.Since(rotStart).Seconds()))
	}

	// inspect
	cropRect := p.inspect(ctx, working, &report)

	// split?
	if autoFix && report.Split.IsTwoPages {
		pages, err := Split(working, filepath.Dir(working), report.Split, p.cfg.SplitMarginPct)
		if err != nil {
			if p.failSoft(ctx, &report, "split", working, err) {
				return report, err
			}
		} else {
			report.SplitImages = pages
			report.fixed("split")
			span.SetTag(observability.MetricSplitCount, len(pages))
		}
	}

	// deobject
	if autoFix {
		deobjStart := time.Now()
		if abort := p.deobject(ctx, working, &report); abort {
			return report, errors.New("occlusion removal failed")
		}
		p.log.Debug("deobject stage done",
			observability.Float64(observability.MetricDeobjectTime, time.Since(deobjStart).Seconds()))
	}

	// crop?
	if autoFix {
		if res, ok := report.Checks["borders"]; ok && res.Err == "" && res.Confidence > p.cfg.CropConfidence {
			if err := cropTo(working, cropRect); err != nil {
				if p.failSoft(ctx, &report, "crop", working, err) {
					return report, err
				}
			} else {
				report.fixed("border_crop")
			}
		}
	}

	span.SetTag(observability.MetricFixCount, len(report.FixesApplied))
	p.log.Info("scan processed",
		observability.String("path", path),
		observability.Int("fixes", len(report.FixesApplied)),
		observability.Bool("needs_attention", report.NeedsAttention),
		observability.Float64(observability.MetricProcessTime, time.Since(start).Seconds()))
	return report, nil
}

// RemoveOcclusions runs the sticker pass then the finger pass and returns the
// path holding the cleaned image. With outputPath empty the fixes land in
// place.
func (p *Processor) RemoveOcclusions(ctx context.Context, path, outputPath string) (string, error) {
	if err := validateInput(path); err != nil {
		return "", err
	}
	_, span := p.tracer.StartSpan(ctx, "pipeline.deobject")
	defer span.Finish()

	working := path
	if outputPath != "" && outputPath != path {
		if err := copyFile(path, outputPath); err != nil {
			return "", fmt.Errorf("stage working copy: %w", err)
		}
		working = outputPath
	}
	if _, _, err := clean.RemoveStickers(working, "", p.cfg.Sticker); err != nil {
		return "", fmt.Errorf("sticker pass: %w", err)
	}
	if _, _, err := clean.RemoveFingers(working, "", p.cfg.Finger); err != nil {
		return "", fmt.Errorf("finger pass: %w", err)
	}
	return working, nil
}

// inspect fills report.Checks and the attention flags. The returned rectangle
// is the border detector's crop proposal.
func (p *Processor) inspect(ctx context.Context, path string, report *Report) image.Rectangle {
	start := time.Now()

	sharp := detect.Sharpness(path, p.cfg.Sharpness)
	report.Checks["sharpness"] = sharp
	if blurry, _ := sharp.Details["is_blurry"].(bool); blurry {
		report.NeedsAttention = true
		report.warn("image appears blurry")
	}

	report.Checks["edges"] = detect.EdgeCompleteness(path, p.cfg.Edges)

	borderRes, rect := detect.Borders(path, p.cfg.Border)
	report.Checks["borders"] = borderRes

	if IsSplitChild(path) {
		report.note("split page, two-page check skipped")
	} else {
		tpRes, info := detect.TwoPages(path, p.cfg.TwoPage)
		report.Checks["two_pages"] = tpRes
		report.Split = info
		if info.IsTwoPages {
			report.NeedsAttention = true
			report.warn("scan contains two pages")
		}
	}

	// Fixed order keeps the warning list stable across runs.
	for _, name := range []string{"sharpness", "edges", "borders", "two_pages"} {
		if res, ok := report.Checks[name]; ok && res.Err != "" {
			p.failSoft(ctx, report, "inspect."+name, path, errors.New(res.Err))
		}
	}
	p.log.Debug("inspect stage done",
		observability.Float64(observability.MetricInspectTime, time.Since(start).Seconds()))
	return rect
}

// deobject runs both occlusion passes in place, recording a fix marker per
// pass that mutated the image. Returns true only when the strategy demands an
// abort.
func (p *Processor) deobject(ctx context.Context, path string, report *Report) bool {
	if _, changed, err := clean.RemoveStickers(path, "", p.cfg.Sticker); err != nil {
		if p.failSoft(ctx, report, "deobject.sticker", path, err) {
			return true
		}
	} else if changed {
		report.fixed("sticker_removal")
	}
	if _, changed, err := clean.RemoveFingers(path, "", p.cfg.Finger); err != nil {
		if p.failSoft(ctx, report, "deobject.finger", path, err) {
			return true
		}
	} else if changed {
		report.fixed("finger_removal")
	}
	return false
}

// probeInfo records intrinsic image facts; a probe failure is only a note
// since the detectors re-validate readability themselves.
func (p *Processor) probeInfo(report *Report) {
	info, err := raster.Probe(report.SourcePath)
	if err != nil {
		report.note(fmt.Sprintf("probe: %v", err))
		return
	}
	report.ImageInfo = info
}

// failSoft routes a stage error through the recovery strategy. It returns
// true when the strategy demands a hard stop; otherwise the error is
// downgraded to a report warning.
func (p *Processor) failSoft(ctx context.Context, report *Report, stage, path string, err error) bool {
	action := p.recovery.OnError(ctx, err, recovery.Location{Stage: stage, ImagePath: path})
	if action == recovery.ActionFail {
		return true
	}
	report.warn(fmt.Sprintf("%s: %v", stage, err))
	p.log.Warn("stage degraded",
		observability.String("stage", stage),
		observability.String("path", path),
		observability.Error("error", err),
		observability.Int(observability.MetricStageFailures, 1))
	return false
}

func validateInput(path string) error {
	if path == "" {
		return errors.New("image path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("input image: %w", err)
	}
	return nil
}

func cropTo(path string, rect image.Rectangle) error {
	if rect.Empty() {
		return fmt.Errorf("empty crop rectangle for %s", path)
	}
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return fmt.Errorf("cannot read image %s", path)
	}
	defer img.Close()

	bounded := rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if bounded.Empty() {
		return fmt.Errorf("crop rectangle outside image %s", path)
	}
	region := img.Region(bounded)
	defer region.Close()
	if ok := gocv.IMWrite(path, region); !ok {
		return fmt.Errorf("cannot write %s", path)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
