package pipeline

import (
	"github.com/purushottampradhan001-creator/answer-sheet-scan/detect"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/raster"
)

// Report aggregates everything one pipeline run learned and did. It is the
// single artifact handed back to collaborators; no stage keeps state beyond
// it.
type Report struct {
	// SourcePath is the image the caller handed in.
	SourcePath string `json:"source_path"`
	// ProcessedImagePath is where the (possibly corrected) image ended up.
	// Equal to SourcePath for in-place runs.
	ProcessedImagePath string `json:"processed_image_path"`
	// ImageInfo carries intrinsic facts probed before any mutation.
	ImageInfo raster.Info `json:"image_info"`
	// Checks maps detector name to its outcome.
	Checks map[string]detect.Result `json:"checks"`
	// Split is the two-page verdict, zero-valued for split children.
	Split detect.SplitInfo `json:"split"`
	// SplitImages lists the child paths produced by a split fix.
	SplitImages []string `json:"split_images,omitempty"`
	// FixesApplied names the corrections that actually mutated the image.
	FixesApplied []string `json:"fixes_applied,omitempty"`
	// NeedsAttention flags scans a human should look at: blur, or a
	// two-page layout. Set regardless of whether fixes ran.
	NeedsAttention bool `json:"needs_attention"`
	// Warnings collects degraded stages and quality findings.
	Warnings []string `json:"warnings,omitempty"`
	// Messages collects informational notes.
	Messages []string `json:"messages,omitempty"`
}

func newReport(source, working string) Report {
	return Report{
		SourcePath:         source,
		ProcessedImagePath: working,
		Checks:             make(map[string]detect.Result),
		Split:              detect.SplitInfo{Direction: detect.SplitNone},
	}
}

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *Report) note(msg string) {
	r.Messages = append(r.Messages, msg)
}

func (r *Report) fixed(fix string) {
	r.FixesApplied = append(r.FixesApplied, fix)
}
