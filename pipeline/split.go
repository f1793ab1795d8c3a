package pipeline

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/purushottampradhan001-creator/answer-sheet-scan/detect"
)

const (
	pageOneSuffix = "_page1"
	pageTwoSuffix = "_page2"
)

// IsSplitChild reports whether path names an image produced by Split. Split
// children are never considered for splitting again, which stops a detected
// gutter from cascading into quarter pages.
func IsSplitChild(path string) bool {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.HasSuffix(base, pageOneSuffix) || strings.HasSuffix(base, pageTwoSuffix)
}

// splitOutputPaths returns the two deterministic child paths for a source
// image, keeping its extension.
func splitOutputPaths(path, outputDir string) (string, string) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(outputDir, base+pageOneSuffix+ext),
		filepath.Join(outputDir, base+pageTwoSuffix+ext)
}

// Split cuts a two-page scan into its pages at the detected gap, dropping a
// safety margin on both sides of the cut. The margin is marginPct of the
// image's smaller dimension.
//
// Split is write-once idempotent: when both child files already exist they
// are returned untouched, so repeated invocations for the same source cannot
// clobber earlier output.
func Split(path, outputDir string, info detect.SplitInfo, marginPct float64) ([]string, error) {
	if !info.IsTwoPages || info.Direction == detect.SplitNone {
		return nil, fmt.Errorf("no two-page layout to split in %s", path)
	}
	if IsSplitChild(path) {
		return nil, fmt.Errorf("%s is already a split page", path)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(path)
	}

	page1, page2 := splitOutputPaths(path, outputDir)
	if fileExists(page1) && fileExists(page2) {
		return []string{page1, page2}, nil
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("cannot read image %s", path)
	}
	defer img.Close()

	w, h := img.Cols(), img.Rows()
	minDim := w
	if h < minDim {
		minDim = h
	}
	margin := int(marginPct * float64(minDim))

	var r1, r2 image.Rectangle
	switch info.Direction {
	case detect.SplitVertical:
		pos := clampInt(info.Position, margin+1, w-margin-1)
		r1 = image.Rect(0, 0, pos-margin, h)
		r2 = image.Rect(pos+margin, 0, w, h)
	case detect.SplitHorizontal:
		pos := clampInt(info.Position, margin+1, h-margin-1)
		r1 = image.Rect(0, 0, w, pos-margin)
		r2 = image.Rect(0, pos+margin, w, h)
	default:
		return nil, fmt.Errorf("unknown split direction %q", info.Direction)
	}

	if err := writeRegion(img, r1, page1); err != nil {
		return nil, err
	}
	if err := writeRegion(img, r2, page2); err != nil {
		os.Remove(page1)
		return nil, err
	}
	return []string{page1, page2}, nil
}

func writeRegion(img gocv.Mat, rect image.Rectangle, path string) error {
	region := img.Region(rect)
	defer region.Close()
	if ok := gocv.IMWrite(path, region); !ok {
		return fmt.Errorf("cannot write %s", path)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
