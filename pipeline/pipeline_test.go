package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/purushottampradhan001-creator/answer-sheet-scan/raster"
)

// writeTwoPageScan draws two text-like striped blocks separated by a 5% white
// gutter at the center of the longer axis.
func writeTwoPageScan(t *testing.T, name string, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	vertical := w >= h
	gutter := w / 20
	if !vertical {
		gutter = h / 20
	}
	insetX, insetY := w/10, h/10
	inBlock := func(x, y int) bool {
		if x < insetX || x >= w-insetX || y < insetY || y >= h-insetY {
			return false
		}
		if vertical {
			return x < w/2-gutter/2 || x >= w/2+gutter/2
		}
		return y < h/2-gutter/2 || y >= h/2+gutter/2
	}
	for y := insetY; y < h-insetY; y++ {
		if y%12 >= 4 {
			continue
		}
		for x := insetX; x < w-insetX; x++ {
			if inBlock(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return path
}

func writeWhitePage(t *testing.T, name string, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return path
}

func hasFix(report Report, fix string) bool {
	for _, f := range report.FixesApplied {
		if f == fix {
			return true
		}
	}
	return false
}

func TestProcessSplitsTwoPageScan(t *testing.T) {
	path := writeTwoPageScan(t, "scan.png", 400, 300)
	p := New(DefaultConfig())

	report, err := p.Process(context.Background(), path, "", true)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !report.Split.IsTwoPages {
		t.Fatalf("two pages not detected: %+v", report.Split)
	}
	if report.Split.Direction != "vertical" {
		t.Fatalf("split direction = %q, want vertical", report.Split.Direction)
	}
	if len(report.SplitImages) != 2 {
		t.Fatalf("split images = %v, want 2 paths", report.SplitImages)
	}
	if !hasFix(report, "split") {
		t.Fatalf("fixes = %v, want split marker", report.FixesApplied)
	}
	if hasFix(report, "rotation") {
		t.Fatalf("upright scan must not be rotated: %v", report.FixesApplied)
	}
	if !report.NeedsAttention {
		t.Fatal("two-page scan must need attention")
	}

	var total int
	for _, page := range report.SplitImages {
		info, err := raster.Probe(page)
		if err != nil {
			t.Fatalf("Probe(%s) error = %v", page, err)
		}
		total += info.Width
	}
	if want := 400 - 2*3; total != want {
		t.Fatalf("combined page width = %d, want %d", total, want)
	}
}

func TestProcessObserveOnlyRaisesWarningsWithoutFixes(t *testing.T) {
	path := writeTwoPageScan(t, "scan.png", 400, 300)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	p := New(DefaultConfig())

	report, err := p.Process(context.Background(), path, "", false)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(report.FixesApplied) != 0 || len(report.SplitImages) != 0 {
		t.Fatalf("observe-only run mutated: fixes=%v splits=%v", report.FixesApplied, report.SplitImages)
	}
	if !report.NeedsAttention || len(report.Warnings) == 0 {
		t.Fatal("quality warnings must surface without auto-fix")
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reread fixture: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("observe-only run rewrote the image")
	}
}

func TestProcessSkipsTwoPageCheckForSplitChild(t *testing.T) {
	path := writeTwoPageScan(t, "scan_page1.png", 400, 300)
	p := New(DefaultConfig())

	report, err := p.Process(context.Background(), path, "", true)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if _, ran := report.Checks["two_pages"]; ran {
		t.Fatal("two-page check must not run on a split child")
	}
	if report.Split.IsTwoPages || len(report.SplitImages) != 0 {
		t.Fatalf("split child was split again: %+v", report)
	}
}

func TestProcessWritesToOutputPath(t *testing.T) {
	path := writeTwoPageScan(t, "scan.png", 400, 300)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	out := filepath.Join(filepath.Dir(path), "staged.png")
	p := New(DefaultConfig())

	report, err := p.Process(context.Background(), path, out, true)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if report.ProcessedImagePath != out {
		t.Fatalf("processed path = %q, want %q", report.ProcessedImagePath, out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("staged output missing: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reread source: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("source image was modified despite output path")
	}
}

func TestCheckDoesNotMutate(t *testing.T) {
	path := writeTwoPageScan(t, "scan.png", 400, 300)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	p := New(DefaultConfig())

	report, err := p.Check(context.Background(), path)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(report.FixesApplied) != 0 {
		t.Fatalf("check applied fixes: %v", report.FixesApplied)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reread fixture: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("check mutated the image")
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	path := writeTwoPageScan(t, "scan.png", 400, 300)
	p := New(DefaultConfig())

	first, err := p.Check(context.Background(), path)
	if err != nil {
		t.Fatalf("first Check() error = %v", err)
	}
	second, err := p.Check(context.Background(), path)
	if err != nil {
		t.Fatalf("second Check() error = %v", err)
	}
	if !reflect.DeepEqual(first.Checks, second.Checks) {
		t.Fatalf("check results drifted:\nfirst:  %+v\nsecond: %+v", first.Checks, second.Checks)
	}
	if !reflect.DeepEqual(first.Split, second.Split) {
		t.Fatalf("split verdict drifted: %+v vs %+v", first.Split, second.Split)
	}
}

func TestCheckAllWhitePage(t *testing.T) {
	path := writeWhitePage(t, "blank.png", 300, 300)
	p := New(DefaultConfig())

	report, err := p.Check(context.Background(), path)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	sharp := report.Checks["sharpness"]
	if blurry, _ := sharp.Details["is_blurry"].(bool); blurry {
		t.Fatal("blank page flagged as blurry")
	}
	if borders := report.Checks["borders"]; borders.Confidence > 0.01 {
		t.Fatalf("blank page border confidence = %v, want about 0", borders.Confidence)
	}
	if borders := report.Checks["borders"]; borders.Err != "" {
		t.Fatalf("blank page border check errored: %s", borders.Err)
	}
	for _, w := range report.Warnings {
		if strings.Contains(w, "inspect.borders") {
			t.Fatalf("blank page degraded the border stage: %q", w)
		}
	}
}

func TestCheckWarningOrderIsStable(t *testing.T) {
	// Not an image, so every detector degrades.
	path := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(path, []byte("not a raster"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := New(DefaultConfig())

	first, err := p.Check(context.Background(), path)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	wantOrder := []string{"inspect.sharpness", "inspect.edges", "inspect.borders", "inspect.two_pages"}
	if len(first.Warnings) != len(wantOrder) {
		t.Fatalf("expected %d degraded stages, got warnings %v", len(wantOrder), first.Warnings)
	}
	for i, w := range first.Warnings {
		if !strings.HasPrefix(w, wantOrder[i]) {
			t.Fatalf("warning %d = %q, want prefix %q", i, w, wantOrder[i])
		}
	}

	second, err := p.Check(context.Background(), path)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !reflect.DeepEqual(first.Warnings, second.Warnings) {
		t.Fatalf("warning order drifted between runs:\n%v\n%v", first.Warnings, second.Warnings)
	}
}

func TestProcessValidatesCallerInput(t *testing.T) {
	p := New(DefaultConfig())
	if _, err := p.Process(context.Background(), "", "", true); err == nil {
		t.Fatal("empty path must error")
	}
	if _, err := p.Process(context.Background(), filepath.Join(t.TempDir(), "gone.png"), "", true); err == nil {
		t.Fatal("missing file must error")
	}
	if _, err := p.Check(context.Background(), ""); err == nil {
		t.Fatal("empty path must error on check")
	}
}

func TestRemoveOcclusionsReturnsWorkingPath(t *testing.T) {
	path := writeTwoPageScan(t, "scan.png", 400, 300)
	out := filepath.Join(filepath.Dir(path), "clean.png")
	p := New(DefaultConfig())

	got, err := p.RemoveOcclusions(context.Background(), path, out)
	if err != nil {
		t.Fatalf("RemoveOcclusions() error = %v", err)
	}
	if got != out {
		t.Fatalf("returned path = %q, want %q", got, out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("cleaned output missing: %v", err)
	}
}
