package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/purushottampradhan001-creator/answer-sheet-scan/detect"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/raster"
)

func TestIsSplitChild(t *testing.T) {
	cases := map[string]bool{
		"scan.png":              false,
		"scan_page1.png":        true,
		"scan_page2.png":        true,
		"/tmp/a/scan_page1.jpg": true,
		"page1.png":             false,
		"scan_page3.png":        false,
	}
	for path, want := range cases {
		if got := IsSplitChild(path); got != want {
			t.Fatalf("IsSplitChild(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestSplitVerticalWidths(t *testing.T) {
	path := writeTwoPageScan(t, "scan.png", 400, 300)
	info := detect.SplitInfo{IsTwoPages: true, Direction: detect.SplitVertical, Position: 200, Confidence: 0.9}

	pages, err := Split(path, "", info, 0.01)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	wantDir := filepath.Dir(path)
	if filepath.Dir(pages[0]) != wantDir || filepath.Dir(pages[1]) != wantDir {
		t.Fatalf("pages written outside source dir: %v", pages)
	}

	margin := 3 // 1% of the 300px dimension
	var total int
	for _, page := range pages {
		info, err := raster.Probe(page)
		if err != nil {
			t.Fatalf("Probe(%s) error = %v", page, err)
		}
		if info.Height != 300 {
			t.Fatalf("page height = %d, want 300", info.Height)
		}
		total += info.Width
	}
	if want := 400 - 2*margin; total != want {
		t.Fatalf("combined width = %d, want %d", total, want)
	}
}

func TestSplitWriteOnceIdempotence(t *testing.T) {
	path := writeTwoPageScan(t, "scan.png", 400, 300)
	info := detect.SplitInfo{IsTwoPages: true, Direction: detect.SplitVertical, Position: 200, Confidence: 0.9}

	first, err := Split(path, "", info, 0.01)
	if err != nil {
		t.Fatalf("first Split() error = %v", err)
	}
	before, err := os.ReadFile(first[0])
	if err != nil {
		t.Fatalf("read page: %v", err)
	}

	// Shift the cut; the existing outputs must still win.
	info.Position = 150
	second, err := Split(path, "", info, 0.01)
	if err != nil {
		t.Fatalf("second Split() error = %v", err)
	}
	if len(second) != 2 || second[0] != first[0] || second[1] != first[1] {
		t.Fatalf("second call returned %v, want %v", second, first)
	}
	after, err := os.ReadFile(first[0])
	if err != nil {
		t.Fatalf("reread page: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("second Split rewrote an existing page")
	}
}

func TestSplitRejectsSplitChild(t *testing.T) {
	path := writeTwoPageScan(t, "scan_page1.png", 400, 300)
	info := detect.SplitInfo{IsTwoPages: true, Direction: detect.SplitVertical, Position: 200}
	if _, err := Split(path, "", info, 0.01); err == nil {
		t.Fatal("splitting a split child must error")
	}
}

func TestSplitRejectsMissingVerdict(t *testing.T) {
	path := writeTwoPageScan(t, "scan.png", 400, 300)
	if _, err := Split(path, "", detect.SplitInfo{Direction: detect.SplitNone}, 0.01); err == nil {
		t.Fatal("splitting without a two-page verdict must error")
	}
}

func TestSplitHorizontal(t *testing.T) {
	path := writeTwoPageScan(t, "scan.png", 300, 600)
	info := detect.SplitInfo{IsTwoPages: true, Direction: detect.SplitHorizontal, Position: 300, Confidence: 0.8}

	pages, err := Split(path, t.TempDir(), info, 0.01)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	margin := 3
	var total int
	for _, page := range pages {
		pi, err := raster.Probe(page)
		if err != nil {
			t.Fatalf("Probe(%s) error = %v", page, err)
		}
		if pi.Width != 300 {
			t.Fatalf("page width = %d, want 300", pi.Width)
		}
		total += pi.Height
	}
	if want := 600 - 2*margin; total != want {
		t.Fatalf("combined height = %d, want %d", total, want)
	}
}
