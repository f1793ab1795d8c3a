package orient

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/purushottampradhan001-creator/answer-sheet-scan/ocr"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/raster"
)

// writeRuledPage draws a white page with full-width horizontal rules, the
// layout of a blank answer sheet.
func writeRuledPage(t *testing.T, name string, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	for y := 30; y < h-10; y += 30 {
		for dy := 0; dy < 2; dy++ {
			for x := 20; x < w-20; x++ {
				img.SetGray(x, y+dy, color.Gray{Y: 0})
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

func countsAt(t *testing.T, path string) lineCounts {
	t.Helper()
	gray := gocv.IMRead(path, gocv.IMReadGrayScale)
	if gray.Empty() {
		t.Fatalf("cannot read %s", path)
	}
	defer gray.Close()
	return lineSignal{cfg: DefaultLineConfig()}.count(gray)
}

func TestDecisionForEXIF(t *testing.T) {
	cases := []struct {
		tag   int
		want  Decision
		known bool
	}{
		{1, Decision{}, true},
		{2, Decision{Mirror: true}, true},
		{3, Decision{Rotation: 180}, true},
		{4, Decision{Mirror: true, Rotation: 180}, true},
		{5, Decision{Mirror: true, Rotation: 270}, true},
		{6, Decision{Rotation: 90}, true},
		{7, Decision{Mirror: true, Rotation: 90}, true},
		{8, Decision{Rotation: 270}, true},
		{0, Decision{}, false},
		{9, Decision{}, false},
	}
	for _, tc := range cases {
		got, known := decisionForEXIF(tc.tag)
		if known != tc.known || got != tc.want {
			t.Fatalf("decisionForEXIF(%d) = (%+v, %v), want (%+v, %v)", tc.tag, got, known, tc.want, tc.known)
		}
	}
}

func TestMetadataSignalWithoutTag(t *testing.T) {
	path := writeRuledPage(t, "plain.png", 200, 150)
	d, err := metadataSignal{}.Detect(context.Background(), path)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if d.Conclusive {
		t.Fatal("PNG without orientation tag must be inconclusive")
	}
}

func TestLineSignalUprightPage(t *testing.T) {
	path := writeRuledPage(t, "upright.png", 400, 300)
	d, err := lineSignal{cfg: DefaultLineConfig()}.Detect(context.Background(), path)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !d.Conclusive || d.Rotation != 0 {
		t.Fatalf("upright page got %+v, want conclusive identity", d)
	}
}

func TestLineSignalSidewaysPage(t *testing.T) {
	path := writeRuledPage(t, "sideways.png", 400, 300)
	rotateFile(t, path)

	d, err := lineSignal{cfg: DefaultLineConfig()}.Detect(context.Background(), path)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !d.Conclusive || (d.Rotation != 90 && d.Rotation != 270) {
		t.Fatalf("sideways page got %+v, want a quarter-turn correction", d)
	}
}

func TestNormalizeRestoresSidewaysPage(t *testing.T) {
	upright := writeRuledPage(t, "ref.png", 400, 300)
	baseline := countsAt(t, upright)
	if baseline.horizontal == 0 {
		t.Fatal("fixture produced no horizontal lines")
	}

	path := writeRuledPage(t, "scan.png", 400, 300)
	rotateFile(t, path)

	n := NewNormalizer(DefaultConfig())
	rotated, err := n.Normalize(context.Background(), path)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !rotated {
		t.Fatal("sideways page reported as already upright")
	}

	restored := countsAt(t, path)
	if restored.horizontal < baseline.horizontal {
		t.Fatalf("restored horizontals = %d, want at least %d", restored.horizontal, baseline.horizontal)
	}
	info, err := raster.Probe(path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Width != 400 || info.Height != 300 {
		t.Fatalf("restored dimensions %dx%d, want 400x300", info.Width, info.Height)
	}
}

func TestNormalizeLeavesUprightPageAlone(t *testing.T) {
	path := writeRuledPage(t, "upright.png", 400, 300)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	n := NewNormalizer(DefaultConfig())
	rotated, err := n.Normalize(context.Background(), path)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if rotated {
		t.Fatal("upright page reported as rotated")
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reread fixture: %v", err)
	}
	if len(before) != len(after) {
		t.Fatal("upright page was rewritten")
	}
}

// upsideDownEngine scores the 180 degree probe highest, simulating text that
// reads best after a half turn.
type upsideDownEngine struct{}

func (upsideDownEngine) Name() string { return "fake" }

func (upsideDownEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	conf := 0.25
	if in.ID == "probe-180" {
		conf = 0.92
	}
	words := make([]ocr.TextWord, 6)
	for i := range words {
		words[i] = ocr.TextWord{Text: "w", Confidence: conf}
	}
	return ocr.Result{
		InputID: in.ID,
		Blocks:  []ocr.TextBlock{{Lines: []ocr.TextLine{{Words: words, Confidence: conf}}}},
	}, nil
}

func TestNormalizePrefersOCRSignalOverGeometry(t *testing.T) {
	path := writeRuledPage(t, "flipped.png", 400, 300)

	cfg := DefaultConfig()
	cfg.Engine = upsideDownEngine{}
	n := NewNormalizer(cfg)

	rotated, err := n.Normalize(context.Background(), path)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !rotated {
		t.Fatal("OCR half-turn verdict was not applied")
	}
	info, err := raster.Probe(path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Width != 400 || info.Height != 300 {
		t.Fatalf("half turn must keep dimensions, got %dx%d", info.Width, info.Height)
	}
}

// rotateFile turns the stored image a quarter turn in place.
func rotateFile(t *testing.T, path string) {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	if err := imaging.Save(imaging.Rotate90(img), path); err != nil {
		t.Fatalf("save rotated: %v", err)
	}
}
