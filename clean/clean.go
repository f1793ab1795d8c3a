// Package clean removes unwanted objects from scanned pages: colored marker
// stickers and skin-toned finger occlusions. Each pass segments the target
// tone in HSV space, cleans the mask morphologically, and inpaints the
// surviving regions from their surroundings. An empty mask is a no-op and is
// reported as such so callers only record a fix when pixels changed.
package clean

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// StickerConfig tunes the colored-sticker pass. Defaults target the yellow
// marker stickers commonly placed on answer sheets.
type StickerConfig struct {
	HueLow, HueHigh float64
	SatMin, ValMin  float64
	InpaintRadius   float32
}

func DefaultStickerConfig() StickerConfig {
	return StickerConfig{
		HueLow:        20,
		HueHigh:       30,
		SatMin:        100,
		ValMin:        100,
		InpaintRadius: 3,
	}
}

// FingerConfig tunes the skin-tone pass and its component shape filters.
type FingerConfig struct {
	// MinAreaPct and MaxAreaPct bound a component's area as a fraction of
	// the image area.
	MinAreaPct float64
	MaxAreaPct float64
	// MinElongation is the minimum long/short bounding-box ratio.
	MinElongation float64
	// MinSolidity is the minimum area/convex-hull-area ratio.
	MinSolidity float64
	// EdgeMarginPct is the border band (fraction of the smaller dimension)
	// a finger must reach into, unless it sits in the top-center zone.
	EdgeMarginPct float64
	// TopBandPct and CenterBandPct define the top-center zone: within the
	// top TopBandPct of height and horizontally inside the central
	// CenterBandPct of width.
	TopBandPct    float64
	CenterBandPct float64
	// MaxEdgeDensity rejects components whose bounding box is full of fine
	// detail (handwriting, ruling) rather than a smooth occlusion.
	MaxEdgeDensity float64
	InpaintRadius  float32
}

func DefaultFingerConfig() FingerConfig {
	return FingerConfig{
		MinAreaPct:     0.0008,
		MaxAreaPct:     0.10,
		MinElongation:  1.1,
		MinSolidity:    0.45,
		EdgeMarginPct:  0.12,
		TopBandPct:     0.22,
		CenterBandPct:  0.60,
		MaxEdgeDensity: 0.18,
		InpaintRadius:  3,
	}
}

// RemoveStickers erases regions matching the sticker hue profile. It returns
// the output path and whether the image was actually rewritten.
func RemoveStickers(path, outputPath string, cfg StickerConfig) (string, bool, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return path, false, fmt.Errorf("cannot read image %s", path)
	}
	defer img.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(cfg.HueLow, cfg.SatMin, cfg.ValMin, 0),
		gocv.NewScalar(cfg.HueHigh, 255, 255, 0),
		&mask)

	cleanMask(&mask)
	if gocv.CountNonZero(mask) == 0 {
		return path, false, nil
	}

	growMask(&mask, 2)
	return inpaintTo(img, mask, path, outputPath, cfg.InpaintRadius)
}

// RemoveFingers erases skin-toned occlusions that pass the shape and
// position filters. Returns the output path and whether pixels changed.
func RemoveFingers(path, outputPath string, cfg FingerConfig) (string, bool, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return path, false, fmt.Errorf("cannot read image %s", path)
	}
	defer img.Close()

	mask := skinMask(img)
	defer mask.Close()

	cleanMask(&mask)

	filtered, kept := filterFingerComponents(img, mask, cfg)
	defer filtered.Close()
	if kept == 0 {
		return path, false, nil
	}

	growMask(&filtered, 1)
	return inpaintTo(img, filtered, path, outputPath, cfg.InpaintRadius)
}

// skinMask combines the two skin hue bands (the hue wraps around red).
func skinMask(img gocv.Mat) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	low := gocv.NewMat()
	defer low.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(0, 20, 70, 0),
		gocv.NewScalar(20, 255, 255, 0),
		&low)

	high := gocv.NewMat()
	defer high.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(170, 20, 70, 0),
		gocv.NewScalar(180, 255, 255, 0),
		&high)

	mask := gocv.NewMat()
	gocv.BitwiseOr(low, high, &mask)
	return mask
}

// filterFingerComponents keeps only components that look like fingers:
// plausible area, elongated, solid, reaching an edge or the top-center zone,
// and not covering dense page detail.
func filterFingerComponents(img, mask gocv.Mat, cfg FingerConfig) (gocv.Mat, int) {
	w := img.Cols()
	h := img.Rows()
	imgArea := float64(w * h)
	margin := int(float64(min(w, h)) * cfg.EdgeMarginPct)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	filtered := gocv.Zeros(h, w, gocv.MatTypeCV8U)
	kept := 0
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area < imgArea*cfg.MinAreaPct || area > imgArea*cfg.MaxAreaPct {
			continue
		}

		rect := gocv.BoundingRect(c)
		long := float64(max(rect.Dx(), rect.Dy()))
		short := float64(min(rect.Dx(), rect.Dy()))
		if short == 0 || long/short < cfg.MinElongation {
			continue
		}

		if solidity(c, area) < cfg.MinSolidity {
			continue
		}

		touchesEdge := rect.Min.X < margin || rect.Min.Y < margin ||
			rect.Max.X > w-margin || rect.Max.Y > h-margin
		cx := rect.Min.X + rect.Dx()/2
		cy := rect.Min.Y + rect.Dy()/2
		topCenter := cy < int(float64(h)*cfg.TopBandPct) &&
			abs(cx-w/2) < int(float64(w)*cfg.CenterBandPct/2)
		if !touchesEdge && !topCenter {
			continue
		}

		if regionEdgeDensity(edges, rect) > cfg.MaxEdgeDensity {
			continue
		}

		gocv.DrawContours(&filtered, contours, i, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
		kept++
	}
	return filtered, kept
}

func solidity(c gocv.PointVector, area float64) float64 {
	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(c, &hull, false, true)

	hullPts := gocv.NewPointVectorFromMat(hull)
	defer hullPts.Close()
	hullArea := gocv.ContourArea(hullPts)
	if hullArea <= 0 {
		return 0
	}
	return area / hullArea
}

func regionEdgeDensity(edges gocv.Mat, rect image.Rectangle) float64 {
	region := edges.Region(rect)
	defer region.Close()
	total := rect.Dx() * rect.Dy()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(region)) / float64(total)
}

// cleanMask removes speckle: open then close with a 3x3 kernel.
func cleanMask(mask *gocv.Mat) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(*mask, &opened, gocv.MorphOpen, kernel)
	gocv.MorphologyEx(opened, mask, gocv.MorphClose, kernel)
}

// growMask dilates the mask so inpainting covers the occlusion's soft edges.
func growMask(mask *gocv.Mat, iterations int) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(5, 5))
	defer kernel.Close()
	for i := 0; i < iterations; i++ {
		dilated := gocv.NewMat()
		gocv.Dilate(*mask, &dilated, kernel)
		mask.Close()
		*mask = dilated
	}
}

func inpaintTo(img, mask gocv.Mat, path, outputPath string, radius float32) (string, bool, error) {
	result := gocv.NewMat()
	defer result.Close()
	gocv.Inpaint(img, mask, &result, radius, gocv.Telea)

	if outputPath == "" {
		outputPath = path
	}
	if ok := gocv.IMWrite(outputPath, result); !ok {
		return path, false, fmt.Errorf("write inpainted image %s", outputPath)
	}
	return outputPath, true, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
