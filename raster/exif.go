package raster

import (
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// EXIFOrientation returns the embedded orientation value (1-8) when the file
// carries one. ok is false for formats without EXIF or untagged files.
func EXIFOrientation(path string) (int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 0, false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 0, false
	}
	return v, true
}

func exifDPI(path string) (int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 0, false
	}
	tag, err := x.Get(exif.XResolution)
	if err != nil {
		return 0, false
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, false
	}
	return int(num / den), true
}
