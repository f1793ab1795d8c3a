// Package raster reads intrinsic facts about scanned page images and holds
// the shared decode/encode helpers the pipeline stages go through. Probing
// never mutates the file.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Info captures the intrinsic properties of an image file.
type Info struct {
	Path        string  `json:"path"`
	Format      string  `json:"format"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ColorMode   string  `json:"color_mode"`
	FileSize    int64   `json:"file_size"`
	DPI         int     `json:"dpi,omitempty"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// Probe reads image metadata without decoding pixel data.
func Probe(path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat image: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("decode image config: %w", err)
	}

	info := Info{
		Path:      path,
		Format:    format,
		Width:     cfg.Width,
		Height:    cfg.Height,
		ColorMode: colorMode(cfg.ColorModel),
		FileSize:  st.Size(),
	}
	if cfg.Height > 0 {
		info.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}
	if dpi, ok := exifDPI(path); ok {
		info.DPI = dpi
	}
	return info, nil
}

func colorMode(m color.Model) string {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return "gray"
	case color.CMYKModel:
		return "cmyk"
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		return "rgba"
	}
	if _, ok := m.(color.Palette); ok {
		return "indexed"
	}
	return "rgb"
}

// IsImagePath reports whether the path carries a supported raster extension.
func IsImagePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

// Load decodes the full image. Used by the pure-Go paths (EXIF transforms,
// split re-encode); the gocv stages read files themselves.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	return img, nil
}

// Save re-encodes the image at path, choosing the codec from the extension.
// JPEG output keeps scanner-grade quality.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}
