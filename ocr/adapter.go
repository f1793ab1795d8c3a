package ocr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InputOption mutates an OCR input before submission.
type InputOption func(*Input)

// WithLanguages sets language hints on the OCR input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithRegion sets the recognition region on the OCR input.
func WithRegion(region Region) InputOption {
	return func(in *Input) {
		if region.IsEmpty() {
			in.Region = nil
			return
		}
		in.Region = &region
	}
}

// WithDPI overrides the DPI value on the OCR input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithMetadata sets provider-specific metadata for the input.
func WithMetadata(metadata map[string]string) InputOption {
	return func(in *Input) {
		if len(metadata) == 0 {
			in.Metadata = nil
			return
		}
		in.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			in.Metadata[k] = v
		}
	}
}

// InputFromFile reads an image file from disk and wraps it as an OCR input.
// The input ID is the file's base name, which keeps results correlatable when
// several scans are recognized in one batch.
func InputFromFile(path string, opts ...InputOption) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("read image file: %w", err)
	}
	in := Input{
		ID:     filepath.Base(path),
		Image:  data,
		Format: formatForPath(path),
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}

func formatForPath(path string) ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return ImageFormatJPEG
	case ".tif", ".tiff":
		return ImageFormatTIFF
	default:
		return ImageFormatPNG
	}
}
