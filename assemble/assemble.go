// Package assemble turns a session's ordered page images into a single PDF.
// The heavy lifting is delegated to pdfcpu's image import; one image becomes
// one page at its natural size.
package assemble

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDF writes a document containing one page per image, in the given order.
// Every input must exist before assembly starts so a half-scanned session
// cannot produce a truncated document.
func PDF(imagePaths []string, outPath string) error {
	if len(imagePaths) == 0 {
		return errors.New("no pages to assemble")
	}
	if outPath == "" {
		return errors.New("output path is required")
	}
	for _, path := range imagePaths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("page image: %w", err)
		}
	}
	if err := api.ImportImagesFile(imagePaths, outPath, nil, nil); err != nil {
		return fmt.Errorf("assemble pdf: %w", err)
	}
	return nil
}
