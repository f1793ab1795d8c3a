// Package dedupe gates the pipeline against near-duplicate scans. Double
// feeds and accidental re-scans land within a few bits of each other under a
// perceptual hash, so a small Hamming distance against recent pages is enough
// to flag them before any processing happens.
package dedupe

import (
	"fmt"

	"github.com/corona10/goimagehash"

	"github.com/purushottampradhan001-creator/answer-sheet-scan/raster"
)

// Config tunes the duplicate gate.
type Config struct {
	// Threshold is the maximum Hamming distance at which two hashes still
	// count as the same page.
	Threshold int
	// WindowSize bounds how many recent pages are compared against. Zero
	// keeps every page of the session.
	WindowSize int
}

// DefaultConfig matches scanner double-feed behavior: duplicates arrive
// within a handful of pages of the original.
func DefaultConfig() Config {
	return Config{Threshold: 5, WindowSize: 10}
}

// Detector keeps a rolling window of perceptual hashes for one scan session.
// It is not safe for concurrent use; the watcher feeds it sequentially.
type Detector struct {
	cfg    Config
	hashes []*goimagehash.ImageHash
}

// New constructs a Detector with an empty window.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// IsDuplicate hashes the image at path and compares it against the window.
// Non-duplicates are added to the window before returning.
func (d *Detector) IsDuplicate(path string) (bool, error) {
	img, err := raster.Load(path)
	if err != nil {
		return false, fmt.Errorf("load for hashing: %w", err)
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false, fmt.Errorf("perception hash: %w", err)
	}

	for _, prev := range d.hashes {
		dist, err := hash.Distance(prev)
		if err != nil {
			return false, fmt.Errorf("hash distance: %w", err)
		}
		if dist <= d.cfg.Threshold {
			return true, nil
		}
	}

	d.hashes = append(d.hashes, hash)
	if d.cfg.WindowSize > 0 && len(d.hashes) > d.cfg.WindowSize {
		d.hashes = d.hashes[len(d.hashes)-d.cfg.WindowSize:]
	}
	return false, nil
}

// Size reports how many hashes the window currently holds.
func (d *Detector) Size() int { return len(d.hashes) }

// Reset clears the window, typically at a session boundary.
func (d *Detector) Reset() { d.hashes = nil }
