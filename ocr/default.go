package ocr

import (
	"context"
	"fmt"
)

var defaultEngine Engine = &noopEngine{}

// DefaultEngine returns the library's default OCR engine. Importing the
// tesseract subpackage replaces the initial no-op engine with a real one.
func DefaultEngine() Engine {
	return defaultEngine
}

// SetDefaultEngine sets the library's default OCR engine.
func SetDefaultEngine(engine Engine) {
	defaultEngine = engine
}

// RecognizeFiles reads the given image files and invokes the provided engine.
// If the engine supports batch operation, it is used; otherwise calls are
// executed sequentially.
func RecognizeFiles(ctx context.Context, engine Engine, paths []string, opts ...InputOption) ([]Result, error) {
	inputs := make([]Input, 0, len(paths))
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		in, err := InputFromFile(path, opts...)
		if err != nil {
			return nil, fmt.Errorf("build input for %s: %w", path, err)
		}
		inputs = append(inputs, in)
	}
	return recognizeAll(ctx, engine, inputs)
}

// DefaultRecognizeFiles runs recognition with the default engine.
func DefaultRecognizeFiles(ctx context.Context, paths []string, opts ...InputOption) ([]Result, error) {
	return RecognizeFiles(ctx, DefaultEngine(), paths, opts...)
}

func recognizeAll(ctx context.Context, engine Engine, inputs []Input) ([]Result, error) {
	if b, ok := engine.(BatchEngine); ok {
		return b.RecognizeBatch(ctx, inputs)
	}
	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res, err := engine.Recognize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", in.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

type noopEngine struct{}

func (n noopEngine) Name() string {
	return "noop"
}

func (n noopEngine) Recognize(ctx context.Context, input Input) (Result, error) {
	return Result{InputID: input.ID}, nil
}
