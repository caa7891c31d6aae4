// Package ocr wraps the optical character recognition backends credscan can
// drive. An Engine turns image bytes into raw recognised text; normalisation
// (lowercasing) is left to the caller.
package ocr

import (
	"context"
	"errors"
	"fmt"
)

// DefaultLanguage is the recognition language used when none is configured.
const DefaultLanguage = "eng"

// ErrEngine is wrapped by every recognition failure.
var ErrEngine = errors.New("ocr engine error")

// Engine recognises text in a single image.
// Implementations must be safe for concurrent use.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, lang string) (string, error)
}

// EngineFunc adapts a plain function into an Engine.
type EngineFunc func(ctx context.Context, image []byte, lang string) (string, error)

// Name implements Engine.
func (f EngineFunc) Name() string { return "func" }

// Recognize implements Engine.
func (f EngineFunc) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	return f(ctx, image, lang)
}

// EngineError reports a failed recognition. No partial text is ever returned
// alongside it.
type EngineError struct {
	Engine   string
	ExitCode int // -1 when the process never ran to completion
	Err      error
}

func (e *EngineError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exited with code %d: %v", e.Engine, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

// Is makes errors.Is(err, ErrEngine) true for every EngineError.
func (e *EngineError) Is(target error) bool {
	return target == ErrEngine
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
