//go:build !gosseract

package ocr

import (
	"context"
	"errors"
)

// ErrGosseractUnavailable is returned when the binary was built without the
// gosseract tag.
var ErrGosseractUnavailable = errors.New("gosseract engine not compiled in (rebuild with -tags gosseract)")

// Gosseract is a stub for builds without libtesseract bindings.
type Gosseract struct{}

// NewGosseract always fails in this build.
func NewGosseract() (*Gosseract, error) {
	return nil, ErrGosseractUnavailable
}

// Name implements Engine.
func (g *Gosseract) Name() string { return "gosseract" }

// Recognize implements Engine.
func (g *Gosseract) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	return "", &EngineError{Engine: g.Name(), ExitCode: -1, Err: ErrGosseractUnavailable}
}
