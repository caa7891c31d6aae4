//go:build gosseract

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract recognises text in-process through the libtesseract bindings.
// Each call uses its own client; gosseract clients are not goroutine safe.
type Gosseract struct {
	clientFactory func() *gosseract.Client
}

// NewGosseract constructs an in-process engine. Requires a build with the
// gosseract tag and libtesseract available to cgo.
func NewGosseract() (*Gosseract, error) {
	return &Gosseract{clientFactory: gosseract.NewClient}, nil
}

// Name implements Engine.
func (g *Gosseract) Name() string { return "gosseract" }

// Recognize implements Engine.
func (g *Gosseract) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &EngineError{Engine: g.Name(), ExitCode: -1, Err: err}
	}
	if lang == "" {
		lang = DefaultLanguage
	}

	c := g.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(lang); err != nil {
		return "", &EngineError{Engine: g.Name(), ExitCode: -1, Err: fmt.Errorf("set language: %w", err)}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", &EngineError{Engine: g.Name(), ExitCode: -1, Err: fmt.Errorf("set image: %w", err)}
	}

	text, err := c.Text()
	if err != nil {
		return "", &EngineError{Engine: g.Name(), ExitCode: -1, Err: fmt.Errorf("recognize text: %w", err)}
	}
	return text, nil
}
