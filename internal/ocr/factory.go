package ocr

import (
	"fmt"
	"time"
)

// Engine names accepted by New.
const (
	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"
)

// Settings selects and tunes an engine.
type Settings struct {
	Engine    string
	Command   string
	Args      []string
	Timeout   time.Duration
	RateLimit float64
}

// New builds the engine described by s.
func New(s Settings) (Engine, error) {
	var e Engine
	switch s.Engine {
	case "", EngineTesseract:
		e = NewTesseract(s.Command, s.Timeout, s.Args...)
	case EngineGosseract:
		g, err := NewGosseract()
		if err != nil {
			return nil, err
		}
		e = g
	default:
		return nil, fmt.Errorf("unknown OCR engine %q (valid: %s, %s)", s.Engine, EngineTesseract, EngineGosseract)
	}
	return WithRateLimit(e, s.RateLimit), nil
}
