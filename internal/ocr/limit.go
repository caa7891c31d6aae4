package ocr

import (
	"context"

	"golang.org/x/time/rate"
)

// Limited throttles how often the wrapped engine may start a recognition.
type Limited struct {
	Engine  Engine
	limiter *rate.Limiter
}

// WithRateLimit wraps e so that at most perSecond recognitions start each
// second. A non-positive rate returns e unchanged.
func WithRateLimit(e Engine, perSecond float64) Engine {
	if perSecond <= 0 {
		return e
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Limited{Engine: e, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Name implements Engine.
func (l *Limited) Name() string { return l.Engine.Name() }

// Recognize implements Engine.
func (l *Limited) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", &EngineError{Engine: l.Name(), ExitCode: -1, Err: err}
	}
	return l.Engine.Recognize(ctx, image, lang)
}
