package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

const (
	// DefaultCommand is the recognition binary looked up on PATH.
	DefaultCommand = "tesseract"

	// DefaultTimeout bounds a single recognition.
	DefaultTimeout = 2 * time.Minute

	// maxOutputSize is the most recognised text accepted from one page (10MB)
	maxOutputSize = 10 * 1024 * 1024
)

// Tesseract runs the tesseract command line tool once per page:
//
//	<command> [args...] - - -l <lang>
//
// The image is fed on stdin and the text read from stdout. Stderr is discarded.
type Tesseract struct {
	Command string
	Args    []string      // extra arguments placed before the stdin/stdout markers
	Timeout time.Duration // 0 disables the per-page timeout
}

// NewTesseract returns an engine invoking command (DefaultCommand if empty).
func NewTesseract(command string, timeout time.Duration, args ...string) *Tesseract {
	if command == "" {
		command = DefaultCommand
	}
	return &Tesseract{Command: command, Args: args, Timeout: timeout}
}

// Name implements Engine.
func (t *Tesseract) Name() string { return "tesseract" }

// Recognize implements Engine. A process that cannot start, exits non-zero,
// is killed, times out or floods stdout produces an *EngineError.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	if lang == "" {
		lang = DefaultLanguage
	}

	execCtx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, t.Args...), "-", "-", "-l", lang)
	cmd := exec.CommandContext(execCtx, t.Command, args...)
	cmd.Stdin = bytes.NewReader(image)
	cmd.Stderr = io.Discard

	stdout := &bytes.Buffer{}
	cmd.Stdout = &limitedWriter{w: stdout, limit: maxOutputSize}

	if err := cmd.Run(); err != nil {
		return "", t.failure(execCtx, ctx, err)
	}

	if stdout.Len() >= maxOutputSize {
		return "", &EngineError{Engine: t.Name(), ExitCode: -1, Err: fmt.Errorf("output exceeded %d bytes", maxOutputSize)}
	}

	return stdout.String(), nil
}

func (t *Tesseract) failure(execCtx, parent context.Context, err error) error {
	if parent.Err() != nil {
		return &EngineError{Engine: t.Name(), ExitCode: -1, Err: parent.Err()}
	}
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return &EngineError{Engine: t.Name(), ExitCode: -1, Err: fmt.Errorf("timed out after %s", t.Timeout)}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &EngineError{Engine: t.Name(), ExitCode: exitErr.ExitCode(), Err: err}
	}
	return &EngineError{Engine: t.Name(), ExitCode: -1, Err: fmt.Errorf("failed to run %s: %w", t.Command, err)}
}

// limitedWriter wraps a writer and enforces a size limit.
// Once the limit is reached, further writes are discarded.
type limitedWriter struct {
	w       io.Writer
	limit   int
	written int
}

func (lw *limitedWriter) Write(p []byte) (n int, err error) {
	remaining := lw.limit - lw.written
	if remaining <= 0 {
		return len(p), nil
	}

	toWrite := p
	if len(p) > remaining {
		toWrite = p[:remaining]
	}

	n, err = lw.w.Write(toWrite)
	lw.written += n
	return len(p), err // Return len(p) to satisfy the writer interface
}
