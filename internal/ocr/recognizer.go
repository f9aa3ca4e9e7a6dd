package ocr

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"hardsub/internal/services"
)

// Recognizer extracts the text visible in one image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
	// Signature identifies the engine configuration for cache keys.
	Signature() string
}

// CommandRecognizer shells out to an OCR program per image.
type CommandRecognizer struct {
	template []string
	language string
	timeout  time.Duration
}

// NewCommandRecognizer parses a command template such as
// "tesseract {image} stdout -l {lang} --psm 6". The template must reference
// {image}. A zero timeout disables the per-image deadline.
func NewCommandRecognizer(template, language string, timeout time.Duration) (*CommandRecognizer, error) {
	fields := strings.Fields(template)
	if len(fields) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "ocr", "command", "command template is empty", nil)
	}
	if !strings.Contains(template, "{image}") {
		return nil, services.Wrap(services.ErrConfiguration, "ocr", "command", "command template must contain {image}", nil)
	}
	return &CommandRecognizer{
		template: fields,
		language: strings.TrimSpace(language),
		timeout:  timeout,
	}, nil
}

// Args returns the program and arguments for imagePath.
func (r *CommandRecognizer) Args(imagePath string) (string, []string) {
	replacer := strings.NewReplacer("{image}", imagePath, "{lang}", r.language)
	args := make([]string, 0, len(r.template)-1)
	for _, field := range r.template[1:] {
		args = append(args, replacer.Replace(field))
	}
	return r.template[0], args
}

// Signature returns the template and language.
func (r *CommandRecognizer) Signature() string {
	return strings.Join(r.template, " ") + "|" + r.language
}

// Recognize runs the command and returns its stdout with each line trimmed,
// blank lines dropped, and the rest joined by single spaces.
func (r *CommandRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	name, args := r.Args(imagePath)
	cmd := exec.CommandContext(runCtx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrRecognition, "ocr", name, fmt.Sprintf("timed out after %s on %s", r.timeout, imagePath), nil)
		}
		detail := strings.TrimSpace(stderr.String())
		return "", services.Wrap(services.ErrRecognition, "ocr", name, fmt.Sprintf("%s: %s", imagePath, detail), err)
	}
	return JoinLines(string(output)), nil
}

// JoinLines trims each line of OCR output and joins the non-blank ones with
// single spaces.
func JoinLines(output string) string {
	var parts []string
	for line := range strings.Lines(output) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}
