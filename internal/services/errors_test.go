package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"hardsub/internal/services"
	"hardsub/internal/store"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrDecode, "frames", "sample", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"frames", "sample", "ffmpeg failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureStatusMapping(t *testing.T) {
	cancelled := fmt.Errorf("extract: %w", context.Canceled)
	if status := services.FailureStatus(cancelled); status != store.RunCancelled {
		t.Fatalf("expected cancelled, got %s", status)
	}
	recognition := services.Wrap(services.ErrRecognition, "ocr", "recognize", "frame 3", errors.New("exit 1"))
	if status := services.FailureStatus(recognition); status != store.RunFailed {
		t.Fatalf("expected failed, got %s", status)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{services.Wrap(services.ErrConfiguration, "config", "load", "bad", nil), 2},
		{services.Wrap(services.ErrAcquisition, "acquire", "download", "", nil), 3},
		{services.Wrap(services.ErrDecode, "probe", "", "", nil), 4},
		{services.Wrap(services.ErrRecognition, "ocr", "", "", nil), 5},
		{context.Canceled, 130},
		{errors.New("other"), 1},
	}
	for _, tt := range tests {
		if got := services.ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
