package services_test

import (
	"context"
	"testing"

	"hardsub/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "ocr")
	ctx = services.WithSource(ctx, "https://example.com/watch?v=abc")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "ocr" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if src, ok := services.SourceFromContext(ctx); !ok || src != "https://example.com/watch?v=abc" {
		t.Fatalf("unexpected source: %v %v", src, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
}
