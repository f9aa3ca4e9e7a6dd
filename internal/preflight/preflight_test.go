package preflight

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"hardsub/internal/config"
	"hardsub/internal/deps"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_Directories(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "missing")
	cfg.OCR.Command = "paddleocr {image}"

	results := RunAll(context.Background(), &cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %+v", len(results), results)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Log directory" {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func writeTesseractStub(t *testing.T, langs string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tesseract")
	script := "#!/bin/sh\necho 'List of available languages in \"/usr/share/tessdata/\" (3):'\nprintf '" + langs + "'\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckOCRLanguage(t *testing.T) {
	binary := writeTesseractStub(t, `chi_sim\neng\nosd\n`)
	cfg := config.Default()

	cfg.OCR.Command = binary + " {image} stdout -l {lang}"
	cfg.OCR.Language = "chi_sim+eng"
	if result := CheckOCRLanguage(context.Background(), &cfg); !result.Passed {
		t.Fatalf("expected installed languages to pass, got %+v", result)
	}

	cfg.OCR.Language = "jpn"
	if result := CheckOCRLanguage(context.Background(), &cfg); result.Passed {
		t.Fatalf("expected missing language to fail, got %+v", result)
	}

	cfg.OCR.Command = "easyocr {image}"
	if result := CheckOCRLanguage(context.Background(), &cfg); result.Name != "" {
		t.Fatalf("expected non-tesseract command to be skipped, got %+v", result)
	}
}

func TestParseLanguageList(t *testing.T) {
	out := "List of available languages in \"/usr/share/tessdata/\" (2):\nchi_sim\neng\n"
	if got := parseLanguageList(out); !reflect.DeepEqual(got, []string{"chi_sim", "eng"}) {
		t.Fatalf("parseLanguageList = %q", got)
	}
}

func TestCheckSystemDepsAndMissingRequired(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg := config.Default()
	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(statuses))
	}
	missing := MissingRequired(statuses)
	if !reflect.DeepEqual(missing, []string{"FFmpeg", "FFprobe", "OCR"}) {
		t.Fatalf("MissingRequired = %q", missing)
	}
	if got := MissingRequired([]deps.Status{{Name: "x", Optional: true}}); got != nil {
		t.Fatalf("optional deps must not be required, got %q", got)
	}
}
