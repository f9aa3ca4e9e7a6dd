package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"hardsub/internal/config"
	"hardsub/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOCRLanguage asks tesseract whether the configured language pack is
// installed. Other recognizers return a zero Result and are not checked.
func CheckOCRLanguage(ctx context.Context, cfg *config.Config) Result {
	binary := deps.CommandBinary(cfg.OCR.Command)
	if strings.TrimSuffix(filepath.Base(binary), ".exe") != "tesseract" {
		return Result{}
	}
	const name = "OCR language"
	lang := strings.TrimSpace(cfg.OCR.Language)
	if lang == "" || !strings.Contains(cfg.OCR.Command, "{lang}") {
		return Result{Name: name, Passed: true, Detail: "not used by command"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(checkCtx, binary, "--list-langs").CombinedOutput()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s --list-langs failed (%v)", binary, err)}
	}
	installed := parseLanguageList(string(output))
	for part := range strings.SplitSeq(lang, "+") {
		if !slices.Contains(installed, part) {
			return Result{Name: name, Detail: fmt.Sprintf("language %q not installed", part)}
		}
	}
	return Result{Name: name, Passed: true, Detail: lang}
}

// parseLanguageList extracts language codes from tesseract --list-langs
// output, skipping the header line.
func parseLanguageList(output string) []string {
	var langs []string
	for line := range strings.Lines(output) {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, " ") || strings.HasSuffix(line, ":") {
			continue
		}
		langs = append(langs, line)
	}
	return langs
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the extraction pipeline and the doctor command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	ffmpeg := deps.ResolveFFmpegPath(cfg.Frames.FFmpegBinary)
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Required for frame sampling",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobePath(cfg.Frames.FFprobeBinary, ffmpeg),
			Description: "Required for media inspection",
		},
		{
			Name:        "OCR",
			Command:     deps.CommandBinary(cfg.OCR.Command),
			Description: "Required for text recognition",
		},
		{
			Name:        "yt-dlp",
			Command:     cfg.Acquire.YtDlpBinary,
			Description: "Required for URL sources",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}

// MissingRequired returns the names of required dependencies that are unavailable.
func MissingRequired(statuses []deps.Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Optional && !s.Available {
			missing = append(missing, s.Name)
		}
	}
	return missing
}
