package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFmpegPath returns the ffmpeg binary to execute. A configured value
// wins; otherwise "ffmpeg" is resolved from PATH. When nothing resolves the
// bare name is returned so the eventual exec error names it.
func ResolveFFmpegPath(configured string) string {
	return resolveTool(configured, "ffmpeg")
}

// ResolveFFprobePath prefers a configured ffprobe, then an ffprobe sitting
// next to the resolved ffmpeg (static builds ship them together), then PATH.
func ResolveFFprobePath(configured, ffmpegPath string) string {
	if value := strings.TrimSpace(configured); value != "" {
		return value
	}
	if resolved, err := exec.LookPath(strings.TrimSpace(ffmpegPath)); err == nil {
		candidate := filepath.Join(filepath.Dir(resolved), executableName("ffprobe"))
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			return candidate
		}
	}
	return resolveTool("", "ffprobe")
}

// FFmpegDir returns the directory holding the resolved ffmpeg binary, or ""
// when it cannot be resolved. yt-dlp receives it as --ffmpeg-location.
func FFmpegDir(ffmpegPath string) string {
	resolved, err := exec.LookPath(strings.TrimSpace(ffmpegPath))
	if err != nil {
		return ""
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return ""
	}
	return filepath.Dir(abs)
}

func resolveTool(configured, name string) string {
	if value := strings.TrimSpace(configured); value != "" {
		return value
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
