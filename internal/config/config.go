package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Acquire controls how remote sources are downloaded.
type Acquire struct {
	YtDlpBinary    string `toml:"ytdlp_binary"`
	Format         string `toml:"format"`
	Browser        string `toml:"browser"`
	CookiesFile    string `toml:"cookies_file"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Frames controls ffmpeg frame sampling and cropping.
type Frames struct {
	FFmpegBinary    string  `toml:"ffmpeg_binary"`
	FFprobeBinary   string  `toml:"ffprobe_binary"`
	IntervalSeconds float64 `toml:"interval_seconds"`
	CropRatio       float64 `toml:"crop_ratio"`
	JPEGQuality     int     `toml:"jpeg_quality"`
	KeepFrames      bool    `toml:"keep_frames"`
}

// OCR controls the external recognizer.
type OCR struct {
	// Command is a template; {image} and {lang} are substituted per frame.
	Command          string `toml:"command"`
	Language         string `toml:"language"`
	Workers          int    `toml:"workers"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	Cache            bool   `toml:"cache"`
	SkipFailedFrames bool   `toml:"skip_failed_frames"`
}

// Stitch holds the line stitching parameters.
type Stitch struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	MaxEmptyGap         int     `toml:"max_empty_gap"`
	MinRunLength        int     `toml:"min_run_length"`
	Script              string  `toml:"script"`
	TieBreak            string  `toml:"tie_break"`
	Metric              string  `toml:"metric"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for hardsub.
//
// Configuration sections by subsystem:
//   - Paths: scratch, state (SQLite) and log directories
//   - Acquire: yt-dlp binary, format selector and cookies
//   - Frames: ffmpeg/ffprobe binaries, sampling interval and crop
//   - OCR: recognizer command template, language, workers and cache
//   - Stitch: similarity threshold, gap tolerance and run floor
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Acquire Acquire `toml:"acquire"`
	Frames  Frames  `toml:"frames"`
	OCR     OCR     `toml:"ocr"`
	Stitch  Stitch  `toml:"stitch"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hardsub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, state and (optional) log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database holding the OCR cache and run history.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "hardsub.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultWorkDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "hardsub", "work")
	}
	return "~/.cache/hardsub/work"
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "hardsub")
	}
	return "~/.local/state/hardsub"
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Marshal renders the effective configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
