package config

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

var (
	knownScripts   = []string{"any", "han", "zh", "chinese", "cjk", "kana", "ja", "japanese", "hangul", "ko", "korean", "latin"}
	knownTieBreaks = []string{"longest", "shortest", "first"}
	knownMetrics   = []string{"levenshtein", "edit", "lcs"}
	knownBrowsers  = []string{"brave", "chrome", "chromium", "edge", "firefox", "opera", "safari", "vivaldi", "whale"}
	knownLogLevels = []string{"debug", "info", "warn", "warning", "error"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAcquire(); err != nil {
		return err
	}
	if err := c.validateFrames(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateStitch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateAcquire() error {
	if c.Acquire.TimeoutSeconds < 0 {
		return errors.New("acquire.timeout_seconds must be >= 0")
	}
	if c.Acquire.Browser != "" {
		// yt-dlp accepts BROWSER[+KEYRING][:PROFILE][::CONTAINER].
		name := strings.FieldsFunc(c.Acquire.Browser, func(r rune) bool { return r == '+' || r == ':' })
		if len(name) == 0 || !slices.Contains(knownBrowsers, strings.ToLower(name[0])) {
			return fmt.Errorf("acquire.browser %q is not a browser yt-dlp can read cookies from", c.Acquire.Browser)
		}
	}
	if c.Acquire.Browser != "" && c.Acquire.CookiesFile != "" {
		return errors.New("acquire.browser and acquire.cookies_file are mutually exclusive")
	}
	return nil
}

func (c *Config) validateFrames() error {
	if math.IsNaN(c.Frames.IntervalSeconds) || c.Frames.IntervalSeconds <= 0 {
		return errors.New("frames.interval_seconds must be positive")
	}
	if math.IsNaN(c.Frames.CropRatio) || c.Frames.CropRatio <= 0 || c.Frames.CropRatio > 1 {
		return errors.New("frames.crop_ratio must be in (0, 1]")
	}
	if c.Frames.JPEGQuality < 1 || c.Frames.JPEGQuality > 31 {
		return errors.New("frames.jpeg_quality must be between 1 and 31")
	}
	return nil
}

func (c *Config) validateOCR() error {
	if !strings.Contains(c.OCR.Command, "{image}") {
		return errors.New("ocr.command must contain the {image} placeholder")
	}
	if c.OCR.Workers < 1 {
		return errors.New("ocr.workers must be >= 1")
	}
	if c.OCR.TimeoutSeconds < 0 {
		return errors.New("ocr.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateStitch() error {
	s := c.Stitch
	if math.IsNaN(s.SimilarityThreshold) || s.SimilarityThreshold <= 0 || s.SimilarityThreshold > 1 {
		return errors.New("stitch.similarity_threshold must be in (0, 1]")
	}
	if s.MaxEmptyGap < 0 {
		return errors.New("stitch.max_empty_gap must be >= 0")
	}
	if s.MinRunLength < 1 {
		return errors.New("stitch.min_run_length must be >= 1")
	}
	if !slices.Contains(knownScripts, s.Script) {
		return fmt.Errorf("stitch.script must be one of any, han, kana, hangul, latin (got %q)", s.Script)
	}
	if !slices.Contains(knownTieBreaks, s.TieBreak) {
		return fmt.Errorf("stitch.tie_break must be one of %s (got %q)", strings.Join(knownTieBreaks, ", "), s.TieBreak)
	}
	if !slices.Contains(knownMetrics, s.Metric) {
		return fmt.Errorf("stitch.metric must be levenshtein or lcs (got %q)", s.Metric)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains(knownLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	return nil
}
