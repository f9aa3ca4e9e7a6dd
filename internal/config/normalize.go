package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAcquire(); err != nil {
		return err
	}
	c.normalizeFrames()
	c.normalizeOCR()
	c.normalizeStitch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir()
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAcquire() error {
	c.Acquire.YtDlpBinary = strings.TrimSpace(c.Acquire.YtDlpBinary)
	if c.Acquire.YtDlpBinary == "" {
		c.Acquire.YtDlpBinary = defaultYtDlpBinary
	}
	c.Acquire.Format = strings.TrimSpace(c.Acquire.Format)
	if c.Acquire.Format == "" {
		c.Acquire.Format = defaultYtDlpFormat
	}
	if value, ok := os.LookupEnv("HARDSUB_BROWSER"); ok {
		c.Acquire.Browser = value
	}
	c.Acquire.Browser = strings.TrimSpace(c.Acquire.Browser)
	if value, ok := os.LookupEnv("HARDSUB_COOKIES_FILE"); ok {
		c.Acquire.CookiesFile = value
	}
	var err error
	if c.Acquire.CookiesFile, err = expandPath(strings.TrimSpace(c.Acquire.CookiesFile)); err != nil {
		return fmt.Errorf("acquire.cookies_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeFrames() {
	c.Frames.FFmpegBinary = strings.TrimSpace(c.Frames.FFmpegBinary)
	if c.Frames.FFmpegBinary == "" {
		c.Frames.FFmpegBinary = defaultFFmpegBinary
	}
	c.Frames.FFprobeBinary = strings.TrimSpace(c.Frames.FFprobeBinary)
	if c.Frames.FFprobeBinary == "" {
		c.Frames.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Frames.JPEGQuality == 0 {
		c.Frames.JPEGQuality = defaultJPEGQuality
	}
}

func (c *Config) normalizeOCR() {
	if value, ok := os.LookupEnv("HARDSUB_OCR_COMMAND"); ok && strings.TrimSpace(value) != "" {
		c.OCR.Command = value
	}
	c.OCR.Command = strings.TrimSpace(c.OCR.Command)
	if c.OCR.Command == "" {
		c.OCR.Command = defaultOCRCommand
	}
	if value, ok := os.LookupEnv("HARDSUB_OCR_LANGUAGE"); ok && strings.TrimSpace(value) != "" {
		c.OCR.Language = value
	}
	c.OCR.Language = strings.TrimSpace(c.OCR.Language)
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
}

func (c *Config) normalizeStitch() {
	c.Stitch.Script = strings.ToLower(strings.TrimSpace(c.Stitch.Script))
	if c.Stitch.Script == "" {
		c.Stitch.Script = defaultScript
	}
	c.Stitch.TieBreak = strings.ToLower(strings.TrimSpace(c.Stitch.TieBreak))
	if c.Stitch.TieBreak == "" {
		c.Stitch.TieBreak = defaultTieBreak
	}
	c.Stitch.Metric = strings.ToLower(strings.TrimSpace(c.Stitch.Metric))
	if c.Stitch.Metric == "" {
		c.Stitch.Metric = defaultMetric
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("HARDSUB_LOG_FORMAT"); ok {
		c.Logging.Format = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	if value, ok := os.LookupEnv("HARDSUB_LOG_LEVEL"); ok {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
