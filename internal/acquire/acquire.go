package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"hardsub/internal/logging"
	"hardsub/internal/services"
)

// DownloadName is the file yt-dlp writes inside the work directory.
const DownloadName = "video.mp4"

// Options configures acquisition.
type Options struct {
	YtDlpBinary string
	Format      string
	Browser     string
	CookiesFile string
	// FFmpegLocation is passed to yt-dlp so it merges with the same ffmpeg.
	FFmpegLocation string
	Timeout        time.Duration
	// Dir receives downloads.
	Dir string
}

// Source is a resolved local video.
type Source struct {
	Path       string
	Downloaded bool
	SizeBytes  int64
}

// Cleanup removes a downloaded file. Local sources are never touched.
func (s Source) Cleanup() error {
	if !s.Downloaded || s.Path == "" {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CommandRunner executes yt-dlp.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Acquirer resolves sources.
type Acquirer struct {
	opts   Options
	run    CommandRunner
	logger *slog.Logger
}

// Option customizes an Acquirer.
type Option func(*Acquirer)

// WithCommandRunner overrides how yt-dlp is executed.
func WithCommandRunner(r CommandRunner) Option {
	return func(a *Acquirer) {
		if r != nil {
			a.run = r
		}
	}
}

// New returns an Acquirer.
func New(opts Options, logger *slog.Logger, options ...Option) *Acquirer {
	if strings.TrimSpace(opts.YtDlpBinary) == "" {
		opts.YtDlpBinary = "yt-dlp"
	}
	a := &Acquirer{
		opts:   opts,
		run:    defaultCommandRunner,
		logger: logging.NewComponentLogger(logger, "acquire"),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// IsURL reports whether source is an http or https URL.
func IsURL(source string) bool {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// UsesCookies reports whether downloads are authenticated.
func (a *Acquirer) UsesCookies() bool {
	return a.opts.CookiesFile != "" || a.opts.Browser != ""
}

// Args returns the yt-dlp arguments that download rawURL to output.
func (a *Acquirer) Args(rawURL, output string) []string {
	// The ios client cannot send cookies; tv_embedded can.
	playerClient := "ios,web"
	if a.UsesCookies() {
		playerClient = "tv_embedded,web"
	}
	args := []string{"--no-playlist"}
	if a.opts.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", a.opts.FFmpegLocation)
	}
	args = append(args, "--extractor-args", "youtube:player_client="+playerClient)
	if a.opts.Format != "" {
		args = append(args, "-f", a.opts.Format)
	}
	args = append(args, "--merge-output-format", "mp4", "-o", output)
	switch {
	case a.opts.CookiesFile != "":
		args = append(args, "--cookies", a.opts.CookiesFile)
	case a.opts.Browser != "":
		args = append(args, "--cookies-from-browser", a.opts.Browser)
	}
	return append(args, rawURL)
}

// Acquire returns a local video for source, downloading URLs first.
func (a *Acquirer) Acquire(ctx context.Context, source string) (Source, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Source{}, services.Wrap(services.ErrValidation, "acquire", "source", "source is empty", nil)
	}
	if IsURL(source) {
		return a.download(ctx, source)
	}
	return a.local(source)
}

func (a *Acquirer) local(path string) (Source, error) {
	expanded := path
	if abs, err := filepath.Abs(path); err == nil {
		expanded = abs
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return Source{}, services.Wrap(services.ErrAcquisition, "acquire", "open", expanded, err)
	}
	if info.IsDir() {
		return Source{}, services.Wrap(services.ErrAcquisition, "acquire", "open", expanded+" is a directory", nil)
	}
	return Source{Path: expanded, SizeBytes: info.Size()}, nil
}

func (a *Acquirer) download(ctx context.Context, rawURL string) (Source, error) {
	logger := logging.WithContext(ctx, a.logger)
	if err := os.MkdirAll(a.opts.Dir, 0o755); err != nil {
		return Source{}, services.Wrap(services.ErrConfiguration, "acquire", "prepare", "create download directory", err)
	}
	output := filepath.Join(a.opts.Dir, DownloadName)

	runCtx := ctx
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	started := time.Now()
	logger.Info("downloading video",
		logging.String("url", rawURL),
		logging.Bool("cookies", a.UsesCookies()),
	)
	if err := a.run(runCtx, a.opts.YtDlpBinary, a.Args(rawURL, output)...); err != nil {
		_ = os.Remove(output)
		if ctx.Err() != nil {
			return Source{}, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Source{}, services.Wrap(services.ErrAcquisition, "acquire", "yt-dlp", fmt.Sprintf("download timed out after %s", a.opts.Timeout), nil)
		}
		hint := "pass --browser or --cookies-file if the site requires sign-in"
		if a.UsesCookies() {
			hint = "refresh the cookies or update yt-dlp"
		}
		return Source{}, services.Wrap(services.ErrAcquisition, "acquire", "yt-dlp", hint, err)
	}

	info, err := os.Stat(output)
	if err != nil {
		return Source{}, services.Wrap(services.ErrAcquisition, "acquire", "yt-dlp", "download produced no file", err)
	}
	logger.Info("video downloaded",
		logging.String("path", output),
		logging.Int64("size_bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started).Round(time.Second)),
	)
	return Source{Path: output, Downloaded: true, SizeBytes: info.Size()}, nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, lastLines(stderr.String(), 5))
	}
	return nil
}

// lastLines keeps the tail of tool output for error messages.
func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
