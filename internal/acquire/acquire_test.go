package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"hardsub/internal/logging"
	"hardsub/internal/services"
	"hardsub/internal/testsupport"
)

func TestIsURL(t *testing.T) {
	tests := map[string]bool{
		"https://www.youtube.com/watch?v=abc": true,
		"http://example.com/v.mp4":            true,
		"  https://youtu.be/abc  ":            true,
		"ftp://example.com/v.mp4":             false,
		"video.mp4":                           false,
		"/home/me/video.mp4":                  false,
		"https:///nohost":                     false,
	}
	for in, want := range tests {
		if got := IsURL(in); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestArgsWithoutCookies(t *testing.T) {
	a := New(Options{Format: "best", FFmpegLocation: "/opt/ffmpeg/bin"}, logging.NewNop())
	args := a.Args("https://youtu.be/x", "/work/video.mp4")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"--ffmpeg-location /opt/ffmpeg/bin",
		"--extractor-args youtube:player_client=ios,web",
		"-f best",
		"--merge-output-format mp4",
		"-o /work/video.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
	if strings.Contains(joined, "--cookies") {
		t.Fatalf("unexpected cookie args: %q", joined)
	}
	if args[len(args)-1] != "https://youtu.be/x" {
		t.Fatalf("url must be last, got %q", args)
	}
}

func TestArgsCookies(t *testing.T) {
	fileArgs := New(Options{CookiesFile: "/tmp/cookies.txt", Browser: "chrome"}, nil).Args("https://youtu.be/x", "out.mp4")
	if !slices.Contains(fileArgs, "youtube:player_client=tv_embedded,web") {
		t.Fatalf("expected tv_embedded client with cookies: %q", fileArgs)
	}
	if i := slices.Index(fileArgs, "--cookies"); i < 0 || fileArgs[i+1] != "/tmp/cookies.txt" {
		t.Fatalf("expected cookies file: %q", fileArgs)
	}
	if slices.Contains(fileArgs, "--cookies-from-browser") {
		t.Fatalf("cookies file must win over browser: %q", fileArgs)
	}

	browserArgs := New(Options{Browser: "firefox"}, nil).Args("https://youtu.be/x", "out.mp4")
	if i := slices.Index(browserArgs, "--cookies-from-browser"); i < 0 || browserArgs[i+1] != "firefox" {
		t.Fatalf("expected browser cookies: %q", browserArgs)
	}
}

func TestAcquireLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mkv")
	testsupport.WriteFile(t, path, 128)

	src, err := New(Options{Dir: t.TempDir()}, nil).Acquire(context.Background(), path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if src.Path != path || src.Downloaded || src.SizeBytes != 128 {
		t.Fatalf("unexpected source %+v", src)
	}
	if err := src.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("local source must survive cleanup: %v", err)
	}
}

func TestAcquireLocalErrors(t *testing.T) {
	a := New(Options{}, nil)
	if _, err := a.Acquire(context.Background(), filepath.Join(t.TempDir(), "missing.mp4")); !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	if _, err := a.Acquire(context.Background(), t.TempDir()); !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition for directory, got %v", err)
	}
	if _, err := a.Acquire(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAcquireDownloadsWithStub(t *testing.T) {
	bin := t.TempDir()
	// Write a fake video to the -o target.
	stub := testsupport.WriteExecutable(t, bin, "yt-dlp", `while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then shift; printf 'mp4data' > "$1"; fi
  shift
done
`)
	dir := filepath.Join(t.TempDir(), "run")
	a := New(Options{YtDlpBinary: stub, Dir: dir, Timeout: time.Minute}, logging.NewNop())

	src, err := a.Acquire(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !src.Downloaded || src.Path != filepath.Join(dir, DownloadName) || src.SizeBytes != 7 {
		t.Fatalf("unexpected source %+v", src)
	}
	if err := src.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src.Path); !os.IsNotExist(err) {
		t.Fatalf("expected download removed, got %v", err)
	}
}

func TestAcquireDownloadFailures(t *testing.T) {
	failing := func(context.Context, string, ...string) error {
		return errors.New("ERROR: Sign in to confirm you're not a bot")
	}
	a := New(Options{Dir: t.TempDir()}, nil, WithCommandRunner(failing))
	_, err := a.Acquire(context.Background(), "https://youtu.be/abc")
	if !errors.Is(err, services.ErrAcquisition) || !strings.Contains(err.Error(), "--browser") {
		t.Fatalf("expected acquisition error with cookie hint, got %v", err)
	}

	silent := func(context.Context, string, ...string) error { return nil }
	a = New(Options{Dir: t.TempDir()}, nil, WithCommandRunner(silent))
	if _, err := a.Acquire(context.Background(), "https://youtu.be/abc"); !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected error when no file is produced, got %v", err)
	}
}

func TestAcquireDownloadTimeout(t *testing.T) {
	blocking := func(ctx context.Context, _ string, _ ...string) error {
		<-ctx.Done()
		return ctx.Err()
	}
	a := New(Options{Dir: t.TempDir(), Timeout: 10 * time.Millisecond}, nil, WithCommandRunner(blocking))
	_, err := a.Acquire(context.Background(), "https://youtu.be/abc")
	if !errors.Is(err, services.ErrAcquisition) || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected acquisition timeout error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Acquire(ctx, "https://youtu.be/abc"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLastLines(t *testing.T) {
	if got := lastLines("a\nb\nc\n", 2); got != "b | c" {
		t.Fatalf("lastLines = %q", got)
	}
}
