// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The package has no hardsub-specific dependencies. Inspect executes ffprobe
// and returns a Result; helpers on Result expose the video stream, its
// dimensions and frame rate, and the container duration the frame sampler
// uses to report progress.
package ffprobe
