// Package config loads, normalizes, and validates hardsub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours HARDSUB_* environment overrides.
// The Config type centralizes every knob the extraction pipeline and CLI
// need: scratch and state directories, yt-dlp acquisition, frame sampling,
// the OCR command, stitching thresholds, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum spellings, and clear validation errors.
package config
