// Package ocr turns sampled frames into per-frame text.
//
// CommandRecognizer runs an external OCR program built from a command
// template with {image} and {lang} placeholders. CachedRecognizer memoizes
// results by image content hash in the SQLite store so re-running an
// extraction over the same frames skips the engine. Pool recognizes frames
// concurrently and yields stitch observations strictly in frame order.
package ocr
