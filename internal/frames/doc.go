// Package frames samples still images from a video with ffmpeg.
//
// A Sampler runs a single ffmpeg invocation that keeps one frame every
// interval seconds, crops the bottom band of the picture where hard-coded
// subtitles live, and writes numbered JPEGs into a scratch directory. The
// resulting Batch yields frames lazily in index order and removes the
// directory on Cleanup unless frames are kept for inspection.
package frames
