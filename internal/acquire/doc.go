// Package acquire resolves the video a run extracts from.
//
// Local paths are used in place. HTTP(S) URLs are downloaded with yt-dlp into
// the run's work directory, optionally authenticated with browser cookies or
// a cookies.txt file.
package acquire
