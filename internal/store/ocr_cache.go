package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheStats summarizes the OCR cache.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Engines int64 `json:"engines"`
	Bytes   int64 `json:"bytes"`
}

// LookupText returns the cached recognition for an image hash under an
// engine signature and bumps its hit counter.
func (s *Store) LookupText(ctx context.Context, imageHash, engine string) (string, bool, error) {
	ctx = ensureContext(ctx)
	var text string
	err := s.db.QueryRowContext(ctx,
		"SELECT text FROM ocr_cache WHERE image_hash = ? AND engine = ?",
		imageHash, engine,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup ocr cache: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		"UPDATE ocr_cache SET hits = hits + 1, last_used_at = ? WHERE image_hash = ? AND engine = ?",
		formatTime(time.Now()), imageHash, engine,
	); err != nil {
		return "", false, fmt.Errorf("touch ocr cache: %w", err)
	}
	return text, true, nil
}

// SaveText stores a recognition result, replacing any previous entry.
func (s *Store) SaveText(ctx context.Context, imageHash, engine, text string) error {
	now := formatTime(time.Now())
	_, err := s.execWithRetry(ctx,
		`INSERT INTO ocr_cache (image_hash, engine, text, hits, created_at, last_used_at)
         VALUES (?, ?, ?, 0, ?, ?)
         ON CONFLICT(image_hash, engine) DO UPDATE SET text = excluded.text, last_used_at = excluded.last_used_at`,
		imageHash, engine, text, now, now,
	)
	if err != nil {
		return fmt.Errorf("save ocr cache: %w", err)
	}
	return nil
}

// CacheStats reports entry, hit and size totals.
func (s *Store) CacheStats(ctx context.Context) (CacheStats, error) {
	ctx = ensureContext(ctx)
	var stats CacheStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(hits), 0), COUNT(DISTINCT engine), COALESCE(SUM(LENGTH(CAST(text AS BLOB))), 0)
         FROM ocr_cache`,
	).Scan(&stats.Entries, &stats.Hits, &stats.Engines, &stats.Bytes)
	if err != nil {
		return CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

// ClearCache removes cached recognitions. A zero olderThan clears all entries;
// otherwise only entries unused for at least that long are removed.
func (s *Store) ClearCache(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := "DELETE FROM ocr_cache"
	var args []any
	if olderThan > 0 {
		query += " WHERE last_used_at < ?"
		args = append(args, formatTime(time.Now().Add(-olderThan)))
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear ocr cache: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear ocr cache: %w", err)
	}
	return removed, nil
}
