package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"hardsub/internal/fileutil"
	"hardsub/internal/logging"
)

// Cache stores recognized text by image hash and engine signature.
// *store.Store satisfies it.
type Cache interface {
	LookupText(ctx context.Context, imageHash, engine string) (string, bool, error)
	SaveText(ctx context.Context, imageHash, engine, text string) error
}

// CachedRecognizer consults a Cache before delegating to another Recognizer.
// Cache failures are logged and bypassed.
type CachedRecognizer struct {
	inner     Recognizer
	cache     Cache
	engine    string
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
	cacheWarn atomic.Bool
}

// NewCachedRecognizer wraps inner with cache.
func NewCachedRecognizer(inner Recognizer, cache Cache, logger *slog.Logger) *CachedRecognizer {
	return &CachedRecognizer{
		inner:  inner,
		cache:  cache,
		engine: engineKey(inner.Signature()),
		logger: logging.NewComponentLogger(logger, "ocr-cache"),
	}
}

func engineKey(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return hex.EncodeToString(sum[:8])
}

// Signature returns the wrapped recognizer's signature.
func (c *CachedRecognizer) Signature() string { return c.inner.Signature() }

// Hits returns the number of frames served from the cache.
func (c *CachedRecognizer) Hits() int64 { return c.hits.Load() }

// Misses returns the number of frames sent to the engine.
func (c *CachedRecognizer) Misses() int64 { return c.misses.Load() }

// Recognize returns cached text for identical image content, otherwise runs
// the wrapped recognizer and stores its result.
func (c *CachedRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	hash, err := fileutil.HashFile(imagePath)
	if err != nil {
		c.warnOnce(ctx, "hash frame", err)
		c.misses.Add(1)
		return c.inner.Recognize(ctx, imagePath)
	}

	text, ok, err := c.cache.LookupText(ctx, hash, c.engine)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.warnOnce(ctx, "lookup", err)
	case ok:
		c.hits.Add(1)
		return text, nil
	}

	c.misses.Add(1)
	text, err = c.inner.Recognize(ctx, imagePath)
	if err != nil {
		return "", err
	}
	if err := c.cache.SaveText(ctx, hash, c.engine, text); err != nil && ctx.Err() == nil {
		c.warnOnce(ctx, "save", err)
	}
	return text, nil
}

// warnOnce reports the first cache failure of a run; repeats go to debug.
func (c *CachedRecognizer) warnOnce(ctx context.Context, op string, err error) {
	logger := logging.WithContext(ctx, c.logger)
	if c.cacheWarn.CompareAndSwap(false, true) {
		logging.WarnWithContext(logger, "ocr cache unavailable", "ocr_cache_failed",
			logging.String("operation", op),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'hardsub cache clear' or check the state directory"),
			logging.String(logging.FieldImpact, "frames are recognized without caching"),
		)
		return
	}
	logger.Debug("ocr cache failure", logging.String("operation", op), logging.Error(err))
}
