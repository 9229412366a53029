package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanqian/usage-forecaster/internal/domain/prompt"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

// resultCache shares in-flight generations and stores validated results.
type resultCache struct {
	store  ResultCache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func newResultCache(store ResultCache, ttl time.Duration, logger *slog.Logger) *resultCache {
	if store == nil {
		return nil
	}
	return &resultCache{store: store, ttl: ttl, logger: logger}
}

func cacheKey(kind prompt.Kind, sourceID string, spec prompt.Spec) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(sourceID))
	h.Write([]byte{0})
	h.Write([]byte(spec.Render()))
	return "analysis:" + string(kind) + ":" + hex.EncodeToString(h.Sum(nil))
}

// runCached returns a stored result for key or runs fn once for all
// concurrent callers with that key. Only successful results are stored; the
// second return value reports a cache hit. A nil cache calls fn directly.
func runCached[T any](ctx context.Context, c *resultCache, key string, fn func(context.Context) (T, error)) (T, bool, error) {
	if c == nil {
		v, err := fn(ctx)
		return v, false, err
	}

	var zero T
	if payload, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Warn("result cache read failed", "key", key, "error", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(payload, &v); err == nil {
			return v, true, nil
		}
		c.logger.Warn("result cache entry unreadable", "key", key)
	}

	// The shared generation outlives any single caller; the responder timeout
	// bounds it. Each caller stops waiting when its own context ends.
	ch := c.group.DoChan(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		v, err := fn(shared)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(v)
		if err == nil {
			if err := c.store.Set(shared, key, payload, c.ttl); err != nil {
				c.logger.Warn("result cache write failed", "key", key, "error", err)
			}
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	case <-ctx.Done():
		return zero, false, apperrors.Wrap(CodeResponderUnavailable, "request cancelled while waiting for responder", ctx.Err())
	}
}
