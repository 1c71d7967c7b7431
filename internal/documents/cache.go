package documents

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	contentKeyPrefix    = "inkroom:content:"
	generationKeyPrefix = "inkroom:content-gen:"

	// generationTTL must outlive any in-flight load.
	generationTTL = 24 * time.Hour
	loadTimeout   = 30 * time.Second
)

// ContentCache is a Redis read-through cache for document content. A nil
// cache, or one without a client, passes every read straight to the loader.
//
// Every room carries a generation counter. Invalidate bumps it before
// dropping the cached body, and a load only stores its result while the
// generation it started from is still current.
type ContentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewContentCache instantiates the cache helper.
func NewContentCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ContentCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ContentCache{client: client, ttl: ttl, logger: logger}
}

func contentKey(roomID string) string {
	return contentKeyPrefix + roomID
}

func generationKey(roomID string) string {
	return generationKeyPrefix + roomID
}

// Fetch returns the cached content of roomID or populates it using loader.
// Concurrent misses for the same room share one loader call, which runs
// detached from the caller's cancellation. Redis failures are logged and fall
// back to the loader.
func (c *ContentCache) Fetch(ctx context.Context, roomID string, loader func(context.Context) (string, error)) (string, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	key := contentKey(roomID)
	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("content cache read", slog.String("room_id", roomID), slog.Any("error", err))
	}

	detached := context.WithoutCancel(ctx)
	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(detached, loadTimeout)
		defer cancel()

		gen, genOK := c.generation(loadCtx, roomID)
		content, err := loader(loadCtx)
		if err != nil {
			return "", err
		}
		if genOK {
			c.store(loadCtx, roomID, gen, content)
		}
		return content, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// generation reads the current generation of roomID. A missing counter reads
// as the empty string.
func (c *ContentCache) generation(ctx context.Context, roomID string) (string, bool) {
	gen, err := c.client.Get(ctx, generationKey(roomID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("content cache generation read", slog.String("room_id", roomID), slog.Any("error", err))
		return "", false
	}
	return gen, true
}

// store writes content only when the generation of roomID still equals gen.
func (c *ContentCache) store(ctx context.Context, roomID, gen, content string) {
	genKey := generationKey(roomID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, contentKey(roomID), content, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("content cache write skipped", slog.String("room_id", roomID))
	default:
		c.logger.Warn("content cache write", slog.String("room_id", roomID), slog.Any("error", err))
	}
}

// Invalidate drops the cached content of roomID and bumps its generation so
// loads already in flight cannot store what they read.
func (c *ContentCache) Invalidate(ctx context.Context, roomID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	c.group.Forget(contentKey(roomID))
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(roomID))
		pipe.Expire(ctx, generationKey(roomID), generationTTL)
		pipe.Del(ctx, contentKey(roomID))
		return nil
	})
	return err
}
