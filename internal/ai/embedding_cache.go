package ai

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pdf-qa-service/internal/logger"
	"pdf-qa-service/utils"

	"github.com/redis/go-redis/v9"
)

const embeddingKeyPrefix = "emb:"

// CachedEmbedder keeps embeddings in Redis keyed by model and text. Redis
// failures never fail a request; the wrapped embedder is called instead.
type CachedEmbedder struct {
	embedder Embedder
	rdb      *redis.Client
	ttl      time.Duration
}

// NewCachedEmbedder returns embedder unchanged when rdb is nil.
func NewCachedEmbedder(embedder Embedder, rdb *redis.Client, ttl time.Duration) Embedder {
	if rdb == nil || embedder == nil {
		return embedder
	}
	return &CachedEmbedder{embedder: embedder, rdb: rdb, ttl: ttl}
}

func (c *CachedEmbedder) Model() string { return c.embedder.Model() }

func (c *CachedEmbedder) cacheKey(text string) string {
	return embeddingKeyPrefix + utils.HashKey(c.embedder.Model(), text)
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var embedding []float32
		if err := json.Unmarshal(data, &embedding); err == nil {
			logger.Debug("Embedding cache hit", "key", key)
			return embedding, nil
		}
		logger.Warn("Dropping corrupt cached embedding", "key", key)
		_ = c.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("Embedding cache read failed", "error", err)
	}

	embedding, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(embedding)
	if err != nil {
		return embedding, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("Failed to cache embedding", "error", err, "key", key)
	}

	return embedding, nil
}
