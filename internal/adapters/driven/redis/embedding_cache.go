package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingService = (*EmbeddingCache)(nil)

const (
	embeddingPrefix = "policypal:emb:"

	// DefaultEmbeddingTTL keeps cached vectors for a week
	DefaultEmbeddingTTL = 7 * 24 * time.Hour
)

// EmbeddingCache wraps an EmbeddingService and stores vectors in Redis keyed
// by model and text hash. Cache failures are logged and bypassed; they never
// fail an embedding request.
type EmbeddingCache struct {
	inner  driven.EmbeddingService
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewEmbeddingCache wraps inner. A zero ttl uses DefaultEmbeddingTTL.
func NewEmbeddingCache(inner driven.EmbeddingService, client *redis.Client, ttl time.Duration, logger *slog.Logger) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingCache{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return embeddingPrefix + c.inner.Model() + ":" + hex.EncodeToString(sum[:])
}

// Embed serves cached vectors and embeds only the misses, preserving input order
func (c *EmbeddingCache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return c.inner.Embed(ctx, texts)
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("embedding cache read failed", "error", err)
		cached = nil
	}
	for i := range texts {
		if i < len(cached) {
			if s, ok := cached[i].(string); ok {
				if vec, err := decodeVector([]byte(s)); err == nil {
					out[i] = vec
					continue
				}
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(missTexts))
	}

	pipe := c.client.Pipeline()
	for j, i := range missIdx {
		out[i] = vectors[j]
		pipe.Set(ctx, keys[i], encodeVector(vectors[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("embedding cache write failed", "error", err, "count", len(missIdx))
	}

	return out, nil
}

// EmbedQuery embeds a question through the cache
func (c *EmbeddingCache) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	key := c.key(query)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if vec, err := decodeVector(data); err == nil {
			return vec, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn("embedding cache read failed", "error", err)
	}

	vec, err := c.inner.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, encodeVector(vec), c.ttl).Err(); err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

func (c *EmbeddingCache) Dimensions() int {
	return c.inner.Dimensions()
}

func (c *EmbeddingCache) Model() string {
	return c.inner.Model()
}

func (c *EmbeddingCache) HealthCheck(ctx context.Context) error {
	return c.inner.HealthCheck(ctx)
}

// Close closes the wrapped service. The Redis client is owned by the caller.
func (c *EmbeddingCache) Close() error {
	return c.inner.Close()
}

// encodeVector packs float32 values little-endian
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid cached vector of %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
