// Package embcache caches query embeddings in Redis/Valkey so repeated
// queries skip the embedding backend entirely.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
)

const keyPrefix = "hybridsearch:emb_cache:"

// Config holds connection parameters for the cache backend.
type Config struct {
	Addrs    []string
	Password string
}

// CachedVectorizer decorates a vectorizer with a key-value cache.
// Cache keys include the model name so a model change never serves
// stale vectors.
type CachedVectorizer struct {
	inner      domain.Vectorizer
	client     rueidis.Client
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates the caching decorator and connects to the cache backend.
// cacheTotal is a counter vec with label "result" ("hit"/"miss").
func New(
	inner domain.Vectorizer,
	cfg Config,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) (*CachedVectorizer, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache client: %w", err)
	}
	return &CachedVectorizer{
		inner:      inner,
		client:     client,
		cacheTotal: cacheTotal,
		logger:     logger,
	}, nil
}

// Close shuts down the cache connection.
func (c *CachedVectorizer) Close() { c.client.Close() }

// Embed returns a cached embedding or calls the inner vectorizer.
// Cache hits report zero token usage (no real tokens consumed).
func (c *CachedVectorizer) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.putToCache(ctx, key, result.Embedding)
	return result, nil
}

// Dimensions implements domain.Vectorizer.
func (c *CachedVectorizer) Dimensions() int { return c.inner.Dimensions() }

// Model implements domain.Vectorizer.
func (c *CachedVectorizer) Model() string { return c.inner.Model() }

func (c *CachedVectorizer) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedVectorizer) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.inner.Model() + "|" + text))
	return keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedVectorizer) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	cmd := c.client.B().Get().Key(key).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, false
	}

	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, true
}

func (c *CachedVectorizer) putToCache(ctx context.Context, key string, vec []float32) {
	data := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	cmd := c.client.B().Set().Key(key).Value(rueidis.BinaryString(data)).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}
