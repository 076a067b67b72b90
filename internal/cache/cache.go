// Package cache stores adjusted datasets in Redis, compressed with zstd.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/klauspost/compress/zstd"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/pkg/models"
)

// Cache holds adjusted datasets keyed by dataset digest and request.
// A failing Redis never fails a request; errors are logged and read as misses.
type Cache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a cache on top of a Redis client
func New(client redis.Cmdable, prefix string, ttl time.Duration) (*Cache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		enc:    enc,
		dec:    dec,
	}, nil
}

// Key derives the Redis key for a request against a dataset
func (c *Cache) Key(digest string, req adjust.Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(digest))
	h.Write([]byte{0})
	h.Write(body)
	return c.prefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns a cached result, reporting false on a miss
func (c *Cache) Get(ctx context.Context, digest string, req adjust.Request) (models.AdjustedDataset, bool) {
	key, err := c.Key(digest, req)
	if err != nil {
		log.Printf("Cache key error: %v", err)
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Warning: cache read failed: %v", err)
		}
		return nil, false
	}

	result, err := c.decode(data)
	if err != nil {
		log.Printf("Warning: discarding cache entry %s: %v", key, err)
		return nil, false
	}
	return result, true
}

// Set stores a result with the configured TTL
func (c *Cache) Set(ctx context.Context, digest string, req adjust.Request, result models.AdjustedDataset) {
	key, err := c.Key(digest, req)
	if err != nil {
		log.Printf("Cache key error: %v", err)
		return
	}

	data, err := c.encode(result)
	if err != nil {
		log.Printf("Cache encode error: %v", err)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("Warning: cache write failed: %v", err)
	}
}

// Close releases the decoder's resources
func (c *Cache) Close() {
	c.dec.Close()
}

func (c *Cache) encode(result models.AdjustedDataset) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(raw, nil), nil
}

func (c *Cache) decode(data []byte) (models.AdjustedDataset, error) {
	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	var result models.AdjustedDataset
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result, nil
}
