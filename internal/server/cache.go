package server

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
)

// resultCache remembers the bubbles produced for an exact image payload.
type resultCache struct {
	lru *lru.Cache
}

func newResultCache(size int) (*resultCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &resultCache{lru: c}, nil
}

func cacheKey(engineName string, data []byte) string {
	sum := sha256.Sum256(data)
	return engineName + ":" + hex.EncodeToString(sum[:])
}

func (c *resultCache) get(key string) ([]bubble.Bubble, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]bubble.Bubble), true
}

func (c *resultCache) add(key string, bubbles []bubble.Bubble) {
	if c == nil {
		return
	}
	c.lru.Add(key, bubbles)
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *resultCache) purge() int {
	if c == nil {
		return 0
	}
	n := c.lru.Len()
	c.lru.Purge()
	return n
}
