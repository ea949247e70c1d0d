package services

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"ebay-sales-analytics/models"
)

const DefaultCacheSize = 32

// ParsedSource is the outcome of parsing one source.
type ParsedSource struct {
	Dataset models.Dataset
	Report  models.SourceReport
}

func (p *ParsedSource) clone() *ParsedSource {
	return &ParsedSource{Dataset: p.Dataset.Clone(), Report: p.Report}
}

// DatasetCache memoizes parsed sources by a hash of their exact content.
// Entries are copied on the way in and out.
type DatasetCache struct {
	entries *lru.Cache[string, *ParsedSource]
}

// NewDatasetCache creates a cache holding at most size sources.
func NewDatasetCache(size int) (*DatasetCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *ParsedSource](size)
	if err != nil {
		return nil, err
	}
	return &DatasetCache{entries: c}, nil
}

// ContentKey is the cache key for a source's raw bytes.
func ContentKey(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (c *DatasetCache) Get(key string) (*ParsedSource, bool) {
	p, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

func (c *DatasetCache) Add(key string, p *ParsedSource) {
	c.entries.Add(key, p.clone())
}

// Retain evicts every entry whose key is not in keep.
func (c *DatasetCache) Retain(keep []string) int {
	wanted := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		wanted[k] = struct{}{}
	}

	evicted := 0
	for _, k := range c.entries.Keys() {
		if _, ok := wanted[k]; !ok {
			c.entries.Remove(k)
			evicted++
		}
	}
	return evicted
}

func (c *DatasetCache) Purge() {
	c.entries.Purge()
}

func (c *DatasetCache) Len() int {
	return c.entries.Len()
}
