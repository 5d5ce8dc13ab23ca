// Package searchcache caches external search responses in a key-value store.
package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/db"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"
)

// Searcher is the decorated search provider.
type Searcher interface {
	Search(ctx context.Context, query string, params domretrieval.Params) ([]candidate.Document, error)
}

// store is the consumer interface for the search cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// docRow is the cached form of one candidate.
type docRow struct {
	URL     string           `json:"url"`
	Title   string           `json:"title"`
	Snippet string           `json:"snippet"`
	Markup  candidate.Markup `json:"markup,omitempty"`
}

// CachedSearch caches provider responses per shaped query and params.
// Failed searches are never cached; cache errors never fail a search.
type CachedSearch struct {
	inner      Searcher
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner Searcher,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSearch{
		inner:      inner,
		store:      s,
		prefix:     prefix + "search_cache:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Search returns cached documents or calls the inner provider.
func (c *CachedSearch) Search(
	ctx context.Context, query string, params domretrieval.Params,
) ([]candidate.Document, error) {
	key := c.cacheKey(query, params)

	if docs, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return docs, nil
	}

	c.incCache("miss")

	docs, err := c.inner.Search(ctx, query, params)
	if err != nil {
		return nil, err
	}

	c.putToCache(ctx, key, docs)
	return docs, nil
}

func (c *CachedSearch) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedSearch) cacheKey(query string, params domretrieval.Params) string {
	h := sha256.Sum256([]byte(params.Lang + "\x00" + strconv.Itoa(params.Num) + "\x00" + query))
	return c.prefix + hex.EncodeToString(h[:])
}

func (c *CachedSearch) getFromCache(ctx context.Context, key string) ([]candidate.Document, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached search", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	docs, err := decodeDocs(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached search", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return docs, true
}

func (c *CachedSearch) putToCache(ctx context.Context, key string, docs []candidate.Document) {
	data, err := encodeDocs(docs)
	if err != nil {
		c.logger.Warn("Failed to encode search for cache", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache search", zap.String("key", key), zap.Error(err))
	}
}

func encodeDocs(docs []candidate.Document) ([]byte, error) {
	rows := make([]docRow, len(docs))
	for i, d := range docs {
		rows[i] = docRow{URL: d.URL(), Title: d.Title(), Snippet: d.Snippet(), Markup: d.Markup()}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal documents: %w", err)
	}
	return data, nil
}

func decodeDocs(data []byte) ([]candidate.Document, error) {
	var rows []docRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	docs := make([]candidate.Document, len(rows))
	for i, r := range rows {
		docs[i] = candidate.New(r.URL, r.Title, r.Snippet, r.Markup)
	}
	return docs, nil
}
