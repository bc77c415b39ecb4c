package cache

import (
	"container/list"
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dataspace-gateway/internal/clients/management"
)

// CatalogFetcher fetches a counter-party catalog on a cache miss
type CatalogFetcher interface {
	GetCatalog(ctx context.Context, contextID, counterPartyID string) (*management.Catalog, error)
}

// cacheKey identifies one cached catalog
type cacheKey struct {
	ContextID    string
	CounterParty string
}

// cacheEntry is one cached catalog with its fetch time
type cacheEntry struct {
	key       cacheKey
	value     *management.Catalog
	fetchedAt time.Time
}

// CatalogCache is a bounded, LRU-evicted read-through cache for counter-party
// catalogs, keyed by (local context, counter-party). Freshness follows the
// HTTP Cache-Control directives no-cache, no-store and max-age. A forced
// refresh runs as a per-key single flight: concurrent refreshes of one key
// perform exactly one remote fetch.
type CatalogCache struct {
	mu       sync.Mutex
	fetcher  CatalogFetcher
	capacity int
	entries  map[cacheKey]*list.Element
	order    *list.List // front = most recently used
	group    singleflight.Group
	now      func() time.Time
}

// NewCatalogCache creates a catalog cache holding at most capacity entries
func NewCatalogCache(fetcher CatalogFetcher, capacity int) *CatalogCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &CatalogCache{
		fetcher:  fetcher,
		capacity: capacity,
		entries:  make(map[cacheKey]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the catalog for (contextID, counterPartyID), fetching it when
// absent or when the freshness directive demands a refresh.
func (c *CatalogCache) Get(ctx context.Context, contextID, counterPartyID, directive string) (*management.Catalog, error) {
	key := cacheKey{ContextID: contextID, CounterParty: counterPartyID}

	c.mu.Lock()
	element, exists := c.entries[key]
	if exists {
		entry := element.Value.(*cacheEntry)
		if !forceRefresh(directive, entry.fetchedAt, c.now()) {
			c.order.MoveToFront(element)
			value := entry.value
			c.mu.Unlock()
			return value, nil
		}
	}
	c.mu.Unlock()

	value, err, _ := c.group.Do(flightKey(key), func() (interface{}, error) {
		catalog, err := c.fetcher.GetCatalog(ctx, contextID, counterPartyID)
		if err != nil {
			return nil, err
		}
		c.store(key, catalog)
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*management.Catalog), nil
}

// Purge drops every cached entry
func (c *CatalogCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*list.Element)
	c.order.Init()
}

// Len returns the number of cached entries
func (c *CatalogCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// store inserts or replaces an entry and applies LRU capacity eviction
func (c *CatalogCache) store(key cacheKey, catalog *management.Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, exists := c.entries[key]; exists {
		entry := element.Value.(*cacheEntry)
		entry.value = catalog
		entry.fetchedAt = c.now()
		c.order.MoveToFront(element)
		return
	}

	element := c.order.PushFront(&cacheEntry{key: key, value: catalog, fetchedAt: c.now()})
	c.entries[key] = element

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func flightKey(key cacheKey) string {
	return key.ContextID + "\x00" + key.CounterParty
}

// forceRefresh evaluates a Cache-Control style directive against an entry's
// fetch time. An empty directive never forces a refresh; no-cache and
// no-store always do; max-age=S forces one once the entry is S seconds old;
// anything else counts as fresh.
func forceRefresh(directive string, fetchedAt, now time.Time) bool {
	if directive == "" {
		return false
	}

	for _, token := range strings.Split(directive, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		switch {
		case token == "no-cache" || token == "no-store":
			return true
		case strings.HasPrefix(token, "max-age="):
			seconds, err := strconv.Atoi(strings.TrimPrefix(token, "max-age="))
			if err != nil {
				continue
			}
			if !fetchedAt.Add(time.Duration(seconds) * time.Second).After(now) {
				return true
			}
		}
	}
	return false
}
