package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ListingCache keeps recent search results keyed by normalized query.
type ListingCache[V any] struct {
	lru *expirable.LRU[string, V]
}

// New builds a cache holding at most size entries for ttl each.
func New[V any](size int, ttl time.Duration) *ListingCache[V] {
	if size <= 0 {
		size = 512
	}
	return &ListingCache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Key normalizes a query the way lookups and stores agree on.
func Key(query string) string {
	return "search:" + strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Get returns the cached value for query.
func (c *ListingCache[V]) Get(query string) (V, bool) {
	return c.lru.Get(Key(query))
}

// Set stores value for query.
func (c *ListingCache[V]) Set(query string, value V) {
	c.lru.Add(Key(query), value)
}

// Purge drops every entry.
func (c *ListingCache[V]) Purge() {
	c.lru.Purge()
}

// Len reports the number of live entries.
func (c *ListingCache[V]) Len() int {
	return c.lru.Len()
}
