package eurlex

import (
	"sync"
	"time"
)

// DefaultCacheTTL is the default time-to-live for cached documents.
const DefaultCacheTTL = 1 * time.Hour

// cacheEntry holds a cached document and its expiration time.
type cacheEntry struct {
	document  Document
	expiresAt time.Time
}

// DocumentCache is a thread-safe, in-memory TTL cache for retrieved
// documents, keyed by CELEX number. Entries are lazily expired on access
// (checked during Get).
type DocumentCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	defaultTTL time.Duration
}

// NewDocumentCache creates a new cache with the given default TTL.
func NewDocumentCache(defaultTTL time.Duration) *DocumentCache {
	return &DocumentCache{
		entries:    make(map[string]cacheEntry),
		defaultTTL: defaultTTL,
	}
}

// Get retrieves a cached document by key.
// Returns the document and true if found and not expired, or a zero value and
// false otherwise. Expired entries are lazily removed on access.
func (documentCache *DocumentCache) Get(key string) (Document, bool) {
	documentCache.mu.RLock()
	entry, exists := documentCache.entries[key]
	documentCache.mu.RUnlock()

	if !exists {
		return Document{}, false
	}

	if time.Now().After(entry.expiresAt) {
		// Lazily remove expired entry.
		documentCache.mu.Lock()
		// Re-check in case another goroutine already removed or replaced it.
		if current, stillExists := documentCache.entries[key]; stillExists && time.Now().After(current.expiresAt) {
			delete(documentCache.entries, key)
		}
		documentCache.mu.Unlock()
		return Document{}, false
	}

	return entry.document, true
}

// Set stores a document in the cache with the default TTL.
func (documentCache *DocumentCache) Set(key string, document Document) {
	documentCache.mu.Lock()
	documentCache.entries[key] = cacheEntry{
		document:  document,
		expiresAt: time.Now().Add(documentCache.defaultTTL),
	}
	documentCache.mu.Unlock()
}

// Invalidate removes a specific entry from the cache.
func (documentCache *DocumentCache) Invalidate(key string) {
	documentCache.mu.Lock()
	delete(documentCache.entries, key)
	documentCache.mu.Unlock()
}

// Len returns the number of entries currently in the cache (including
// potentially expired ones).
func (documentCache *DocumentCache) Len() int {
	documentCache.mu.RLock()
	count := len(documentCache.entries)
	documentCache.mu.RUnlock()
	return count
}
