package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coolbeans/lexparse/pkg/eurlex"
)

// DiskCache provides persistent, file-based caching for retrieved documents.
// Each cached entry is stored as a JSON file keyed by a SHA-256 hash of the
// CELEX number.
type DiskCache struct {
	cacheDir string
	cacheTTL time.Duration
}

// diskCacheEntry wraps a retrieved document with an expiration timestamp for
// TTL enforcement. HTML marshals as base64.
type diskCacheEntry struct {
	CELEX       string    `json:"celex"`
	URL         string    `json:"url"`
	Language    string    `json:"language"`
	RetrievedAt time.Time `json:"retrieved_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	HTML        []byte    `json:"html"`
}

// NewDiskCache creates a new disk cache in the given directory with the
// specified TTL. Creates the directory if it does not exist.
func NewDiskCache(cacheDir string, cacheTTL time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	return &DiskCache{
		cacheDir: cacheDir,
		cacheTTL: cacheTTL,
	}, nil
}

// Get retrieves a cached document by CELEX number.
// Returns the document and true if found and not expired, or a zero Document
// and false otherwise.
func (cache *DiskCache) Get(celexNumber string) (eurlex.Document, bool) {
	cacheFilePath := cache.pathFor(celexNumber)

	data, err := os.ReadFile(cacheFilePath)
	if err != nil {
		return eurlex.Document{}, false
	}

	var entry diskCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return eurlex.Document{}, false
	}

	if time.Now().After(entry.ExpiresAt) {
		// Entry expired, remove the stale file.
		_ = os.Remove(cacheFilePath)
		return eurlex.Document{}, false
	}

	return eurlex.Document{
		CELEX:       entry.CELEX,
		URL:         entry.URL,
		Language:    entry.Language,
		RetrievedAt: entry.RetrievedAt,
		HTML:        entry.HTML,
	}, true
}

// Set stores a document in the cache under its CELEX number.
func (cache *DiskCache) Set(document eurlex.Document) error {
	entry := diskCacheEntry{
		CELEX:       document.CELEX,
		URL:         document.URL,
		Language:    document.Language,
		RetrievedAt: document.RetrievedAt,
		ExpiresAt:   time.Now().Add(cache.cacheTTL),
		HTML:        document.HTML,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	cacheFilePath := cache.pathFor(document.CELEX)
	if err := os.WriteFile(cacheFilePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", cacheFilePath, err)
	}

	return nil
}

// keyFor returns the SHA-256 hash of the CELEX number, used as the cache
// filename.
func (cache *DiskCache) keyFor(celexNumber string) string {
	hash := sha256.Sum256([]byte(celexNumber))
	return hex.EncodeToString(hash[:])
}

// pathFor returns the full file path for a cached CELEX number.
func (cache *DiskCache) pathFor(celexNumber string) string {
	return filepath.Join(cache.cacheDir, cache.keyFor(celexNumber)+".json")
}
