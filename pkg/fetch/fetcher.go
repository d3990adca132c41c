package fetch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coolbeans/lexparse/pkg/eurlex"
)

// Fetcher retrieves EUR-Lex documents, consulting the on-disk cache before
// the network. The in-memory TTL cache inside the EUR-Lex client still
// applies underneath.
type Fetcher struct {
	client *eurlex.Client
	cache  *DiskCache
}

// NewFetcher creates a Fetcher from the given configuration.
// A disk cache is opened only when config.CacheDir is set.
func NewFetcher(config Config) (*Fetcher, error) {
	client := eurlex.NewClient(eurlex.ClientConfig{
		RateLimit:  config.RateLimit,
		CacheTTL:   config.CacheTTL,
		HTTPClient: &http.Client{Timeout: config.Timeout},
		UserAgent:  config.UserAgent,
		Language:   config.Language,
	})

	var cache *DiskCache
	if config.CacheDir != "" {
		var err error
		cache, err = NewDiskCache(config.CacheDir, config.CacheTTL)
		if err != nil {
			return nil, err
		}
	}

	return &Fetcher{client: client, cache: cache}, nil
}

// Document resolves a legislation reference in any accepted form (CELEX
// number, ELI path, or conversational form) and retrieves its HTML.
func (fetcher *Fetcher) Document(ctx context.Context, input string) (*eurlex.Document, error) {
	ref, err := eurlex.ParseReference(input)
	if err != nil {
		return nil, err
	}
	celex, err := eurlex.GenerateCELEX(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CELEX for %q: %w", input, err)
	}
	return fetcher.ByCELEX(ctx, celex.String())
}

// ByCELEX retrieves the document for an already-formed CELEX number,
// consulting the disk cache first.
func (fetcher *Fetcher) ByCELEX(ctx context.Context, celexNumber string) (*eurlex.Document, error) {
	if fetcher.cache != nil {
		if cached, found := fetcher.cache.Get(celexNumber); found {
			return &cached, nil
		}
	}

	document, err := fetcher.client.FetchByCELEX(ctx, celexNumber)
	if err != nil {
		return nil, err
	}

	if fetcher.cache != nil {
		if err := fetcher.cache.Set(*document); err != nil {
			return nil, fmt.Errorf("fetched CELEX %s but failed to cache it: %w", celexNumber, err)
		}
	}
	return document, nil
}
