package eurlex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent is the default User-Agent header sent with EUR-Lex requests.
const DefaultUserAgent = "lexparse-eurlex-connector/1.0"

// DefaultLanguage is the default publication language code.
const DefaultLanguage = "EN"

// maxDocumentSize caps the accepted response body. EUR-Lex HTML runs to a
// few megabytes for the largest regulations.
const maxDocumentSize = 64 << 20

// ClientConfig holds configuration for a Client.
type ClientConfig struct {
	// RateLimit is the minimum interval between HTTP requests to EUR-Lex.
	// Default: 1 second.
	RateLimit time.Duration

	// CacheTTL is the time-to-live for cached documents.
	// Default: 1 hour.
	CacheTTL time.Duration

	// HTTPClient is the underlying HTTP client used for requests.
	// If nil, http.DefaultClient is used (wrapped with rate limiting).
	HTTPClient HTTPClient

	// UserAgent is the User-Agent header sent with requests.
	// Default: "lexparse-eurlex-connector/1.0".
	UserAgent string

	// Language is the two-letter publication language code.
	// Default: "EN".
	Language string
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		RateLimit:  DefaultRequestInterval,
		CacheTTL:   DefaultCacheTTL,
		HTTPClient: nil, // Will use http.DefaultClient.
		UserAgent:  DefaultUserAgent,
		Language:   DefaultLanguage,
	}
}

// Client retrieves document HTML from EUR-Lex with rate limiting and
// in-memory caching.
type Client struct {
	httpClient HTTPClient
	cache      *DocumentCache
	userAgent  string
	language   string
}

// NewClient creates a new Client with the given configuration.
// If config.HTTPClient is nil, http.DefaultClient is used and wrapped with
// rate limiting.
func NewClient(config ClientConfig) *Client {
	underlyingClient := config.HTTPClient
	if underlyingClient == nil {
		underlyingClient = http.DefaultClient
	}

	// Wrap with rate limiting only when an interval is specified.
	httpClient := underlyingClient
	if config.RateLimit > 0 {
		httpClient = NewRateLimitedHTTPClient(underlyingClient, config.RateLimit)
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	language := config.Language
	if language == "" {
		language = DefaultLanguage
	}

	return &Client{
		httpClient: httpClient,
		cache:      NewDocumentCache(config.CacheTTL),
		userAgent:  userAgent,
		language:   language,
	}
}

// DocumentURL returns the EUR-Lex HTML endpoint for the given CELEX number
// in the client's configured language.
func (client *Client) DocumentURL(celexNumber string) string {
	return "https://eur-lex.europa.eu/legal-content/" + client.language +
		"/TXT/HTML/?uri=CELEX:" + celexNumber
}

// FetchDocument retrieves the published HTML of the referenced legislation.
// Results are cached by CELEX number for the configured TTL.
func (client *Client) FetchDocument(ctx context.Context, ref Reference) (*Document, error) {
	celex, err := GenerateCELEX(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CELEX for reference: %w", err)
	}
	return client.FetchByCELEX(ctx, celex.String())
}

// FetchByCELEX retrieves the published HTML for an already-formed CELEX
// number.
func (client *Client) FetchByCELEX(ctx context.Context, celexNumber string) (*Document, error) {
	if cached, found := client.cache.Get(celexNumber); found {
		return &cached, nil
	}

	documentURL := client.DocumentURL(celexNumber)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, documentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for CELEX %s: %w", celexNumber, err)
	}
	request.Header.Set("User-Agent", client.userAgent)
	request.Header.Set("Accept", "text/html")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch CELEX %s: %w", celexNumber, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("document not found for CELEX %s (HTTP %d)", celexNumber, response.StatusCode)
	}
	if response.StatusCode >= 400 {
		return nil, fmt.Errorf("EUR-Lex returned HTTP %d for CELEX %s", response.StatusCode, celexNumber)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read document body for CELEX %s: %w", celexNumber, err)
	}

	document := Document{
		CELEX:       celexNumber,
		URL:         documentURL,
		Language:    client.language,
		RetrievedAt: time.Now(),
		HTML:        body,
	}

	client.cache.Set(celexNumber, document)
	return &document, nil
}

// InvalidateCache drops the cached copy of a document, forcing the next
// fetch to hit the network.
func (client *Client) InvalidateCache(celexNumber string) {
	client.cache.Invalidate(celexNumber)
}
