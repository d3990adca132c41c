// Package serve exposes parsed documents over HTTP: clients submit EUR-Lex
// HTML and read back the flattened chunks and table of contents.
package serve

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/coolbeans/lexparse/pkg/parse"
)

// StoredDocument is one parsed document held in the registry.
type StoredDocument struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
	ChunkCount   int       `json:"chunk_count"`
	WarningCount int       `json:"warning_count"`

	result *parse.Result
}

// Registry is a thread-safe in-memory store of parsed documents.
type Registry struct {
	mu        sync.RWMutex
	documents map[string]*StoredDocument
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{documents: make(map[string]*StoredDocument)}
}

// DocumentID derives a stable identifier from the raw submitted HTML.
func DocumentID(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])[:12]
}

// Put stores a parse result under the given id, replacing any previous
// document with that id. It returns the stored summary.
func (registry *Registry) Put(id string, result *parse.Result) *StoredDocument {
	document := &StoredDocument{
		ID:           id,
		Title:        result.TOC.Title,
		StoredAt:     time.Now(),
		ChunkCount:   len(result.Chunks),
		WarningCount: len(result.Warnings),
		result:       result,
	}

	registry.mu.Lock()
	registry.documents[id] = document
	registry.mu.Unlock()
	return document
}

// Get returns the parse result stored under id.
func (registry *Registry) Get(id string) (*parse.Result, bool) {
	registry.mu.RLock()
	document, found := registry.documents[id]
	registry.mu.RUnlock()
	if !found {
		return nil, false
	}
	return document.result, true
}

// Delete removes a document. Returns false when the id is unknown.
func (registry *Registry) Delete(id string) bool {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, found := registry.documents[id]; !found {
		return false
	}
	delete(registry.documents, id)
	return true
}

// List returns summaries of all stored documents, ordered by id.
func (registry *Registry) List() []*StoredDocument {
	registry.mu.RLock()
	documents := make([]*StoredDocument, 0, len(registry.documents))
	for _, document := range registry.documents {
		documents = append(documents, document)
	}
	registry.mu.RUnlock()

	sort.Slice(documents, func(i, j int) bool {
		return documents[i].ID < documents[j].ID
	})
	return documents
}
