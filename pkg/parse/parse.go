package parse

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// Result is the complete output of one parse: the document tree, the flat
// chunk sequence, the table of contents, and any non-fatal warnings
// collected along the way.
type Result struct {
	Tree     *DocumentNode     `json:"-"`
	Chunks   []RegulationChunk `json:"chunks"`
	TOC      TableOfContents   `json:"toc"`
	Warnings []Warning         `json:"warnings,omitempty"`
}

// Parse extracts the hierarchical structure of an already-parsed EUR-Lex
// HTML document. The parse is single-pass, synchronous, and CPU-bound; it
// owns all state it creates, so independent callers may parse documents
// concurrently.
//
// Parse returns a *StructureError when the document carries none of the
// citation, recital, chapter, or article id conventions. All other detected
// anomalies are downgraded to warnings on the Result.
func Parse(doc *html.Node) (*Result, error) {
	builder := NewBuilder(doc)
	tree, err := builder.Build()
	if err != nil {
		return nil, err
	}

	return &Result{
		Tree:     tree,
		Chunks:   Linearize(tree),
		TOC:      BuildTOC(tree),
		Warnings: builder.Warnings(),
	}, nil
}

// ParseReader parses UTF-8 HTML from r and extracts its structure.
func ParseReader(r io.Reader) (*Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return Parse(doc)
}
