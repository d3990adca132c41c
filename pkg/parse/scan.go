package parse

import (
	"golang.org/x/net/html"
)

// run is the exclusive span of content belonging to one structural marker:
// the marker element itself plus every content node attributed to it, in
// document order. Content nodes may include whole junior subdivision elements
// (for example article divs inside a chapter run); those are re-scanned at
// the next level down.
type run struct {
	marker  Marker
	heading *html.Node
	nodes   []*html.Node
}

// titleSkipClasses are heading paragraphs that become node titles, never
// content. Group-sequence headings (oj-ti-grseq-1) are deliberately absent:
// a numbered heading inside an annex part body is content unless it
// classifies as a boundary in its own right.
var titleSkipClasses = map[string]bool{
	"oj-doc-ti":       true,
	"doc-ti":          true,
	"oj-ti-art":       true,
	"ti-art":          true,
	"oj-sti-art":      true,
	"sti-art":         true,
	"oj-ti-section-1": true,
	"oj-ti-section-2": true,
	"ti-section-1":    true,
	"ti-section-2":    true,
}

func isTitleElement(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "p" {
		return false
	}
	for _, class := range elementClasses(n) {
		if titleSkipClasses[class] {
			return true
		}
	}
	return false
}

// isContentLeaf reports whether n is a node the normalizer consumes whole.
func isContentLeaf(n *html.Node) bool {
	if n.Type == html.TextNode {
		return CleanText(n.Data) != ""
	}
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "p", "span", "table", "ul", "ol":
		return true
	}
	return false
}

// scanContainer partitions the content of container into a leading span (text
// before the first accepted marker) and one run per accepted marker.
//
// The traversal is depth-first over all descendants in document order, not a
// pure sibling walk, so content nested inside intermediate wrapper elements
// is attributed rather than dropped. Every content node lands in exactly one
// bucket and no node is visited twice.
func (b *Builder) scanContainer(container *html.Node, accept map[Kind]bool, level Kind) ([]*html.Node, []*run) {
	var roots []*html.Node
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		roots = append(roots, c)
	}
	return b.scanForest(roots, accept, level)
}

// scanForest is scanContainer over an explicit node list, used to re-scan a
// run's content at the next structural level.
func (b *Builder) scanForest(roots []*html.Node, accept map[Kind]bool, level Kind) ([]*html.Node, []*run) {
	levelRank := level.rank()

	var lead []*html.Node
	var runs []*run
	var current *run

	bucket := func(n *html.Node) {
		if current == nil {
			lead = append(lead, n)
			return
		}
		current.nodes = append(current.nodes, n)
	}

	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if isTitleElement(n) {
			// Heading of the subdivision currently being scanned; it becomes
			// the node title, not content. Deeper headings never reach here
			// because junior subdivisions are bucketed whole.
			return
		}

		if marker, ok := Classify(n); ok {
			switch {
			case accept[marker.Kind]:
				runs = append(runs, &run{marker: marker, heading: n})
				current = runs[len(runs)-1]
				if !isHeadingElement(n) {
					// Wrapper-style marker (div): its content lives inside.
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						visit(c)
					}
				}
				return
			case marker.Kind.rank() > levelRank:
				// Junior subdivision: content of the open run, re-scanned
				// at the next level down.
				bucket(n)
				return
			default:
				// Equal-or-senior kind outside the accepted set: cannot be
				// ranked against this level. Attach to the nearest preceding
				// boundary and record the ambiguity.
				b.warnings.add(WarnBoundaryAmbiguity, elementID(n),
					"marker kind %q cannot be ranked while scanning for %v; attached to preceding boundary", marker.Kind, level)
				bucket(n)
				return
			}
		}

		if isContentLeaf(n) {
			bucket(n)
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}

	for _, n := range roots {
		visit(n)
	}
	return lead, runs
}
