package parse

import (
	"strings"

	"golang.org/x/net/html"
)

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// elementID returns the element's id attribute, or "".
func elementID(n *html.Node) string {
	return attr(n, "id")
}

// elementClasses returns the element's class list.
func elementClasses(n *html.Node) []string {
	class := attr(n, "class")
	if class == "" {
		return nil
	}
	return strings.Fields(class)
}

// hasClass reports whether the element carries the given CSS class.
func hasClass(n *html.Node, class string) bool {
	for _, c := range elementClasses(n) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent returns the concatenated text of all text nodes under n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// childElements returns the direct element children of n.
func childElements(n *html.Node) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			children = append(children, c)
		}
	}
	return children
}

// findAll returns every descendant of n (document order, n excluded) for
// which pred returns true. Matched subtrees are not descended into, so a
// match never contains another match.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && pred(c) {
				matches = append(matches, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return matches
}

// findAllNested is findAll without the no-descend rule: matched subtrees are
// searched too, so nested matches are reported in document order.
func findAllNested(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && pred(c) {
				matches = append(matches, c)
			}
			walk(c)
		}
	}
	walk(n)
	return matches
}

// findFirst returns the first descendant of n matching pred, in document
// order, or nil.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	var walk func(*html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && pred(c) {
				return c
			}
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(n)
}

// byClass builds a predicate matching elements carrying the CSS class.
func byClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return hasClass(n, class)
	}
}

// byClassAndTag builds a predicate matching tag elements with the CSS class.
func byClassAndTag(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Data == tag && hasClass(n, class)
	}
}
