// Package parse extracts the hierarchical structure of EUR-Lex HTML documents:
// a document tree, a flat ordered chunk list, and a table of contents.
package parse

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Kind identifies the structural role of a document node.
type Kind string

const (
	// KindTitle is the document title (level 0, tree root).
	KindTitle Kind = "title"

	// Level 1 - major sections.
	KindPreamble           Kind = "preamble"
	KindEnactingTerms      Kind = "enacting_terms"
	KindConcludingFormulas Kind = "concluding_formulas"
	KindAnnex              Kind = "annex"

	// Level 2 - preamble elements.
	KindCitation Kind = "citation"
	KindRecital  Kind = "recital"

	// Level 2/3 - structural.
	KindChapter      Kind = "chapter"
	KindSection      Kind = "section"
	KindAnnexPart    Kind = "part"
	KindAnnexSection Kind = "annex_section"
	KindAppendix     Kind = "appendix"

	// Level 3/4 - content.
	KindArticle Kind = "article"
)

// rank orders kinds by structural seniority. A smaller rank is closer to the
// document root. The boundary scanner uses rank to decide whether a marker
// opens a new content run or belongs inside the currently open one.
func (k Kind) rank() int {
	switch k {
	case KindTitle:
		return 0
	case KindPreamble, KindEnactingTerms, KindConcludingFormulas, KindAnnex:
		return 1
	case KindChapter, KindAnnexPart, KindAppendix:
		return 2
	case KindSection, KindAnnexSection:
		return 3
	case KindCitation, KindRecital, KindArticle:
		return 4
	}
	return 5
}

// seniorOrEqual reports whether k may close a content run opened by other.
func (k Kind) seniorOrEqual(other Kind) bool {
	return k.rank() <= other.rank()
}

// Marker is the result of classifying an element as a structural boundary.
type Marker struct {
	Kind       Kind
	Identifier string
}

// idPrefixTable is the single source of truth for the EUR-Lex id-prefix
// conventions. Order matters: compound ids (cpt_1.sct_1, anx_1.app_1) must be
// matched before their bare prefixes.
var idPrefixTable = []struct {
	pattern *regexp.Regexp
	kind    Kind
}{
	{regexp.MustCompile(`^cpt_[^.]+\.sct_([IVXLCDM]+|\d+[A-Za-z]?)$`), KindSection},
	{regexp.MustCompile(`^anx_([IVXLCDM]+|\d+[A-Za-z]?)\.app_(\d+)$`), KindAppendix},
	{regexp.MustCompile(`^cit_(\d+)`), KindCitation},
	{regexp.MustCompile(`^rct_(\d+)`), KindRecital},
	{regexp.MustCompile(`^cpt_([IVXLCDM]+|\d+[A-Za-z]?)$`), KindChapter},
	{regexp.MustCompile(`^art_(\d+[a-z]*)`), KindArticle},
	{regexp.MustCompile(`^anx_([IVXLCDM]+|\d+[A-Za-z]?)$`), KindAnnex},
	{regexp.MustCompile(`^pbl_(\d+)`), KindPreamble},
	{regexp.MustCompile(`^fnp_(\d+)`), KindConcludingFormulas},
}

// Heading-text patterns, used only when an element carries no structural id.
// They are anchored at the start of the heading text so prose that merely
// mentions "part" is never classified.
var (
	partHeadingPattern     = regexp.MustCompile(`(?i)^PART\s+([IVXLCDM]+|\d+)\b`)
	sectionHeadingPattern  = regexp.MustCompile(`(?i)^SECTION\s+([A-Z]|[IVXLCDM]+|\d+)\b`)
	appendixHeadingPattern = regexp.MustCompile(`(?i)^APPENDIX\s+([IVXLCDM]+|\d+)\b`)
	chapterHeadingPattern  = regexp.MustCompile(`(?i)^CHAPTER\s+([IVXLCDM]+|\d+)\b`)
	articleHeadingPattern  = regexp.MustCompile(`(?i)^Article\s+(\d+[a-z]*)\b`)
)

// headingClasses are the CSS classes EUR-Lex gives to heading-level
// paragraphs. Heading-text classification only applies to elements carrying
// one of these classes, never to ordinary prose paragraphs.
var headingClasses = map[string]bool{
	"oj-ti-grseq-1":   true,
	"oj-ti-section-1": true,
	"oj-ti-section-2": true,
	"oj-doc-ti":       true,
	"ti-grseq-1":      true,
	"ti-section-1":    true,
}

// Classify decides whether an element is a structural boundary and extracts
// its declared identifier. It returns ok=false for non-structural elements.
//
// Classification first matches the element id against the prefix table, then
// falls back to heading-text patterns for heading-classed elements without a
// structural id.
func Classify(n *html.Node) (Marker, bool) {
	if n == nil || n.Type != html.ElementNode {
		return Marker{}, false
	}

	if id := elementID(n); id != "" {
		for _, entry := range idPrefixTable {
			m := entry.pattern.FindStringSubmatch(id)
			if m == nil {
				continue
			}
			return Marker{Kind: entry.kind, Identifier: identifierFromID(entry.kind, id, m)}, true
		}
	}

	// Heading-text fallback: only heading-level containers qualify.
	if !isHeadingElement(n) {
		return Marker{}, false
	}
	heading := CleanText(textContent(n))
	if m := partHeadingPattern.FindStringSubmatch(heading); m != nil {
		return Marker{Kind: KindAnnexPart, Identifier: m[1]}, true
	}
	if m := sectionHeadingPattern.FindStringSubmatch(heading); m != nil {
		return Marker{Kind: KindAnnexSection, Identifier: m[1]}, true
	}
	if m := appendixHeadingPattern.FindStringSubmatch(heading); m != nil {
		return Marker{Kind: KindAppendix, Identifier: m[1]}, true
	}

	return Marker{}, false
}

// identifierFromID derives the declared identifier from a matched id.
func identifierFromID(kind Kind, id string, match []string) string {
	switch kind {
	case KindSection:
		return normalizeIdentifier(match[1])
	case KindAppendix:
		// Appendix ids embed the owning annex: anx_1.app_2 -> "1.2".
		return normalizeIdentifier(match[1]) + "." + match[2]
	case KindPreamble, KindConcludingFormulas, KindCitation, KindRecital:
		if len(match) > 1 {
			return match[1]
		}
		return ""
	default:
		if len(match) > 1 {
			return normalizeIdentifier(match[1])
		}
		return ""
	}
}

// normalizeIdentifier upper-cases roman numeral identifiers while leaving
// arabic ones untouched, so anx_i and anx_I agree.
func normalizeIdentifier(id string) string {
	if romanPattern.MatchString(id) {
		return strings.ToUpper(id)
	}
	return id
}

var romanPattern = regexp.MustCompile(`(?i)^[IVXLCDM]+$`)

// isHeadingElement reports whether the element itself is a heading-level
// container (a heading-classed <p>, or an hN tag).
func isHeadingElement(n *html.Node) bool {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	case "p":
		for _, class := range elementClasses(n) {
			if headingClasses[class] {
				return true
			}
		}
	}
	return false
}
