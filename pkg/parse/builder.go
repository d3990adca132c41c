package parse

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Builder constructs the document tree from a parsed HTML handle. A Builder
// is single-use: it owns the tree being built and its warning collector, and
// shares no state with other parses.
type Builder struct {
	doc      *html.Node
	warnings *warningList
	nz       *normalizer
}

// NewBuilder creates a Builder over an already-parsed HTML document.
func NewBuilder(doc *html.Node) *Builder {
	warnings := &warningList{}
	return &Builder{
		doc:      doc,
		warnings: warnings,
		nz:       &normalizer{warnings: warnings},
	}
}

// Warnings returns the non-fatal anomalies collected so far.
func (b *Builder) Warnings() []Warning {
	return b.warnings.warnings
}

// structuralMarkerKinds are the classifications whose presence marks a
// document as following the EUR-Lex publication convention. A document in
// which no element classifies as any of them is a StructureError.
var structuralMarkerKinds = map[Kind]bool{
	KindCitation: true,
	KindRecital:  true,
	KindChapter:  true,
	KindArticle:  true,
}

// Build recovers the full document tree: title, preamble, enacting terms,
// concluding formulas, and annexes/appendices. It fails with a
// StructureError when the document carries no recognizable structural
// markers; no degenerate single-node tree is ever returned.
func (b *Builder) Build() (*DocumentNode, error) {
	if !b.hasStructuralMarkers() {
		return nil, &StructureError{
			Reason: "no element classifies under the cit_, rct_, cpt_, or art_ id conventions",
		}
	}

	root := b.buildTitle()

	tops := b.topLevelSubdivisions()

	if preamble := b.buildPreamble(tops); preamble != nil {
		root.Children = append(root.Children, preamble)
	}
	if enacting := b.buildEnactingTerms(tops); enacting != nil {
		root.Children = append(root.Children, enacting)
	}
	if concluding := b.buildConcludingFormulas(tops); concluding != nil {
		root.Children = append(root.Children, concluding)
	}
	root.Children = append(root.Children, b.buildAnnexes(tops)...)

	return root, nil
}

// hasStructuralMarkers requires at least one element to classify as a
// structural kind, not merely to carry a convention-like id prefix. An id
// such as art_intro satisfies the prefix but not the classifier, and would
// otherwise slip through to an empty result.
func (b *Builder) hasStructuralMarkers() bool {
	return findFirst(b.doc, func(n *html.Node) bool {
		marker, ok := Classify(n)
		return ok && structuralMarkerKinds[marker.Kind]
	}) != nil
}

// topLevelSubdivisions returns the outermost structural elements of the
// document in document order. Matched subtrees are not descended into, so a
// chapter claims its articles and an annex claims its appendices.
func (b *Builder) topLevelSubdivisions() []*html.Node {
	return findAll(b.doc, func(n *html.Node) bool {
		_, ok := Classify(n)
		return ok && elementID(n) != ""
	})
}

func topsOfKind(tops []*html.Node, kinds ...Kind) []*html.Node {
	var matched []*html.Node
	for _, n := range tops {
		marker, _ := Classify(n)
		for _, kind := range kinds {
			if marker.Kind == kind {
				matched = append(matched, n)
				break
			}
		}
	}
	return matched
}

// buildTitle builds the root node from the eli-main-title block. The first
// title paragraph is the document title; all title paragraphs together form
// the root's content.
func (b *Builder) buildTitle() *DocumentNode {
	root := &DocumentNode{Kind: KindTitle}

	titleDiv := findFirst(b.doc, byClass("eli-main-title"))
	if titleDiv == nil {
		return root
	}
	root.SourceID = elementID(titleDiv)

	for _, p := range findAllNested(titleDiv, byClassAndTag("p", "oj-doc-ti")) {
		text := CleanText(textContent(p))
		if text == "" {
			continue
		}
		if root.Title == "" {
			root.Title = text
		}
		root.Blocks = append(root.Blocks, ContentBlock{Tag: BlockParagraph, Text: text})
	}
	return root
}

// buildPreamble assembles the preamble: free text before the first citation,
// one combined citation node aggregating every citation in document order,
// and one node per numbered recital.
func (b *Builder) buildPreamble(tops []*html.Node) *DocumentNode {
	var lead []*html.Node
	var runs []*run

	accept := map[Kind]bool{KindCitation: true, KindRecital: true}
	preambleDiv := b.firstTopDiv(tops, KindPreamble)
	if preambleDiv != nil {
		lead, runs = b.scanContainer(preambleDiv, accept, KindCitation)
	} else {
		// No preamble wrapper: citations and recitals sit at the top level,
		// and the free text preceding the first citation lives among its
		// siblings rather than inside a shared container.
		preambleTops := topsOfKind(tops, KindCitation, KindRecital)
		lead, _ = b.scanForest(siblingsBefore(preambleTops), nil, KindCitation)
		_, runs = b.scanForest(preambleTops, accept, KindCitation)
	}

	preamble := &DocumentNode{Kind: KindPreamble, Title: "Preamble"}
	if preambleDiv != nil {
		preamble.SourceID = elementID(preambleDiv)
	}

	// Free text occurring before the first citation is preamble content in
	// its own right, never dropped.
	preamble.Blocks = b.nz.blocksFromNodes(lead, preamble.SourceID)

	// All citations aggregate into one node, in document order; recitals
	// stay individual. Citations always precede recitals in the convention.
	var citation *DocumentNode
	var recitals []*DocumentNode
	for _, r := range runs {
		switch r.marker.Kind {
		case KindCitation:
			if citation == nil {
				citation = &DocumentNode{
					Kind:     KindCitation,
					Title:    "Citation",
					SourceID: elementID(r.heading),
				}
			}
			citation.GroupIDs = append(citation.GroupIDs, elementID(r.heading))
			citation.Blocks = append(citation.Blocks, b.nz.blocksFromNodes(r.nodes, elementID(r.heading))...)
		case KindRecital:
			recitals = append(recitals, b.buildRecital(r))
		}
	}
	if citation != nil {
		preamble.Children = append(preamble.Children, citation)
	}
	preamble.Children = append(preamble.Children, recitals...)

	if len(preamble.Blocks) == 0 && len(preamble.Children) == 0 {
		return nil
	}
	return preamble
}

// buildRecital builds one recital node. Recitals are rendered as two-cell
// tables whose first cell is the parenthesized number; the number becomes
// the identifier and the marker is not repeated in the content.
func (b *Builder) buildRecital(r *run) *DocumentNode {
	node := &DocumentNode{
		Kind:       KindRecital,
		Identifier: r.marker.Identifier,
		SourceID:   elementID(r.heading),
	}

	blocks := b.nz.blocksFromNodes(r.nodes, node.SourceID)
	if len(blocks) > 0 && blocks[0].Tag == BlockListItem {
		if m := recitalNumberPattern.FindStringSubmatch(blocks[0].Marker); m != nil {
			node.Identifier = m[1]
			blocks[0] = ContentBlock{Tag: BlockParagraph, Text: blocks[0].Text}
		}
	}
	node.Blocks = blocks
	node.Title = "Recital " + node.Identifier
	return node
}

var recitalNumberPattern = regexp.MustCompile(`^\((\d+)\)$`)

// buildEnactingTerms assembles chapters (with per-chapter section probing)
// or, for flat regulations, articles attached directly.
func (b *Builder) buildEnactingTerms(tops []*html.Node) *DocumentNode {
	enacting := &DocumentNode{Kind: KindEnactingTerms, Title: "Enacting Terms"}

	chapterDivs := topsOfKind(tops, KindChapter)
	if len(chapterDivs) == 0 {
		// Flat regulation: articles with no enclosing chapter.
		_, articleRuns := b.scanForest(topsOfKind(tops, KindArticle), map[Kind]bool{KindArticle: true}, KindArticle)
		for _, r := range articleRuns {
			enacting.Children = append(enacting.Children, b.buildArticle(r))
		}
		if len(enacting.Children) == 0 {
			return nil
		}
		return enacting
	}

	for _, chapterDiv := range chapterDivs {
		enacting.Children = append(enacting.Children, b.buildChapter(chapterDiv))
	}
	return enacting
}

// buildChapter builds one chapter, probing for section-level markers among
// its structural descendants. The 3-vs-4 level decision is made here, per
// chapter: one document may mix sectioned and unsectioned chapters.
func (b *Builder) buildChapter(chapterDiv *html.Node) *DocumentNode {
	marker, _ := Classify(chapterDiv)

	heading, subtitle := b.sectionHeadings(chapterDiv, chapterHeadingPattern)
	number := marker.Identifier
	if m := chapterHeadingPattern.FindStringSubmatch(heading); m != nil {
		number = normalizeIdentifier(m[1])
	}
	if heading == "" {
		heading = "CHAPTER " + number
	}

	chapter := &DocumentNode{
		Kind:       KindChapter,
		Identifier: number,
		Title:      joinTitle(heading, subtitle),
		Subtitle:   subtitle,
		SourceID:   elementID(chapterDiv),
	}

	lead, sectionRuns := b.scanContainer(chapterDiv, map[Kind]bool{KindSection: true}, KindSection)

	// Articles before the first section (or all of them, when the chapter
	// has no sections) attach directly to the chapter.
	chapterLead, articleRuns := b.scanForest(lead, map[Kind]bool{KindArticle: true}, KindArticle)
	chapter.Blocks = b.nz.blocksFromNodes(chapterLead, chapter.SourceID)
	for _, r := range articleRuns {
		chapter.Children = append(chapter.Children, b.buildArticle(r))
	}

	for _, r := range sectionRuns {
		chapter.Children = append(chapter.Children, b.buildSection(r))
	}
	return chapter
}

// buildSection builds one section and its articles.
func (b *Builder) buildSection(sectionRun *run) *DocumentNode {
	heading, subtitle := b.sectionHeadings(sectionRun.heading, sectionHeadingPattern)
	number := sectionRun.marker.Identifier
	if m := sectionHeadingPattern.FindStringSubmatch(heading); m != nil {
		number = normalizeIdentifier(m[1])
	}
	if heading == "" {
		heading = "SECTION " + number
	}

	section := &DocumentNode{
		Kind:       KindSection,
		Identifier: number,
		Title:      joinTitle(heading, subtitle),
		Subtitle:   subtitle,
		SourceID:   elementID(sectionRun.heading),
	}

	sectionLead, articleRuns := b.scanForest(sectionRun.nodes, map[Kind]bool{KindArticle: true}, KindArticle)
	section.Blocks = b.nz.blocksFromNodes(sectionLead, section.SourceID)
	for _, r := range articleRuns {
		section.Children = append(section.Children, b.buildArticle(r))
	}
	return section
}

// buildArticle builds one article node from its run.
func (b *Builder) buildArticle(articleRun *run) *DocumentNode {
	div := articleRun.heading
	number := articleRun.marker.Identifier

	if headingP := findFirst(div, byClassAndTag("p", "oj-ti-art")); headingP != nil {
		if m := articleHeadingPattern.FindStringSubmatch(CleanText(textContent(headingP))); m != nil {
			number = m[1]
		}
	}

	subtitle := ""
	if subtitleP := findFirst(div, byClassAndTag("p", "oj-sti-art")); subtitleP != nil {
		subtitle = CleanText(textContent(subtitleP))
	}

	article := &DocumentNode{
		Kind:       KindArticle,
		Identifier: number,
		Title:      joinTitle("Article "+number, subtitle),
		Subtitle:   subtitle,
		SourceID:   elementID(div),
	}
	article.Blocks = b.nz.blocksFromNodes(articleRun.nodes, article.SourceID)
	return article
}

// buildConcludingFormulas builds the single concluding-formulas node:
// closing paragraphs plus signatory blocks, each signatory's lines joined
// with single newlines inside one block.
func (b *Builder) buildConcludingFormulas(tops []*html.Node) *DocumentNode {
	concludingDiv := b.firstTopDiv(tops, KindConcludingFormulas)
	if concludingDiv == nil {
		return nil
	}

	container := concludingDiv
	if final := findFirst(concludingDiv, byClass("oj-final")); final != nil {
		container = final
	}

	node := &DocumentNode{
		Kind:     KindConcludingFormulas,
		Title:    "Concluding formulas",
		SourceID: elementID(concludingDiv),
	}

	for _, p := range findAllNested(container, byClassAndTag("p", "oj-normal")) {
		if hasSignatoryAncestor(p, container) {
			continue
		}
		if text := CleanText(textContent(p)); text != "" {
			node.Blocks = append(node.Blocks, ContentBlock{Tag: BlockParagraph, Text: text})
		}
	}
	for _, sig := range findAll(container, byClass("oj-signatory")) {
		var lines []string
		for _, p := range findAllNested(sig, func(n *html.Node) bool { return n.Data == "p" }) {
			if text := CleanText(textContent(p)); text != "" {
				lines = append(lines, text)
			}
		}
		if len(lines) > 0 {
			node.Blocks = append(node.Blocks, ContentBlock{Tag: BlockParagraph, Text: strings.Join(lines, "\n")})
		}
	}

	if len(node.Blocks) == 0 {
		return nil
	}
	return node
}

func hasSignatoryAncestor(n, stop *html.Node) bool {
	for p := n.Parent; p != nil && p != stop; p = p.Parent {
		if p.Type == html.ElementNode && hasClass(p, "oj-signatory") {
			return true
		}
	}
	return false
}

// buildAnnexes builds every top-level annex and appendix in document order.
func (b *Builder) buildAnnexes(tops []*html.Node) []*DocumentNode {
	var nodes []*DocumentNode
	for _, div := range topsOfKind(tops, KindAnnex, KindAppendix) {
		nodes = append(nodes, b.buildAnnex(div))
	}
	return nodes
}

// buildAnnex builds an annex or appendix, recursively detecting PART and
// lettered-Section subdivisions the same way chapters are probed for
// sections. Nested appendix wrappers become Appendix children.
func (b *Builder) buildAnnex(annexDiv *html.Node) *DocumentNode {
	marker, _ := Classify(annexDiv)

	label := "ANNEX"
	if marker.Kind == KindAppendix {
		label = "APPENDIX"
	}

	title, subtitle := b.annexTitles(annexDiv)
	baseTitle := strings.TrimSpace(label + " " + marker.Identifier)
	if title == "" {
		title = baseTitle
	} else if marker.Identifier != "" &&
		strings.Contains(strings.ToUpper(title), strings.ToUpper(marker.Identifier)) {
		// The declared title already names the identifier ("ANNEX I ...").
		baseTitle = title
	}

	node := &DocumentNode{
		Kind:       marker.Kind,
		Identifier: marker.Identifier,
		Title:      joinTitle(title, subtitle),
		Subtitle:   subtitle,
		SourceID:   elementID(annexDiv),
	}

	accept := map[Kind]bool{KindAnnexPart: true, KindAnnexSection: true, KindAppendix: true}
	lead, runs := b.scanContainer(annexDiv, accept, KindAnnexPart)

	node.Blocks = b.nz.blocksFromNodes(lead, node.SourceID)

	for _, r := range runs {
		if r.marker.Kind == KindAppendix && !isHeadingElement(r.heading) {
			node.Children = append(node.Children, b.buildAnnex(r.heading))
			continue
		}
		node.Children = append(node.Children, b.buildAnnexPart(r, node, baseTitle))
	}
	return node
}

// buildAnnexPart builds one PART or lettered-Section unit inside an annex.
// Part titles always carry the owning annex's identifier ("ANNEX 1 - PART
// 1"), never the bare part label alone.
func (b *Builder) buildAnnexPart(partRun *run, annex *DocumentNode, baseTitle string) *DocumentNode {
	partHeading := CleanText(textContent(partRun.heading))

	identifier := partRun.marker.Identifier
	if annex.Identifier != "" {
		identifier = annex.Identifier + "." + partRun.marker.Identifier
	}

	node := &DocumentNode{
		Kind:       partRun.marker.Kind,
		Identifier: identifier,
		Title:      baseTitle + " - " + partHeading,
		SourceID:   elementID(partRun.heading),
	}
	if node.SourceID == "" {
		node.SourceID = annex.SourceID
	}
	node.Blocks = b.nz.blocksFromNodes(partRun.nodes, node.SourceID)
	return node
}

// annexTitles extracts an annex's own doc-ti headings, stopping at nested
// subdivisions so an appendix's title is never claimed by its annex.
func (b *Builder) annexTitles(annexDiv *html.Node) (title, subtitle string) {
	matches := findAll(annexDiv, func(n *html.Node) bool {
		if n.Data == "p" && hasClass(n, "oj-doc-ti") {
			return true
		}
		_, nested := Classify(n)
		return nested
	})

	var parts []string
	for _, n := range matches {
		if !(n.Data == "p" && hasClass(n, "oj-doc-ti")) {
			continue
		}
		if text := CleanText(textContent(n)); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// sectionHeadings extracts the primary heading (oj-ti-section-1) and its
// subtitle (the oj-ti-section-2 that follows it, directly or inside an
// eli-title wrapper) of a chapter or section element. Only a heading
// matching the expected pattern is accepted, so a chapter lacking its own
// heading never claims a nested section's.
func (b *Builder) sectionHeadings(div *html.Node, pattern *regexp.Regexp) (heading, subtitle string) {
	headings := findAllNested(div, func(n *html.Node) bool {
		return n.Data == "p" && (hasClass(n, "oj-ti-section-1") || hasClass(n, "oj-ti-section-2"))
	})
	for i, p := range headings {
		if !hasClass(p, "oj-ti-section-1") {
			continue
		}
		text := CleanText(textContent(p))
		if !pattern.MatchString(text) {
			break
		}
		heading = text
		if i+1 < len(headings) && hasClass(headings[i+1], "oj-ti-section-2") {
			subtitle = CleanText(textContent(headings[i+1]))
		}
		break
	}
	return heading, subtitle
}

// siblingsBefore returns the siblings preceding the first of nodes, in
// document order.
func siblingsBefore(nodes []*html.Node) []*html.Node {
	if len(nodes) == 0 || nodes[0].Parent == nil {
		return nil
	}
	first := nodes[0]
	var prefix []*html.Node
	for c := first.Parent.FirstChild; c != nil && c != first; c = c.NextSibling {
		prefix = append(prefix, c)
	}
	return prefix
}

func (b *Builder) firstTopDiv(tops []*html.Node, kind Kind) *html.Node {
	divs := topsOfKind(tops, kind)
	if len(divs) == 0 {
		return nil
	}
	return divs[0]
}

// joinTitle combines a heading with its subtitle.
func joinTitle(heading, subtitle string) string {
	if subtitle == "" {
		return heading
	}
	return heading + " - " + subtitle
}
