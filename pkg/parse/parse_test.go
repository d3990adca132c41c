package parse

import (
	"encoding/json"
	"strings"
	"testing"
)

func parseHTML(t *testing.T, source string) (*Result, error) {
	t.Helper()
	return ParseReader(strings.NewReader(source))
}

func chunksOfType(chunks []RegulationChunk, kind Kind) []RegulationChunk {
	var matched []RegulationChunk
	for _, chunk := range chunks {
		if chunk.SectionType == kind {
			matched = append(matched, chunk)
		}
	}
	return matched
}

// One citation marker and two recital markers yield exactly three chunks:
// one combined citation and two recitals, all under "Preamble".
func TestParsePreambleOnly(t *testing.T) {
	result, err := parseHTML(t, `<html><body>
		<div class="eli-subdivision" id="cit_1">
			<p class="oj-normal">Having regard to the Treaty,</p>
		</div>
		<div class="eli-subdivision" id="rct_1">
			<table><tr><td><p class="oj-normal">(1)</p></td><td><p class="oj-normal">First consideration.</p></td></tr></table>
		</div>
		<div class="eli-subdivision" id="rct_2">
			<table><tr><td><p class="oj-normal">(2)</p></td><td><p class="oj-normal">Second consideration.</p></td></tr></table>
		</div>
	</body></html>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(result.Chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %+v", len(result.Chunks), result.Chunks)
	}

	citation := result.Chunks[0]
	if citation.SectionType != KindCitation {
		t.Errorf("first chunk type = %v, want citation", citation.SectionType)
	}
	if ids, ok := citation.Metadata["citation_ids"].([]string); !ok || len(ids) != 1 || ids[0] != "cit_1" {
		t.Errorf("citation metadata ids = %v", citation.Metadata["citation_ids"])
	}

	for i, wantNumber := range []string{"1", "2"} {
		recital := result.Chunks[i+1]
		if recital.SectionType != KindRecital || recital.Number != wantNumber {
			t.Errorf("chunk %d = (%v, %q), want recital %q", i+1, recital.SectionType, recital.Number, wantNumber)
		}
		if len(recital.HierarchyPath) != 1 || recital.HierarchyPath[0] != "Preamble" {
			t.Errorf("recital %q hierarchy = %v, want [Preamble]", wantNumber, recital.HierarchyPath)
		}
	}
}

// Free text before the first citation is preamble content even when the
// document has no pbl_ wrapper and citations sit directly at body level.
func TestParsePreambleLeadWithoutWrapper(t *testing.T) {
	result, err := parseHTML(t, `<html><body>
		<p class="oj-normal">THE EUROPEAN COMMISSION,</p>
		<div class="eli-subdivision" id="cit_1">
			<p class="oj-normal">Having regard to the Treaty,</p>
		</div>
		<div class="eli-subdivision" id="rct_1">
			<table><tr><td><p class="oj-normal">(1)</p></td><td><p class="oj-normal">First consideration.</p></td></tr></table>
		</div>
	</body></html>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	preambles := chunksOfType(result.Chunks, KindPreamble)
	if len(preambles) != 1 {
		t.Fatalf("got %d preamble chunks, want 1: %+v", len(preambles), result.Chunks)
	}
	if !strings.Contains(preambles[0].Content, "THE EUROPEAN COMMISSION,") {
		t.Errorf("lead text missing from preamble chunk: %q", preambles[0].Content)
	}
	if len(chunksOfType(result.Chunks, KindCitation)) != 1 {
		t.Error("citation chunk missing")
	}
	if len(chunksOfType(result.Chunks, KindRecital)) != 1 {
		t.Error("recital chunk missing")
	}
}

// An annex table whose first cells are (a),(b),(c) is an enumerated list,
// not tabular data.
func TestParseAnnexListTable(t *testing.T) {
	result, err := parseHTML(t, `<html><body>
		<div class="eli-subdivision" id="art_1">
			<p class="oj-ti-art">Article 1</p>
			<p class="oj-normal">Body.</p>
		</div>
		<div class="eli-container" id="anx_1">
			<p class="oj-doc-ti">ANNEX</p>
			<table>
				<tr><td><p class="oj-normal">(a)</p></td><td><p class="oj-normal">first;</p></td></tr>
				<tr><td><p class="oj-normal">(b)</p></td><td><p class="oj-normal">second;</p></td></tr>
				<tr><td><p class="oj-normal">(c)</p></td><td><p class="oj-normal">third.</p></td></tr>
			</table>
		</div>
	</body></html>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	annexChunks := chunksOfType(result.Chunks, KindAnnex)
	if len(annexChunks) != 1 {
		t.Fatalf("got %d annex chunks, want 1", len(annexChunks))
	}
	content := annexChunks[0].Content
	for _, line := range []string{"(a) first;", "(b) second;", "(c) third."} {
		if !strings.Contains(content, line) {
			t.Errorf("missing joined list line %q in:\n%s", line, content)
		}
	}
	if strings.Contains(content, "|") {
		t.Errorf("list-structured table rendered as pipe table:\n%s", content)
	}
}

// A chapter containing only articles yields a 3-level hierarchy.
func TestParseChapterWithoutSections(t *testing.T) {
	result, err := parseHTML(t, `<html><body>
		<div class="eli-subdivision" id="cpt_1">
			<p class="oj-ti-section-1">CHAPTER I</p>
			<div class="eli-subdivision" id="art_1">
				<p class="oj-ti-art">Article 1</p>
				<p class="oj-normal">First body.</p>
			</div>
			<div class="eli-subdivision" id="art_2">
				<p class="oj-ti-art">Article 2</p>
				<p class="oj-normal">Second body.</p>
			</div>
		</div>
	</body></html>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	articles := chunksOfType(result.Chunks, KindArticle)
	if len(articles) != 2 {
		t.Fatalf("got %d article chunks, want 2", len(articles))
	}
	want := []string{"Enacting Terms", "CHAPTER I"}
	for _, article := range articles {
		if len(article.HierarchyPath) != len(want) {
			t.Fatalf("article %s hierarchy = %v, want %v", article.Number, article.HierarchyPath, want)
		}
		for i := range want {
			if article.HierarchyPath[i] != want[i] {
				t.Errorf("article %s hierarchy = %v, want %v", article.Number, article.HierarchyPath, want)
				break
			}
		}
	}
}

// A document without any structural id convention aborts with a
// StructureError and produces zero chunks.
func TestParseUnstructuredDocument(t *testing.T) {
	result, err := parseHTML(t, `<html><body>
		<h1>Privacy policy</h1>
		<p>This page is not a regulation.</p>
	</body></html>`)
	if err == nil {
		t.Fatal("Parse succeeded on unstructured document")
	}
	if _, ok := err.(*StructureError); !ok {
		t.Errorf("error type = %T, want *StructureError", err)
	}
	if result != nil {
		t.Error("result should be nil when structure is unrecognizable")
	}
}

// An id that merely resembles a structural convention (art_intro has the
// art_ prefix but no article number) does not classify, so the document is
// rejected instead of yielding zero chunks.
func TestParseConventionLikeIDRejected(t *testing.T) {
	result, err := parseHTML(t, `<html><body>
		<div class="eli-subdivision" id="art_intro">
			<p class="oj-normal">Introductory prose.</p>
		</div>
	</body></html>`)
	if err == nil {
		t.Fatal("Parse succeeded on document with no classifiable structure")
	}
	if _, ok := err.(*StructureError); !ok {
		t.Errorf("error type = %T, want *StructureError", err)
	}
	if result != nil {
		t.Error("result should be nil when structure is unrecognizable")
	}
}

func TestParseFixtureChunkSequence(t *testing.T) {
	builder := NewBuilder(loadFixture(t, "regulation.html"))
	tree, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	chunks := Linearize(tree)

	var sequence []string
	for _, chunk := range chunks {
		sequence = append(sequence, string(chunk.SectionType)+":"+chunk.Number)
	}
	want := []string{
		"title:",
		"preamble:",
		"citation:",
		"recital:1",
		"recital:2",
		"article:1",
		"article:2",
		"article:3",
		"concluding_formulas:",
		"part:1.1",
		"part:1.2",
		"annex:II",
	}
	if len(sequence) != len(want) {
		t.Fatalf("chunk sequence = %v, want %v", sequence, want)
	}
	for i := range want {
		if sequence[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, sequence[i], want[i])
		}
	}
}

func TestParseFixtureHierarchyPaths(t *testing.T) {
	builder := NewBuilder(loadFixture(t, "regulation.html"))
	tree, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	chunks := Linearize(tree)

	wantPaths := map[string][]string{
		"Article 1 - Subject matter": {"Enacting Terms", "CHAPTER I - General provisions", "SECTION 1 - Scope"},
		"Article 3 - Categories of operations": {"Enacting Terms", "CHAPTER II - Operations"},
		"Recital 1":       {"Preamble"},
		"ANNEX 1 - PART 1": {"ANNEX - UAS operations in the open and specific categories"},
	}

	for _, chunk := range chunks {
		want, tracked := wantPaths[chunk.Title]
		if !tracked {
			continue
		}
		if len(chunk.HierarchyPath) != len(want) {
			t.Errorf("%q hierarchy = %v, want %v", chunk.Title, chunk.HierarchyPath, want)
			continue
		}
		for i := range want {
			if chunk.HierarchyPath[i] != want[i] {
				t.Errorf("%q hierarchy = %v, want %v", chunk.Title, chunk.HierarchyPath, want)
				break
			}
		}
		delete(wantPaths, chunk.Title)
	}
	for title := range wantPaths {
		t.Errorf("no chunk with title %q", title)
	}
}

// The hierarchy path length always equals node depth minus one, and the
// path is consistent between the tree and the flat chunk list.
func TestParseHierarchyDepthInvariant(t *testing.T) {
	tree := buildFixture(t, "regulation.html")

	depths := map[*DocumentNode]int{}
	var walkDepth func(n *DocumentNode, depth int)
	walkDepth = func(n *DocumentNode, depth int) {
		depths[n] = depth
		for _, c := range n.Children {
			walkDepth(c, depth+1)
		}
	}
	walkDepth(tree, 0)

	tree.Walk(func(n *DocumentNode, path []string) bool {
		wantLen := depths[n] - 1
		if n == tree {
			wantLen = 0
		}
		if len(path) != wantLen {
			t.Errorf("node %q (kind %v): path length %d, want %d", n.Title, n.Kind, len(path), wantLen)
		}
		return true
	})
}

// Chunk linearization and TOC building traverse nodes in the same order:
// the chunk (id, type) sequence appears in the TOC's flattened pre-order.
func TestParseOrderingAgreement(t *testing.T) {
	builder := NewBuilder(loadFixture(t, "regulation.html"))
	tree, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	chunks := Linearize(tree)
	toc := BuildTOC(tree)

	tocRefs := toc.Flatten()
	cursor := 0
	for _, chunk := range chunks {
		if chunk.SectionType == KindTitle {
			continue // the TOC names the title at its root, not as an entry
		}
		id := chunk.Metadata["id"]
		found := false
		for ; cursor < len(tocRefs); cursor++ {
			if tocRefs[cursor].ID == id && tocRefs[cursor].Type == chunk.SectionType {
				found = true
				cursor++
				break
			}
		}
		if !found {
			t.Fatalf("chunk (%v, %v) not found in TOC order after position %d", id, chunk.SectionType, cursor)
		}
	}
}

// No text inside structural containers is lost or duplicated across chunks.
func TestParseCoverage(t *testing.T) {
	builder := NewBuilder(loadFixture(t, "regulation.html"))
	tree, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	chunks := Linearize(tree)

	var combined strings.Builder
	for _, chunk := range chunks {
		combined.WriteString(chunk.Content)
		combined.WriteString("\n")
	}
	all := combined.String()

	// Every visible content sentence appears exactly once.
	sentences := []string{
		"THE EUROPEAN COMMISSION,",
		"Having regard to the Treaty on the Functioning of the European Union,",
		"Unmanned aircraft systems can operate across borders.",
		"Rules should be proportionate to the risk of the operation.",
		"This Regulation lays down detailed provisions",
		"'unmanned aircraft' means any aircraft operating without a pilot on board;",
		"Operations shall be performed in the open, specific or certified category.",
		"binding in its entirety",
		"UAS.OPEN.010 General provisions",
		"The maximum take-off mass shall be less than 25 kg.",
		"Requirements for the specific category.",
		"Noise limits apply as follows.",
	}
	for _, sentence := range sentences {
		if got := strings.Count(all, sentence); got != 1 {
			t.Errorf("sentence %q appears %d times, want 1", sentence, got)
		}
	}

	// Headings captured as titles never leak into content.
	for _, heading := range []string{"CHAPTER I", "SECTION 1", "Article 1"} {
		if strings.Contains(all, heading) {
			t.Errorf("heading %q leaked into chunk content", heading)
		}
	}
}

func TestTOCShape(t *testing.T) {
	builder := NewBuilder(loadFixture(t, "regulation.html"))
	tree, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	toc := BuildTOC(tree)

	if toc.Title != "Commission Implementing Regulation (EU) 2019/947" {
		t.Errorf("toc title = %q", toc.Title)
	}

	var sectionTitles []string
	for _, section := range toc.Sections {
		sectionTitles = append(sectionTitles, section.Title)
	}
	want := []string{
		"Preamble",
		"Enacting Terms",
		"Concluding formulas",
		"ANNEX - UAS operations in the open and specific categories",
		"ANNEX II - Noise limits",
	}
	if len(sectionTitles) != len(want) {
		t.Fatalf("toc sections = %v, want %v", sectionTitles, want)
	}
	for i := range want {
		if sectionTitles[i] != want[i] {
			t.Errorf("section %d = %q, want %q", i, sectionTitles[i], want[i])
		}
	}

	// The preamble shows a single entry with citation and recitals beneath
	// it, never a separate free-text sub-entry.
	preamble := toc.Sections[0]
	if len(preamble.Children) != 3 {
		t.Fatalf("preamble children = %d, want 3 (citation + 2 recitals)", len(preamble.Children))
	}
	if preamble.Children[0].Type != KindCitation {
		t.Errorf("first preamble child = %v, want citation", preamble.Children[0].Type)
	}
}

func TestTOCMarshalJSON(t *testing.T) {
	builder := NewBuilder(loadFixture(t, "regulation.html"))
	tree, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	toc := BuildTOC(tree)

	encoded, err := json.Marshal(toc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded struct {
		Title     string                 `json:"title"`
		Hierarchy map[string]json.RawMessage `json:"hierarchy"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("round-trip failed: %v\n%s", err, encoded)
	}
	if decoded.Title == "" {
		t.Error("marshaled title empty")
	}
	if _, ok := decoded.Hierarchy["Preamble"]; !ok {
		t.Errorf("hierarchy missing Preamble key: %s", encoded)
	}

	// Leaves carry {id, type}.
	var preamble map[string]json.RawMessage
	if err := json.Unmarshal(decoded.Hierarchy["Preamble"], &preamble); err != nil {
		t.Fatalf("preamble entry not a map: %v", err)
	}
	var leaf TOCRef
	if err := json.Unmarshal(preamble["Recital 1"], &leaf); err != nil {
		t.Fatalf("recital leaf: %v", err)
	}
	if leaf.ID != "rct_1" || leaf.Type != KindRecital {
		t.Errorf("leaf = %+v", leaf)
	}
}

// Sibling entries that fall back to the same title must not collide in the
// hierarchy map; later keys would silently shadow earlier ones.
func TestTOCMarshalJSONDuplicateSiblingTitles(t *testing.T) {
	toc := TableOfContents{
		Title: "Duplicate siblings",
		Sections: []*TOCEntry{
			{Title: "ANNEX", Number: "I", ID: "anx_I", Type: KindAnnex},
			{Title: "ANNEX", Number: "II", ID: "anx_II", Type: KindAnnex},
			{Title: "ANNEX", ID: "anx_3", Type: KindAnnex},
		},
	}

	encoded, err := json.Marshal(toc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded struct {
		Hierarchy map[string]TOCRef `json:"hierarchy"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("round-trip failed: %v\n%s", err, encoded)
	}
	if len(decoded.Hierarchy) != 3 {
		t.Fatalf("hierarchy has %d keys, want 3: %s", len(decoded.Hierarchy), encoded)
	}
	for key, wantID := range map[string]string{
		"ANNEX":      "anx_I",
		"ANNEX (II)": "anx_II",
		"ANNEX (2)":  "anx_3",
	} {
		if got, ok := decoded.Hierarchy[key]; !ok || got.ID != wantID {
			t.Errorf("hierarchy[%q] = %+v, want id %q", key, got, wantID)
		}
	}
}

func TestParseWarningsCollected(t *testing.T) {
	result, err := parseHTML(t, `<html><body>
		<div class="eli-subdivision" id="art_1">
			<p class="oj-ti-art">Article 1</p>
			<p class="oj-normal">Body.</p>
			<table><tr></tr></table>
		</div>
	</body></html>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Kind != WarnTableFallback {
		t.Errorf("warnings = %v, want one table fallback", result.Warnings)
	}
	// The malformed table is non-fatal: the article chunk still exists.
	if len(chunksOfType(result.Chunks, KindArticle)) != 1 {
		t.Error("article chunk missing despite non-fatal warning")
	}
}
