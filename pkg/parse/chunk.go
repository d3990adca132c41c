package parse

// RegulationChunk is one flattened, addressable content unit: the primary
// output consumed by downstream persistence and question generation.
type RegulationChunk struct {
	// SectionType is the kind of the originating node.
	SectionType Kind `json:"section_type"`

	// Number is the declared identifier, when the node carries one.
	Number string `json:"number,omitempty"`

	// Title is the full title: heading plus subtitle.
	Title string `json:"title,omitempty"`

	// Content is the normalized text body. List and table structure is
	// preserved: markers share a line with their text, data tables render
	// as pipe-delimited rows.
	Content string `json:"content"`

	// HierarchyPath is the ordered list of ancestor titles from the
	// document root to the immediate parent, root excluded.
	HierarchyPath []string `json:"hierarchy_path"`

	// Metadata carries the origin id, subtitle, and any grouped child ids.
	Metadata map[string]any `json:"metadata"`
}

// alwaysChunked are the kinds that emit one chunk per node.
var alwaysChunked = map[Kind]bool{
	KindCitation:           true,
	KindRecital:            true,
	KindArticle:            true,
	KindAnnexPart:          true,
	KindAnnexSection:       true,
	KindAppendix:           true,
	KindConcludingFormulas: true,
}

// emitsChunk decides whether a node contributes a chunk. Beyond the
// chunk-bearing kinds, any node with content of its own emits one, so text
// sitting directly on a grouping node (preamble free text, stray chapter
// prose, annex lead content above its parts) is never dropped.
func emitsChunk(node *DocumentNode) bool {
	if alwaysChunked[node.Kind] {
		return true
	}
	if node.Kind == KindAnnex && len(node.Children) == 0 {
		return true
	}
	// The title node chunks only when the document declares a title block.
	return len(node.Blocks) > 0
}

// Linearize performs a pre-order traversal of the tree and emits the flat
// chunk sequence in document order. It visits every node exactly once and
// orders nodes identically to BuildTOC.
func Linearize(root *DocumentNode) []RegulationChunk {
	var chunks []RegulationChunk
	root.Walk(func(node *DocumentNode, path []string) bool {
		if !emitsChunk(node) {
			return true
		}

		content := node.Content()
		if content == "" {
			// An article or annex whose body is empty still carries its
			// subtitle as content.
			content = node.Subtitle
		}

		if path == nil {
			path = []string{}
		}

		metadata := map[string]any{"id": node.SourceID}
		if node.Subtitle != "" {
			metadata["subtitle"] = node.Subtitle
		}
		if node.Kind == KindCitation && len(node.GroupIDs) > 0 {
			metadata["citation_ids"] = node.GroupIDs
		}

		chunks = append(chunks, RegulationChunk{
			SectionType:   node.Kind,
			Number:        node.Identifier,
			Title:         node.Title,
			Content:       content,
			HierarchyPath: path,
			Metadata:      metadata,
		})
		return true
	})
	return chunks
}
