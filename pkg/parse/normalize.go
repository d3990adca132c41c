package parse

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// BlockTag distinguishes the shapes a normalized content unit can take.
type BlockTag string

const (
	BlockParagraph BlockTag = "paragraph"
	BlockListItem  BlockTag = "list_item"
	BlockTableRow  BlockTag = "table_row"
)

// ContentBlock is one normalized unit of text. List items carry their marker
// already joined to the text; marker and content always share one block.
type ContentBlock struct {
	Tag    BlockTag `json:"tag"`
	Marker string   `json:"marker,omitempty"`
	Cells  []string `json:"cells,omitempty"`
	Text   string   `json:"text"`
}

// markerPattern matches a line whose entire content is a bare list marker:
// a parenthesized letter, number, or roman numeral; a digit run followed by
// a period; a roman numeral followed by a period; or a dash.
var markerPattern = regexp.MustCompile(`^(?:\(\s*(?:\d+|[a-zA-Z]+)\s*\)|\d+\.|(?i:[ivxlcdm]+)\.|[—–-])$`)

// IsMarker reports whether text is a bare list marker.
func IsMarker(text string) bool {
	return markerPattern.MatchString(strings.TrimSpace(text))
}

// CleanText collapses all whitespace runs to single spaces and trims.
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// Non-breaking spaces count as whitespace: EUR-Lex pads paragraph numbers
// with   runs.
var (
	whitespaceRun = regexp.MustCompile(`[\s\x{00a0}]+`)
	unitSplit     = regexp.MustCompile(`m\n3\b`)
)

// NormalizeText normalizes multi-line text: trims each line, rejoins bare
// marker lines with the following non-empty line (single space, never a
// newline), collapses runs of blank lines to exactly one, and repairs unit
// splits like "m\n3". Normalizing already-normalized text is a no-op.
func NormalizeText(text string) string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	var out []string
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if line == "" {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			continue
		}

		if markerPattern.MatchString(line) {
			// Join the marker with the next non-empty line.
			joined := false
			for j := i + 1; j < len(lines); j++ {
				if lines[j] == "" {
					continue
				}
				out = append(out, line+" "+lines[j])
				i = j
				joined = true
				break
			}
			if joined {
				continue
			}
		}

		out = append(out, line)
	}

	// Drop a trailing blank left by the collapse.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return unitSplit.ReplaceAllString(strings.Join(out, "\n"), "m3")
}

// RenderBlocks renders a block sequence to text. Paragraphs and list items
// are separated by blank lines; consecutive data table rows are emitted one
// per line in pipe-delimited form.
func RenderBlocks(blocks []ContentBlock) string {
	var sb strings.Builder
	for i, block := range blocks {
		if i > 0 {
			if block.Tag == BlockTableRow && blocks[i-1].Tag == BlockTableRow {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		switch block.Tag {
		case BlockTableRow:
			sb.WriteString("| " + strings.Join(block.Cells, " | ") + " |")
		case BlockListItem:
			if block.Marker != "" {
				sb.WriteString(block.Marker + " " + block.Text)
			} else {
				sb.WriteString(block.Text)
			}
		default:
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// normalizer converts DOM runs into ContentBlock sequences. It holds the
// parse-local warning collector; one normalizer serves one Builder.
type normalizer struct {
	warnings *warningList
}

// blocksFromNodes normalizes a contiguous run of DOM nodes. sourceID is the
// nearest enclosing subdivision id, used for warning attribution.
func (nz *normalizer) blocksFromNodes(nodes []*html.Node, sourceID string) []ContentBlock {
	var blocks []ContentBlock
	for _, n := range nodes {
		blocks = append(blocks, nz.blocksFromNode(n, sourceID)...)
	}
	return joinMarkerBlocks(blocks)
}

// blocksFromNode normalizes a single DOM node and its subtree.
func (nz *normalizer) blocksFromNode(n *html.Node, sourceID string) []ContentBlock {
	if n.Type == html.TextNode {
		if text := CleanText(n.Data); text != "" {
			return []ContentBlock{{Tag: BlockParagraph, Text: text}}
		}
		return nil
	}
	if n.Type != html.ElementNode {
		return nil
	}

	switch n.Data {
	case "script", "style":
		return nil
	case "p", "span":
		if text := CleanText(textContent(n)); text != "" {
			return []ContentBlock{{Tag: BlockParagraph, Text: text}}
		}
		return nil
	case "table":
		return nz.blocksFromTable(n, sourceID)
	case "ul", "ol":
		var blocks []ContentBlock
		for _, li := range findAll(n, func(c *html.Node) bool { return c.Data == "li" }) {
			if text := CleanText(textContent(li)); text != "" {
				blocks = append(blocks, ContentBlock{Tag: BlockListItem, Marker: "—", Text: text})
			}
		}
		return blocks
	default:
		var blocks []ContentBlock
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			blocks = append(blocks, nz.blocksFromNode(c, sourceID)...)
		}
		return blocks
	}
}

// blocksFromTable classifies a table and renders it accordingly. A table is
// list-structured when every row's first cell is a bare list marker; such
// tables are enumerated lists in disguise and become ListItem blocks. Tables
// failing that test are data tables and become pipe-delimited rows. A table
// with no well-formed rows falls back to raw line-joined text.
func (nz *normalizer) blocksFromTable(table *html.Node, sourceID string) []ContentBlock {
	rows := findAllNested(table, func(n *html.Node) bool { return n.Data == "tr" })

	type tableRow struct {
		cells []string
	}
	var parsed []tableRow
	wellFormed := len(rows) > 0
	for _, row := range rows {
		cellNodes := findAll(row, func(n *html.Node) bool { return n.Data == "td" || n.Data == "th" })
		if len(cellNodes) == 0 {
			wellFormed = false
			break
		}
		cells := make([]string, len(cellNodes))
		for i, cell := range cellNodes {
			cells[i] = CleanText(textContent(cell))
		}
		parsed = append(parsed, tableRow{cells: cells})
	}

	if !wellFormed {
		nz.warnings.add(WarnTableFallback, sourceID, "table has no well-formed rows, rendered as plain text")
		if text := NormalizeText(textContent(table)); text != "" {
			return []ContentBlock{{Tag: BlockParagraph, Text: text}}
		}
		return nil
	}

	listStructured := true
	for _, row := range parsed {
		if !IsMarker(row.cells[0]) {
			listStructured = false
			break
		}
	}

	var blocks []ContentBlock
	if listStructured {
		for _, row := range parsed {
			rest := strings.TrimSpace(strings.Join(row.cells[1:], " "))
			if rest == "" {
				// Marker-only row: keep the marker as its own paragraph so
				// the join pass can attach following text.
				blocks = append(blocks, ContentBlock{Tag: BlockParagraph, Text: row.cells[0]})
				continue
			}
			blocks = append(blocks, ContentBlock{Tag: BlockListItem, Marker: row.cells[0], Text: rest})
		}
		return blocks
	}

	for _, row := range parsed {
		blocks = append(blocks, ContentBlock{Tag: BlockTableRow, Cells: row.cells})
	}
	return blocks
}

// joinMarkerBlocks merges a paragraph block that is a bare marker with the
// following block, so marker and content always share one block. The source
// HTML frequently emits marker and body as separate sibling paragraphs.
func joinMarkerBlocks(blocks []ContentBlock) []ContentBlock {
	var out []ContentBlock
	for i := 0; i < len(blocks); i++ {
		block := blocks[i]
		if block.Tag == BlockParagraph && IsMarker(block.Text) && i+1 < len(blocks) {
			next := blocks[i+1]
			if next.Tag == BlockParagraph && next.Text != "" {
				out = append(out, ContentBlock{Tag: BlockListItem, Marker: block.Text, Text: next.Text})
				i++
				continue
			}
		}
		out = append(out, block)
	}
	return out
}
