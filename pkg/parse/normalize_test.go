package parse

import (
	"strings"
	"testing"
)

func TestIsMarker(t *testing.T) {
	markers := []string{"(a)", "(b)", "(12)", "(iv)", "(viii)", "1.", "27.", "iv.", "IX.", "—", "–", "-"}
	for _, m := range markers {
		if !IsMarker(m) {
			t.Errorf("IsMarker(%q) = false, want true", m)
		}
	}

	nonMarkers := []string{"", "1. Scope", "(a) text", "Article 1", "a)", "(1", "1", "word", "PART 1"}
	for _, m := range nonMarkers {
		if IsMarker(m) {
			t.Errorf("IsMarker(%q) = true, want false", m)
		}
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello   world  ", "hello world"},
		{"line\none", "line one"},
		{"a   b", "a b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTextJoinsMarkers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "letter marker joined with single space",
			in:   "(a)\ncarry out all flights",
			want: "(a) carry out all flights",
		},
		{
			name: "marker joined across blank line",
			in:   "(b)\n\nkeep records",
			want: "(b) keep records",
		},
		{
			name: "numbered marker",
			in:   "8.\nThe operator shall comply.",
			want: "8. The operator shall comply.",
		},
		{
			name: "dash marker",
			in:   "—\nuncontrolled areas",
			want: "— uncontrolled areas",
		},
		{
			name: "blank runs collapse to one",
			in:   "first\n\n\n\nsecond",
			want: "first\n\nsecond",
		},
		{
			name: "unit split repaired",
			in:   "a volume of 200 m\n3 per hour",
			want: "a volume of 200 m3 per hour",
		},
		{
			name: "list item blank lines preserved",
			in:   "(a) one\n\n(b) two",
			want: "(a) one\n\n(b) two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Normalizing already-normalized text must be a no-op: annex content passes
// through the normalizer on more than one extraction path.
func TestNormalizeTextIdempotent(t *testing.T) {
	inputs := []string{
		"(a)\nfirst item\n(b)\nsecond item",
		"1.\n\nParagraph one.\n\n\n2.\n\nParagraph two.",
		"plain text\n\nwith paragraphs",
		"—\ndash item\n—\nanother",
		"| c1 | c2 |\n| c3 | c4 |",
		"trailing blanks\n\n\n",
		"",
		"iv.\nroman paragraph",
		"a volume of 200 m\n3 per hour",
	}

	for _, input := range inputs {
		once := NormalizeText(input)
		twice := NormalizeText(once)
		if once != twice {
			t.Errorf("NormalizeText not idempotent:\ninput: %q\nonce:  %q\ntwice: %q", input, once, twice)
		}
	}
}

func TestBlocksFromTableListStructured(t *testing.T) {
	table := parseFragment(t, `<table>
		<tr><td><p>(a)</p></td><td><p>first obligation;</p></td></tr>
		<tr><td><p>(b)</p></td><td><p>second obligation;</p></td></tr>
		<tr><td><p>(c)</p></td><td><p>third obligation.</p></td></tr>
	</table>`)

	nz := &normalizer{warnings: &warningList{}}
	blocks := nz.blocksFromTable(table, "anx_1")

	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	wantMarkers := []string{"(a)", "(b)", "(c)"}
	wantTexts := []string{"first obligation;", "second obligation;", "third obligation."}
	for i, block := range blocks {
		if block.Tag != BlockListItem {
			t.Errorf("block %d tag = %v, want %v", i, block.Tag, BlockListItem)
		}
		if block.Marker != wantMarkers[i] || block.Text != wantTexts[i] {
			t.Errorf("block %d = (%q, %q), want (%q, %q)", i, block.Marker, block.Text, wantMarkers[i], wantTexts[i])
		}
	}

	rendered := RenderBlocks(blocks)
	if strings.Contains(rendered, "|") {
		t.Errorf("list-structured table rendered as pipe table:\n%s", rendered)
	}
	if !strings.Contains(rendered, "(a) first obligation;") {
		t.Errorf("marker not joined with text on one line:\n%s", rendered)
	}
}

func TestBlocksFromTableData(t *testing.T) {
	table := parseFragment(t, `<table>
		<tr><td><p>Class</p></td><td><p>MTOM</p></td><td><p>Speed</p></td></tr>
		<tr><td><p>C0</p></td><td><p>250 g</p></td><td></td></tr>
	</table>`)

	nz := &normalizer{warnings: &warningList{}}
	blocks := nz.blocksFromTable(table, "anx_1")

	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	for i, block := range blocks {
		if block.Tag != BlockTableRow {
			t.Errorf("block %d tag = %v, want %v", i, block.Tag, BlockTableRow)
		}
	}

	rendered := RenderBlocks(blocks)
	want := "| Class | MTOM | Speed |\n| C0 | 250 g |  |"
	if rendered != want {
		t.Errorf("rendered = %q, want %q", rendered, want)
	}
}

func TestBlocksFromTableFallback(t *testing.T) {
	table := parseFragment(t, `<table><tr></tr></table>`)

	wl := &warningList{}
	nz := &normalizer{warnings: wl}
	nz.blocksFromTable(table, "anx_2")

	if len(wl.warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(wl.warnings))
	}
	if wl.warnings[0].Kind != WarnTableFallback {
		t.Errorf("warning kind = %v, want %v", wl.warnings[0].Kind, WarnTableFallback)
	}
	if wl.warnings[0].SourceID != "anx_2" {
		t.Errorf("warning source = %q, want %q", wl.warnings[0].SourceID, "anx_2")
	}
}

func TestJoinMarkerBlocks(t *testing.T) {
	blocks := []ContentBlock{
		{Tag: BlockParagraph, Text: "(a)"},
		{Tag: BlockParagraph, Text: "carry out flights safely;"},
		{Tag: BlockParagraph, Text: "ordinary paragraph"},
		{Tag: BlockParagraph, Text: "(b)"},
		{Tag: BlockParagraph, Text: "keep records."},
	}

	joined := joinMarkerBlocks(blocks)
	if len(joined) != 3 {
		t.Fatalf("got %d blocks, want 3", len(joined))
	}
	if joined[0].Tag != BlockListItem || joined[0].Marker != "(a)" || joined[0].Text != "carry out flights safely;" {
		t.Errorf("first joined block wrong: %+v", joined[0])
	}
	if joined[1].Text != "ordinary paragraph" {
		t.Errorf("middle paragraph disturbed: %+v", joined[1])
	}
	if joined[2].Marker != "(b)" {
		t.Errorf("second marker not joined: %+v", joined[2])
	}
}

func TestJoinMarkerBlocksTrailingMarker(t *testing.T) {
	blocks := []ContentBlock{{Tag: BlockParagraph, Text: "(a)"}}
	joined := joinMarkerBlocks(blocks)
	if len(joined) != 1 || joined[0].Text != "(a)" {
		t.Errorf("trailing bare marker should survive untouched: %+v", joined)
	}
}
