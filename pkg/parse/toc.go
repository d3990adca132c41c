package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TOCEntry is one navigable entry of the table of contents. Children are
// kept as an ordered slice internally; marshaling renders the nested keyed
// shape with keys in document order.
type TOCEntry struct {
	Title    string
	Number   string
	ID       string
	Type     Kind
	Children []*TOCEntry
}

// TableOfContents mirrors the document tree for navigation: the root title
// plus one entry per titled node, in document order.
type TableOfContents struct {
	Title    string
	Sections []*TOCEntry
}

// BuildTOC performs the same pre-order traversal as Linearize and emits the
// nested TOC, one entry per node that bears an identifier or title.
func BuildTOC(root *DocumentNode) TableOfContents {
	toc := TableOfContents{Title: root.Title}
	for _, child := range root.Children {
		if entry := tocEntry(child); entry != nil {
			toc.Sections = append(toc.Sections, entry)
		}
	}
	return toc
}

func tocEntry(node *DocumentNode) *TOCEntry {
	if node.Title == "" && node.Identifier == "" {
		return nil
	}
	entry := &TOCEntry{
		Title:  node.Title,
		Number: node.Identifier,
		ID:     node.SourceID,
		Type:   node.Kind,
	}
	for _, child := range node.Children {
		if childEntry := tocEntry(child); childEntry != nil {
			entry.Children = append(entry.Children, childEntry)
		}
	}
	return entry
}

// Flatten returns every entry's (id, type) pair in traversal order. Used to
// check ordering agreement with the chunk list.
func (toc TableOfContents) Flatten() []TOCRef {
	var refs []TOCRef
	var walk func(entries []*TOCEntry)
	walk = func(entries []*TOCEntry) {
		for _, entry := range entries {
			refs = append(refs, TOCRef{ID: entry.ID, Type: entry.Type})
			walk(entry.Children)
		}
	}
	walk(toc.Sections)
	return refs
}

// TOCRef is a flattened (id, type) reference to one TOC entry.
type TOCRef struct {
	ID   string `json:"id"`
	Type Kind   `json:"type"`
}

// MarshalJSON renders {"title": ..., "hierarchy": {...}} where hierarchy is
// a nested map keyed by section title with keys in document order. Entries
// without children marshal as {"id", "type"} leaves.
func (toc TableOfContents) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"title":`)
	if err := writeJSON(&buf, toc.Title); err != nil {
		return nil, err
	}
	buf.WriteString(`,"hierarchy":`)
	if err := writeEntryMap(&buf, toc.Sections); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeEntryMap(buf *bytes.Buffer, entries []*TOCEntry) error {
	buf.WriteByte('{')
	seen := make(map[string]bool)
	for i, entry := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(buf, entryKey(seen, entry)); err != nil {
			return err
		}
		buf.WriteByte(':')
		if len(entry.Children) == 0 {
			if err := writeJSON(buf, TOCRef{ID: entry.ID, Type: entry.Type}); err != nil {
				return err
			}
			continue
		}
		if err := writeEntryMap(buf, entry.Children); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// entryKey returns the entry's title, disambiguated against the sibling keys
// already emitted. Sibling titles can collide when untitled subdivisions fall
// back to the same label; the map keys must stay unique or later entries
// shadow earlier ones.
func entryKey(seen map[string]bool, entry *TOCEntry) string {
	key := entry.Title
	if seen[key] && entry.Number != "" {
		key = entry.Title + " (" + entry.Number + ")"
	}
	for n := 2; seen[key]; n++ {
		key = fmt.Sprintf("%s (%d)", entry.Title, n)
	}
	seen[key] = true
	return key
}

func writeJSON(buf *bytes.Buffer, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}
