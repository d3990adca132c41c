package parse

// DocumentNode is one node of the extracted document tree. Every node owns
// its children exclusively; the tree is built once per parse and never
// mutated afterwards.
type DocumentNode struct {
	// Kind is the structural role of this node.
	Kind Kind `json:"kind"`

	// Identifier is the declared number or letter ("I", "1", "a"), unique
	// among siblings of the same kind. Empty when the source declares none;
	// such nodes are anchored in document order only.
	Identifier string `json:"identifier,omitempty"`

	// Title is the human-readable heading, including the subtitle when one
	// is present.
	Title string `json:"title,omitempty"`

	// Subtitle is the secondary heading line, when the source carries one.
	Subtitle string `json:"subtitle,omitempty"`

	// SourceID is the originating element's declared id, for traceability.
	// Never reused across nodes.
	SourceID string `json:"source_id,omitempty"`

	// GroupIDs lists source ids merged into this node, e.g. all citation
	// ids aggregated into the combined citation node.
	GroupIDs []string `json:"group_ids,omitempty"`

	// Blocks is this node's own normalized content, preceding any children
	// in document order.
	Blocks []ContentBlock `json:"blocks,omitempty"`

	// Children are the nested subdivisions, in document order.
	Children []*DocumentNode `json:"children,omitempty"`
}

// Content renders the node's own blocks as normalized text.
func (node *DocumentNode) Content() string {
	return NormalizeText(RenderBlocks(node.Blocks))
}

// Walk visits node and every descendant in pre-order. The visit function
// receives each node together with the titles of its ancestors, root
// excluded. Returning false stops descent into that node's children.
func (node *DocumentNode) Walk(visit func(n *DocumentNode, path []string) bool) {
	var walk func(n *DocumentNode, path []string)
	walk = func(n *DocumentNode, path []string) {
		if !visit(n, path) {
			return
		}
		childPath := path
		if n.Kind != KindTitle {
			childPath = append(append([]string{}, path...), n.Title)
		}
		for _, child := range n.Children {
			walk(child, childPath)
		}
	}
	walk(node, nil)
}

// Find returns the first descendant (or node itself) with the given kind and
// identifier, or nil. An empty identifier matches any node of the kind.
func (node *DocumentNode) Find(kind Kind, identifier string) *DocumentNode {
	var found *DocumentNode
	node.Walk(func(n *DocumentNode, _ []string) bool {
		if found != nil {
			return false
		}
		if n.Kind == kind && (identifier == "" || n.Identifier == identifier) {
			found = n
			return false
		}
		return true
	})
	return found
}

// CountKind returns the number of nodes of the given kind in the tree.
func (node *DocumentNode) CountKind(kind Kind) int {
	count := 0
	node.Walk(func(n *DocumentNode, _ []string) bool {
		if n.Kind == kind {
			count++
		}
		return true
	})
	return count
}
