package tree

import (
	"sort"
	"strings"
)

// FormatList renders the same visual tree as Format from a flat list
// of 'a/b/c'-style names, without touching a filesystem. Callers that
// already hold a listing (a search index, a recursive ReadDirectory
// result) get consistent visuals this way. Any name with descendants
// is rendered as a directory; the dirs-first byte-order rules match
// Format exactly.
func FormatList(names []string) string {
	root := newListNode("")
	for _, name := range names {
		name = strings.Trim(strings.ReplaceAll(name, "\\", "/"), "/")
		if name == "" {
			continue
		}

		node := root
		for _, segment := range strings.Split(name, "/") {
			node = node.child(segment)
		}
	}

	var sb strings.Builder
	root.render(&sb, "")

	return sb.String()
}

type listNode struct {
	name     string
	children map[string]*listNode
}

func newListNode(name string) *listNode {
	return &listNode{
		name:     name,
		children: make(map[string]*listNode),
	}
}

func (n *listNode) child(name string) *listNode {
	if existing, ok := n.children[name]; ok {
		return existing
	}

	node := newListNode(name)
	n.children[name] = node

	return node
}

func (n *listNode) isDir() bool {
	return len(n.children) > 0
}

func (n *listNode) render(sb *strings.Builder, indent string) {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		a, b := n.children[names[i]], n.children[names[j]]
		if a.isDir() != b.isDir() {
			return a.isDir()
		}
		return a.name < b.name
	})

	for i, name := range names {
		connector := "├── "
		childIndent := indent + "│   "
		if i == len(names)-1 {
			connector = "└── "
			childIndent = indent + "    "
		}

		child := n.children[name]
		sb.WriteString(indent + connector + child.name + "\n")
		child.render(sb, childIndent)
	}
}
