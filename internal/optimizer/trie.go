package optimizer

import (
	"strings"
	"unicode/utf8"
)

// whitespaceAtom replaces a literal space when SpaceAsWhitespace is set.
const whitespaceAtom = `\s+`

type edge struct {
	key   string
	child *node
}

// node is one trie level. A terminal node ends a word; its children are
// optional continuations.
type node struct {
	edges    []edge
	terminal bool
}

func (n *node) empty() bool {
	return len(n.edges) == 0
}

func (n *node) child(key string) *node {
	for _, e := range n.edges {
		if e.key == key {
			return e.child
		}
	}
	c := &node{}
	n.edges = append(n.edges, edge{key: key, child: c})
	return c
}

func (n *node) add(key string, c *node) {
	for i, e := range n.edges {
		if e.key == key {
			n.edges[i].child.terminal = true
			return
		}
	}
	n.edges = append(n.edges, edge{key: key, child: c})
}

// split replaces the edge key with head -> tail -> old child and returns the
// node reached through head.
func (n *node) split(key, head, tail string) *node {
	for i, e := range n.edges {
		if e.key != key {
			continue
		}
		mid := &node{edges: []edge{{key: tail, child: e.child}}}
		n.edges[i] = edge{key: head, child: mid}
		return mid
	}
	return n.child(head)
}

// render joins the sibling fragments with |.
func (n *node) render() string {
	var b strings.Builder
	n.renderTo(&b)
	return b.String()
}

func (n *node) renderTo(b *strings.Builder) {
	for i, e := range n.edges {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(e.key)
		e.child.renderChildren(b)
	}
}

// renderChildren writes the continuations of n: a bare atom or a character
// class when every child is a single-atom leaf, a group otherwise. The result
// is optional when n itself ends a word.
func (n *node) renderChildren(b *strings.Builder) {
	if n.empty() {
		return
	}
	switch {
	case n.atomLeaves() && len(n.edges) == 1:
		b.WriteString(n.edges[0].key)
	case n.atomLeaves():
		b.WriteByte('[')
		for _, e := range n.edges {
			b.WriteString(e.key)
		}
		b.WriteByte(']')
	default:
		b.WriteString("(?:")
		n.renderTo(b)
		b.WriteByte(')')
	}
	if n.terminal {
		b.WriteByte('?')
	}
}

func (n *node) atomLeaves() bool {
	for _, e := range n.edges {
		if !e.child.empty() || !isClassAtom(e.key) {
			return false
		}
	}
	return true
}

// isClassAtom reports whether key is one rune or one escaped rune, which
// may stand alone before ? or inside [...].
func isClassAtom(key string) bool {
	n := atomLen(key)
	return n > 0 && n == len(key) && key != whitespaceAtom
}

// atomLen returns the byte length of the leading atom of s: an escaped rune,
// the whitespace atom, or one rune.
func atomLen(s string) int {
	if s == "" {
		return 0
	}
	if strings.HasPrefix(s, whitespaceAtom) {
		return len(whitespaceAtom)
	}
	if s[0] == '\\' && len(s) > 1 {
		_, size := utf8.DecodeRuneInString(s[1:])
		return 1 + size
	}
	_, size := utf8.DecodeRuneInString(s)
	return size
}

// commonPrefix returns the byte length of the longest common prefix of a and
// b that ends on an atom boundary.
func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) {
		la, lb := atomLen(a[n:]), atomLen(b[n:])
		if la != lb || a[n:n+la] != b[n:n+lb] {
			break
		}
		n += la
	}
	return n
}
