package parser

import (
	"strings"
)

// Node is one element of a split function signature: either a text fragment
// or a parenthesized group.
type Node struct {
	Text    string
	Group   []Node
	IsGroup bool
}

// Split turns every balanced "(...)" span of s into a nested group and keeps
// the text between them as fragments, in order:
//
//	int (*cb[2])(char *, int)  =>  ["int ", ("*cb[2]"), ("char *, int")]
func Split(s string) ([]Node, error) {
	type frame struct{ nodes []Node }

	stack := []*frame{{}}
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			top := stack[len(stack)-1]
			if start < i {
				top.nodes = append(top.nodes, Node{Text: s[start:i]})
			}
			stack = append(stack, &frame{})
			start = i + 1

		case ')':
			if len(stack) < 2 {
				return nil, grammarErrorf(s, "unmatched ')' at offset %d", i)
			}
			top := stack[len(stack)-1]
			if start < i {
				top.nodes = append(top.nodes, Node{Text: s[start:i]})
			}
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			parent.nodes = append(parent.nodes, Node{Group: top.nodes, IsGroup: true})
			start = i + 1
		}
	}
	if len(stack) != 1 {
		return nil, grammarErrorf(s, "%d unmatched '('", len(stack)-1)
	}
	if start < len(s) {
		stack[0].nodes = append(stack[0].nodes, Node{Text: s[start:]})
	}
	return stack[0].nodes, nil
}

// Join is the inverse of Split.
func Join(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		if n.IsGroup {
			b.WriteByte('(')
			b.WriteString(Join(n.Group))
			b.WriteByte(')')
			continue
		}
		b.WriteString(n.Text)
	}
	return b.String()
}

// Unpack flattens nodes into comma separated, trimmed leaf tokens. With
// strip set, tokens naming a variable rather than a type (leading '.', '*'
// or '[') are dropped; this also drops a variadic "...".
func Unpack(nodes []Node, strip bool) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.IsGroup {
			out = append(out, Unpack(n.Group, strip)...)
			continue
		}
		for _, tok := range strings.Split(n.Text, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			if strip && strings.ContainsRune(".*[", rune(tok[0])) {
				continue
			}
			out = append(out, tok)
		}
	}
	return out
}

// compact drops whitespace-only text fragments.
func compact(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if !n.IsGroup && strings.TrimSpace(n.Text) == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}
