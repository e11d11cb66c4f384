package gedcom

import (
	"regexp"
	"strings"
)

// Node is a Line with its nested sub-lines attached.
type Node struct {
	Line
	Children []*Node
}

// BuildHierarchy nests flat lines by level using a stack of open ancestors and
// returns the level-0 records.
func BuildHierarchy(lines []Line) []*Node {
	root := &Node{Line: Line{Level: -1}}
	stack := []*Node{root}
	for _, line := range lines {
		node := &Node{Line: line}
		for len(stack) > 1 && stack[len(stack)-1].Level >= line.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, node)
		stack = append(stack, node)
	}
	return root.Children
}

// Child returns the first child with the given tag, or nil.
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// ChildValue returns the trimmed value of the first child with the given tag.
func (n *Node) ChildValue(tag string) string {
	if c := n.Child(tag); c != nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// ChildText is ChildValue with continuation lines applied.
func (n *Node) ChildText(tag string) string {
	if c := n.Child(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

// Text returns the node value with its CONT (new line) and CONC (same line)
// continuations appended.
func (n *Node) Text() string {
	var b strings.Builder
	b.WriteString(n.Value)
	for _, c := range n.Children {
		switch c.Tag {
		case "CONT":
			b.WriteString("\n")
			b.WriteString(c.Value)
		case "CONC":
			b.WriteString(c.Value)
		}
	}
	return b.String()
}

var pointerRegex = regexp.MustCompile(`^@[^@\s]+@$`)

// IsPointer reports whether the value references another record, e.g. @N12@.
func (n *Node) IsPointer() bool {
	return pointerRegex.MatchString(strings.TrimSpace(n.Value))
}
