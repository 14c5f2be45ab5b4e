// Package tree turns the flat category table into a forest for display and
// back into ordered lists for parent pickers.
package tree

import "github.com/fekuna/omnipos-invoice-service/internal/model"

// Node is a category with its children, in the order they were attached.
type Node struct {
	model.Category
	Children []*Node `json:"children"`
}

// Build links records into a forest in two passes over the input.
//
// Records whose parent id does not resolve are dropped, as is every record
// whose ancestor chain loops back on itself without reaching a root. Both end
// up unreachable rather than being reported.
func Build(records []model.Category) []*Node {
	byID := make(map[string]*Node, len(records))
	for _, rec := range records {
		byID[rec.ID] = &Node{Category: rec, Children: []*Node{}}
	}

	roots := []*Node{}
	for _, rec := range records {
		node := byID[rec.ID]
		if rec.IsRoot() {
			roots = append(roots, node)
			continue
		}
		parent, ok := byID[*rec.ParentID]
		if !ok {
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}

// Flatten walks the forest depth-first, parents before children.
func Flatten(forest []*Node) []model.Category {
	out := []model.Category{}
	Walk(forest, func(n *Node, _ int) bool {
		out = append(out, n.Category)
		return true
	})
	return out
}

// Walk visits nodes in the order Flatten returns them, with their depth.
// Returning false from fn skips that node's subtree.
//
// The traversal uses an explicit stack, so deep trees cannot exhaust the
// goroutine stack. A node reached twice (only possible when the forest was
// assembled by hand) is visited once.
func Walk(forest []*Node, fn func(n *Node, depth int) bool) {
	type frame struct {
		node  *Node
		depth int
	}

	stack := make([]frame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: forest[i]})
	}

	seen := make(map[*Node]struct{})
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, dup := seen[top.node]; dup {
			continue
		}
		seen[top.node] = struct{}{}

		if !fn(top.node, top.depth) {
			continue
		}
		children := top.node.Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], depth: top.depth + 1})
		}
	}
}

// Find returns the node with the given id, or nil.
func Find(forest []*Node, id string) *Node {
	var found *Node
	Walk(forest, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Descendants returns id followed by the ids of its whole subtree. It returns
// nil when id is not in the forest.
func Descendants(forest []*Node, id string) []string {
	root := Find(forest, id)
	if root == nil {
		return nil
	}
	ids := []string{}
	Walk([]*Node{root}, func(n *Node, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Path returns the names from the root down to id, or nil if id is unreachable.
func Path(forest []*Node, id string) []string {
	var path []string
	var trail []string
	Walk(forest, func(n *Node, depth int) bool {
		if path != nil {
			return false
		}
		trail = append(trail[:depth], n.Name)
		if n.ID == id {
			path = append([]string(nil), trail...)
			return false
		}
		return true
	})
	return path
}
