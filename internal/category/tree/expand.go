package tree

// Expanded is the set of node ids currently open in a tree view.
type Expanded map[string]struct{}

// NewExpanded returns a set containing ids.
func NewExpanded(ids ...string) Expanded {
	set := make(Expanded, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id is expanded.
func (e Expanded) Has(id string) bool {
	_, ok := e[id]
	return ok
}

// IDs returns the members of the set in no particular order.
func (e Expanded) IDs() []string {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	return ids
}

// Toggle returns a copy of expanded with id added if it was absent and
// removed if it was present. The input set is left untouched.
func Toggle(id string, expanded Expanded) Expanded {
	next := make(Expanded, len(expanded)+1)
	for k := range expanded {
		next[k] = struct{}{}
	}
	if _, ok := next[id]; ok {
		delete(next, id)
	} else {
		next[id] = struct{}{}
	}
	return next
}
