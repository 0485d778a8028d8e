package tree

import "strings"

// Filter returns a new forest holding the nodes whose name or path
// contains query (case-insensitive), plus every ancestor of a match. An
// empty query returns f itself. Folders in the result are copies; File
// nodes are shared with f.
func (f *Forest) Filter(query string) *Forest {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return f
	}

	out := newForest()
	var keep func(n Node, parent string) bool
	keep = func(n Node, parent string) bool {
		matches := strings.Contains(strings.ToLower(n.NodeName()), q) ||
			strings.Contains(strings.ToLower(n.NodePath()), q)

		folder, ok := n.(*Folder)
		if !ok {
			if matches {
				out.add(n, parent)
			}
			return matches
		}

		// The copy is registered before its children so they can attach.
		cp := &Folder{Name: folder.Name, FullPath: folder.FullPath, Expanded: folder.Expanded}
		out.index[cp.FullPath] = cp
		out.parents[cp.FullPath] = parent

		kept := false
		for _, c := range folder.Children {
			if keep(c, cp.FullPath) {
				kept = true
			}
		}
		if !matches && !kept {
			delete(out.index, cp.FullPath)
			delete(out.parents, cp.FullPath)
			return false
		}
		if parent == "" {
			out.Roots = append(out.Roots, cp)
		} else {
			p := out.index[parent].(*Folder)
			p.Children = append(p.Children, cp)
		}
		return true
	}

	for _, n := range f.Roots {
		keep(n, "")
	}
	return out
}
