// Package tree rebuilds the folder hierarchy of a flat object-storage
// bucket. Keys are split on "/", implied folders are synthesized, empty
// folder markers are merged in, and the per-folder expansion state
// survives rebuilds.
package tree

// Node is a *Folder or a *File.
type Node interface {
	// NodeName is the last path segment.
	NodeName() string
	// NodePath is the full slash-separated path, unique in a Forest.
	NodePath() string
	// IsFolder reports whether the node is a *Folder.
	IsFolder() bool
}

// Folder is a directory-like node. Synthesized folders carry no metadata.
type Folder struct {
	Name     string
	FullPath string
	Children []Node
	Expanded bool
}

// File is a document stored in the bucket.
type File struct {
	Name     string
	FullPath string

	// Key is the storage key exactly as listed. It differs from FullPath
	// only for keys with leading, trailing or doubled slashes.
	Key string

	Size      int64
	UpdatedAt string
	PublicURL string // empty when the lookup failed
}

func (f *Folder) NodeName() string { return f.Name }
func (f *Folder) NodePath() string { return f.FullPath }
func (f *Folder) IsFolder() bool   { return true }

func (f *File) NodeName() string { return f.Name }
func (f *File) NodePath() string { return f.FullPath }
func (f *File) IsFolder() bool   { return false }

// Folders returns the direct child folders.
func (f *Folder) Folders() []*Folder {
	var out []*Folder
	for _, c := range f.Children {
		if sub, ok := c.(*Folder); ok {
			out = append(out, sub)
		}
	}
	return out
}

// Files returns the direct child files.
func (f *Folder) Files() []*File {
	var out []*File
	for _, c := range f.Children {
		if file, ok := c.(*File); ok {
			out = append(out, file)
		}
	}
	return out
}

// Forest is the result of Build: the root-level nodes plus an index.
type Forest struct {
	Roots []Node

	// Skipped lists keys that could not become nodes: malformed keys and
	// file keys that collide with a folder path.
	Skipped []string

	index   map[string]Node
	parents map[string]string
}

func newForest() *Forest {
	return &Forest{
		index:   make(map[string]Node),
		parents: make(map[string]string),
	}
}

// Lookup returns the node at path.
func (f *Forest) Lookup(path string) (Node, bool) {
	n, ok := f.index[path]
	return n, ok
}

// Folder returns the folder at path.
func (f *Forest) Folder(path string) (*Folder, bool) {
	n, ok := f.index[path]
	if !ok {
		return nil, false
	}
	folder, ok := n.(*Folder)
	return folder, ok
}

// File returns the file at path.
func (f *Forest) File(path string) (*File, bool) {
	n, ok := f.index[path]
	if !ok {
		return nil, false
	}
	file, ok := n.(*File)
	return file, ok
}

// Parent returns the path of the node's parent folder. ok is false for
// unknown paths; root-level nodes return "" and true.
func (f *Forest) Parent(path string) (string, bool) {
	if _, ok := f.index[path]; !ok {
		return "", false
	}
	return f.parents[path], true
}

// Children returns the children of the folder at path, or the roots when
// path is "".
func (f *Forest) Children(path string) []Node {
	if path == "" {
		return f.Roots
	}
	if folder, ok := f.Folder(path); ok {
		return folder.Children
	}
	return nil
}

// Len returns the number of nodes.
func (f *Forest) Len() int {
	return len(f.index)
}

// Walk visits every node depth-first in display order. Returning false
// from fn skips the node's children.
func (f *Forest) Walk(fn func(n Node, depth int) bool) {
	var walk func(nodes []Node, depth int)
	walk = func(nodes []Node, depth int) {
		for _, n := range nodes {
			descend := fn(n, depth)
			if folder, ok := n.(*Folder); ok && descend {
				walk(folder.Children, depth+1)
			}
		}
	}
	walk(f.Roots, 0)
}

// Folders returns every folder in display order.
func (f *Forest) Folders() []*Folder {
	var out []*Folder
	f.Walk(func(n Node, _ int) bool {
		if folder, ok := n.(*Folder); ok {
			out = append(out, folder)
		}
		return true
	})
	return out
}

// Files returns every file in display order.
func (f *Forest) Files() []*File {
	var out []*File
	f.Walk(func(n Node, _ int) bool {
		if file, ok := n.(*File); ok {
			out = append(out, file)
		}
		return true
	})
	return out
}

func (f *Forest) add(n Node, parent string) {
	f.index[n.NodePath()] = n
	f.parents[n.NodePath()] = parent
	if parent == "" {
		f.Roots = append(f.Roots, n)
		return
	}
	p := f.index[parent].(*Folder)
	p.Children = append(p.Children, n)
}
