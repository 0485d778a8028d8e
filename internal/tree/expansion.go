package tree

import (
	"sort"
	"sync"
)

// Expansion records which folders are open, keyed by full path. It
// outlives any single Forest and is read by Build on every rebuild.
// Entries are never evicted; a session only ever sees a few hundred
// folder paths.
type Expansion struct {
	mu   sync.RWMutex
	open map[string]bool
}

// NewExpansion returns an empty expansion state (everything collapsed).
func NewExpansion() *Expansion {
	return &Expansion{open: make(map[string]bool)}
}

// IsExpanded reports whether path is open. A nil Expansion has every
// folder collapsed.
func (e *Expansion) IsExpanded(path string) bool {
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.open[path]
}

// Set records the state of path.
func (e *Expansion) Set(path string, expanded bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open[path] = expanded
}

// Toggle flips path and returns the new state.
func (e *Expansion) Toggle(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open[path] = !e.open[path]
	return e.open[path]
}

// Expand opens path.
func (e *Expansion) Expand(path string) { e.Set(path, true) }

// Collapse closes path.
func (e *Expansion) Collapse(path string) { e.Set(path, false) }

// ExpandAll opens every path in paths.
func (e *Expansion) ExpandAll(paths []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range paths {
		e.open[p] = true
	}
}

// CollapseAll forgets every recorded path, closing all folders.
func (e *Expansion) CollapseAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.open)
}

// Len returns the number of recorded paths, open or closed.
func (e *Expansion) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.open)
}

// Snapshot returns the open paths in sorted order.
func (e *Expansion) Snapshot() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []string
	for p, open := range e.open {
		if open {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
