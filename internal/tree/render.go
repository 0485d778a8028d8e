package tree

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// RenderOptions controls Render.
type RenderOptions struct {
	// All descends into every folder regardless of its Expanded flag.
	All bool
	// Details adds size and modified columns for files.
	Details bool
	// Indent is the per-level indentation; defaults to three spaces.
	Indent string
}

// Markers used by Render and the GUI tree.
const (
	MarkerFolderClosed = "📁"
	MarkerFolderOpen   = "📂"
	MarkerFile         = "📄"
)

type row struct {
	label string
	file  *File
}

// Render writes an indented text view of forest. Collapsed folders hide
// their children unless opts.All is set.
func Render(w io.Writer, forest *Forest, opts RenderOptions) error {
	indent := opts.Indent
	if indent == "" {
		indent = "   "
	}

	var rows []row
	width := 0
	forest.Walk(func(n Node, depth int) bool {
		var label string
		var file *File
		switch v := n.(type) {
		case *Folder:
			marker := MarkerFolderClosed
			if v.Expanded || opts.All {
				marker = MarkerFolderOpen
			}
			label = strings.Repeat(indent, depth) + marker + " " + v.Name + "/"
		case *File:
			label = strings.Repeat(indent, depth) + MarkerFile + " " + v.Name
			file = v
		}
		rows = append(rows, row{label: label, file: file})
		if n := utf8.RuneCountInString(label); n > width {
			width = n
		}
		if folder, ok := n.(*Folder); ok {
			return folder.Expanded || opts.All
		}
		return false
	})

	for _, r := range rows {
		var err error
		if opts.Details && r.file != nil {
			pad := width - utf8.RuneCountInString(r.label)
			_, err = fmt.Fprintf(w, "%s%s  %10s  %s\n", r.label, strings.Repeat(" ", pad),
				FormatFileSize(r.file.Size), FormatDate(r.file.UpdatedAt))
		} else {
			_, err = fmt.Fprintln(w, r.label)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
