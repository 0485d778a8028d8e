package app

import (
	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/markdown"
	"github.com/blogdesk/mdxmanager/internal/tree"
)

// Document is the file open in the viewer/editor.
type Document struct {
	Key     string
	Name    string
	Content string

	Size      int64
	UpdatedAt string
	PublicURL string

	Title       string
	FrontMatter map[string]any
	Headings    []markdown.Heading

	// ParseError is set when the front matter could not be read; the
	// content is still shown.
	ParseError error
}

func newDocument(key string, data []byte, meta *tree.File) *Document {
	d := &Document{
		Key:     key,
		Name:    storage.Base(key),
		Content: string(data),
		Size:    int64(len(data)),
	}
	if meta != nil {
		d.UpdatedAt = meta.UpdatedAt
		d.PublicURL = meta.PublicURL
	}
	if storage.IsMarkdown(key) {
		d.parse()
	}
	return d
}

func (d *Document) parse() {
	parsed, err := markdown.Parse([]byte(d.Content))
	if err != nil {
		d.ParseError = err
		d.Title = markdown.Title([]byte(d.Content))
		d.FrontMatter = nil
		d.Headings = markdown.Headings([]byte(d.Content))
		return
	}
	d.ParseError = nil
	d.Title = parsed.Title
	d.FrontMatter = parsed.FrontMatter
	d.Headings = parsed.Headings
}

// DisplayName is the title when the document has one, else the file name.
func (d *Document) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}
