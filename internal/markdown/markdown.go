// Package markdown extracts metadata from Markdown and MDX documents:
// YAML front matter, the article title and the heading outline.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Heading is one entry of a document outline.
type Heading struct {
	Level int
	Text  string
}

// Document is a parsed Markdown/MDX file.
type Document struct {
	FrontMatter map[string]any
	Body        []byte
	Title       string
	Headings    []Heading
}

var parser = goldmark.New()

// Parse splits off the front matter and walks the body for headings.
// A malformed front matter block is an error; documents without one
// parse with an empty FrontMatter.
func Parse(content []byte) (*Document, error) {
	fm, body, err := ParseFrontMatter(content)
	if err != nil {
		return nil, err
	}
	doc := &Document{FrontMatter: fm, Body: body, Headings: headings(body)}
	doc.Title = titleFrom(fm, doc.Headings)
	return doc, nil
}

// ParseFrontMatter returns the YAML block delimited by "---" lines at the
// very start of content, and the remaining body.
func ParseFrontMatter(content []byte) (map[string]any, []byte, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	fm := map[string]any{}

	first, rest, ok := cutLine(content)
	if !ok || strings.TrimSpace(string(first)) != "---" {
		return fm, content, nil
	}

	var block []byte
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = cutLine(rest)
		if t := strings.TrimSpace(string(line)); t == "---" || t == "..." {
			if err := yaml.Unmarshal(block, &fm); err != nil {
				return nil, nil, fmt.Errorf("failed to parse front matter: %w", err)
			}
			if fm == nil {
				fm = map[string]any{}
			}
			return fm, rest, nil
		}
		block = append(block, line...)
		block = append(block, '\n')
	}
	// No closing delimiter: treat the whole file as body.
	return map[string]any{}, content, nil
}

// Title returns the front matter "title", else the first level-1
// heading, else "".
func Title(content []byte) string {
	doc, err := Parse(content)
	if err != nil {
		_, body, _ := cutFrontMatterLoose(content)
		return titleFrom(nil, headings(body))
	}
	return doc.Title
}

// Headings returns the outline of content's body.
func Headings(content []byte) []Heading {
	_, body, _ := cutFrontMatterLoose(content)
	return headings(body)
}

func cutFrontMatterLoose(content []byte) (map[string]any, []byte, error) {
	fm, body, err := ParseFrontMatter(content)
	if err != nil {
		return nil, content, err
	}
	return fm, body, nil
}

func titleFrom(fm map[string]any, hs []Heading) string {
	if v, ok := fm["title"]; ok && v != nil {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	for _, h := range hs {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

func headings(body []byte) []Heading {
	root := parser.Parser().Parse(text.NewReader(body))
	var out []Heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		out = append(out, Heading{Level: h.Level, Text: strings.TrimSpace(nodeText(h, body))})
		return ast.WalkSkipChildren, nil
	})
	return out
}

func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		default:
			b.WriteString(nodeText(c, source))
		}
	}
	return b.String()
}

func cutLine(b []byte) (line, rest []byte, ok bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return bytes.TrimSuffix(b[:i], []byte("\r")), b[i+1:], true
	}
	return b, nil, true
}
