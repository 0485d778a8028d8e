package gui

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/blogdesk/mdxmanager/internal/tree"
)

// editorPane shows the open document: title, metadata, outline and a
// multi-line editor with Save and Reload.
type editorPane struct {
	ui *UI

	title   *widget.Label
	meta    *widget.Label
	outline *widget.Label
	text    *widget.Entry
	save    *widget.Button
	reload  *widget.Button
}

func newEditorPane(ui *UI) *editorPane {
	e := &editorPane{ui: ui}
	e.title = widget.NewLabelWithStyle("No file selected", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	e.meta = widget.NewLabel("")
	e.outline = widget.NewLabel("")
	e.outline.Wrapping = fyne.TextWrapWord
	e.text = widget.NewMultiLineEntry()
	e.text.Wrapping = fyne.TextWrapWord
	e.text.TextStyle = fyne.TextStyle{Monospace: true}
	e.save = NewPrimaryButtonWithIcon("Save", theme.DocumentSaveIcon(), func() {
		ui.ctrl.Save(e.text.Text)
	})
	e.reload = widget.NewButtonWithIcon("Reload", theme.ViewRefreshIcon(), func() {
		ui.ctrl.Reload()
	})
	e.show(nil)
	return e
}

// Build creates the pane layout.
func (e *editorPane) Build() fyne.CanvasObject {
	header := container.NewVBox(e.title, e.meta)
	buttons := container.NewHBox(e.save, e.reload, layout.NewSpacer())
	side := container.NewVScroll(e.outline)
	side.SetMinSize(fyne.NewSize(180, 0))
	body := container.NewBorder(nil, nil, nil, side, e.text)
	return container.NewBorder(header, buttons, nil, nil, body)
}

// show fills the pane from the controller's document; nil clears it.
func (e *editorPane) show(doc *docView) {
	if doc == nil {
		e.title.SetText("No file selected")
		e.meta.SetText("")
		e.outline.SetText("")
		e.text.SetText("")
		e.text.Disable()
		e.save.Disable()
		e.reload.Disable()
		return
	}
	e.title.SetText(doc.title)
	e.meta.SetText(doc.meta)
	e.outline.SetText(doc.outline)
	e.text.SetText(doc.content)
	e.text.Enable()
	e.save.Enable()
	e.reload.Enable()
}

// docView is the display form of an app.Document.
type docView struct {
	title   string
	meta    string
	outline string
	content string
}

func (ui *UI) documentView() *docView {
	doc := ui.ctrl.Document()
	if doc == nil {
		return nil
	}
	v := &docView{
		title:   doc.DisplayName(),
		content: doc.Content,
	}
	meta := []string{doc.Key, tree.FormatFileSize(doc.Size)}
	if doc.UpdatedAt != "" {
		meta = append(meta, "modified "+tree.FormatDate(doc.UpdatedAt))
	}
	v.meta = strings.Join(meta, "  ·  ")
	if doc.ParseError != nil {
		v.meta += fmt.Sprintf("\nFront matter could not be parsed: %v", doc.ParseError)
	}

	var b strings.Builder
	for _, h := range doc.Headings {
		b.WriteString(strings.Repeat("  ", h.Level-1))
		b.WriteString(h.Text)
		b.WriteString("\n")
	}
	v.outline = b.String()
	return v
}
