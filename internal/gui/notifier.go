package gui

import (
	"errors"

	"fyne.io/fyne/v2/dialog"

	"github.com/blogdesk/mdxmanager/internal/app"
)

// The UI is the controller's notifier. Calls arrive on the fyne main
// thread, so widgets are updated directly.

func (ui *UI) Status(msg string, busy bool) {
	ui.logger.Debug().Bool("busy", busy).Msg(msg)
}

func (ui *UI) Info(title, msg string) {
	ui.statusBar.SetSuccess(msg)
	dialog.ShowInformation(title, msg, ui.window)
}

func (ui *UI) Error(title, msg string) {
	ui.statusBar.SetError(msg)
	dialog.ShowError(errors.New(msg), ui.window)
}

func (ui *UI) Confirm(title, msg string, fn func(ok bool)) {
	dialog.ShowConfirm(title, msg, fn, ui.window)
}

func (ui *UI) TreeChanged() {
	ui.syncTree()
}

func (ui *UI) DocumentChanged() {
	ui.editor.show(ui.documentView())
}

var _ app.Notifier = (*UI)(nil)
