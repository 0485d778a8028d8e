package gui

import (
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/blogdesk/mdxmanager/internal/app"
	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/tree"
)

func (ui *UI) buildToolbar() fyne.CanvasObject {
	return widget.NewToolbar(
		widget.NewToolbarAction(theme.UploadIcon(), ui.uploadFile),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), ui.ctrl.Refresh),
		widget.NewToolbarAction(theme.FolderNewIcon(), ui.newFolder),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.MenuExpandIcon(), ui.ctrl.ExpandAll),
		widget.NewToolbarAction(theme.MenuDropUpIcon(), ui.ctrl.CollapseAll),
	)
}

func (ui *UI) buildFileActions() fyne.CanvasObject {
	return container.NewGridWithColumns(3,
		widget.NewButtonWithIcon("View", theme.VisibilityIcon(), ui.viewSelected),
		widget.NewButtonWithIcon("Download", theme.DownloadIcon(), ui.downloadSelected),
		widget.NewButtonWithIcon("Rename", theme.DocumentCreateIcon(), ui.renameSelected),
		widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), ui.deleteSelected),
		widget.NewButtonWithIcon("Public URL", theme.MailForwardIcon(), ui.showPublicURL),
		widget.NewButtonWithIcon("New Subfolder", theme.FolderNewIcon(), ui.newFolder),
	)
}

// uploadFile picks a local file and asks for its key. The default key is
// inside the selected folder, or posts/<name> without a selection.
func (ui *UI) uploadFile() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		if reader == nil {
			return
		}
		local := reader.URI().Path()
		reader.Close()

		key := app.DefaultRemotePath(local)
		if folder, ok := ui.selectedFolder(); ok {
			key = storage.Join(folder, filepath.Base(local))
		}
		ui.askString("Upload File", "Remote path", key, func(key string) {
			ui.ctrl.Upload(local, key)
		})
	}, ui.window)
}

// newFolder creates a folder at the root, or inside the selected folder.
func (ui *UI) newFolder() {
	if parent, ok := ui.selectedFolder(); ok {
		ui.askString("New Subfolder", "Subfolder name (in "+parent+")", "", func(name string) {
			ui.ctrl.CreateSubfolder(parent, name)
		})
		return
	}
	ui.askString("New Folder", "Folder path", "", func(path string) {
		ui.ctrl.CreateFolder(path)
	})
}

func (ui *UI) viewSelected() {
	f, ok := ui.requireFile("view")
	if !ok {
		return
	}
	ui.ctrl.Open(f.Key)
}

func (ui *UI) downloadSelected() {
	f, ok := ui.requireFile("download")
	if !ok {
		return
	}
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()
		ui.ctrl.Download(f.Key, path)
	}, ui.window)
	save.SetFileName(f.Name)
	save.Show()
}

func (ui *UI) renameSelected() {
	if _, ok := ui.selectedFolder(); ok {
		ui.Error("Invalid Selection", storage.ErrFolderRename.Error())
		return
	}
	f, ok := ui.requireFile("rename")
	if !ok {
		return
	}
	ui.askString("Rename File", "New name", f.Name, func(name string) {
		ui.ctrl.Rename(f.Key, name)
	})
}

func (ui *UI) deleteSelected() {
	if folder, ok := ui.selectedFolder(); ok {
		ui.ctrl.DeleteFolder(folder)
		return
	}
	f, ok := ui.requireFile("delete")
	if !ok {
		return
	}
	ui.ctrl.Delete(f.Key)
}

func (ui *UI) showPublicURL() {
	f, ok := ui.requireFile("share")
	if !ok {
		return
	}
	url, err := ui.ctrl.PublicURL(f.Key)
	if err != nil {
		ui.Error("URL Error", fmt.Sprintf("Failed to get public URL: %v", err))
		return
	}
	entry := widget.NewEntry()
	entry.SetText(url)
	copyBtn := widget.NewButtonWithIcon("Copy", theme.ContentCopyIcon(), func() {
		fyne.CurrentApp().Clipboard().SetContent(url)
		ui.statusBar.SetSuccess("Public URL copied to clipboard")
	})
	content := container.NewBorder(nil, nil, nil, copyBtn, entry)
	d := dialog.NewCustom("Public URL", "Close", content, ui.window)
	d.Resize(fyne.NewSize(560, 140))
	d.Show()
}

// requireFile returns the selected file or tells the user to select one.
func (ui *UI) requireFile(verb string) (*tree.File, bool) {
	f, ok := ui.selectedFile()
	if !ok {
		if _, isFolder := ui.selectedFolder(); isFolder && verb == "view" {
			ui.Error("Invalid Selection", "Cannot view a folder")
			return nil, false
		}
		ui.Error("No Selection", fmt.Sprintf("Please select a file to %s", verb))
		return nil, false
	}
	return f, true
}

// askString shows a one-field form and calls fn with non-empty input.
func (ui *UI) askString(title, label, value string, fn func(string)) {
	entry := widget.NewEntry()
	entry.SetText(value)
	items := []*widget.FormItem{widget.NewFormItem(label, entry)}
	d := dialog.NewForm(title, "OK", "Cancel", items, func(ok bool) {
		if ok && entry.Text != "" {
			fn(entry.Text)
		}
	}, ui.window)
	d.Resize(fyne.NewSize(480, 160))
	d.Show()
	ui.window.Canvas().Focus(entry)
}
