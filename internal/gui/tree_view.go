package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/blogdesk/mdxmanager/internal/tree"
)

// newTree creates the tree widget. Node IDs are full paths; the root ID
// is the empty string.
func (ui *UI) newTree() *widget.Tree {
	t := widget.NewTree(
		ui.childUIDs,
		ui.isBranch,
		func(branch bool) fyne.CanvasObject {
			return container.NewHBox(widget.NewIcon(theme.FileTextIcon()), widget.NewLabel("template"))
		},
		ui.updateNode,
	)
	t.OnSelected = ui.onSelected
	t.OnUnselected = func(uid widget.TreeNodeID) {
		if ui.selected == uid {
			ui.selected = ""
		}
	}
	t.OnBranchOpened = func(uid widget.TreeNodeID) {
		if !ui.syncing && ui.ctrl.Filter() == "" {
			ui.ctrl.Expand(uid)
		}
	}
	t.OnBranchClosed = func(uid widget.TreeNodeID) {
		if !ui.syncing && ui.ctrl.Filter() == "" {
			ui.ctrl.Collapse(uid)
		}
	}
	return t
}

func (ui *UI) childUIDs(uid widget.TreeNodeID) []widget.TreeNodeID {
	children := ui.view.Children(uid)
	ids := make([]widget.TreeNodeID, len(children))
	for i, n := range children {
		ids[i] = n.NodePath()
	}
	return ids
}

func (ui *UI) isBranch(uid widget.TreeNodeID) bool {
	if uid == "" {
		return true
	}
	_, ok := ui.view.Folder(uid)
	return ok
}

func (ui *UI) updateNode(uid widget.TreeNodeID, branch bool, obj fyne.CanvasObject) {
	box := obj.(*fyne.Container)
	icon := box.Objects[0].(*widget.Icon)
	label := box.Objects[1].(*widget.Label)

	n, ok := ui.view.Lookup(uid)
	if !ok {
		label.SetText("")
		return
	}
	switch v := n.(type) {
	case *tree.Folder:
		if ui.tree != nil && ui.tree.IsBranchOpen(uid) {
			icon.SetResource(theme.FolderOpenIcon())
		} else {
			icon.SetResource(theme.FolderIcon())
		}
		label.SetText(v.Name)
	case *tree.File:
		icon.SetResource(theme.FileTextIcon())
		label.SetText(v.Name)
	}
}

func (ui *UI) onSelected(uid widget.TreeNodeID) {
	ui.selected = uid
	if f, ok := ui.view.File(uid); ok {
		ui.ctrl.Open(f.Key)
	}
}

// selectedFile returns the selected file, if a file is selected.
func (ui *UI) selectedFile() (*tree.File, bool) {
	if ui.selected == "" {
		return nil, false
	}
	return ui.view.File(ui.selected)
}

// selectedFolder returns the selected folder path, if a folder is selected.
func (ui *UI) selectedFolder() (string, bool) {
	if ui.selected == "" {
		return "", false
	}
	_, ok := ui.view.Folder(ui.selected)
	return ui.selected, ok
}

// syncTree swaps in the controller's current view and mirrors its
// expansion onto the widget. While a filter is active every branch is
// open without touching the saved expansion.
func (ui *UI) syncTree() {
	ui.view = ui.ctrl.View()
	ui.syncing = true
	defer func() { ui.syncing = false }()

	filtering := ui.ctrl.Filter() != ""
	for _, f := range ui.view.Folders() {
		if filtering || f.Expanded {
			ui.tree.OpenBranch(f.FullPath)
		} else {
			ui.tree.CloseBranch(f.FullPath)
		}
	}
	if ui.selected != "" {
		if _, ok := ui.view.Lookup(ui.selected); !ok {
			ui.tree.UnselectAll()
			ui.selected = ""
		}
	}
	ui.tree.Refresh()
}
