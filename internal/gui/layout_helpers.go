package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// NewPrimaryButtonWithIcon creates a high-importance button. Fyne only
// uses ColorNameForegroundOnPrimary for HighImportance buttons, so this is
// what gives the accent background with readable text.
func NewPrimaryButtonWithIcon(label string, icon fyne.Resource, tapped func()) *widget.Button {
	btn := widget.NewButtonWithIcon(label, icon, tapped)
	btn.Importance = widget.HighImportance
	return btn
}
