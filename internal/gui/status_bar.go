package gui

import (
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// StatusLevel selects the icon shown next to the status message.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusSuccess
	StatusWarning
	StatusError
	StatusProgress
)

// StatusBar shows the last status message with an icon for its level,
// or a spinner while an operation runs. Setters may be called from any
// goroutine.
type StatusBar struct {
	widget.BaseWidget

	mu      sync.RWMutex
	level   StatusLevel
	message string

	icon    *widget.Icon
	label   *widget.Label
	spinner *widget.Activity
}

// NewStatusBar creates a status bar showing "Ready".
func NewStatusBar() *StatusBar {
	sb := &StatusBar{level: StatusInfo, message: "Ready"}
	sb.label = widget.NewLabel(sb.message)
	sb.label.TextStyle = fyne.TextStyle{Italic: true}
	sb.label.Truncation = fyne.TextTruncateEllipsis
	sb.icon = widget.NewIcon(theme.InfoIcon())
	sb.spinner = widget.NewActivity()
	sb.spinner.Hide()
	sb.ExtendBaseWidget(sb)
	return sb
}

// SetStatus updates the message and level.
func (sb *StatusBar) SetStatus(message string, level StatusLevel) {
	sb.mu.Lock()
	sb.level = level
	sb.message = message
	sb.mu.Unlock()

	fyne.Do(func() {
		sb.label.SetText(message)
		if level == StatusProgress {
			sb.icon.Hide()
			sb.spinner.Show()
			sb.spinner.Start()
			return
		}
		sb.spinner.Stop()
		sb.spinner.Hide()
		sb.icon.SetResource(iconFor(level))
		sb.icon.Show()
	})
}

// SetControllerStatus shows a controller status line. Idle messages are
// classified by wording: "... failed" lines are errors, completions
// ("Loaded", "Saved", "Deleted", ...) are successes.
func (sb *StatusBar) SetControllerStatus(message string, busy bool) {
	sb.SetStatus(message, levelFor(message, busy))
}

func (sb *StatusBar) SetInfo(message string)     { sb.SetStatus(message, StatusInfo) }
func (sb *StatusBar) SetSuccess(message string)  { sb.SetStatus(message, StatusSuccess) }
func (sb *StatusBar) SetWarning(message string)  { sb.SetStatus(message, StatusWarning) }
func (sb *StatusBar) SetError(message string)    { sb.SetStatus(message, StatusError) }
func (sb *StatusBar) SetProgress(message string) { sb.SetStatus(message, StatusProgress) }

// Message returns the current status message.
func (sb *StatusBar) Message() string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.message
}

// Level returns the current status level.
func (sb *StatusBar) Level() StatusLevel {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.level
}

// CreateRenderer implements fyne.Widget
func (sb *StatusBar) CreateRenderer() fyne.WidgetRenderer {
	content := container.NewBorder(nil, nil, container.NewStack(sb.icon, sb.spinner), nil, sb.label)
	return widget.NewSimpleRenderer(content)
}

func iconFor(level StatusLevel) fyne.Resource {
	switch level {
	case StatusSuccess:
		return theme.ConfirmIcon()
	case StatusWarning:
		return theme.WarningIcon()
	case StatusError:
		return theme.ErrorIcon()
	default:
		return theme.InfoIcon()
	}
}

var successPrefixes = []string{"Loaded", "Successfully", "Downloaded", "Viewing", "Changes saved", "Deleted", "Renamed", "Created"}

func levelFor(message string, busy bool) StatusLevel {
	if busy {
		return StatusProgress
	}
	lower := strings.ToLower(message)
	if strings.Contains(lower, "failed") {
		return StatusError
	}
	if strings.Contains(lower, "cancelled") || strings.HasPrefix(message, "File exists") {
		return StatusWarning
	}
	for _, p := range successPrefixes {
		if strings.HasPrefix(message, p) {
			return StatusSuccess
		}
	}
	return StatusInfo
}
