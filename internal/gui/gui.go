// Package gui is the desktop frontend: a folder tree of the bucket next to
// a Markdown editor, with a toolbar for uploads and folder management.
package gui

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/blogdesk/mdxmanager/internal/app"
	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/events"
	"github.com/blogdesk/mdxmanager/internal/logging"
	"github.com/blogdesk/mdxmanager/internal/tree"
)

// Options configures the GUI.
type Options struct {
	Backend storage.Backend
	Bus     *events.EventBus
	Logger  *logging.Logger
	Bucket  string
}

// Run opens the main window and blocks until it is closed.
func Run(opts Options) error {
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("GUI mode requires a display. No display detected.\n" +
				"DISPLAY and WAYLAND_DISPLAY are not set.\n" +
				"Use '" + constants.AppName + " --cli' for CLI mode")
		}
	}

	a := fyneapp.NewWithID("io.blogdesk.mdxmanager")
	a.Settings().SetTheme(&mdxTheme{})

	window := a.NewWindow(constants.AppDisplayName)
	window.SetMaster()

	ui, err := NewUI(opts, window, fyne.DoAndWait)
	if err != nil {
		return err
	}

	window.SetContent(ui.Build())
	window.Resize(fyne.NewSize(1200, 750))
	window.CenterOnScreen()
	window.SetOnClosed(ui.Stop)

	ui.Start()
	window.ShowAndRun()
	return nil
}

// UI is the main window. Every field is touched on the fyne main thread
// only: user callbacks run there, and controller results are applied
// there through the exec hook.
type UI struct {
	ctrl   *app.Controller
	bus    *events.EventBus
	logger *logging.Logger
	window fyne.Window
	bucket string

	ctx    context.Context
	cancel context.CancelFunc

	// view is the forest the tree widget currently shows.
	view     *tree.Forest
	selected string
	syncing  bool

	tree       *widget.Tree
	search     *widget.Entry
	statusBar  *StatusBar
	countLabel *widget.Label
	editor     *editorPane
}

// NewUI creates the window contents. exec runs controller result
// applications; fyne.DoAndWait in production, nil (direct call) in tests.
func NewUI(opts Options, window fyne.Window, exec func(func())) (*UI, error) {
	ctx, cancel := context.WithCancel(context.Background())
	ui := &UI{
		bus:    opts.Bus,
		logger: logging.OrNop(opts.Logger),
		window: window,
		bucket: opts.Bucket,
		ctx:    ctx,
		cancel: cancel,
	}

	ctrl, err := app.New(app.Options{
		Backend:  opts.Backend,
		Notifier: ui,
		Bus:      opts.Bus,
		Logger:   opts.Logger,
		Context:  ctx,
		Exec:     exec,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	ui.ctrl = ctrl
	ui.view = ctrl.View()

	ui.statusBar = NewStatusBar()
	ui.countLabel = widget.NewLabel("")
	ui.tree = ui.newTree()
	ui.search = widget.NewEntry()
	ui.search.SetPlaceHolder("Search files...")
	ui.search.OnChanged = func(q string) { ui.ctrl.SetFilter(q) }
	ui.editor = newEditorPane(ui)
	return ui, nil
}

// Build creates the UI layout.
func (ui *UI) Build() fyne.CanvasObject {
	left := container.NewBorder(
		ui.search,
		ui.buildFileActions(),
		nil, nil,
		ui.tree,
	)

	split := container.NewHSplit(left, ui.editor.Build())
	split.Offset = 0.35

	status := container.NewBorder(nil, nil, nil, ui.countLabel, ui.statusBar)
	return container.NewBorder(ui.buildToolbar(), status, nil, nil, split)
}

// Start runs the controller loop and the event monitors, then loads the
// bucket.
func (ui *UI) Start() {
	go func() {
		if err := ui.ctrl.Run(ui.ctx); err != nil && err != context.Canceled {
			ui.logger.Error().Err(err).Msg("controller loop stopped")
		}
	}()
	if ui.bus != nil {
		go ui.monitorStatus()
		go ui.monitorLogs()
		go ui.monitorTree()
	}
	ui.ctrl.Refresh()
}

// Stop cancels pending work and closes the event bus.
func (ui *UI) Stop() {
	ui.cancel()
	if ui.bus != nil {
		if n := ui.bus.GetDroppedEventCount(); n > 0 {
			ui.logger.Warn().Int64("dropped", n).Msg("status updates were dropped while the UI was busy")
		}
		ui.bus.Close()
	}
}

func (ui *UI) monitorStatus() {
	ch := ui.bus.Subscribe(events.EventStatus)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			status := event.(*events.StatusEvent)
			ui.statusBar.SetControllerStatus(status.Message, status.Busy)
		case <-ui.ctx.Done():
			ui.bus.Unsubscribe(events.EventStatus, ch)
			return
		}
	}
}

func (ui *UI) monitorLogs() {
	ch := ui.bus.Subscribe(events.EventLog)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			logEvent := event.(*events.LogEvent)
			switch logEvent.Level {
			case events.WarnLevel:
				ui.statusBar.SetWarning(logEvent.Message)
			case events.ErrorLevel:
				ui.statusBar.SetError(logEvent.Message)
			}
		case <-ui.ctx.Done():
			ui.bus.Unsubscribe(events.EventLog, ch)
			return
		}
	}
}

func (ui *UI) monitorTree() {
	ch := ui.bus.Subscribe(events.EventTreeRebuilt)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			rebuilt := event.(*events.TreeRebuiltEvent)
			text := fmt.Sprintf("%s: %d folders, %d files", ui.bucket, rebuilt.Folders, rebuilt.Files)
			if rebuilt.Skipped > 0 {
				text += fmt.Sprintf(" (%d skipped)", rebuilt.Skipped)
			}
			fyne.Do(func() {
				ui.countLabel.SetText(text)
			})
		case <-ui.ctx.Done():
			ui.bus.Unsubscribe(events.EventTreeRebuilt, ch)
			return
		}
	}
}
