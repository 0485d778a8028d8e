package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// BatchUI shows one bar per file of a multi-file upload or download.
type BatchUI struct {
	progress   *mpb.Progress
	out        io.Writer
	verb       string
	isTerminal bool
	total      int
	started    int32
	completed  int32
	failed     int32

	mu   sync.Mutex
	bars map[string]*FileBar
}

// FileBar is the bar of one file.
type FileBar struct {
	bar       *mpb.Bar
	ui        *BatchUI
	index     int
	name      string
	dest      string
	size      int64
	startTime time.Time
	done      int32
}

// NewBatchUI creates a batch display for total files. verb labels each
// line ("Uploading", "Downloading"). out defaults to os.Stderr.
func NewBatchUI(verb string, total int, out io.Writer) *BatchUI {
	if out == nil {
		out = os.Stderr
	}
	isTerminal := IsTerminal(out)

	var p *mpb.Progress
	if isTerminal {
		if f, ok := out.(*os.File); ok {
			enableANSI(f)
		}
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(150*time.Millisecond),
			mpb.WithWidth(60),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &BatchUI{
		progress:   p,
		out:        out,
		verb:       verb,
		isTerminal: isTerminal,
		total:      total,
		bars:       make(map[string]*FileBar),
	}
}

// AddFileBar registers a file under id (usually its storage key).
func (u *BatchUI) AddFileBar(id, name, dest string, size int64) *FileBar {
	index := int(atomic.AddInt32(&u.started, 1))
	fb := &FileBar{
		ui:        u,
		index:     index,
		name:      truncatePath(name, 2),
		dest:      dest,
		size:      size,
		startTime: time.Now(),
	}

	if u.isTerminal {
		total := size
		if total <= 0 {
			total = 1
		}
		fb.bar = u.progress.New(total,
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("[%d/%d] %s → %s", fb.index, u.total, fb.name, dest), decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(u.out, "%s [%d/%d]: %s → %s\n", u.verb, fb.index, u.total, fb.name, dest)
	}

	u.mu.Lock()
	u.bars[id] = fb
	u.mu.Unlock()
	return fb
}

// Bar returns the bar registered under id.
func (u *BatchUI) Bar(id string) (*FileBar, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fb, ok := u.bars[id]
	return fb, ok
}

// Complete marks the file finished and prints a one-line summary.
// Only the first call has an effect.
func (f *FileBar) Complete(err error) {
	if !atomic.CompareAndSwapInt32(&f.done, 0, 1) {
		return
	}
	elapsed := time.Since(f.startTime)

	var msg string
	if err == nil {
		if f.bar != nil {
			f.bar.SetTotal(-1, true)
		}
		msg = fmt.Sprintf("✓ %s → %s (%s, %s)\n", f.name, f.dest, formatMiB(f.size), elapsed.Round(time.Millisecond))
	} else {
		if f.bar != nil {
			f.bar.Abort(false)
		}
		atomic.AddInt32(&f.ui.failed, 1)
		msg = fmt.Sprintf("✗ %s → %s: %v\n", f.name, f.dest, err)
	}
	_, _ = f.ui.Writer().Write([]byte(msg))
	atomic.AddInt32(&f.ui.completed, 1)
}

// Wait blocks until all bars complete.
func (u *BatchUI) Wait() {
	u.progress.Wait()
}

// Writer returns a writer that prints above the bars on a terminal.
func (u *BatchUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return u.out
}

// IsTerminal reports whether bars are drawn.
func (u *BatchUI) IsTerminal() bool {
	return u.isTerminal
}

// Counts returns how many files completed and how many of them failed.
func (u *BatchUI) Counts() (completed, failed int) {
	return int(atomic.LoadInt32(&u.completed)), int(atomic.LoadInt32(&u.failed))
}

func formatMiB(n int64) string {
	if n < 1024*1024 {
		return fmt.Sprintf("%.1f KiB", float64(n)/1024)
	}
	return fmt.Sprintf("%.1f MiB", float64(n)/(1024*1024))
}

// truncatePath keeps the last maxComponents components of path.
// Example: truncatePath("/a/b/c/d/file.md", 2) → "…/d/file.md"
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return strings.Join(parts, "/")
	}
	return "…/" + strings.Join(parts[len(parts)-maxComponents:], "/")
}
