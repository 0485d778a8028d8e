// Package cloud holds helpers that sit between the application and a
// storage.Backend.
//
// timing.go: per-call timing instrumentation for diagnostics.
//
// Enable timing output by setting MDXMANAGER_TIMING=1.
// Output format: [TIMING] phase_name: duration (optional_details)
//
// Example output:
//
//	[TIMING] supabase:mdx-files list: 412ms (38 objects)
//	[TIMING] supabase:mdx-files download posts/a.md: 95ms (total 4.1 KB at 43.2 KB/s)
package cloud

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/constants"
)

// TimingEnabled returns true if MDXMANAGER_TIMING=1 is set.
func TimingEnabled() bool {
	return os.Getenv(constants.TimingEnvVar) == "1"
}

// TimingLog writes a timing message to w if timing is enabled.
// If w is nil, os.Stderr is used.
func TimingLog(w io.Writer, format string, args ...interface{}) {
	if !TimingEnabled() {
		return
	}
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "[TIMING] %s\n", fmt.Sprintf(format, args...))
}

// Timer tracks elapsed time for a named phase.
// Stop is idempotent; only the first call logs.
type Timer struct {
	name    string
	start   time.Time
	w       io.Writer
	stopped int32 // atomic flag
}

// StartTimer creates a new timer. The timer uses os.Stderr if w is nil.
func StartTimer(w io.Writer, name string) *Timer {
	if w == nil {
		w = os.Stderr
	}
	return &Timer{name: name, start: time.Now(), w: w}
}

// Stop logs the elapsed time and returns the duration.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if atomic.CompareAndSwapInt32(&t.stopped, 0, 1) && TimingEnabled() {
		fmt.Fprintf(t.w, "[TIMING] %s: %v\n", t.name, elapsed.Round(time.Millisecond))
	}
	return elapsed
}

// Elapsed returns the current elapsed time without stopping the timer.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// StopWithThroughput logs elapsed time with throughput information.
func (t *Timer) StopWithThroughput(bytes int64) time.Duration {
	elapsed := time.Since(t.start)
	if atomic.CompareAndSwapInt32(&t.stopped, 0, 1) && TimingEnabled() {
		bytesPerSec := 0.0
		if elapsed > 0 {
			bytesPerSec = float64(bytes) / elapsed.Seconds()
		}
		fmt.Fprintf(t.w, "[TIMING] %s: %v (total %s at %s)\n",
			t.name, elapsed.Round(time.Millisecond), FormatBytes(bytes), FormatSpeed(bytesPerSec))
	}
	return elapsed
}

// StopWithMessage logs a custom message with the elapsed time.
func (t *Timer) StopWithMessage(format string, args ...interface{}) time.Duration {
	elapsed := time.Since(t.start)
	if atomic.CompareAndSwapInt32(&t.stopped, 0, 1) && TimingEnabled() {
		fmt.Fprintf(t.w, "[TIMING] %s: %v (%s)\n", t.name, elapsed.Round(time.Millisecond), fmt.Sprintf(format, args...))
	}
	return elapsed
}

// TimedBackend wraps a storage.Backend and times every call.
type TimedBackend struct {
	storage.Backend
	w io.Writer
}

// Timed wraps b when timing is enabled and returns b unchanged otherwise.
func Timed(b storage.Backend, w io.Writer) storage.Backend {
	if !TimingEnabled() {
		return b
	}
	return &TimedBackend{Backend: b, w: w}
}

func (t *TimedBackend) timer(op, key string) *Timer {
	name := t.Backend.Name() + " " + op
	if key != "" {
		name += " " + key
	}
	return StartTimer(t.w, name)
}

// List implements storage.Backend.
func (t *TimedBackend) List(ctx context.Context) ([]storage.Object, error) {
	timer := t.timer("list", "")
	objs, err := t.Backend.List(ctx)
	timer.StopWithMessage("%d objects, err=%v", len(objs), err)
	return objs, err
}

// Upload implements storage.Backend.
func (t *TimedBackend) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	timer := t.timer("upload", key)
	err := t.Backend.Upload(ctx, key, data, contentType)
	timer.StopWithThroughput(int64(len(data)))
	return err
}

// Update implements storage.Backend.
func (t *TimedBackend) Update(ctx context.Context, key string, data []byte, contentType string) error {
	timer := t.timer("update", key)
	err := t.Backend.Update(ctx, key, data, contentType)
	timer.StopWithThroughput(int64(len(data)))
	return err
}

// Download implements storage.Backend.
func (t *TimedBackend) Download(ctx context.Context, key string) ([]byte, error) {
	timer := t.timer("download", key)
	data, err := t.Backend.Download(ctx, key)
	timer.StopWithThroughput(int64(len(data)))
	return data, err
}

// Remove implements storage.Backend.
func (t *TimedBackend) Remove(ctx context.Context, keys []string) error {
	timer := t.timer("remove", "")
	err := t.Backend.Remove(ctx, keys)
	timer.StopWithMessage("%d keys", len(keys))
	return err
}

// Ping forwards to the wrapped backend when it implements storage.Pinger.
func (t *TimedBackend) Ping(ctx context.Context) error {
	p, ok := t.Backend.(storage.Pinger)
	if !ok {
		return nil
	}
	timer := t.timer("ping", "")
	defer timer.Stop()
	return p.Ping(ctx)
}

// Unwrap returns the wrapped backend.
func (t *TimedBackend) Unwrap() storage.Backend {
	return t.Backend
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed returns a human-readable speed in bytes/second.
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec < 1024 {
		return fmt.Sprintf("%.1f B/s", bytesPerSec)
	}
	if bytesPerSec < 1024*1024 {
		return fmt.Sprintf("%.1f KB/s", bytesPerSec/1024)
	}
	return fmt.Sprintf("%.1f MB/s", bytesPerSec/(1024*1024))
}

// Compile-time interface verification
var (
	_ storage.Backend = (*TimedBackend)(nil)
	_ storage.Pinger  = (*TimedBackend)(nil)
)
