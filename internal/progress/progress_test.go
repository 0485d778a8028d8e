package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path string
		max  int
		want string
	}{
		{"file.md", 2, "file.md"},
		{"posts/file.md", 2, "posts/file.md"},
		{"a/b/c/d/file.md", 2, "…/d/file.md"},
		{"/a/b/file.md", 1, "…/file.md"},
	}
	for _, tt := range tests {
		if got := truncatePath(tt.path, tt.max); got != tt.want {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.max, got, tt.want)
		}
	}
}

func TestIsTerminalBuffer(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}

func TestBatchUIPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	ui := NewBatchUI("Uploading", 2, &buf)
	if ui.IsTerminal() {
		t.Fatal("expected plain mode for a buffer")
	}

	a := ui.AddFileBar("posts/a.md", "notes/a.md", "posts/a.md", 2048)
	b := ui.AddFileBar("posts/b.md", "notes/b.md", "posts/b.md", 10)

	a.Complete(nil)
	b.Complete(errors.New("boom"))
	b.Complete(nil)
	ui.Wait()

	out := buf.String()
	for _, want := range []string{
		"Uploading [1/2]: notes/a.md → posts/a.md",
		"Uploading [2/2]: notes/b.md → posts/b.md",
		"✓ notes/a.md → posts/a.md (2.0 KiB",
		"✗ notes/b.md → posts/b.md: boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	completed, failed := ui.Counts()
	if completed != 2 || failed != 1 {
		t.Errorf("Counts() = %d, %d; want 2, 1", completed, failed)
	}

	if fb, ok := ui.Bar("posts/a.md"); !ok || fb != a {
		t.Error("Bar lookup failed")
	}
	if _, ok := ui.Bar("missing"); ok {
		t.Error("Bar(missing) should not be found")
	}
}

func TestCLIProgressError(t *testing.T) {
	var buf bytes.Buffer
	p := NewCLIProgress(&buf)
	p.Start(100, "Downloading")
	p.Update(50)
	p.SetDescription("still downloading")
	p.Error(errors.New("connection reset"))
	if !strings.Contains(buf.String(), "Error: connection reset") {
		t.Errorf("got %q", buf.String())
	}
}

func TestNoOpProgress(t *testing.T) {
	var r Reporter = NoOpProgress{}
	r.Start(10, "x")
	r.Update(5)
	r.SetDescription("y")
	r.Error(errors.New("ignored"))
	r.Finish()
}

func TestFormatMiB(t *testing.T) {
	if got := formatMiB(512); got != "0.5 KiB" {
		t.Errorf("formatMiB(512) = %q", got)
	}
	if got := formatMiB(3 * 1024 * 1024); got != "3.0 MiB" {
		t.Errorf("formatMiB(3MiB) = %q", got)
	}
}
