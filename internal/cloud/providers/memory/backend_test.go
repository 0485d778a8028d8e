package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
)

func TestUploadThenConflict(t *testing.T) {
	ctx := context.Background()
	b := New("mdx-files")

	if err := b.Upload(ctx, "posts/a.md", []byte("one"), ""); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	err := b.Upload(ctx, "posts/a.md", []byte("two"), "")
	if !storage.IsAlreadyExists(err) {
		t.Fatalf("second Upload = %v, want already exists", err)
	}
	if err := b.Update(ctx, "posts/a.md", []byte("two"), ""); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, _ := b.Content("posts/a.md"); got != "two" {
		t.Errorf("content = %q", got)
	}
	if b.Calls(OpUpload) != 2 || b.Calls(OpUpdate) != 1 {
		t.Errorf("calls upload=%d update=%d", b.Calls(OpUpload), b.Calls(OpUpdate))
	}
}

func TestListAndDownload(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 6, 18, 12, 0, 0, 0, time.UTC)
	b := New("mdx-files")
	b.SetClock(func() time.Time { return fixed })
	b.Seed(map[string]string{"b.md": "bb", "a/x.mdx": "x"})

	objs, err := b.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 || objs[0].Key != "a/x.mdx" || objs[1].Key != "b.md" {
		t.Fatalf("List = %+v", objs)
	}
	if objs[1].Size != 2 || objs[1].UpdatedAt != "2024-06-18T12:00:00Z" || objs[1].IsPlaceholder() {
		t.Errorf("object = %+v", objs[1])
	}

	data, err := b.Download(ctx, "b.md")
	if err != nil || string(data) != "bb" {
		t.Errorf("Download = %q, %v", data, err)
	}
	data[0] = 'z'
	if got, _ := b.Content("b.md"); got != "bb" {
		t.Error("Download must return a copy")
	}
	if _, err := b.Download(ctx, "missing.md"); !storage.IsNotFound(err) {
		t.Errorf("Download missing = %v", err)
	}
}

func TestRemoveIgnoresMissing(t *testing.T) {
	b := New("mdx-files").Seed(map[string]string{"a.md": "", "b.md": ""})
	if err := b.Remove(context.Background(), []string{"a.md", "nope.md"}); err != nil {
		t.Fatal(err)
	}
	if keys := b.Keys(); len(keys) != 1 || keys[0] != "b.md" {
		t.Errorf("Keys = %v", keys)
	}
}

func TestFailInjection(t *testing.T) {
	ctx := context.Background()
	b := New("mdx-files")
	boom := errors.New("boom")

	b.Fail(OpList, boom)
	if _, err := b.List(ctx); !errors.Is(err, boom) {
		t.Fatalf("List = %v", err)
	}
	b.Fail(OpList, nil)
	if _, err := b.List(ctx); err != nil {
		t.Fatalf("List after clear = %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := New("mdx-files")
	if err := b.Upload(ctx, "a.md", nil, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Upload = %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	b := New("mdx-files")
	got, err := b.PublicURL("posts/hello world.md")
	if err != nil || got != "memory://mdx-files/posts/hello%20world.md" {
		t.Errorf("PublicURL = %q, %v", got, err)
	}
	if _, err := b.PublicURL(""); err == nil {
		t.Error("empty key should be rejected")
	}
}
