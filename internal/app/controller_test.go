package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blogdesk/mdxmanager/internal/cloud/providers/memory"
	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/events"
	"github.com/blogdesk/mdxmanager/internal/tree"
)

// recorder is a Notifier that keeps everything it is told.
type recorder struct {
	answer   bool
	statuses []string
	infos    []string
	errors   []string
	confirms []string
	trees    int
	docs     int
}

func (r *recorder) Status(msg string, busy bool) { r.statuses = append(r.statuses, msg) }
func (r *recorder) Info(title, msg string)       { r.infos = append(r.infos, title+": "+msg) }
func (r *recorder) Error(title, msg string)      { r.errors = append(r.errors, title+": "+msg) }
func (r *recorder) TreeChanged()                 { r.trees++ }
func (r *recorder) DocumentChanged()             { r.docs++ }

func (r *recorder) Confirm(title, msg string, fn func(bool)) {
	r.confirms = append(r.confirms, msg)
	fn(r.answer)
}

func (r *recorder) lastStatus() string {
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func newTestController(t *testing.T, files map[string]string) (*Controller, *memory.Backend, *recorder) {
	t.Helper()
	mem := memory.New(constants.DefaultBucket).Seed(files)
	rec := &recorder{answer: true}
	c, err := New(Options{Backend: mem, Notifier: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, mem, rec
}

func settle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.RunUntilIdle(ctx); err != nil {
		t.Fatalf("RunUntilIdle: %v", err)
	}
	if c.Busy() {
		t.Fatal("controller still busy after all results were applied")
	}
}

func TestNewRequiresBackend(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected an error without backend")
	}
}

func TestRefreshBuildsTree(t *testing.T) {
	c, _, rec := newTestController(t, map[string]string{
		"posts/a.md":                     "# A",
		"posts/2024/b.mdx":               "b",
		"drafts/.emptyFolderPlaceholder": "",
		"readme.md":                      "r",
	})
	c.Refresh()
	settle(t, c)

	f := c.Forest()
	for _, p := range []string{"posts", "posts/2024", "drafts"} {
		if _, ok := f.Folder(p); !ok {
			t.Errorf("missing folder %q", p)
		}
	}
	if n := len(f.Files()); n != 3 {
		t.Errorf("files = %d, want 3", n)
	}
	if rec.lastStatus() != "Loaded 3 files" {
		t.Errorf("status = %q", rec.lastStatus())
	}
	if rec.trees == 0 {
		t.Error("TreeChanged was not called")
	}
	if file, _ := f.File("posts/a.md"); file == nil || file.PublicURL == "" {
		t.Error("files should carry a public URL")
	}
}

func TestRefreshErrorKeepsOldTree(t *testing.T) {
	c, mem, rec := newTestController(t, map[string]string{"a.md": "a"})
	c.Refresh()
	settle(t, c)

	mem.Fail(memory.OpList, errors.New("connection refused"))
	c.Refresh()
	settle(t, c)

	if len(c.Forest().Files()) != 1 {
		t.Error("failed refresh must keep the previous tree")
	}
	if len(rec.errors) != 1 || !strings.HasPrefix(rec.errors[0], "Load Error: Failed to load files: connection refused") {
		t.Errorf("errors = %v", rec.errors)
	}
	if !strings.Contains(rec.errors[0], "network") {
		t.Errorf("expected a network hint, got %q", rec.errors[0])
	}
}

func TestExpansionSurvivesRefresh(t *testing.T) {
	c, mem, _ := newTestController(t, map[string]string{"posts/a.md": "a"})
	c.Refresh()
	settle(t, c)

	if !c.Toggle("posts") {
		t.Fatal("Toggle should open a collapsed folder")
	}
	if f, _ := c.Forest().Folder("posts"); !f.Expanded {
		t.Error("live tree not updated")
	}

	mem.Seed(map[string]string{"posts/b.md": "b"})
	c.Refresh()
	settle(t, c)

	if f, _ := c.Forest().Folder("posts"); !f.Expanded {
		t.Error("expansion lost across refresh")
	}
}

func TestUploadNewFile(t *testing.T) {
	c, mem, rec := newTestController(t, nil)
	local := filepath.Join(t.TempDir(), "hello.mdx")
	if err := os.WriteFile(local, []byte("# Hello"), 0644); err != nil {
		t.Fatal(err)
	}

	c.Upload(local, DefaultRemotePath(local))
	settle(t, c)

	if got, ok := mem.Content("posts/hello.mdx"); !ok || got != "# Hello" {
		t.Fatalf("uploaded content = %q, %v", got, ok)
	}
	if len(rec.infos) != 1 || rec.infos[0] != "Success: File uploaded successfully to posts/hello.mdx" {
		t.Errorf("infos = %v", rec.infos)
	}
	if _, ok := c.Forest().File("posts/hello.mdx"); !ok {
		t.Error("upload should trigger a refresh")
	}
}

func TestUploadExistingConfirmed(t *testing.T) {
	c, mem, rec := newTestController(t, map[string]string{"posts/a.md": "old"})
	c.UploadBytes("posts/a.md", []byte("new"))
	settle(t, c)

	if len(rec.confirms) != 1 || !strings.Contains(rec.confirms[0], "already exists") {
		t.Fatalf("confirms = %v", rec.confirms)
	}
	if got, _ := mem.Content("posts/a.md"); got != "new" {
		t.Errorf("content = %q, want overwritten", got)
	}
	if mem.Calls(memory.OpUpdate) != 1 {
		t.Errorf("update calls = %d", mem.Calls(memory.OpUpdate))
	}
	if len(rec.errors) != 0 {
		t.Errorf("already-exists is not an error: %v", rec.errors)
	}
}

func TestUploadExistingDeclined(t *testing.T) {
	c, mem, rec := newTestController(t, map[string]string{"posts/a.md": "old"})
	rec.answer = false
	c.UploadBytes("posts/a.md", []byte("new"))
	settle(t, c)

	if got, _ := mem.Content("posts/a.md"); got != "old" {
		t.Errorf("content = %q, want untouched", got)
	}
	if mem.Calls(memory.OpUpdate) != 0 {
		t.Error("declined overwrite must not update")
	}
	if rec.lastStatus() != "Upload cancelled" {
		t.Errorf("status = %q", rec.lastStatus())
	}
}

func TestUploadErrors(t *testing.T) {
	c, mem, rec := newTestController(t, nil)
	c.Upload(filepath.Join(t.TempDir(), "missing.md"), "posts/missing.md")
	settle(t, c)
	if len(rec.errors) != 1 || !strings.HasPrefix(rec.errors[0], "Upload Error: Failed to upload file") {
		t.Errorf("errors = %v", rec.errors)
	}

	c.UploadBytes("", []byte("x"))
	if len(rec.errors) != 2 {
		t.Errorf("invalid key should be refused, errors = %v", rec.errors)
	}
	if mem.Calls(memory.OpUpload) != 0 {
		t.Error("no upload should reach the backend")
	}
}

func TestUploadToFolder(t *testing.T) {
	c, mem, _ := newTestController(t, nil)
	local := filepath.Join(t.TempDir(), "x.md")
	os.WriteFile(local, []byte("x"), 0644)

	c.UploadToFolder(local, "drafts/2024")
	settle(t, c)
	if _, ok := mem.Content("drafts/2024/x.md"); !ok {
		t.Errorf("keys = %v", mem.Keys())
	}
}

func TestOpenSaveReload(t *testing.T) {
	c, mem, rec := newTestController(t, map[string]string{
		"posts/a.md": "---\ntitle: Hello\n---\n# Heading\n",
	})
	bus := events.NewEventBus(16)
	c.bus = bus
	loaded := bus.Subscribe(events.EventDocumentLoaded)

	c.Refresh()
	settle(t, c)
	c.Open("posts/a.md")
	settle(t, c)

	doc := c.Document()
	if doc == nil || doc.Title != "Hello" || doc.Key != "posts/a.md" {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.UpdatedAt == "" || doc.PublicURL == "" {
		t.Error("document should carry tree metadata")
	}
	select {
	case ev := <-loaded:
		if ev.(*events.DocumentLoadedEvent).Title != "Hello" {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Error("no document_loaded event")
	}

	c.Save("# Changed\n")
	settle(t, c)
	if got, _ := mem.Content("posts/a.md"); got != "# Changed\n" {
		t.Errorf("saved content = %q", got)
	}
	if c.Document().Title != "Changed" {
		t.Errorf("title after save = %q", c.Document().Title)
	}

	mem.Update(context.Background(), "posts/a.md", []byte("# Remote"), "")
	c.Reload()
	settle(t, c)
	if c.Document().Content != "# Remote" {
		t.Errorf("content after reload = %q", c.Document().Content)
	}
	if rec.docs < 3 {
		t.Errorf("DocumentChanged calls = %d", rec.docs)
	}
}

func TestSaveWithoutDocument(t *testing.T) {
	c, mem, rec := newTestController(t, nil)
	c.Save("x")
	c.Reload()
	if len(rec.errors) != 2 || !strings.Contains(rec.errors[0], "No file is currently loaded") {
		t.Errorf("errors = %v", rec.errors)
	}
	if mem.Calls(memory.OpUpdate) != 0 || c.Pending() != 0 {
		t.Error("nothing should be dispatched")
	}
}

func TestFolderActionsRefused(t *testing.T) {
	c, mem, rec := newTestController(t, map[string]string{"posts/a.md": "a"})
	c.Refresh()
	settle(t, c)

	c.Open("posts")
	c.Download("posts", filepath.Join(t.TempDir(), "x"))
	c.Delete("posts")
	c.Rename("posts", "articles")
	if _, err := c.PublicURL("posts"); err == nil {
		t.Error("PublicURL of a folder should fail")
	}
	if len(rec.errors) != 4 {
		t.Errorf("errors = %v", rec.errors)
	}
	if mem.Calls(memory.OpDownload)+mem.Calls(memory.OpRemove) != 0 {
		t.Error("refused actions must not reach the backend")
	}
}

func TestDownload(t *testing.T) {
	c, _, rec := newTestController(t, map[string]string{"posts/a.md": "body"})
	dest := filepath.Join(t.TempDir(), "out", "a.md")
	c.Download("posts/a.md", dest)
	settle(t, c)

	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "body" {
		t.Fatalf("downloaded = %q, %v", data, err)
	}
	if len(rec.infos) != 1 || !strings.Contains(rec.infos[0], dest) {
		t.Errorf("infos = %v", rec.infos)
	}
}

func TestDeleteClosesOpenDocument(t *testing.T) {
	c, mem, rec := newTestController(t, map[string]string{"posts/a.md": "a", "posts/b.md": "b"})
	c.Refresh()
	settle(t, c)
	c.Open("posts/a.md")
	settle(t, c)

	c.Delete("posts/a.md")
	settle(t, c)

	if _, ok := mem.Content("posts/a.md"); ok {
		t.Error("file not deleted")
	}
	if c.Document() != nil {
		t.Error("deleted document should be closed")
	}
	if len(rec.confirms) != 1 || !strings.Contains(rec.confirms[0], "'a.md'") {
		t.Errorf("confirms = %v", rec.confirms)
	}
	if _, ok := c.Forest().File("posts/a.md"); ok {
		t.Error("tree not refreshed after delete")
	}
}

func TestDeleteDeclined(t *testing.T) {
	c, mem, rec := newTestController(t, map[string]string{"a.md": "a"})
	rec.answer = false
	c.Delete("a.md")
	settle(t, c)
	if mem.Calls(memory.OpRemove) != 0 {
		t.Error("declined delete reached the backend")
	}
}

func TestDeleteFolderRemovesEverythingUnderIt(t *testing.T) {
	c, mem, _ := newTestController(t, map[string]string{
		"posts/a.md":                          "a",
		"posts/2024/b.md":                     "b",
		"posts/empty/.emptyFolderPlaceholder": "",
		"postscript.md":                       "keep",
	})
	c.Refresh()
	settle(t, c)

	c.DeleteFolder("posts/")
	settle(t, c)

	if keys := mem.Keys(); len(keys) != 1 || keys[0] != "postscript.md" {
		t.Errorf("keys left = %v", keys)
	}
	if _, ok := c.Forest().Folder("posts"); ok {
		t.Error("folder still in tree")
	}
}

func TestRename(t *testing.T) {
	c, mem, rec := newTestController(t, map[string]string{"posts/a.md": "content"})
	c.Refresh()
	settle(t, c)
	c.Open("posts/a.md")
	settle(t, c)

	c.Rename("posts/a.md", "b.md")
	settle(t, c)

	if _, ok := mem.Content("posts/a.md"); ok {
		t.Error("old key still present")
	}
	if got, _ := mem.Content("posts/b.md"); got != "content" {
		t.Errorf("new key content = %q", got)
	}
	if c.Document().Key != "posts/b.md" {
		t.Errorf("open document key = %q", c.Document().Key)
	}
	if !strings.Contains(strings.Join(rec.infos, "\n"), "File renamed from 'a.md' to 'b.md'") {
		t.Errorf("infos = %v", rec.infos)
	}
}

func TestRenameNoopAndConflict(t *testing.T) {
	c, mem, rec := newTestController(t, map[string]string{"a.md": "a", "b.md": "b"})
	c.Refresh()
	settle(t, c)

	c.Rename("a.md", "a.md")
	c.Rename("a.md", "  ")
	if c.Pending() != 0 {
		t.Fatal("no-op renames should not dispatch")
	}

	c.Rename("a.md", "b.md")
	settle(t, c)
	if got, _ := mem.Content("b.md"); got != "b" {
		t.Error("rename must not overwrite an existing file")
	}
	if _, ok := mem.Content("a.md"); !ok {
		t.Error("original must survive a failed rename")
	}
	if len(rec.errors) != 1 || !strings.HasPrefix(rec.errors[0], "Rename Error") {
		t.Errorf("errors = %v", rec.errors)
	}
}

func TestRenameRejectsPaths(t *testing.T) {
	c, mem, rec := newTestController(t, map[string]string{"posts/a.md": "a"})
	c.Refresh()
	settle(t, c)

	c.Rename("posts/a.md", "../a.md")
	c.Rename("posts/a.md", "drafts/a.md")
	if c.Pending() != 0 {
		t.Fatal("names with separators must not dispatch")
	}
	if len(rec.errors) != 2 {
		t.Errorf("errors = %v", rec.errors)
	}
	if _, ok := mem.Content("posts/a.md"); !ok {
		t.Error("original must be untouched")
	}
}

func TestCreateFolderAndSubfolder(t *testing.T) {
	c, mem, _ := newTestController(t, nil)
	c.CreateFolder("/articles/")
	settle(t, c)
	c.CreateSubfolder("articles", "drafts")
	settle(t, c)

	for _, k := range []string{"articles/.emptyFolderPlaceholder", "articles/drafts/.emptyFolderPlaceholder"} {
		if _, ok := mem.Content(k); !ok {
			t.Errorf("missing sentinel %s, keys = %v", k, mem.Keys())
		}
	}
	f, ok := c.Forest().Folder("articles/drafts")
	if !ok || len(f.Children) != 0 {
		t.Errorf("new folder should be present and empty: %+v", f)
	}
	if !c.Expansion().IsExpanded("articles") {
		t.Error("parent of a new folder should be opened")
	}

	// Creating it again is not an error.
	c.CreateFolder("articles")
	settle(t, c)
}

func TestCreateSubfolderValidation(t *testing.T) {
	c, _, rec := newTestController(t, nil)
	c.CreateSubfolder("articles", "")
	c.CreateSubfolder("articles", "a/b")
	c.CreateFolder("  /  ")
	if c.Pending() != 0 {
		t.Error("invalid names must not dispatch")
	}
	if len(rec.errors) != 2 {
		t.Errorf("errors = %v", rec.errors)
	}
}

func TestFilterView(t *testing.T) {
	c, _, rec := newTestController(t, map[string]string{
		"posts/hello.md": "",
		"posts/bye.md":   "",
		"notes/todo.md":  "",
	})
	c.Refresh()
	settle(t, c)
	before := rec.trees

	c.SetFilter(" HELLO ")
	if rec.trees != before+1 {
		t.Error("SetFilter should notify")
	}
	v := c.View()
	if _, ok := v.File("posts/hello.md"); !ok {
		t.Error("match missing from view")
	}
	if _, ok := v.File("posts/bye.md"); ok {
		t.Error("non-match in view")
	}
	if _, ok := v.Folder("notes"); ok {
		t.Error("folder without matches in view")
	}
	if len(c.Forest().Files()) != 3 {
		t.Error("filter must not change the forest")
	}

	c.SetFilter("HELLO ")
	if rec.trees != before+1 {
		t.Error("unchanged query should not notify")
	}
}

func TestExpandCollapseAll(t *testing.T) {
	c, _, _ := newTestController(t, map[string]string{"a/b/c.md": ""})
	c.Refresh()
	settle(t, c)

	c.ExpandAll()
	for _, f := range c.Forest().Folders() {
		if !f.Expanded {
			t.Errorf("%s not expanded", f.FullPath)
		}
		if !c.Expansion().IsExpanded(f.FullPath) {
			t.Errorf("%s not recorded as expanded", f.FullPath)
		}
	}
	c.CollapseAll()
	if c.Expansion().Len() != 0 {
		t.Error("CollapseAll should clear the expansion state")
	}
	c.Expand("a")
	c.Collapse("a")
	if c.Expansion().IsExpanded("a") {
		t.Error("Collapse after Expand should close")
	}
}

func TestSharedExpansion(t *testing.T) {
	exp := tree.NewExpansion()
	exp.Expand("posts")
	mem := memory.New("b").Seed(map[string]string{"posts/a.md": ""})
	c, _ := New(Options{Backend: mem, Expansion: exp})
	c.Refresh()
	settle(t, c)
	if f, _ := c.Forest().Folder("posts"); !f.Expanded {
		t.Error("expansion passed in Options should be used")
	}
}

func TestEventsPublished(t *testing.T) {
	bus := events.NewEventBus(64)
	all := bus.SubscribeAll()
	mem := memory.New("b").Seed(map[string]string{"a.md": ""})
	c, _ := New(Options{Backend: mem, Bus: bus})

	c.Refresh()
	settle(t, c)

	seen := map[events.EventType]int{}
	for len(all) > 0 {
		seen[(<-all).Type()]++
	}
	for _, typ := range []events.EventType{events.EventStatus, events.EventOperationStarted, events.EventOperationCompleted, events.EventTreeRebuilt} {
		if seen[typ] == 0 {
			t.Errorf("no %s event", typ)
		}
	}
}

func TestExecHook(t *testing.T) {
	mem := memory.New("b")
	calls := 0
	c, _ := New(Options{Backend: mem, Exec: func(fn func()) { calls++; fn() }})
	c.Refresh()
	settle(t, c)
	if calls != 1 {
		t.Errorf("Exec calls = %d", calls)
	}
}

func TestStepAndRun(t *testing.T) {
	c, _, _ := newTestController(t, map[string]string{"a.md": ""})
	if c.Step() {
		t.Error("Step with an empty queue should return false")
	}
	c.Refresh()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for c.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
	if c.Pending() != 0 {
		t.Error("Run did not apply the refresh")
	}
}

func TestDefaultRemotePath(t *testing.T) {
	if got := DefaultRemotePath(filepath.Join("some", "dir", "article.mdx")); got != "posts/article.mdx" {
		t.Errorf("DefaultRemotePath = %q", got)
	}
}
