package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
)

// fakeStorage mimics the parts of the storage API the client uses.
type fakeStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	requests []string
}

func newFakeStorage(t *testing.T, objects map[string]string) (*fakeStorage, *Client) {
	t.Helper()
	fs := &fakeStorage{objects: map[string][]byte{}}
	for k, v := range objects {
		fs.objects[k] = []byte(v)
	}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL + "/", Key: "secret", Bucket: "mdx-files", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fs, c
}

func (fs *fakeStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.requests = append(fs.requests, r.Method+" "+r.URL.EscapedPath())

	if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("apikey") != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"statusCode":"401","error":"Unauthorized","message":"invalid JWT"}`)
		return
	}

	const objPrefix = "/storage/v1/object/mdx-files/"
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/list/mdx-files":
		fs.list(w, r)
	case r.Method == http.MethodDelete && r.URL.Path == "/storage/v1/object/mdx-files":
		var body struct{ Prefixes []string }
		json.NewDecoder(r.Body).Decode(&body)
		for _, k := range body.Prefixes {
			delete(fs.objects, k)
		}
		io.WriteString(w, `[]`)
	case strings.HasPrefix(r.URL.Path, objPrefix):
		key := strings.TrimPrefix(r.URL.Path, objPrefix)
		switch r.Method {
		case http.MethodPost:
			if _, ok := fs.objects[key]; ok {
				// The API answers duplicates with 400 and the real code in the body.
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`)
				return
			}
			fallthrough
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			fs.objects[key] = data
			io.WriteString(w, `{"Key":"mdx-files/`+key+`"}`)
		case http.MethodGet:
			data, ok := fs.objects[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				io.WriteString(w, `{"statusCode":"404","error":"not_found","message":"Object not found"}`)
				return
			}
			w.Write(data)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (fs *fakeStorage) list(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	json.NewDecoder(r.Body).Decode(&req)
	prefix := req.Prefix
	if prefix != "" {
		prefix += "/"
	}

	type item struct {
		Name     string         `json:"name"`
		ID       *string        `json:"id"`
		Updated  string         `json:"updated_at,omitempty"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}
	seen := map[string]bool{}
	var items []item
	for key, data := range fs.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			name := rest[:i]
			if !seen[name] {
				seen[name] = true
				items = append(items, item{Name: name})
			}
			continue
		}
		id := "id-" + key
		items = append(items, item{Name: rest, ID: &id, Updated: "2024-06-18T12:34:56.000Z",
			Metadata: map[string]any{"size": len(data), "mimetype": "text/markdown"}})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	if req.Offset < len(items) {
		items = items[req.Offset:]
	} else {
		items = nil
	}
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}
	if items == nil {
		items = []item{}
	}
	json.NewEncoder(w).Encode(items)
}

func TestList_Recursive(t *testing.T) {
	_, c := newFakeStorage(t, map[string]string{
		"posts/2024/hello.mdx":           "# Hello",
		"posts/intro.md":                 "intro",
		"drafts/.emptyFolderPlaceholder": "",
		"README.md":                      "readme",
	})

	objs, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	got := map[string]storage.Object{}
	for _, o := range objs {
		got[o.Key] = o
	}
	for _, folder := range []string{"posts", "posts/2024", "drafts"} {
		if o, ok := got[folder]; !ok || !o.IsPlaceholder() {
			t.Errorf("folder %s should be listed as placeholder, got %+v", folder, o)
		}
	}
	hello, ok := got["posts/2024/hello.mdx"]
	if !ok {
		t.Fatal("nested file missing")
	}
	if hello.IsPlaceholder() || hello.Size != 7 || hello.UpdatedAt == "" || hello.ContentType != "text/markdown" {
		t.Errorf("unexpected metadata %+v", hello)
	}
	if _, ok := got["drafts/.emptyFolderPlaceholder"]; !ok {
		t.Error("sentinel object should be listed")
	}
	if len(objs) != 7 {
		t.Errorf("expected 7 objects, got %d", len(objs))
	}
}

func TestUpload_AlreadyExistsThenUpdate(t *testing.T) {
	fs, c := newFakeStorage(t, map[string]string{"posts/a.md": "old"})
	ctx := context.Background()

	err := c.Upload(ctx, "posts/a.md", []byte("new"), "text/markdown")
	if !storage.IsAlreadyExists(err) {
		t.Fatalf("expected already-exists, got %v", err)
	}
	var se *storage.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusConflict {
		t.Errorf("status code should come from the body, got %v", err)
	}

	if err := c.Update(ctx, "posts/a.md", []byte("new"), "text/markdown"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if string(fs.objects["posts/a.md"]) != "new" {
		t.Errorf("content not updated: %q", fs.objects["posts/a.md"])
	}

	if err := c.Upload(ctx, "posts/b.md", []byte("b"), ""); err != nil {
		t.Fatalf("Upload new key: %v", err)
	}
}

func TestDownload(t *testing.T) {
	_, c := newFakeStorage(t, map[string]string{"posts/my post.md": "body"})
	ctx := context.Background()

	data, err := c.Download(ctx, "posts/my post.md")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "body" {
		t.Errorf("data = %q", data)
	}

	if _, err := c.Download(ctx, "posts/missing.md"); !storage.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := c.Download(ctx, "/"); !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("expected invalid key, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	fs, c := newFakeStorage(t, map[string]string{"a.md": "a", "b.md": "b", "c.md": "c"})

	if err := c.Remove(context.Background(), []string{"a.md", "b.md"}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(fs.objects) != 1 {
		t.Errorf("expected 1 object left, got %d", len(fs.objects))
	}
	n := len(fs.requests)
	if err := c.Remove(context.Background(), nil); err != nil {
		t.Fatalf("Remove(nil): %v", err)
	}
	if len(fs.requests) != n {
		t.Error("removing nothing should not hit the server")
	}
}

func TestUnauthorized(t *testing.T) {
	fs, _ := newFakeStorage(t, nil)
	srv := httptest.NewServer(fs)
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, Key: "wrong", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	err = c.Ping(context.Background())
	var se *storage.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid JWT") {
		t.Errorf("message should carry the API error, got %q", err)
	}
}

func TestPublicURL(t *testing.T) {
	c, err := New(Config{URL: "https://abc.supabase.co/", Key: "k"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.PublicURL("posts/hello world.mdx")
	if err != nil {
		t.Fatal(err)
	}
	want := "https://abc.supabase.co/storage/v1/object/public/mdx-files/posts/hello%20world.mdx"
	if got != want {
		t.Errorf("PublicURL = %q, want %q", got, want)
	}

	c, _ = New(Config{URL: "https://abc.supabase.co", Key: "k", PublicBaseURL: "https://cdn.example.com/"})
	if got, _ := c.PublicURL("a.md"); got != "https://cdn.example.com/a.md" {
		t.Errorf("PublicURL with base = %q", got)
	}
	if c.Name() != "supabase:mdx-files" {
		t.Errorf("Name = %q", c.Name())
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{URL: "not a url", Key: "k"}); err == nil {
		t.Error("expected error for bad URL")
	}
	if _, err := New(Config{URL: "https://abc.supabase.co"}); err == nil {
		t.Error("expected error for missing key")
	}
}
