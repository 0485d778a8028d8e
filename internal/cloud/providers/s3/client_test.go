package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
)

// fakeS3 serves the handful of path-style S3 calls the client makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/mdx-files")
	key := strings.TrimPrefix(path, "/")

	switch {
	case r.Method == http.MethodGet && key == "" && r.URL.Query().Get("list-type") == "2":
		w.Header().Set("Content-Type", "application/xml")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>mdx-files</Name><IsTruncated>false</IsTruncated>`)
		for k, v := range f.objects {
			fmt.Fprintf(&b, `<Contents><Key>%s</Key><LastModified>2024-06-18T12:34:56.000Z</LastModified><ETag>&quot;etag-%d&quot;</ETag><Size>%d</Size></Contents>`, k, len(v), len(v))
		}
		b.WriteString(`</ListBucketResult>`)
		io.WriteString(w, b.String())

	case r.Method == http.MethodPut && key != "":
		if r.Header.Get("If-None-Match") == "*" {
			if _, ok := f.objects[key]; ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusPreconditionFailed)
				io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>PreconditionFailed</Code><Message>At least one of the pre-conditions you specified did not hold</Message></Error>`)
				return
			}
		}
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = string(data)
		w.Header().Set("ETag", `"new"`)
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && key != "":
		v, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		io.WriteString(w, v)

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newTestClient(t *testing.T, objects map[string]string) (*fakeS3, *Client) {
	t.Helper()
	// Keep the developer's AWS profile out of the test.
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))
	t.Setenv("AWS_PROFILE", "")

	f := &fakeS3{objects: objects}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		Bucket:          "mdx-files",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		HTTPClient:      srv.Client(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f, c
}

func TestList(t *testing.T) {
	_, c := newTestClient(t, map[string]string{
		"posts/a.md": "hello",
		"drafts/":    "",
	})

	objs, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := map[string]storage.Object{}
	for _, o := range objs {
		got[o.Key] = o
	}
	if a := got["posts/a.md"]; a.IsPlaceholder() || a.Size != 5 || a.UpdatedAt != "2024-06-18T12:34:56Z" {
		t.Errorf("unexpected file object %+v", a)
	}
	if d, ok := got["drafts/"]; !ok || !d.IsPlaceholder() {
		t.Errorf("trailing-slash key should be a placeholder, got %+v", d)
	}
}

func TestUploadConditional(t *testing.T) {
	f, c := newTestClient(t, map[string]string{"posts/a.md": "old"})
	ctx := context.Background()

	err := c.Upload(ctx, "posts/a.md", []byte("new"), "text/markdown")
	if !storage.IsAlreadyExists(err) {
		t.Fatalf("expected already-exists, got %v", err)
	}
	if err := c.Update(ctx, "posts/a.md", []byte("new"), "text/markdown"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if f.objects["posts/a.md"] != "new" {
		t.Errorf("object = %q", f.objects["posts/a.md"])
	}
	if err := c.Upload(ctx, "posts/b.md", []byte("b"), ""); err != nil {
		t.Fatalf("Upload: %v", err)
	}
}

func TestDownload(t *testing.T) {
	_, c := newTestClient(t, map[string]string{"posts/a.md": "body"})
	ctx := context.Background()

	data, err := c.Download(ctx, "posts/a.md")
	if err != nil || string(data) != "body" {
		t.Fatalf("Download = %q, %v", data, err)
	}
	if _, err := c.Download(ctx, "posts/missing.md"); !storage.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestObjectFromS3(t *testing.T) {
	ts := time.Date(2024, 6, 18, 12, 34, 56, 0, time.UTC)
	o := objectFromS3(types.Object{Key: aws.String("a.md"), Size: aws.Int64(3), LastModified: &ts})
	if o.ID != "a.md" {
		t.Errorf("missing ETag should fall back to the key, got %q", o.ID)
	}
	if o.UpdatedAt != "2024-06-18T12:34:56Z" {
		t.Errorf("UpdatedAt = %q", o.UpdatedAt)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{&smithy.GenericAPIError{Code: "PreconditionFailed"}, storage.ErrAlreadyExists},
		{&smithy.GenericAPIError{Code: "ConditionalRequestConflict"}, storage.ErrAlreadyExists},
		{&types.NoSuchKey{}, storage.ErrNotFound},
		{&smithy.GenericAPIError{Code: "NotFound"}, storage.ErrNotFound},
	}
	for _, tt := range tests {
		if got := mapError(tt.err); !errors.Is(got, tt.want) {
			t.Errorf("mapError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	plain := errors.New("boom")
	if mapError(plain) != plain {
		t.Error("unknown errors pass through")
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Bucket: "mdx-files", Region: "eu-west-1"}, "https://mdx-files.s3.eu-west-1.amazonaws.com/posts/a%20b.md"},
		{Config{Bucket: "mdx-files", Endpoint: "http://localhost:9000"}, "http://localhost:9000/mdx-files/posts/a%20b.md"},
		{Config{Bucket: "mdx-files", PublicBaseURL: "https://cdn.example.com/"}, "https://cdn.example.com/posts/a%20b.md"},
	}
	for _, tt := range tests {
		c := &Client{publicBase: publicBase(tt.cfg, tt.cfg.Endpoint)}
		got, err := c.PublicURL("posts/a b.md")
		if err != nil || got != tt.want {
			t.Errorf("PublicURL = %q, %v; want %q", got, err, tt.want)
		}
	}
}
