// Package memory is an in-process storage.Backend. It backs the "memory"
// provider used for offline demos and is the backend of choice in tests,
// where Fail injects errors per operation.
package memory

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
)

// Operation names accepted by Fail and Calls.
const (
	OpList     = "list"
	OpUpload   = "upload"
	OpUpdate   = "update"
	OpDownload = "download"
	OpRemove   = "remove"
)

type entry struct {
	id          string
	data        []byte
	contentType string
	updated     time.Time
}

// Backend keeps objects in a map guarded by a mutex.
type Backend struct {
	mu       sync.Mutex
	bucket   string
	objects  map[string]*entry
	failures map[string]error
	calls    map[string]int
	seq      int
	now      func() time.Time
}

// New returns an empty Backend for bucket.
func New(bucket string) *Backend {
	return &Backend{
		bucket:   bucket,
		objects:  make(map[string]*entry),
		failures: make(map[string]error),
		calls:    make(map[string]int),
		now:      time.Now,
	}
}

// Seed stores the given key/content pairs without counting calls.
func (b *Backend) Seed(files map[string]string) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range files {
		b.objects[k] = &entry{id: b.nextID(), data: []byte(v), contentType: storage.ContentTypeFor(k), updated: b.now()}
	}
	return b
}

// SetClock replaces the timestamp source.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
}

// Fail makes every later call of op return err. A nil err clears it.
func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// Calls returns how many times op was invoked.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Keys returns the stored keys in lexical order.
func (b *Backend) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Content returns the stored bytes of key.
func (b *Backend) Content(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.objects[key]
	if !ok {
		return "", false
	}
	return string(e.data), true
}

// nextID returns a fresh object ID. Caller holds b.mu.
func (b *Backend) nextID() string {
	b.seq++
	return fmt.Sprintf("obj-%06d", b.seq)
}

// begin counts the call and returns the injected failure, if any.
// Caller holds b.mu.
func (b *Backend) begin(op string) error {
	b.calls[op]++
	return b.failures[op]
}

// Name implements storage.Backend.
func (b *Backend) Name() string {
	return "memory:" + b.bucket
}

// List implements storage.Backend.
func (b *Backend) List(ctx context.Context) ([]storage.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpList); err != nil {
		return nil, err
	}
	out := make([]storage.Object, 0, len(b.objects))
	for k, e := range b.objects {
		out = append(out, storage.Object{
			Key:         k,
			ID:          e.id,
			Size:        int64(len(e.data)),
			UpdatedAt:   e.updated.UTC().Format(time.RFC3339),
			ContentType: e.contentType,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Upload implements storage.Backend.
func (b *Backend) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return b.put(ctx, OpUpload, key, data, contentType)
}

// Update implements storage.Backend.
func (b *Backend) Update(ctx context.Context, key string, data []byte, contentType string) error {
	return b.put(ctx, OpUpdate, key, data, contentType)
}

func (b *Backend) put(ctx context.Context, op, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(op); err != nil {
		return err
	}
	if _, ok := b.objects[key]; ok && op == OpUpload {
		return &storage.StatusError{Op: op, Key: key, StatusCode: 409, Message: "The resource already exists"}
	}
	if contentType == "" {
		contentType = storage.ContentTypeFor(key)
	}
	b.objects[key] = &entry{
		id:          b.nextID(),
		data:        append([]byte(nil), data...),
		contentType: contentType,
		updated:     b.now(),
	}
	return nil
}

// Download implements storage.Backend.
func (b *Backend) Download(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpDownload); err != nil {
		return nil, err
	}
	e, ok := b.objects[key]
	if !ok {
		return nil, &storage.StatusError{Op: OpDownload, Key: key, StatusCode: 404, Message: "Object not found"}
	}
	return append([]byte(nil), e.data...), nil
}

// Remove implements storage.Backend.
func (b *Backend) Remove(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin(OpRemove); err != nil {
		return err
	}
	for _, k := range keys {
		delete(b.objects, k)
	}
	return nil
}

// PublicURL implements storage.Backend.
func (b *Backend) PublicURL(key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	segs := strings.Split(strings.Trim(key, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("memory://%s/%s", b.bucket, strings.Join(segs, "/")), nil
}

// Ping implements storage.Pinger.
func (b *Backend) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Compile-time interface verification
var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Pinger  = (*Backend)(nil)
)
