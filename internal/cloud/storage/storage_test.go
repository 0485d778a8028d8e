package storage

import (
	"errors"
	"fmt"
	"testing"
)

func TestObjectFlags(t *testing.T) {
	if !(Object{Key: "drafts"}).IsPlaceholder() {
		t.Error("object without ID should be a placeholder")
	}
	if (Object{Key: "a.md", ID: "1"}).IsPlaceholder() {
		t.Error("object with ID should not be a placeholder")
	}
	if !(Object{Key: "drafts/.emptyFolderPlaceholder", ID: "2"}).IsSentinel() {
		t.Error("sentinel suffix not detected")
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"posts/a.md", true},
		{"/posts/a.md", true},
		{"a.md", true},
		{"", false},
		{"/", false},
		{"///", false},
		{"posts/../secret", false},
		{"./a.md", false},
		{"posts/a\n.md", false},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if tt.ok && err != nil {
			t.Errorf("ValidateKey(%q) unexpected error: %v", tt.key, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) = %v, want ErrInvalidKey", tt.key, err)
		}
	}
}

func TestKeyHelpers(t *testing.T) {
	if got := Join("posts/", "", "/2024", "a.md"); got != "posts/2024/a.md" {
		t.Errorf("Join = %q", got)
	}
	if got := Join("", "a.md"); got != "a.md" {
		t.Errorf("Join root = %q", got)
	}
	if got := Base("posts/2024/a.md"); got != "a.md" {
		t.Errorf("Base = %q", got)
	}
	if got := Base("a.md"); got != "a.md" {
		t.Errorf("Base root = %q", got)
	}
	if got := Dir("posts/2024/a.md"); got != "posts/2024" {
		t.Errorf("Dir = %q", got)
	}
	if got := Dir("a.md"); got != "" {
		t.Errorf("Dir root = %q", got)
	}
	if got := SentinelKey("drafts/"); got != "drafts/.emptyFolderPlaceholder" {
		t.Errorf("SentinelKey = %q", got)
	}
	if !IsSentinelKey(".emptyFolderPlaceholder") || !IsSentinelKey("a/b/.emptyFolderPlaceholder") {
		t.Error("sentinel keys not recognized")
	}
	if !IsSentinelKey("drafts/old.emptyFolderPlaceholder") {
		t.Error("a key ending in the sentinel suffix is a marker")
	}
	if IsSentinelKey("drafts/.emptyFolderPlaceholder.md") {
		t.Error("the sentinel must be a suffix")
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"posts/a.md":                     "text/markdown",
		"posts/a.MDX":                    "text/markdown",
		"drafts/.emptyFolderPlaceholder": "text/plain",
		"README":                         "application/octet-stream",
		"img/logo.png":                   "image/png",
	}
	for key, want := range tests {
		if got := ContentTypeFor(key); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestIsAlreadyExists(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrAlreadyExists, true},
		{fmt.Errorf("upload: %w", ErrAlreadyExists), true},
		{&StatusError{Op: "upload", StatusCode: 409}, true},
		{&StatusError{Op: "upload", StatusCode: 400, Message: `{"error":"Duplicate"}`}, true},
		{errors.New("The resource already exists"), true},
		{&StatusError{Op: "upload", StatusCode: 500, Message: "boom"}, false},
		{ErrNotFound, false},
	}
	for _, tt := range tests {
		if got := IsAlreadyExists(tt.err); got != tt.want {
			t.Errorf("IsAlreadyExists(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestStatusErrorNotFound(t *testing.T) {
	err := fmt.Errorf("download: %w", &StatusError{Op: "download", Key: "a.md", StatusCode: 404})
	if !IsNotFound(err) {
		t.Error("404 should match ErrNotFound")
	}
	if got := err.Error(); got != "download: download a.md: 404 " {
		t.Errorf("unexpected message %q", got)
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2024-06-18T12:34:56Z", "2024-06-18T12:34:56.123+00:00", "2024-06-18T12:34:56.123456"} {
		if _, ok := ParseTime(s); !ok {
			t.Errorf("ParseTime(%q) failed", s)
		}
	}
	if _, ok := ParseTime("notadate"); ok {
		t.Error("ParseTime should reject garbage")
	}
}
